package voice

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/anvesha/vocalis/server/domain/repositories"
)

// Playback is one active audio clip. Done delivers exactly one completion
// event that collapses natural end and playback error. Stop halts the clip and
// releases its resources; it is safe to call after completion.
type Playback interface {
	Done() <-chan error
	Stop()
}

// Player starts playback of one synthesized clip and hands back its handle.
type Player interface {
	Play(ctx context.Context, audio []byte) (Playback, error)
}

// Sequencer turns bot text into strictly sequential audio playback. Chunks of
// one utterance play back-to-back in chunker order, at most one clip active at
// a time, and a new Speak call supersedes whatever is still in flight.
type Sequencer struct {
	synthesizer repositories.SpeechSynthesizer
	player      Player
	voiceID     string
	maxChunkLen int
	logger      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSequencer creates a sequencer bound to one client session.
func NewSequencer(
	synthesizer repositories.SpeechSynthesizer,
	player Player,
	voiceID string,
	maxChunkLen int,
	logger *zap.Logger,
) *Sequencer {
	if maxChunkLen <= 0 {
		maxChunkLen = DefaultMaxChunkLen
	}
	return &Sequencer{
		synthesizer: synthesizer,
		player:      player,
		voiceID:     voiceID,
		maxChunkLen: maxChunkLen,
		logger:      logger,
	}
}

// Speak starts speaking text, cancelling any in-flight utterance first: the
// active clip is stopped and released, and the result of any abandoned
// synthesis request is discarded when it arrives. Calling Speak while idle is
// a fresh start. The returned channel closes once the sequencer is idle again,
// whether by exhaustion, per-chunk failure, or supersession.
func (s *Sequencer) Speak(ctx context.Context, text string) <-chan struct{} {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		previous := s.done
		s.mu.Unlock()
		<-previous
		s.mu.Lock()
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		s.run(runCtx, text)
	}()

	return done
}

// Stop cancels any in-flight utterance and waits until the active clip has
// been released.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Sequencer) run(ctx context.Context, text string) {
	chunks := Split(text, s.maxChunkLen)

	for i, chunk := range chunks {
		if ctx.Err() != nil {
			return
		}
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		audio, err := s.synthesizer.Synthesize(ctx, chunk, s.voiceID)
		if ctx.Err() != nil {
			// Superseded while the request was in flight; the result, if
			// any, is discarded.
			return
		}
		if err != nil {
			s.logger.Warn("Synthesis failed, skipping chunk",
				zap.Int("chunk", i),
				zap.Int("totalChunks", len(chunks)),
				zap.Error(err))
			continue
		}

		playback, err := s.player.Play(ctx, audio)
		if err != nil {
			s.logger.Warn("Playback start failed, skipping chunk",
				zap.Int("chunk", i),
				zap.Error(err))
			continue
		}

		select {
		case playErr := <-playback.Done():
			playback.Stop()
			if playErr != nil {
				s.logger.Warn("Playback ended with error",
					zap.Int("chunk", i),
					zap.Error(playErr))
			}
		case <-ctx.Done():
			playback.Stop()
			return
		}
	}
}
