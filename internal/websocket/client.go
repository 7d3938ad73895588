package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/anvesha/vocalis/server/domain/repositories"
	"github.com/anvesha/vocalis/server/usecase"
	"github.com/anvesha/vocalis/server/voice"
)

const (
	defaultUtteranceSampleRate = 16000
	defaultUtteranceEncoding   = "LINEAR16"
	defaultUtteranceLanguage   = "en-US"
)

var _ voice.Player = (*Client)(nil)

// voiceCapture holds the recognition parameters armed by a voice_start frame
// for the binary utterance frame that follows.
type voiceCapture struct {
	conversationID string
	config         repositories.AudioConfig
}

// processMessage dispatches one inbound JSON frame.
func (c *Client) processMessage(raw []byte) {
	msg, err := ParseClientMessage(raw)
	if err != nil {
		c.logger.Warn("Invalid client message", zap.Error(err))
		c.sendControl(errorMessage("invalid_message", err.Error()))
		return
	}

	switch msg.Type {
	case MessageTypeSendMessage:
		c.handleSendMessage(msg.ConversationID, msg.Text)
	case MessageTypeNewConversation:
		c.handleNewConversation()
	case MessageTypeRenameConversation:
		c.handleRenameConversation(msg)
	case MessageTypeDeleteConversation:
		c.handleDeleteConversation(msg)
	case MessageTypeListConversations:
		c.sendConversationList()
	case MessageTypeVoiceStart:
		c.handleVoiceStart(msg)
	case MessageTypePlaybackEnd:
		c.handlePlaybackAck(msg.ClipID, nil)
	case MessageTypePlaybackError:
		detail := msg.Detail
		if detail == "" {
			detail = "playback failed"
		}
		c.handlePlaybackAck(msg.ClipID, errors.New(detail))
	default:
		c.logger.Warn("Unknown message type", zap.String("type", string(msg.Type)))
		c.sendControl(errorMessage("unknown_type", "unsupported message type: "+string(msg.Type)))
	}
}

// handleSendMessage runs one conversation turn and then starts speaking the
// reply. Both message events are delivered before any audio so the transcript
// the client renders never lags behind playback.
func (c *Client) handleSendMessage(conversationID string, text string) {
	userMsg, botMsg, err := c.hub.service.Send(c.ctx, conversationID, text, nil)
	if err != nil {
		code := "send_failed"
		if errors.Is(err, usecase.ErrConversationNotFound) {
			code = "conversation_not_found"
		} else if errors.Is(err, usecase.ErrEmptyMessage) {
			code = "empty_message"
		}
		c.sendControl(errorMessage(code, err.Error()))
		return
	}

	c.sendControl(ServerMessage{Type: MessageTypeMessage, ConversationID: conversationID, Message: &userMsg})
	c.sendControl(ServerMessage{Type: MessageTypeMessage, ConversationID: conversationID, Message: &botMsg})

	done := c.sequencer.Speak(c.ctx, botMsg.Content)
	go func() {
		<-done
		c.sendControl(ServerMessage{Type: MessageTypeSpeakingEnd, ConversationID: conversationID})
	}()
}

func (c *Client) handleNewConversation() {
	conversation := c.hub.service.Store().Create(c.ctx)
	c.sendControl(ServerMessage{
		Type:           MessageTypeConversation,
		ConversationID: conversation.ID,
		Conversation:   conversation,
	})
}

func (c *Client) handleRenameConversation(msg ClientMessage) {
	if err := c.hub.service.Store().Rename(c.ctx, msg.ConversationID, msg.Name); err != nil {
		c.sendControl(errorMessage("rename_failed", err.Error()))
		return
	}
	c.sendConversationList()
}

func (c *Client) handleDeleteConversation(msg ClientMessage) {
	if err := c.hub.service.Store().Delete(c.ctx, msg.ConversationID); err != nil {
		c.sendControl(errorMessage("delete_failed", err.Error()))
		return
	}
	c.sendControl(ServerMessage{Type: MessageTypeConversationDeleted, ConversationID: msg.ConversationID})
}

func (c *Client) sendConversationList() {
	conversations := c.hub.service.Store().List()
	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summaries = append(summaries, NewConversationSummary(conversation))
	}
	c.sendControl(ServerMessage{Type: MessageTypeConversationList, Conversations: summaries})
}

// handleVoiceStart arms speech recognition for the next binary frame.
func (c *Client) handleVoiceStart(msg ClientMessage) {
	capture := &voiceCapture{
		conversationID: msg.ConversationID,
		config: repositories.AudioConfig{
			SampleRate: msg.SampleRate,
			Encoding:   msg.Encoding,
			Language:   msg.Language,
		},
	}
	if capture.config.SampleRate == 0 {
		capture.config.SampleRate = defaultUtteranceSampleRate
	}
	if capture.config.Encoding == "" {
		capture.config.Encoding = defaultUtteranceEncoding
	}
	if capture.config.Language == "" {
		capture.config.Language = defaultUtteranceLanguage
	}

	c.mu.Lock()
	c.pendingVoice = capture
	c.mu.Unlock()
}

// processUtteranceAudio transcribes one recorded utterance and feeds the
// transcript through the same turn path as a typed message.
func (c *Client) processUtteranceAudio(audio []byte) {
	c.mu.Lock()
	capture := c.pendingVoice
	c.pendingVoice = nil
	c.mu.Unlock()

	if capture == nil {
		c.logger.Warn("Received audio without voice_start", zap.String("sessionID", c.sessionID))
		c.sendControl(errorMessage("unexpected_audio", "binary frame without a preceding voice_start"))
		return
	}

	if c.hub.speechToText == nil {
		c.sendControl(ServerMessage{
			Type:           MessageTypeTranscriptUnavailable,
			ConversationID: capture.conversationID,
			Detail:         "speech recognition is not configured",
		})
		return
	}

	transcript, err := c.hub.speechToText.TranscribeAudio(c.ctx, audio, capture.config)
	if err != nil {
		c.logger.Warn("Transcription failed", zap.Error(err))
		c.sendControl(ServerMessage{
			Type:           MessageTypeTranscriptUnavailable,
			ConversationID: capture.conversationID,
			Detail:         err.Error(),
		})
		return
	}

	c.sendControl(ServerMessage{
		Type:           MessageTypeTranscript,
		ConversationID: capture.conversationID,
		Text:           transcript,
	})
	c.handleSendMessage(capture.conversationID, transcript)
}

// handlePlaybackAck resolves the clip the client just finished or failed.
func (c *Client) handlePlaybackAck(clipID string, playErr error) {
	c.mu.Lock()
	playback := c.playback
	c.mu.Unlock()

	if playback == nil || playback.clipID != clipID {
		c.logger.Debug("Ack for unknown clip", zap.String("clipID", clipID))
		return
	}
	playback.resolve(playErr)
}

// abortPlayback unblocks a sequencer waiting on a clip ack that will never
// arrive after the connection drops.
func (c *Client) abortPlayback() {
	c.mu.Lock()
	playback := c.playback
	c.mu.Unlock()

	if playback != nil {
		playback.resolve(errors.New("connection closed"))
	}
}

// Play ships one synthesized clip to the client and returns a playback handle
// that resolves when the client acknowledges the clip.
func (c *Client) Play(ctx context.Context, audio []byte) (voice.Playback, error) {
	playback := &remotePlayback{
		client: c,
		clipID: uuid.NewString(),
		done:   make(chan error, 1),
	}

	c.mu.Lock()
	c.playback = playback
	c.mu.Unlock()

	c.sendControl(ServerMessage{Type: MessageTypeSpeaking, ClipID: playback.clipID})
	if !c.enqueue(WriteData{Type: websocket.BinaryMessage, Payload: audio}) {
		playback.resolve(errors.New("send buffer full"))
		return nil, errors.New("client send buffer full")
	}
	return playback, nil
}

// sendControl enqueues one JSON frame, dropping it if the session is gone.
func (c *Client) sendControl(msg ServerMessage) {
	if !c.enqueue(WriteData{Type: websocket.TextMessage, Payload: msg.encode()}) {
		c.logger.Debug("Dropped control frame", zap.String("type", string(msg.Type)))
	}
}

func (c *Client) enqueue(frame WriteData) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// remotePlayback tracks one clip playing on the client. The done channel is
// resolved exactly once, by an ack, by Stop, or by disconnect.
type remotePlayback struct {
	client *Client
	clipID string
	done   chan error

	mu       sync.Mutex
	resolved bool
}

func (p *remotePlayback) Done() <-chan error { return p.done }

// Stop tells the client to halt the clip. Stopping an already resolved clip
// is a no-op, so the sequencer's release after normal completion sends no
// extra frame.
func (p *remotePlayback) Stop() {
	if p.resolve(nil) {
		p.client.sendControl(ServerMessage{Type: MessageTypePlaybackStop, ClipID: p.clipID})
	}
}

func (p *remotePlayback) resolve(err error) bool {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return false
	}
	p.resolved = true
	p.mu.Unlock()

	p.done <- err

	p.client.mu.Lock()
	if p.client.playback == p {
		p.client.playback = nil
	}
	p.client.mu.Unlock()
	return true
}
