package repositories

import "context"

// SpeechSynthesizer converts one text chunk into playable audio bytes.
// A single request per call, no retry; failures are per-chunk and non-fatal.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error)
}
