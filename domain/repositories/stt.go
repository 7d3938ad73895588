package repositories

import "context"

// SpeechToText abstracts speech recognition services. One invocation yields a
// single final transcript for one complete utterance.
type SpeechToText interface {
	TranscribeAudio(ctx context.Context, audioData []byte, config AudioConfig) (string, error)
}

// AudioConfig represents audio configuration for speech recognition.
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}
