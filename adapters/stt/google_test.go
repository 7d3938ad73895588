package stt

import (
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/anvesha/vocalis/server/domain/repositories"
)

var _ repositories.SpeechToText = &GoogleSpeechToText{}

func TestGetAudioEncoding(t *testing.T) {
	cases := map[string]speechpb.RecognitionConfig_AudioEncoding{
		"WAV":       speechpb.RecognitionConfig_LINEAR16,
		"LINEAR16":  speechpb.RecognitionConfig_LINEAR16,
		"FLAC":      speechpb.RecognitionConfig_FLAC,
		"OGG_OPUS":  speechpb.RecognitionConfig_OGG_OPUS,
		"WEBM_OPUS": speechpb.RecognitionConfig_WEBM_OPUS,
	}

	for input, want := range cases {
		got, err := getAudioEncoding(input)
		if err != nil {
			t.Errorf("getAudioEncoding(%q) failed: %v", input, err)
		}
		if got != want {
			t.Errorf("getAudioEncoding(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := getAudioEncoding("MP9"); err == nil {
		t.Error("Expected error for unsupported encoding")
	}
}
