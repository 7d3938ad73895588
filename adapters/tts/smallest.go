package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anvesha/vocalis/server/domain/repositories"
)

const (
	defaultAPIBaseURL = "https://waves-api.smallest.ai/api/v1"
	defaultVoiceID    = "emily"
	defaultSpeed      = 1.0
	defaultSampleRate = 24000
	defaultTimeout    = 30 * time.Second
)

// SynthesisError is the per-chunk failure returned when the synthesis service
// is unreachable or answers with an error. Callers skip playback for the
// affected chunk; it is never fatal for the conversation.
type SynthesisError struct {
	StatusCode int
	Detail     string
	Cause      error
}

func (e *SynthesisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("synthesis failed: %v", e.Cause)
	}
	return fmt.Sprintf("synthesis service returned status %d: %s", e.StatusCode, e.Detail)
}

func (e *SynthesisError) Unwrap() error { return e.Cause }

// Config holds configuration for the smallest.ai Waves TTS adapter.
// Required fields:
// - APIKey: bearer credential for the synthesis endpoint
// Optional fields with defaults:
// - APIBaseURL: endpoint base URL (default: "https://waves-api.smallest.ai/api/v1")
// - VoiceID: default voice (default: "emily")
// - Speed: speaking rate multiplier (default: 1.0)
// - SampleRate: output sample rate in Hz (default: 24000)
// - AddWavHeader: prepend a WAV header so the bytes are directly playable
type Config struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	Speed        float64
	SampleRate   int
	AddWavHeader bool
	Timeout      time.Duration
}

// ValidateConfig validates the Config.
func ValidateConfig(config Config) error {
	if config.APIKey == "" {
		return fmt.Errorf("waves API key is required")
	}
	if config.Speed < 0 {
		return fmt.Errorf("speed must be positive, got %f", config.Speed)
	}
	if config.SampleRate < 0 {
		return fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	return nil
}

// NewConfigFromEnv creates a Config from environment variables.
func NewConfigFromEnv() Config {
	config := Config{
		APIKey:       os.Getenv("WAVES_API_KEY"),
		APIBaseURL:   os.Getenv("WAVES_API_BASE_URL"),
		VoiceID:      os.Getenv("WAVES_VOICE_ID"),
		AddWavHeader: true,
	}

	if v := os.Getenv("WAVES_SPEED"); v != "" {
		if speed, err := strconv.ParseFloat(v, 64); err == nil && speed > 0 {
			config.Speed = speed
		}
	}
	if v := os.Getenv("WAVES_SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
			config.SampleRate = rate
		}
	}
	if v := os.Getenv("WAVES_ADD_WAV_HEADER"); v != "" {
		if header, err := strconv.ParseBool(v); err == nil {
			config.AddWavHeader = header
		}
	}

	return config
}

// WavesTTS implements the SpeechSynthesizer interface using the smallest.ai
// Waves lightning API.
type WavesTTS struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	speed        float64
	sampleRate   int
	addWavHeader bool
	httpClient   *http.Client
	logger       *zap.Logger
}

var _ repositories.SpeechSynthesizer = (*WavesTTS)(nil)

type wavesRequest struct {
	VoiceID      string  `json:"voice_id"`
	Text         string  `json:"text"`
	Speed        float64 `json:"speed"`
	SampleRate   int     `json:"sample_rate"`
	AddWavHeader bool    `json:"add_wav_header"`
}

type wavesErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// NewWavesTTS creates a new Waves TTS instance.
func NewWavesTTS(config Config, logger *zap.Logger) (*WavesTTS, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
		logger.Info("Using default voice ID", zap.String("voiceID", voiceID))
	}

	speed := config.Speed
	if speed == 0 {
		speed = defaultSpeed
	}

	sampleRate := config.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &WavesTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   apiBaseURL,
		voiceID:      voiceID,
		speed:        speed,
		sampleRate:   sampleRate,
		addWavHeader: config.AddWavHeader,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}, nil
}

// DefaultVoiceID returns the voice used when a caller passes no voice id.
func (w *WavesTTS) DefaultVoiceID() string { return w.voiceID }

// Synthesize converts one text chunk to audio bytes. Exactly one request per
// call, no retry: transport failures and non-success statuses come back as a
// *SynthesisError and the caller degrades to silence for this chunk.
func (w *WavesTTS) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	if voiceID == "" {
		voiceID = w.voiceID
	}

	request := wavesRequest{
		VoiceID:      voiceID,
		Text:         text,
		Speed:        w.speed,
		SampleRate:   w.sampleRate,
		AddWavHeader: w.addWavHeader,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := w.apiBaseURL + "/lightning/get_speech"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return nil, &SynthesisError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readErrorDetail(resp.Body)
		w.logger.Warn("Waves API returned error",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("detail", detail))
		return nil, &SynthesisError{StatusCode: resp.StatusCode, Detail: detail}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SynthesisError{Cause: fmt.Errorf("failed to read audio body: %w", err)}
	}

	w.logger.Debug("Synthesized audio chunk",
		zap.String("voiceID", voiceID),
		zap.Int("textLength", len(text)),
		zap.Int("audioBytes", len(audio)))

	return audio, nil
}

func readErrorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var parsed wavesErrorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil {
		for _, candidate := range []string{parsed.Detail, parsed.Error, parsed.Message} {
			if candidate != "" {
				return candidate
			}
		}
	}
	return string(raw)
}
