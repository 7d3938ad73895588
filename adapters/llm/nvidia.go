package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/anvesha/vocalis/server/domain/repositories"
)

const (
	defaultAPIBaseURL  = "https://integrate.api.nvidia.com/v1"
	defaultModel       = "meta/llama3-70b-instruct"
	defaultTemperature = 0.5
	defaultTopP        = 1.0
	defaultMaxTokens   = 1024
	defaultMaxRetries  = 3
	defaultTimeout     = 30 * time.Second
)

// NoContentFallback is surfaced as the reply when the completion service
// answers successfully but returns no usable choice. It is not an error.
const NoContentFallback = "No response from AI."

// CompletionError is the terminal error returned once every attempt against
// the completion service has failed.
type CompletionError struct {
	Attempts int
	Last     error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *CompletionError) Unwrap() error { return e.Last }

// Config holds configuration for the NVIDIA completion adapter.
// Required fields:
// - APIKey: bearer credential for the completion endpoint
// Optional fields with defaults:
// - APIBaseURL: endpoint base URL (default: "https://integrate.api.nvidia.com/v1")
// - Model: model identifier (default: "meta/llama3-70b-instruct")
// - Temperature, TopP, MaxTokens: sampling parameters
// - MaxRetries: additional attempts after the first failure (default: 3)
// - Timeout: per-request timeout
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	MaxRetries  int
	Timeout     time.Duration
}

// ValidateConfig validates the Config.
func ValidateConfig(config Config) error {
	if config.APIKey == "" {
		return fmt.Errorf("completion API key is required")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}
	if config.TopP < 0 || config.TopP > 1 {
		return fmt.Errorf("top_p must be between 0 and 1, got %f", config.TopP)
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("max tokens must be positive, got %d", config.MaxTokens)
	}
	if config.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative, got %d", config.MaxRetries)
	}
	return nil
}

// NewConfigFromEnv creates a Config from environment variables.
func NewConfigFromEnv() Config {
	config := Config{
		APIKey:      os.Getenv("NVIDIA_API_KEY"),
		APIBaseURL:  os.Getenv("NVIDIA_API_BASE_URL"),
		Model:       os.Getenv("LLM_MODEL"),
		Temperature: defaultTemperature,
		TopP:        defaultTopP,
		MaxTokens:   defaultMaxTokens,
		MaxRetries:  defaultMaxRetries,
	}

	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Temperature = f
		}
	}
	if v := os.Getenv("LLM_TOP_P"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.TopP = f
		}
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxTokens = n
		}
	}
	if v := os.Getenv("LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			config.MaxRetries = n
		}
	}

	return config
}

// NvidiaClient implements the ChatCompletion interface against an
// OpenAI-compatible chat completions endpoint.
type NvidiaClient struct {
	apiKey      string
	apiBaseURL  string
	model       string
	temperature float64
	topP        float64
	maxTokens   int
	maxRetries  int
	httpClient  *http.Client
	logger      *zap.Logger
}

var _ repositories.ChatCompletion = (*NvidiaClient)(nil)

// NewNvidiaClient creates a new completion client.
func NewNvidiaClient(config Config, logger *zap.Logger) (*NvidiaClient, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &NvidiaClient{
		apiKey:      config.APIKey,
		apiBaseURL:  apiBaseURL,
		model:       model,
		temperature: config.Temperature,
		topP:        config.TopP,
		maxTokens:   maxTokens,
		maxRetries:  config.MaxRetries,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

type chatCompletionRequest struct {
	Model       string     `json:"model"`
	Messages    []chatTurn `json:"messages"`
	Temperature float64    `json:"temperature"`
	TopP        float64    `json:"top_p"`
	MaxTokens   int        `json:"max_tokens"`
	Stream      bool       `json:"stream"`
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation turns and returns the first choice's text.
// Transport errors and non-success statuses are retried up to MaxRetries
// additional times, each retry a full independent request. After exhaustion a
// terminal *CompletionError is returned. A successful response without a
// usable choice yields NoContentFallback with a nil error.
func (c *NvidiaClient) Complete(ctx context.Context, turns []repositories.ChatMessage) (string, error) {
	request := chatCompletionRequest{
		Model:       c.model,
		Messages:    make([]chatTurn, 0, len(turns)),
		Temperature: c.temperature,
		TopP:        c.topP,
		MaxTokens:   c.maxTokens,
		Stream:      false,
	}
	for _, turn := range turns {
		request.Messages = append(request.Messages, chatTurn{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	attempts := c.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := c.attempt(ctx, requestBody)
		if err == nil {
			if text == "" {
				c.logger.Warn("Completion service returned no usable choice")
				return NoContentFallback, nil
			}
			return text, nil
		}

		lastErr = err
		c.logger.Warn("Completion attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", attempts),
			zap.Error(err))

		if ctx.Err() != nil {
			return "", &CompletionError{Attempts: attempt, Last: lastErr}
		}
	}

	return "", &CompletionError{Attempts: attempts, Last: lastErr}
}

func (c *NvidiaClient) attempt(ctx context.Context, body []byte) (string, error) {
	url := c.apiBaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion service returned status %d: %s", resp.StatusCode, string(errorBody))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}
