package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/anvesha/vocalis/server/domain/repositories"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"
)

// GeminiClient implements the ChatCompletion interface using Google's Gemini
// API. It is an alternative provider behind the same contract as the NVIDIA
// client, selected with LLM_PROVIDER=gemini.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	topP        float32
	maxTokens   int32
	maxRetries  int
	logger      *zap.Logger
}

var _ repositories.ChatCompletion = (*GeminiClient)(nil)

// NewGeminiClient creates a new Gemini completion client. The API key comes
// from GEMINI_API_KEY; sampling parameters and the retry bound reuse the
// shared Config.
func NewGeminiClient(config Config, logger *zap.Logger) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if config.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries cannot be negative, got %d", config.MaxRetries)
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", model))
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: float32(config.Temperature),
		topP:        float32(config.TopP),
		maxTokens:   int32(maxTokens),
		maxRetries:  config.MaxRetries,
		logger:      logger,
	}, nil
}

// Complete sends the turns to Gemini with the same bounded-retry and fallback
// semantics as the NVIDIA client. System turns become leading user content
// since Gemini has no system role in the contents list.
func (g *GeminiClient) Complete(ctx context.Context, turns []repositories.ChatMessage) (string, error) {
	var contents []*genai.Content
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == repositories.AssistantRole {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		TopP:            genai.Ptr(g.topP),
		MaxOutputTokens: g.maxTokens,
	}

	attempts := g.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			return g.extractText(response), nil
		}

		lastErr = err
		g.logger.Warn("Completion attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", attempts),
			zap.Error(err))

		if ctx.Err() != nil {
			return "", &CompletionError{Attempts: attempt, Last: lastErr}
		}
		if attempt < attempts {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	return "", &CompletionError{Attempts: attempts, Last: lastErr}
}

func (g *GeminiClient) extractText(response *genai.GenerateContentResponse) string {
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		g.logger.Warn("Completion service returned no usable choice")
		return NoContentFallback
	}

	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	if text == "" {
		return NoContentFallback
	}
	return text
}
