package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/anvesha/vocalis/server/domain/entities"
	"github.com/anvesha/vocalis/server/domain/repositories"
)

// RetryExhaustedFallback is rendered in place of a bot reply when the
// completion service keeps failing. The user always sees a bot message.
const RetryExhaustedFallback = "Error fetching AI response after multiple attempts."

// ErrEmptyMessage is returned when a send carries no text.
var ErrEmptyMessage = errors.New("message text cannot be empty")

// Speaker drives audio playback of one utterance. voice.Sequencer satisfies
// this; the returned channel closes when playback is idle again.
type Speaker interface {
	Speak(ctx context.Context, text string) <-chan struct{}
}

// ConversationService orchestrates the send pipeline: append the user
// message, obtain a completion, append the bot message, then hand the bot
// text to the caller's speaker.
type ConversationService struct {
	store         *ConversationStore
	completion    repositories.ChatCompletion
	systemContext string
	logger        *zap.Logger
}

// NewConversationService creates a new conversation service. systemContext,
// when non-empty, is sent as a leading system turn on every completion.
func NewConversationService(
	store *ConversationStore,
	completion repositories.ChatCompletion,
	systemContext string,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		store:         store,
		completion:    completion,
		systemContext: systemContext,
		logger:        logger,
	}
}

// Store exposes the owned conversation store to the transport layer.
func (s *ConversationService) Store() *ConversationStore { return s.store }

// Send runs the pipeline for one user utterance. The user message is appended
// before the completion request and the bot message before playback starts, so
// both are visible to any renderer in that order. A nil speaker means
// text-only. Completion failure degrades to the fixed fallback text; Send
// never surfaces a completion fault to the caller.
func (s *ConversationService) Send(ctx context.Context, conversationID string, text string, speaker Speaker) (entities.Message, entities.Message, error) {
	if strings.TrimSpace(text) == "" {
		return entities.Message{}, entities.Message{}, ErrEmptyMessage
	}

	userMessage, err := s.store.Append(ctx, conversationID, entities.SenderUser, text, nil)
	if err != nil {
		return entities.Message{}, entities.Message{}, err
	}

	botText := s.respond(ctx, text)

	botMessage, err := s.store.Append(ctx, conversationID, entities.SenderBot, botText, nil)
	if err != nil {
		// The conversation was deleted mid-flight.
		return userMessage, entities.Message{}, err
	}

	if speaker != nil {
		speaker.Speak(ctx, botText)
	}

	return userMessage, botMessage, nil
}

func (s *ConversationService) respond(ctx context.Context, userText string) string {
	turns := make([]repositories.ChatMessage, 0, 2)
	if s.systemContext != "" {
		turns = append(turns, repositories.ChatMessage{
			Role:    repositories.SystemRole,
			Content: s.systemContext,
		})
	}
	turns = append(turns, repositories.ChatMessage{
		Role:    repositories.UserRole,
		Content: userText,
	})

	reply, err := s.completion.Complete(ctx, turns)
	if err != nil {
		s.logger.Error("Completion failed, rendering fallback text", zap.Error(err))
		return RetryExhaustedFallback
	}
	return reply
}
