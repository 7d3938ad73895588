package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/anvesha/vocalis/server/domain/entities"
	"github.com/anvesha/vocalis/server/domain/repositories"
)

// ErrConversationNotFound is returned for operations on unknown conversation ids.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore owns the conversations of a running server. It keeps the
// authoritative copy in memory and mirrors every mutation to the repository
// best-effort: a failed load means no prior history, a failed write is logged
// and ignored.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*entities.Conversation
	created       int
	repo          repositories.ConversationRepository
	logger        *zap.Logger
}

// NewConversationStore creates a store hydrated from the repository.
func NewConversationStore(ctx context.Context, repo repositories.ConversationRepository, logger *zap.Logger) *ConversationStore {
	conversations, err := repo.LoadAll(ctx)
	if err != nil {
		logger.Warn("Failed to load stored conversations, starting empty", zap.Error(err))
		conversations = make(map[string]*entities.Conversation)
	}

	logger.Info("Conversation store ready", zap.Int("conversations", len(conversations)))

	return &ConversationStore{
		conversations: conversations,
		created:       len(conversations),
		repo:          repo,
		logger:        logger,
	}
}

// Create adds a new empty conversation with an auto-assigned display name.
func (s *ConversationStore) Create(ctx context.Context) *entities.Conversation {
	s.mu.Lock()
	s.created++
	conversation := entities.NewConversation(fmt.Sprintf("Chat %d", s.created))
	s.conversations[conversation.ID] = conversation
	snapshot := cloneConversation(conversation)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return snapshot
}

// Get returns a snapshot of one conversation.
func (s *ConversationStore) Get(id string) (*entities.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversation, ok := s.conversations[id]
	if !ok {
		return nil, false
	}
	return cloneConversation(conversation), true
}

// List returns snapshots of all conversations ordered by creation time.
func (s *ConversationStore) List() []*entities.Conversation {
	s.mu.RLock()
	out := make([]*entities.Conversation, 0, len(s.conversations))
	for _, conversation := range s.conversations {
		out = append(out, cloneConversation(conversation))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Rename changes a conversation's display name.
func (s *ConversationStore) Rename(ctx context.Context, id string, name string) error {
	s.mu.Lock()
	conversation, ok := s.conversations[id]
	if !ok {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	if err := conversation.Rename(name); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := cloneConversation(conversation)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return nil
}

// Delete removes a conversation.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.conversations[id]; !ok {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	delete(s.conversations, id)
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Warn("Failed to delete stored conversation, in-memory state remains authoritative",
			zap.String("conversationID", id),
			zap.Error(err))
	}
	return nil
}

// Append adds a message to a conversation and returns it. Messages are
// immutable once appended.
func (s *ConversationStore) Append(ctx context.Context, id string, sender entities.Sender, content string, card *entities.StructuredCard) (entities.Message, error) {
	s.mu.Lock()
	conversation, ok := s.conversations[id]
	if !ok {
		s.mu.Unlock()
		return entities.Message{}, ErrConversationNotFound
	}
	message := conversation.Append(sender, content, card)
	snapshot := cloneConversation(conversation)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return message, nil
}

func (s *ConversationStore) persist(ctx context.Context, conversation *entities.Conversation) {
	if err := s.repo.Save(ctx, conversation); err != nil {
		s.logger.Warn("Failed to persist conversation, in-memory state remains authoritative",
			zap.String("conversationID", conversation.ID),
			zap.Error(err))
	}
}

func cloneConversation(conversation *entities.Conversation) *entities.Conversation {
	clone := *conversation
	clone.Messages = append([]entities.Message(nil), conversation.Messages...)
	return &clone
}
