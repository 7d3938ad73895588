package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/anvesha/vocalis/server/domain/entities"
	"github.com/anvesha/vocalis/server/domain/repositories"
)

// ConversationRepository is an in-process repository for local development
// and tests. Contents do not survive a restart.
type ConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*entities.Conversation
}

var _ repositories.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates an empty in-memory repository.
func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		conversations: make(map[string]*entities.Conversation),
	}
}

// LoadAll returns a copy of every stored conversation keyed by id.
func (r *ConversationRepository) LoadAll(_ context.Context) (map[string]*entities.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*entities.Conversation, len(r.conversations))
	for id, conversation := range r.conversations {
		clone := *conversation
		clone.Messages = append([]entities.Message(nil), conversation.Messages...)
		out[id] = &clone
	}
	return out, nil
}

// Save stores a snapshot of the conversation.
func (r *ConversationRepository) Save(_ context.Context, conversation *entities.Conversation) error {
	if conversation == nil {
		return errors.New("conversation cannot be nil")
	}
	if err := conversation.Validate(); err != nil {
		return err
	}

	clone := *conversation
	clone.Messages = append([]entities.Message(nil), conversation.Messages...)

	r.mu.Lock()
	r.conversations[clone.ID] = &clone
	r.mu.Unlock()
	return nil
}

// Delete removes a conversation by id. Unknown ids are not an error.
func (r *ConversationRepository) Delete(_ context.Context, id string) error {
	if id == "" {
		return errors.New("conversation id cannot be empty")
	}

	r.mu.Lock()
	delete(r.conversations, id)
	r.mu.Unlock()
	return nil
}
