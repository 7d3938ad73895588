package repositories

import (
	"context"

	"github.com/anvesha/vocalis/server/domain/entities"
)

// ConversationRepository persists conversations across process restarts.
// The in-memory store remains authoritative for a running session; read
// failures mean "no prior history" and write failures are logged and ignored
// by the caller.
type ConversationRepository interface {
	// LoadAll returns every stored conversation keyed by id.
	LoadAll(ctx context.Context) (map[string]*entities.Conversation, error)
	// Save writes one conversation, replacing any previous version.
	Save(ctx context.Context, conversation *entities.Conversation) error
	// Delete removes a conversation by id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}
