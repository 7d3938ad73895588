package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anvesha/vocalis/server/domain/entities"
	"github.com/anvesha/vocalis/server/domain/repositories"
)

// ConversationRepository persists conversations in a MongoDB collection, one
// document per conversation keyed by the conversation id.
type ConversationRepository struct {
	collection *mongo.Collection
}

var _ repositories.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new MongoDB conversation repository.
func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{
		collection: db.Collection("conversations"),
	}
}

// LoadAll returns every stored conversation keyed by id.
func (r *ConversationRepository) LoadAll(ctx context.Context) (map[string]*entities.Conversation, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	defer cursor.Close(ctx)

	conversations := make(map[string]*entities.Conversation)
	for cursor.Next(ctx) {
		var conversation entities.Conversation
		if err := cursor.Decode(&conversation); err != nil {
			return nil, fmt.Errorf("failed to decode conversation: %w", err)
		}
		conversations[conversation.ID] = &conversation
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return conversations, nil
}

// Save writes one conversation, replacing any previous version.
func (r *ConversationRepository) Save(ctx context.Context, conversation *entities.Conversation) error {
	if conversation == nil {
		return errors.New("conversation cannot be nil")
	}
	if err := conversation.Validate(); err != nil {
		return err
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": conversation.ID}, conversation, opts); err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", conversation.ID, err)
	}
	return nil
}

// Delete removes a conversation by id. Unknown ids are not an error.
func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("conversation id cannot be empty")
	}

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	return nil
}
