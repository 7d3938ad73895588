package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/anvesha/vocalis/server/adapters/memory"
	"github.com/anvesha/vocalis/server/domain/entities"
)

// failingRepo simulates a broken persistence collaborator.
type failingRepo struct{}

func (failingRepo) LoadAll(context.Context) (map[string]*entities.Conversation, error) {
	return nil, errors.New("storage unreachable")
}

func (failingRepo) Save(context.Context, *entities.Conversation) error {
	return errors.New("storage unreachable")
}

func (failingRepo) Delete(context.Context, string) error {
	return errors.New("storage unreachable")
}

func newTestStore(t *testing.T) *ConversationStore {
	t.Helper()
	return NewConversationStore(context.Background(), memory.NewConversationRepository(), zaptest.NewLogger(t))
}

func TestCreateAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := store.Create(ctx)
	second := store.Create(ctx)

	if first.Name != "Chat 1" || second.Name != "Chat 2" {
		t.Errorf("Expected auto names Chat 1/Chat 2, got %s/%s", first.Name, second.Name)
	}

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("Expected 2 conversations, got %d", len(list))
	}
	if list[0].ID != first.ID {
		t.Error("Expected list ordered by creation time")
	}
}

func TestAppendAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := store.Create(ctx)

	if _, err := store.Append(ctx, conv.ID, entities.SenderUser, "hello", nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, ok := store.Get(conv.ID)
	if !ok {
		t.Fatal("Conversation not found")
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Errorf("Unexpected messages: %+v", got.Messages)
	}

	// Snapshots must not leak internal state.
	got.Messages[0].Content = "mutated"
	again, _ := store.Get(conv.ID)
	if again.Messages[0].Content != "hello" {
		t.Error("Get returned a live reference instead of a snapshot")
	}

	if _, err := store.Append(ctx, "missing", entities.SenderUser, "x", nil); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Expected ErrConversationNotFound, got %v", err)
	}
}

func TestRenameAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := store.Create(ctx)

	if err := store.Rename(ctx, conv.ID, "Pricing"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	got, _ := store.Get(conv.ID)
	if got.Name != "Pricing" {
		t.Errorf("Expected renamed conversation, got %s", got.Name)
	}

	if err := store.Rename(ctx, "missing", "x"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Expected ErrConversationNotFound, got %v", err)
	}

	if err := store.Delete(ctx, conv.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := store.Get(conv.ID); ok {
		t.Error("Conversation still present after delete")
	}
	if err := store.Delete(ctx, conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Expected ErrConversationNotFound on double delete, got %v", err)
	}
}

func TestStoreSurvivesBrokenRepository(t *testing.T) {
	// A failed load means no prior history; failed writes are logged and
	// ignored with memory staying authoritative.
	store := NewConversationStore(context.Background(), failingRepo{}, zaptest.NewLogger(t))
	ctx := context.Background()

	conv := store.Create(ctx)
	if _, err := store.Append(ctx, conv.ID, entities.SenderUser, "hello", nil); err != nil {
		t.Fatalf("Append must succeed despite write failures: %v", err)
	}

	got, ok := store.Get(conv.ID)
	if !ok || len(got.Messages) != 1 {
		t.Error("In-memory state must remain authoritative when persistence fails")
	}

	if err := store.Delete(ctx, conv.ID); err != nil {
		t.Errorf("Delete must succeed despite repository failure: %v", err)
	}
}

func TestStoreHydratesFromRepository(t *testing.T) {
	repo := memory.NewConversationRepository()
	ctx := context.Background()

	conv := entities.NewConversation("Chat 1")
	conv.Append(entities.SenderUser, "hello", nil)
	if err := repo.Save(ctx, conv); err != nil {
		t.Fatalf("Seed save failed: %v", err)
	}

	store := NewConversationStore(ctx, repo, zaptest.NewLogger(t))

	got, ok := store.Get(conv.ID)
	if !ok {
		t.Fatal("Expected conversation restored from repository")
	}
	if len(got.Messages) != 1 {
		t.Errorf("Expected restored history, got %+v", got.Messages)
	}

	// Auto names continue after the restored count.
	next := store.Create(ctx)
	if next.Name != "Chat 2" {
		t.Errorf("Expected next auto name Chat 2, got %s", next.Name)
	}
}
