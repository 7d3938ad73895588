package memory

import (
	"context"
	"testing"

	"github.com/anvesha/vocalis/server/domain/entities"
)

func TestSaveAndLoadAll(t *testing.T) {
	repo := NewConversationRepository()
	ctx := context.Background()

	conv := entities.NewConversation("Chat 1")
	conv.Append(entities.SenderUser, "hello", nil)

	if err := repo.Save(ctx, conv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("Expected 1 conversation, got %d", len(loaded))
	}

	got := loaded[conv.ID]
	if got == nil {
		t.Fatal("Conversation not found by id")
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Errorf("Messages not persisted: %+v", got.Messages)
	}

	// Snapshots must be isolated from later mutation.
	conv.Append(entities.SenderBot, "hi", nil)
	reloaded, _ := repo.LoadAll(ctx)
	if len(reloaded[conv.ID].Messages) != 1 {
		t.Error("Saved snapshot was mutated through the original conversation")
	}
}

func TestSaveInvalidConversation(t *testing.T) {
	repo := NewConversationRepository()

	if err := repo.Save(context.Background(), nil); err == nil {
		t.Error("Expected error for nil conversation")
	}

	conv := entities.NewConversation("Chat 1")
	conv.ID = ""
	if err := repo.Save(context.Background(), conv); err == nil {
		t.Error("Expected validation error for empty id")
	}
}

func TestDelete(t *testing.T) {
	repo := NewConversationRepository()
	ctx := context.Background()

	conv := entities.NewConversation("Chat 1")
	if err := repo.Save(ctx, conv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := repo.Delete(ctx, conv.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	loaded, _ := repo.LoadAll(ctx)
	if len(loaded) != 0 {
		t.Errorf("Expected empty repository after delete, got %d", len(loaded))
	}

	// Unknown ids are not an error.
	if err := repo.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Deleting unknown id should not fail: %v", err)
	}

	if err := repo.Delete(ctx, ""); err == nil {
		t.Error("Expected error for empty id")
	}
}
