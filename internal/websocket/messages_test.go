package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/anvesha/vocalis/server/domain/entities"
)

func TestParseClientMessage(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"send_message","conversation_id":"c1","text":"hi"}`))
	if err != nil {
		t.Fatalf("expected valid message, got error: %v", err)
	}
	if msg.Type != MessageTypeSendMessage {
		t.Errorf("expected type send_message, got %q", msg.Type)
	}
	if msg.ConversationID != "c1" || msg.Text != "hi" {
		t.Errorf("unexpected fields: %+v", msg)
	}
}

func TestParseClientMessageInvalidJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{broken`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseClientMessageMissingType(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"text":"hi"}`)); err == nil {
		t.Error("expected error for message without type")
	}
}

func TestNewConversationSummary(t *testing.T) {
	conversation := entities.NewConversation("Chat 1")
	conversation.Append(entities.SenderUser, "hello", nil)
	conversation.Append(entities.SenderBot, "hi there", nil)

	summary := NewConversationSummary(conversation)
	if summary.ID != conversation.ID {
		t.Errorf("expected ID %q, got %q", conversation.ID, summary.ID)
	}
	if summary.Name != "Chat 1" {
		t.Errorf("expected name Chat 1, got %q", summary.Name)
	}
	if summary.MessageCount != 2 {
		t.Errorf("expected 2 messages, got %d", summary.MessageCount)
	}
}

func TestServerMessageEncodeSetsTimestamp(t *testing.T) {
	raw := ServerMessage{Type: MessageTypeSpeakingEnd}.encode()

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("encode produced invalid JSON: %v", err)
	}
	ts, ok := decoded["timestamp"].(float64)
	if !ok {
		t.Fatal("expected timestamp field")
	}
	if time.Since(time.Unix(int64(ts), 0)) > time.Minute {
		t.Errorf("timestamp not recent: %v", ts)
	}
}
