package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/anvesha/vocalis/server/domain/entities"
)

// MessageType defines the type of WebSocket message.
type MessageType string

// Client-to-server message types.
const (
	MessageTypeSendMessage        MessageType = "send_message"
	MessageTypeNewConversation    MessageType = "new_conversation"
	MessageTypeRenameConversation MessageType = "rename_conversation"
	MessageTypeDeleteConversation MessageType = "delete_conversation"
	MessageTypeListConversations  MessageType = "list_conversations"
	MessageTypeVoiceStart         MessageType = "voice_start"
	MessageTypePlaybackEnd        MessageType = "playback_end"
	MessageTypePlaybackError      MessageType = "playback_error"
)

// Server-to-client message types.
const (
	MessageTypeConversationList      MessageType = "conversation_list"
	MessageTypeConversation          MessageType = "conversation"
	MessageTypeConversationDeleted   MessageType = "conversation_deleted"
	MessageTypeMessage               MessageType = "message"
	MessageTypeSpeaking              MessageType = "speaking"
	MessageTypeSpeakingEnd           MessageType = "speaking_end"
	MessageTypePlaybackStop          MessageType = "playback_stop"
	MessageTypeTranscript            MessageType = "transcript"
	MessageTypeTranscriptUnavailable MessageType = "transcript_unavailable"
	MessageTypeError                 MessageType = "error"
)

// ClientMessage is the envelope for every JSON frame a client sends. The
// populated fields depend on Type; a binary frame following voice_start
// carries the utterance audio itself.
type ClientMessage struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Text           string      `json:"text,omitempty"`
	Name           string      `json:"name,omitempty"`
	ClipID         string      `json:"clip_id,omitempty"`
	Detail         string      `json:"detail,omitempty"`
	SampleRate     int         `json:"sample_rate,omitempty"`
	Encoding       string      `json:"encoding,omitempty"`
	Language       string      `json:"language,omitempty"`
}

// ParseClientMessage decodes and minimally validates one inbound text frame.
func ParseClientMessage(raw []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("invalid message: %w", err)
	}
	if msg.Type == "" {
		return ClientMessage{}, fmt.Errorf("message missing type field")
	}
	return msg, nil
}

// ConversationSummary is the list-view projection of a conversation.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewConversationSummary projects a conversation for list responses.
func NewConversationSummary(conversation *entities.Conversation) ConversationSummary {
	return ConversationSummary{
		ID:           conversation.ID,
		Name:         conversation.Name,
		MessageCount: len(conversation.Messages),
		CreatedAt:    conversation.CreatedAt,
		UpdatedAt:    conversation.UpdatedAt,
	}
}

// ServerMessage is the envelope for every JSON frame the server sends.
type ServerMessage struct {
	Type           MessageType            `json:"type"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	Conversation   *entities.Conversation `json:"conversation,omitempty"`
	Conversations  []ConversationSummary  `json:"conversations,omitempty"`
	Message        *entities.Message      `json:"message,omitempty"`
	ClipID         string                 `json:"clip_id,omitempty"`
	Text           string                 `json:"text,omitempty"`
	Code           string                 `json:"code,omitempty"`
	Detail         string                 `json:"detail,omitempty"`
	Timestamp      int64                  `json:"timestamp,omitempty"`
}

func (m ServerMessage) encode() []byte {
	if m.Timestamp == 0 {
		m.Timestamp = time.Now().Unix()
	}
	payload, _ := json.Marshal(m)
	return payload
}

func errorMessage(code string, detail string) ServerMessage {
	return ServerMessage{Type: MessageTypeError, Code: code, Detail: detail}
}
