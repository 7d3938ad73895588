package api

import "github.com/anvesha/vocalis/server/domain/entities"

// RenameConversationRequest renames a conversation.
type RenameConversationRequest struct {
	Name string `json:"name"`
}

// SendMessageRequest carries one typed user message.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessageResponse returns both messages the turn produced.
type SendMessageResponse struct {
	UserMessage entities.Message `json:"user_message"`
	BotMessage  entities.Message `json:"bot_message"`
}

// ErrorResponse is the common error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
