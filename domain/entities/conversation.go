package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// StructuredCard is an opaque display payload attached to some bot messages
// (product cards and similar). It carries no behavior and never enters the
// speech pipeline.
type StructuredCard struct {
	Title  string            `json:"title" bson:"title"`
	Specs  map[string]string `json:"specs,omitempty" bson:"specs,omitempty"`
	Price  string            `json:"price,omitempty" bson:"price,omitempty"`
	Images []string          `json:"images,omitempty" bson:"images,omitempty"`
}

// Message is a single turn in a conversation. Messages are immutable once
// appended; ordering is insertion order.
type Message struct {
	ID        string          `json:"id" bson:"id"`
	Sender    Sender          `json:"sender" bson:"sender"`
	Content   string          `json:"content" bson:"content"`
	Card      *StructuredCard `json:"card,omitempty" bson:"card,omitempty"`
	Timestamp time.Time       `json:"timestamp" bson:"timestamp"`
}

// Conversation owns an ordered sequence of messages under an opaque id.
type Conversation struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Messages  []Message `json:"messages" bson:"messages"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// NewConversation creates an empty conversation with a fresh id.
func NewConversation(name string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.NewString(),
		Name:      name,
		Messages:  make([]Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message to the end of the conversation and returns it.
func (c *Conversation) Append(sender Sender, content string, card *StructuredCard) Message {
	message := Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Content:   content,
		Card:      card,
		Timestamp: time.Now(),
	}
	c.Messages = append(c.Messages, message)
	c.UpdatedAt = message.Timestamp
	return message
}

// Rename changes the display name of the conversation.
func (c *Conversation) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("conversation name cannot be empty")
	}
	c.Name = name
	c.UpdatedAt = time.Now()
	return nil
}

// LastMessage returns the most recently appended message, or false when the
// conversation is empty.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Validate validates the conversation data.
func (c *Conversation) Validate() error {
	if c.ID == "" {
		return errors.New("conversation id is required")
	}
	if c.Name == "" {
		return errors.New("conversation name is required")
	}
	for i, m := range c.Messages {
		if m.Sender != SenderUser && m.Sender != SenderBot {
			return fmt.Errorf("message %d has invalid sender %q", i, m.Sender)
		}
	}
	return nil
}
