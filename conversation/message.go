// Package conversation exports in-memory message threads to a single JSON
// document and reads such exports back.
//
// Example:
//
//	threads := conversation.Threads{
//	    "t1": {conversation.NewMessage("t1", "alice", "hi", conversation.MessageTypeNormal)},
//	}
//	if err := conversation.NewExporter().Export(threads, "/tmp/export.json"); err != nil {
//	    log.Fatal(err)
//	}
package conversation

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/opd-ai/posn/limits"
)

// MessageType represents the type of message.
type MessageType uint8

const (
	// MessageTypeNormal is a regular text message.
	MessageTypeNormal MessageType = iota
	// MessageTypeAction is an action message (like /me).
	MessageTypeAction
)

var messageTypeNames = [...]string{
	MessageTypeNormal: "normal",
	MessageTypeAction: "action",
}

var (
	// ErrInvalidType is returned for a message type outside the enumeration.
	ErrInvalidType = errors.New("invalid message type")

	// ErrEmptySender is returned for a message without a sender.
	ErrEmptySender = errors.New("message sender cannot be empty")

	// ErrInvalidContent is returned for content that is not valid UTF-8.
	ErrInvalidContent = errors.New("message content is not valid UTF-8")
)

func (t MessageType) valid() bool {
	return int(t) < len(messageTypeNames)
}

func (t MessageType) String() string {
	if !t.valid() {
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
	return messageTypeNames[t]
}

// MarshalText encodes the type by name.
func (t MessageType) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, uint8(t))
	}
	return []byte(messageTypeNames[t]), nil
}

// UnmarshalText decodes a type name.
func (t *MessageType) UnmarshalText(text []byte) error {
	for i, name := range messageTypeNames {
		if name == string(text) {
			*t = MessageType(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidType, text)
}

// Message is one entry of a conversation thread.
type Message struct {
	ID        string      `json:"id"`
	ThreadID  string      `json:"thread_id"`
	Sender    string      `json:"sender"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
}

// NewMessage creates a message with a fresh random ID stamped with the
// current time.
func NewMessage(threadID, sender, content string, messageType MessageType) Message {
	return Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Type:      messageType,
	}
}

// Validate checks that the message can be exported.
func (m Message) Validate() error {
	if m.Sender == "" {
		return ErrEmptySender
	}
	if !utf8.ValidString(m.Content) {
		return ErrInvalidContent
	}
	if err := limits.ValidateMessageContent(m.Content); err != nil {
		return err
	}
	if !m.Type.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidType, uint8(m.Type))
	}
	return nil
}
