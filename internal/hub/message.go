package hub

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/oshokin/alarm-bridge/internal/domain/alarm"
)

// MessageType discriminates the payload of a Message.
type MessageType string

const (
	// MessageStatus carries a decoded status record.
	MessageStatus MessageType = "status"
	// MessageAlert carries an alert event.
	MessageAlert MessageType = "alert"
	// MessageError carries a system-level error notification.
	MessageError MessageType = "error"
)

// Message is one published item. Exactly one payload field matches Type.
type Message struct {
	// Type selects the populated payload.
	Type MessageType `json:"type"`
	// Status is set for MessageStatus.
	Status *alarm.Status `json:"status,omitempty"`
	// Alert is set for MessageAlert.
	Alert *alarm.Event `json:"alert,omitempty"`
	// Error is set for MessageError.
	Error string `json:"error,omitempty"`
}

// StatusMessage wraps a status record.
func StatusMessage(status alarm.Status) Message {
	return Message{Type: MessageStatus, Status: &status}
}

// AlertMessage wraps an alert event.
func AlertMessage(event alarm.Event) Message {
	return Message{Type: MessageAlert, Alert: &event}
}

// ErrorMessage wraps a system-level error.
func ErrorMessage(err error) Message {
	return Message{Type: MessageError, Error: err.Error()}
}

// Marshal encodes the message as a JSON envelope.
func (m Message) Marshal() ([]byte, error) {
	data, err := sonic.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s message: %w", m.Type, err)
	}

	return data, nil
}
