package ws

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// typeCommand is the only client message type.
const typeCommand = "command"

// typeAck is the server reply to a command.
const typeAck = "ack"

// Request is a client message.
type Request struct {
	// Type must be "command"; empty is accepted as command.
	Type string `json:"type"`
	// ID correlates the acknowledgement. Assigned by the server when empty.
	ID string `json:"id,omitempty"`
	// Command is the raw operator command.
	Command string `json:"command"`
}

// Ack reports the outcome of a single command to its sender.
type Ack struct {
	// Type is always "ack".
	Type string `json:"type"`
	// ID echoes the request ID.
	ID string `json:"id"`
	// OK is true when the command was written to the device.
	OK bool `json:"ok"`
	// Error describes the failure when OK is false.
	Error string `json:"error,omitempty"`
}

// newAck builds an acknowledgement for id from err.
func newAck(id string, err error) Ack {
	ack := Ack{
		Type: typeAck,
		ID:   id,
		OK:   err == nil,
	}

	if err != nil {
		ack.Error = err.Error()
	}

	return ack
}

// decodeRequest parses a client frame.
func decodeRequest(data []byte) (Request, error) {
	var req Request
	if err := sonic.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}

	return req, nil
}
