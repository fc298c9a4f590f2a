// Package streaming defines the JSON envelopes exchanged over WebSocket, both with remote
// recording servers and with dashboard clients.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/pitwall/pitwall/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRecording = "start_recording"
	TypeEndRecording   = "end_recording"
	TypeFrame          = "frame"
	TypeStatus         = "status"
	TypeAck            = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRecordingPayload carries the run header and the compared drivers.
type StartRecordingPayload struct {
	Recording *core.Recording `json:"recording"`
	Data      core.Comparison `json:"data"`
}

// StatusPayload tells dashboard clients that the session changed outside the frame stream.
type StatusPayload struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Phase     string `json:"phase"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Decode unmarshals the payload of env into v after checking its type.
func Decode(env Envelope, msgType string, v any) error {
	if env.Type != msgType {
		return fmt.Errorf("unexpected message type %q, want %q", env.Type, msgType)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", msgType, err)
	}
	return nil
}
