// Package streaming defines the wire messages of the field event stream.
package streaming

import (
	"encoding/json"

	"github.com/OCAP2/fieldforge/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeHello      = "hello"
	TypeGoodbye    = "goodbye"
	TypeFieldEnter = "field_enter"
	TypeFieldExit  = "field_exit"
	TypeTick       = "tick"
	TypeSnapshot   = "snapshot"
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

// HelloPayload opens a session and is replayed after a reconnect.
type HelloPayload struct {
	Plugin  string `json:"plugin"`
	Version string `json:"version"`
	Server  string `json:"server,omitempty"`
}

// SnapshotPayload carries the full field list, e.g. after a load or reload.
type SnapshotPayload struct {
	Tick   uint64       `json:"tick"`
	Fields []core.Field `json:"fields"`
}

// GoodbyePayload closes a session.
type GoodbyePayload struct {
	Tick   uint64 `json:"tick"`
	Reason string `json:"reason,omitempty"`
}
