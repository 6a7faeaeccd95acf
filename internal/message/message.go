// Package message provides the data structures shared by the ingest and telemetry processes.
package message

import "strings"

// Payload is the canonical alias for raw message body
type Payload = []byte

// AckToken is an opaque handle issued by a connection for one delivered message.
// Only the connection that issued it can interpret it.
type AckToken struct {
	ref any
}

// NewAckToken wraps a connection-specific delivery reference
func NewAckToken(ref any) AckToken {
	return AckToken{ref: ref}
}

// Ref returns the wrapped delivery reference
func (t AckToken) Ref() any {
	return t.ref
}

// IsZero reports whether the token carries no delivery reference
func (t AckToken) IsZero() bool {
	return t.ref == nil
}

// Message is one broker message, inbound or outbound
type Message struct {
	ID           string
	InputChannel string
	Body         Payload
	AckToken     AckToken
}

// Identified reports whether the message carries a usable id.
// Empty and whitespace-only ids form the unidentified class.
func (m Message) Identified() bool {
	return strings.TrimSpace(m.ID) != ""
}

// AckDecision is the result a handler returns to the connection
type AckDecision int

const (
	// AckNone means the message was consumed and no further broker action is requested
	AckNone AckDecision = iota
	// AckAbandon asks the broker to make the message available again
	AckAbandon
	// AckReject asks the broker to drop the message
	AckReject
)

func (d AckDecision) String() string {
	switch d {
	case AckNone:
		return "None"
	case AckAbandon:
		return "Abandon"
	case AckReject:
		return "Reject"
	}
	return "Unknown"
}

// TelemetryReading is one synthetic sensor sample
type TelemetryReading struct {
	Temperature int `json:"temperature"`
}
