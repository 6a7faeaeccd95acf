package mqtt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ibs-source/edge-gateway/internal/message"
	"github.com/ibs-source/edge-gateway/pkg/jsonfast"
)

// envelope is the wire frame carrying a message id alongside the body.
// Format: {"id":"<id>","sentAt":"<RFC3339>","payload":<body>}
type envelope struct {
	ID      *string         `json:"id"`
	SentAt  string          `json:"sentAt,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// encodeEnvelope frames body with its id. JSON bodies are embedded raw, anything else as a string.
func encodeEnvelope(id string, body []byte, sentAt time.Time) []byte {
	b := jsonfast.New(len(body) + len(id) + 64)
	b.BeginObject()
	b.AddStringField("id", id)
	b.AddTimeRFC3339Field("sentAt", sentAt)
	if jsonfast.LooksLikeJSON(body) && json.Valid(body) {
		b.AddRawJSONField("payload", body)
	} else {
		b.AddStringField("payload", string(body))
	}
	b.EndObject()
	return b.Clone()
}

// decodeEnvelope extracts id and body from a framed payload
func decodeEnvelope(payload []byte) (id string, body []byte, err error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if env.Payload == nil {
		return "", nil, fmt.Errorf("envelope missing required field: payload")
	}

	body = env.Payload
	if trimmed := bytes.TrimSpace(env.Payload); len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", nil, fmt.Errorf("failed to parse envelope payload: %w", err)
		}
		body = []byte(s)
	}

	if env.ID != nil {
		id = *env.ID
	}
	return id, body, nil
}

// toMessage converts an inbound payload into a message.
// Payloads that are not envelopes become unidentified messages carrying the raw bytes.
func toMessage(topic string, payload []byte, token message.AckToken) message.Message {
	id, body, err := decodeEnvelope(payload)
	if err != nil {
		body = payload
		id = ""
	}
	return message.Message{
		ID:           id,
		InputChannel: topic,
		Body:         body,
		AckToken:     token,
	}
}
