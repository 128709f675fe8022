package chatws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultRoom = "general"

	// TimestampLayout is ISO-8601 in UTC with millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// OutboundPayload is the chat message written to the server.
type OutboundPayload struct {
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	Room      string `json:"room"`
	Timestamp string `json:"timestamp"`
}

func (p OutboundPayload) String() string {
	return fmt.Sprintf("Payload{user=%s,room=%s,ts=%s,message=%q}",
		p.UserID, p.Room, p.Timestamp, p.Message)
}

// Time parses Timestamp back into a time.Time.
func (p OutboundPayload) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, p.Timestamp)
}

func NewOutboundPayload(userID, message, room string, now time.Time) OutboundPayload {
	if room == "" {
		room = DefaultRoom
	}
	return OutboundPayload{
		UserID:    userID,
		Message:   message,
		Room:      room,
		Timestamp: now.UTC().Format(TimestampLayout),
	}
}

// InboundMessage is an arbitrary JSON value received from the server. Its shape
// is not validated; Value holds the generic decoding and Raw the original bytes.
type InboundMessage struct {
	Raw   json.RawMessage
	Value any
}

// Decode unmarshals the raw frame into v.
func (m InboundMessage) Decode(v any) error {
	return json.Unmarshal(m.Raw, v)
}

func (m InboundMessage) String() string {
	return fmt.Sprintf("Message{data=%s}", m.Raw)
}

// parseInboundMessage decodes a frame body. Any failure is reported as ErrMalformedMessage.
func parseInboundMessage(data []byte) (InboundMessage, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return InboundMessage{}, errors.Wrap(ErrMalformedMessage, err.Error())
	}
	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return InboundMessage{Raw: raw, Value: v}, nil
}
