package chatws

import (
	"net/url"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInboundMessage(t *testing.T) {
	msg, err := parseInboundMessage([]byte(`{"userId":"u1","n":2}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"userId": "u1", "n": float64(2)}, msg.Value)
	assert.Equal(t, `Message{data={"userId":"u1","n":2}}`, msg.String())

	_, err = parseInboundMessage([]byte(`{`))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestParseInboundMessageCopiesFrame(t *testing.T) {
	frame := []byte(`{"a":1}`)
	msg, err := parseInboundMessage(frame)
	require.NoError(t, err)

	frame[1] = 'X'
	assert.JSONEq(t, `{"a":1}`, string(msg.Raw))
}

func TestNewOutboundPayload(t *testing.T) {
	p := NewOutboundPayload("u1", "hi", "", fixedNow.In(time.FixedZone("CET", 3600)))

	assert.Equal(t, DefaultRoom, p.Room)
	assert.Equal(t, "2024-03-09T14:05:07.123Z", p.Timestamp)

	ts, err := p.Time()
	require.NoError(t, err)
	assert.True(t, fixedNow.Truncate(time.Millisecond).Equal(ts))
}

func TestWrapDialError(t *testing.T) {
	assert.NoError(t, WrapDialError(nil, url.URL{}))

	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	err := WrapDialError(errors.Wrap(ErrCannotConnect, "refused"), u)

	assert.ErrorIs(t, err, ErrCannotConnect)
	assert.Equal(t, "cannot dial ws://localhost:8080/ws: refused: connection cannot be established", err.Error())
}
