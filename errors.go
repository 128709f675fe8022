package chatws

import (
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed = errors.New("connection has been closed")
	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrTerminated       = errors.New("program exit")
	ErrRateLimit        = errors.New("rate limit exceeded")
	ErrNotConnected     = errors.New("websocket not connected")
	ErrAlreadyConnected = errors.New("websocket already connected or connecting")
	ErrMalformedMessage = errors.New("malformed inbound message")
)

// DialError is returned when the websocket handshake against URL fails.
type DialError struct {
	err error
	url url.URL
}

func (e *DialError) Error() string {
	return fmt.Sprintf("cannot dial %s: %s", e.url.String(), e.err)
}

func (e *DialError) Unwrap() error { return e.err }

func (e *DialError) URL() url.URL { return e.url }

func WrapDialError(err error, u url.URL) error {
	if err == nil {
		return nil
	}
	return &DialError{
		err: err,
		url: u,
	}
}
