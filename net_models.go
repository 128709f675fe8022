package chatws

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"
)

type ReadyState int32

const (
	StateConnecting ReadyState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ReadyState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type (
	// SocketHandlers are the transport events a Socket reports. A Socket invokes them from a single
	// goroutine at a time. OnOpen fires at most once; OnClose fires exactly once, last.
	SocketHandlers struct {
		OnOpen    func()
		OnMessage func(data []byte)
		OnError   func(err error)
		OnClose   func(reason error)
	}

	// Socket is a single websocket connection, as seen by ChatClient.
	Socket interface {
		// ReadyState reports the current state of the connection.
		ReadyState() ReadyState
		// Send writes a text frame. It fails when the socket is not open.
		Send(data []byte) error
		// Close starts closing the connection. OnClose fires once it is done.
		Close()
	}

	DialParams struct {
		URL    url.URL
		Header http.Header
	}

	// SocketFactory opens a socket towards params.URL. It must return without waiting for the
	// handshake and must not invoke any handler before returning; progress is reported later
	// through handlers.
	SocketFactory func(ctx context.Context, params DialParams, handlers SocketHandlers) Socket
)

// readyState is an atomic ReadyState holder shared by Socket implementations.
type readyState struct {
	v atomic.Int32
}

func (s *readyState) Load() ReadyState { return ReadyState(s.v.Load()) }

func (s *readyState) Store(state ReadyState) { s.v.Store(int32(state)) }

func (s *readyState) CompareAndSwap(old, next ReadyState) bool {
	return s.v.CompareAndSwap(int32(old), int32(next))
}
