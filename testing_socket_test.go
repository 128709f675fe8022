package chatws

import (
	"bytes"
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// mockSocket records Send/Close calls and lets tests drive transport events by hand.
type mockSocket struct {
	mock.Mock

	ctx      context.Context
	params   DialParams
	handlers SocketHandlers
	state    readyState
}

func (m *mockSocket) ReadyState() ReadyState {
	return m.state.Load()
}

func (m *mockSocket) Send(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *mockSocket) Close() {
	m.Called()
	m.state.Store(StateClosing)
}

func (m *mockSocket) open() {
	m.state.Store(StateOpen)
	m.handlers.OnOpen()
}

func (m *mockSocket) recv(frame string) {
	m.handlers.OnMessage([]byte(frame))
}

func (m *mockSocket) fail(err error) {
	m.handlers.OnError(err)
}

func (m *mockSocket) closed(reason error) {
	m.state.Store(StateClosed)
	m.handlers.OnClose(reason)
}

type mockSocketFactory struct {
	mu      sync.Mutex
	sockets []*mockSocket
}

func (f *mockSocketFactory) Factory() SocketFactory {
	return func(ctx context.Context, params DialParams, handlers SocketHandlers) Socket {
		s := &mockSocket{ctx: ctx, params: params, handlers: handlers}
		s.On("Close").Return().Maybe()
		s.On("Send", mock.Anything).Return(nil).Maybe()

		f.mu.Lock()
		f.sockets = append(f.sockets, s)
		f.mu.Unlock()
		return s
	}
}

func (f *mockSocketFactory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sockets)
}

func (f *mockSocketFactory) Last() *mockSocket {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.sockets) == 0 {
		return nil
	}
	return f.sockets[len(f.sockets)-1]
}

// syncBuffer is a bytes.Buffer safe for a logger writing from transport goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
