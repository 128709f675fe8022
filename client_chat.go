package chatws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ChatClient owns at most one websocket towards a chat server. It writes chat payloads as JSON
// and fans inbound JSON frames out to the listeners registered with OnMessage.
type ChatClient struct {
	host    string
	header  http.Header
	logger  Logger
	factory SocketFactory
	now     func() time.Time

	mu sync.RWMutex
	ws Socket

	messageListeners *EventEmitterCallback[EventType, InboundMessage]
	eventListeners   *EventEmitterCallback[EventType, Event]
}

// NewChatClient creates a client for host, "http://localhost:8080" when empty. Sockets are
// obtained from factory; a nil factory dials real websockets with the default dialer.
func NewChatClient(logger Logger, host string, factory SocketFactory) *ChatClient {
	if logger == nil {
		logger = defaultLogger()
	}
	if host == "" {
		host = DefaultHost
	}
	logger = logger.WithField("client", uuid.NewString())
	if factory == nil {
		factory = NewWebsocketFactory(logger, websocket.DefaultDialer, TransportConfig{})
	}

	c := &ChatClient{
		host:             host,
		header:           http.Header{},
		logger:           logger,
		factory:          factory,
		now:              time.Now,
		messageListeners: NewEventEmitter[EventType, InboundMessage](),
		eventListeners:   NewEventEmitter[EventType, Event](),
	}
	c.messageListeners.OnPanic(func(_ EventType, recovered any) {
		c.logger.Errorf("message listener panicked: %v", recovered)
	})
	c.eventListeners.OnPanic(func(event EventType, recovered any) {
		c.logger.Errorf("%s event handler panicked: %v", event, recovered)
	})
	return c
}

// NewChatClientFromConfig creates a client that dials real websockets tuned by cfg.
func NewChatClientFromConfig(logger Logger, cfg Config) *ChatClient {
	if logger == nil {
		logger = defaultLogger()
	}
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	factory := NewWebsocketFactory(logger, dialer, TransportConfig{
		WriteTimeout: cfg.WriteTimeout,
		PingInterval: cfg.PingInterval,
	})
	c := NewChatClient(logger, cfg.Host, factory)
	if cfg.Origin != "" {
		c.header.Set("Origin", cfg.Origin)
	}
	return c
}

func (c *ChatClient) Host() string { return c.host }

// URL returns the websocket endpoint derived from the host.
func (c *ChatClient) URL() string { return WebsocketURL(c.host) }

// Connect opens a socket and returns immediately. The returned Pending is established once the
// transport reports open, and fails if it reports an error or closes first. There is no timeout.
//
// ctx bounds the lifetime of the socket, not of the handshake: once ctx is done the socket is
// closed. Pass a long-lived context here and bound the wait with Pending.Wait instead.
//
// Connecting while a socket is still held, connecting or open, fails with ErrAlreadyConnected
// and leaves the current socket untouched.
func (c *ChatClient) Connect(ctx context.Context) *Pending {
	u, err := parseWebsocketURL(c.host)
	if err != nil {
		c.logger.Errorf("invalid websocket url for host %q: %s", c.host, err)
		return failedPending(errors.Wrap(ErrCannotConnect, err.Error()))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws != nil {
		c.logger.Warnf("connect ignored, socket is %s", c.ws.ReadyState())
		return failedPending(ErrAlreadyConnected)
	}

	pending := newPending()

	var ws Socket
	ws = c.factory(ctx, DialParams{URL: *u, Header: c.header.Clone()}, SocketHandlers{
		OnOpen: func() {
			c.logger.Infof("websocket connected to %s", u.String())
			pending.resolve()
			c.eventListeners.Emit(EventConnect, Event{Type: EventConnect})
		},
		OnMessage: c.dispatch,
		OnError: func(err error) {
			c.logger.Errorf("websocket error: %s", err)
			pending.fail(err)
			c.eventListeners.Emit(EventError, Event{Type: EventError, Err: err})
		},
		OnClose: func(reason error) {
			c.logger.Infof("websocket disconnected: %v", reason)
			// ws is read under the lock: it is assigned while Connect still holds it.
			c.mu.Lock()
			c.release(ws)
			c.mu.Unlock()
			if reason == nil {
				reason = ErrConnectionClosed
			}
			pending.fail(reason)
			c.eventListeners.Emit(EventClose, Event{Type: EventClose, Err: reason})
		},
	})
	c.ws = ws

	return pending
}

// release drops ws if it still is the current socket. A socket replaced by a later Connect
// must not clear its successor. Callers hold c.mu.
func (c *ChatClient) release(ws Socket) {
	if c.ws == ws {
		c.ws = nil
	}
}

func (c *ChatClient) dispatch(data []byte) {
	msg, err := parseInboundMessage(data)
	if err != nil {
		c.logger.Warnf("error parsing message: %s", err)
		return
	}
	c.messageListeners.Emit(EventMessage, msg)
}

// SendMessage writes a chat message to room, "general" when empty, and returns the payload
// that was sent. It fails with ErrNotConnected unless the socket is open; nothing is queued.
func (c *ChatClient) SendMessage(userID, message, room string) (OutboundPayload, error) {
	ws := c.socket()
	if ws == nil || ws.ReadyState() != StateOpen {
		return OutboundPayload{}, ErrNotConnected
	}

	payload := NewOutboundPayload(userID, message, room, c.now())

	data, err := json.Marshal(payload)
	if err != nil {
		return OutboundPayload{}, errors.Wrap(err, "cannot encode payload")
	}

	if err := ws.Send(data); err != nil {
		return OutboundPayload{}, errors.Wrap(err, "cannot send payload")
	}

	return payload, nil
}

// OnMessage registers listener after the existing ones. The returned func removes exactly this
// registration; later calls to it do nothing.
func (c *ChatClient) OnMessage(listener MessageListener) Unsubscribe {
	if listener == nil {
		return func() {}
	}
	return c.messageListeners.On(EventMessage, callback[InboundMessage](listener))
}

// OnEvent registers handler for lifecycle events of the given type. Event handlers survive Disconnect.
func (c *ChatClient) OnEvent(event EventType, handler EventHandler) Unsubscribe {
	if handler == nil {
		return func() {}
	}
	return c.eventListeners.On(event, callback[Event](handler))
}

// Disconnect closes the socket, if any, and removes every message listener. It is safe to call
// when already disconnected.
func (c *ChatClient) Disconnect() {
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		ws.Close()
	}

	c.messageListeners.Close()
}

func (c *ChatClient) IsConnected() bool {
	ws := c.socket()
	return ws != nil && ws.ReadyState() == StateOpen
}

func (c *ChatClient) socket() Socket {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.ws
}
