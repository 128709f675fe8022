package chatws

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

const (
	DefaultWriteTimeout = time.Second
	sendBufferSize      = 32
)

type (
	ErrAdapter func(*websocket.Conn, *http.Response, error) error

	ErrorAdapters struct {
		OnDial ErrAdapter
	}

	TransportConfig struct {
		// WriteTimeout bounds every frame write. Zero means DefaultWriteTimeout.
		WriteTimeout time.Duration
		// PingInterval enables active keep-alive pings when positive.
		PingInterval time.Duration

		ErrorAdapters ErrorAdapters
	}

	// WsSocket is a Socket backed by a fasthttp/websocket connection. All handlers are invoked
	// from the goroutine that dialed and then reads the connection.
	WsSocket struct {
		errAdapters  ErrorAdapters
		params       DialParams
		handlers     SocketHandlers
		logger       Logger
		dialer       *websocket.Dialer
		writeTimeout time.Duration
		pingInterval time.Duration

		conn  *websocket.Conn
		state readyState

		send            chan []byte // send messages to be sent over the wire
		closeChan       CloseChan
		closeOnce       sync.Once
		closeReason     error
		closeReasonOnce sync.Once
		done            CloseChan
	}
)

func NewWebsocketSocket(
	logger Logger,
	dialer *websocket.Dialer,
	params DialParams,
	handlers SocketHandlers,
	cfg TransportConfig,
) *WsSocket {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	return &WsSocket{
		errAdapters:  cfg.ErrorAdapters,
		params:       params,
		handlers:     handlers,
		logger:       logger.WithField("net", "ws_socket"),
		dialer:       dialer,
		writeTimeout: writeTimeout,
		pingInterval: cfg.PingInterval,
		send:         make(chan []byte, sendBufferSize),
		closeChan:    make(CloseChan),
		done:         make(CloseChan),
	}
}

// NewWebsocketFactory returns a SocketFactory that dials with dialer. Each socket starts its
// handshake in the background as soon as it is created.
func NewWebsocketFactory(
	logger Logger,
	dialer *websocket.Dialer,
	cfg TransportConfig,
) SocketFactory {
	return func(ctx context.Context, params DialParams, handlers SocketHandlers) Socket {
		s := NewWebsocketSocket(logger, dialer, params, handlers, cfg)
		go s.run(ctx)
		return s
	}
}

func (w *WsSocket) ReadyState() ReadyState {
	return w.state.Load()
}

// Send queues data to be written as a text frame.
func (w *WsSocket) Send(data []byte) error {
	if w.state.Load() != StateOpen {
		return ErrNotConnected
	}

	select {
	case w.send <- data:
		return nil
	case <-w.closeChan:
		return ErrConnectionClosed
	}
}

// Close terminates the connection. A socket still dialing aborts its handshake.
// Calling Close more than once has no effect.
func (w *WsSocket) Close() {
	if !w.beginClosing() {
		return
	}
	w.setCloseReason(ErrTerminated)
	w.safeClose()
}

// Done is closed once OnClose has been delivered.
func (w *WsSocket) Done() CloseChan {
	return w.done
}

// CloseErr returns an error that explains why the socket was closed.
func (w *WsSocket) CloseErr() error {
	select {
	case <-w.done:
		return w.closeReason
	default:
		return nil
	}
}

func (w *WsSocket) beginClosing() bool {
	for {
		s := w.state.Load()
		if s == StateClosing || s == StateClosed {
			return false
		}
		if w.state.CompareAndSwap(s, StateClosing) {
			return true
		}
	}
}

func (w *WsSocket) run(ctx context.Context) {
	conn, err := w.dial(ctx)
	if err != nil {
		if w.state.Load() == StateClosing {
			// Closed by us while dialing: not a transport failure.
			w.finish(ErrTerminated)
			return
		}
		w.logger.Errorf("connection err to %s: %s", w.params.URL.String(), err)
		w.emitError(err)
		w.setCloseReason(err)
		w.finish(err)
		return
	}

	w.conn = conn
	w.installControlHandlers(conn)

	if !w.state.CompareAndSwap(StateConnecting, StateOpen) {
		_ = conn.Close()
		w.finish(ErrTerminated)
		return
	}

	w.logger.Debugf("success opening connection to %s", w.params.URL.String())

	if w.handlers.OnOpen != nil {
		w.handlers.OnOpen()
	}

	go w.write(ctx)
	if w.pingInterval > 0 {
		go w.keepAlive(ctx)
	}

	w.read()
}

type dialResult struct {
	conn *websocket.Conn
	err  error
}

// dial performs the handshake. Closing the socket abandons a handshake still in flight; the
// connection it may yield later is closed right away.
func (w *WsSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resC := make(chan dialResult, 1)
	go func() {
		conn, err := w.handshake(dialCtx)
		resC <- dialResult{conn: conn, err: err}
	}()

	select {
	case res := <-resC:
		return res.conn, res.err
	case <-w.closeChan:
		go func() {
			if res := <-resC; res.conn != nil {
				_ = res.conn.Close()
			}
		}()
		return nil, ErrTerminated
	}
}

func (w *WsSocket) handshake(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := w.dialer.DialContext(ctx, w.params.URL.String(), w.params.Header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}

	if err = w.handleDialError(conn, resp, err); err != nil {
		if conn != nil {
			_ = conn.Close()
		}
		return nil, WrapDialError(err, w.params.URL)
	}

	return conn, nil
}

// installControlHandlers takes over 'control' frames in order to log them. Pings from the
// server are answered with pongs, which keeps the connection alive passively.
func (w *WsSocket) installControlHandlers(conn *websocket.Conn) {
	conn.SetPingHandler(func(appData string) error {
		w.logger.Debugln("<= [PING]")
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(w.writeTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		if e, ok := err.(net.Error); ok && e.Timeout() {
			return nil
		}
		if err == nil {
			w.logger.Debugln("=> [PONG]")
		}
		return err
	})

	conn.SetPongHandler(func(string) error {
		w.logger.Debugln("<= [PONG]")
		return nil
	})

	conn.SetCloseHandler(func(code int, text string) error {
		w.logger.Debugf("<= [CLOSE] %d %s", code, text)
		w.setCloseReason(errors.Wrapf(ErrConnectionClosed, "closed by peer: %d %s", code, text))
		msg := websocket.FormatCloseMessage(code, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(w.writeTimeout))
		return nil
	})
}

func (w *WsSocket) read() {
	for {
		messageType, bts, err := w.conn.ReadMessage()
		if err != nil {
			w.readFailed(err)
			return
		}
		// message types from ReadMessage are either binary or text
		switch messageType {
		case websocket.BinaryMessage:
			w.logger.Debugln("<= [BIN]")
		default:
			w.logger.Debugf("<= [DATA] %s", string(bts))
		}
		if w.handlers.OnMessage != nil {
			w.handlers.OnMessage(bts)
		}
	}
}

func (w *WsSocket) readFailed(err error) {
	if w.state.Load() == StateClosing {
		w.finish(ErrTerminated)
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		w.logger.Infof("connection closed by peer: %s", err)
		w.setCloseReason(ErrConnectionClosed)
		w.finish(ErrConnectionClosed)
		return
	}

	w.logger.Errorf("error occurred on websocket read: %s", err)
	reason := errors.Wrap(ErrConnectionClosed, "error occurred on websocket read: "+err.Error())
	w.emitError(reason)
	w.setCloseReason(reason)
	w.finish(reason)
}

func (w *WsSocket) write(ctx context.Context) {
	for {
		select {
		case <-w.closeChan:
			w.shutdown()
			return
		case <-ctx.Done():
			if w.beginClosing() {
				w.setCloseReason(ErrTerminated)
			}
			w.safeClose()
			w.shutdown()
			return
		case msg := <-w.send:
			if err := w.writeData(msg); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					w.setCloseReason(ErrConnectionClosed)
				} else {
					w.setCloseReason(errors.Wrap(ErrConnectionClosed, err.Error()))
				}
				w.logger.Errorf("error occurred on websocket write: %s", err)
				// The read loop observes the broken connection and reports the close.
				_ = w.conn.Close()
				return
			}
		}
	}
}

func (w *WsSocket) writeData(msg []byte) error {
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))

	w.logger.Infof("=> [DATA] %s", msg)
	return w.conn.WriteMessage(websocket.TextMessage, msg)
}

// flush writes whatever Send accepted before the socket started closing.
func (w *WsSocket) flush() {
	for {
		select {
		case msg := <-w.send:
			if err := w.writeData(msg); err != nil {
				w.logger.Warnf("dropping queued messages, write failed: %s", err)
				return
			}
		default:
			return
		}
	}
}

// shutdown flushes queued messages, says goodbye to the server and tears the connection
// down, which unblocks the read loop.
func (w *WsSocket) shutdown() {
	if w.state.Load() == StateClosed {
		return
	}
	w.flush()
	w.logger.Infoln("closing connection from our side")
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(w.writeTimeout))
	_ = w.conn.Close()
}

func (w *WsSocket) emitError(err error) {
	if w.handlers.OnError != nil {
		w.handlers.OnError(err)
	}
}

// finish moves the socket to its terminal state and reports OnClose. Only the run goroutine calls it.
func (w *WsSocket) finish(reason error) {
	w.state.Store(StateClosed)
	w.setCloseReason(reason)
	w.safeClose()
	if w.conn != nil {
		_ = w.conn.Close()
	}

	if w.handlers.OnClose != nil {
		w.handlers.OnClose(w.closeReason)
	}
	close(w.done)
}

func (w *WsSocket) safeClose() {
	w.closeOnce.Do(func() {
		close(w.closeChan)
	})
}

func (w *WsSocket) setCloseReason(err error) {
	w.closeReasonOnce.Do(func() {
		w.closeReason = err
	})
}

func (w *WsSocket) handleDialError(conn *websocket.Conn, resp *http.Response, err error) error {
	if w.errAdapters.OnDial != nil {
		return w.errAdapters.OnDial(conn, resp, err)
	}

	// 1. Check HTTP errors first
	var msg string

	if resp != nil {
		if resp.Body != nil {
			bts, err := io.ReadAll(resp.Body)
			if err == nil {
				msg = string(bts)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
	}

	// 2. Network errors
	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}

	return nil
}
