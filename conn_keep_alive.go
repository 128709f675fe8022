package chatws

import (
	"context"
	"net"
	"time"

	"github.com/fasthttp/websocket"
)

// keepAlive sends a ping every pingInterval so that idle connections are not reaped by
// intermediaries. It stops when the context is done or the socket is closed.
func (w *WsSocket) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.closeChan:
			return
		case <-ticker.C:
			deadline := time.Now().Add(w.writeTimeout)
			err := w.conn.WriteControl(websocket.PingMessage, nil, deadline)
			if e, ok := err.(net.Error); ok && e.Timeout() {
				w.logger.Warnf("keep-alive ping timed out: %s", err)
				continue
			}
			if err != nil {
				w.logger.Errorf("cannot send keep-alive ping: %s", err)
				return
			}
			w.logger.Debugln("=> [PING]")
		}
	}
}
