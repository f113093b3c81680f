// Package ws is the connection layer: it upgrades HTTP requests to
// websocket channels, runs the per-connection pumps, and addresses outbound
// events to connections on behalf of the router.
package ws

import (
	"log/slog"
	"strings"
	"time"

	"chat-presence/domain"
	"chat-presence/domain/event"

	"github.com/gorilla/websocket"
)

// Conn binds one opaque connection id to one websocket channel for the
// channel's lifetime. The registries only ever hold the id; the channel
// itself lives and dies here.
type Conn struct {
	id   domain.ConnID
	sock *websocket.Conn
	send chan []byte
	log  *slog.Logger
}

func newConn(id domain.ConnID, sock *websocket.Conn, queueSize int, log *slog.Logger) *Conn {
	return &Conn{
		id:   id,
		sock: sock,
		send: make(chan []byte, queueSize),
		log:  log,
	}
}

// ID returns the opaque connection identifier.
func (c *Conn) ID() domain.ConnID { return c.id }

// readPump decodes inbound frames and hands them to the dispatcher until
// the channel closes. It always exits through the server's disconnect path
// so the cleanup state machine runs exactly once.
func (c *Conn) readPump(s *Server) {
	defer s.disconnect(c)

	c.sock.SetReadLimit(s.readLimit)
	_ = c.sock.SetReadDeadline(time.Now().Add(s.pongTimeout))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(s.pongTimeout))
	})

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) && !isExpectedCloseError(err) {
				c.log.Warn("Unexpected websocket error", "conn", c.id, "err", err)
			}
			return
		}

		evt, err := event.DecodeInbound(raw)
		if err != nil {
			// Malformed frames are logged and dropped, never answered.
			s.monitoring.IncrMalformedFrames()
			c.log.Debug("Dropping malformed frame", "conn", c.id, "err", err)
			continue
		}
		s.dispatcher.Dispatch(c.id, evt)
	}
}

// writePump drains the send queue and keeps the channel alive with pings.
func (c *Conn) writePump(s *Server) {
	ticker := time.NewTicker(s.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.sock.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := c.sock.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Debug("Write failed", "conn", c.id, "err", err)
				}
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
