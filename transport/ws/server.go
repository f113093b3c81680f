package ws

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/observability"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Options tunes the connection layer. Zero values are replaced by the
// defaults below.
type Options struct {
	ReadLimit      int64
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	SendQueueSize  int
	AllowedOrigins []string
}

func (o *Options) norm() {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 256
	}
}

// Server owns every live connection and implements contract.Emitter on top
// of them. Emission is best-effort: a connection whose send queue is full
// simply misses the event.
type Server struct {
	log        *slog.Logger
	monitoring *observability.MonitoringManager
	upgrader   websocket.Upgrader

	readLimit    int64
	pongTimeout  time.Duration
	writeTimeout time.Duration
	pingInterval time.Duration
	queueSize    int

	mu         sync.RWMutex
	conns      map[domain.ConnID]*Conn
	dispatcher contract.Dispatcher
}

func NewServer(log *slog.Logger, opts Options, monitoring *observability.MonitoringManager) *Server {
	opts.norm()
	allowed, allowAll := normalizeOrigins(opts.AllowedOrigins)

	s := &Server{
		log:          log,
		monitoring:   monitoring,
		readLimit:    opts.ReadLimit,
		pongTimeout:  opts.PongTimeout,
		writeTimeout: opts.WriteTimeout,
		pingInterval: opts.PingInterval,
		queueSize:    opts.SendQueueSize,
		conns:        make(map[domain.ConnID]*Conn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return checkOrigin(r, allowed, allowAll)
		},
	}
	return s
}

// Handler returns the upgrade endpoint wired to the given dispatcher.
func (s *Server) Handler(dispatcher contract.Dispatcher) http.Handler {
	s.dispatcher = dispatcher
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sock, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}

		conn := newConn(domain.ConnID(uuid.NewString()), sock, s.queueSize, s.log)

		s.mu.Lock()
		s.conns[conn.id] = conn
		total := len(s.conns)
		s.mu.Unlock()

		s.monitoring.IncrConnectionsOpened()
		s.log.Info("Connection opened", "conn", conn.id, "remote", r.RemoteAddr, "total", total)

		go conn.writePump(s)
		go conn.readPump(s)
	})
}

// disconnect runs at most once per connection: it forgets the connection,
// closes its socket, and feeds the implicit disconnect event into the
// router so the cleanup state machine runs.
func (s *Server) disconnect(c *Conn) {
	s.mu.Lock()
	_, known := s.conns[c.id]
	if known {
		delete(s.conns, c.id)
	}
	total := len(s.conns)
	s.mu.Unlock()

	if !known {
		return
	}

	// The send queue is deliberately never closed; the write pump exits
	// through the socket close instead, so late emissions cannot panic.
	_ = c.sock.Close()
	s.monitoring.IncrConnectionsClosed()
	s.log.Info("Connection closed", "conn", c.id, "total", total)

	s.dispatcher.Dispatch(c.id, event.Disconnect{})
}

// Send addresses one outbound event to one connection. Unknown connections
// and full queues drop the event; that failure never propagates.
func (s *Server) Send(conn domain.ConnID, evt event.Outbound) {
	payload, err := event.EncodeOutbound(evt)
	if err != nil {
		s.log.Error("Encoding outbound event failed", "kind", evt.Kind(), "err", err)
		return
	}
	s.push(conn, payload)
}

// Broadcast addresses one outbound event to every open connection.
func (s *Server) Broadcast(evt event.Outbound) {
	payload, err := event.EncodeOutbound(evt)
	if err != nil {
		s.log.Error("Encoding outbound event failed", "kind", evt.Kind(), "err", err)
		return
	}

	s.mu.RLock()
	targets := make([]domain.ConnID, 0, len(s.conns))
	for id := range s.conns {
		targets = append(targets, id)
	}
	s.mu.RUnlock()

	for _, id := range targets {
		s.push(id, payload)
	}
}

func (s *Server) push(id domain.ConnID, payload []byte) {
	s.mu.RLock()
	conn, ok := s.conns[id]
	s.mu.RUnlock()
	if !ok {
		s.monitoring.IncrEmissionsDropped()
		return
	}

	select {
	case conn.send <- payload:
		s.monitoring.IncrEmissionsSent()
	default:
		s.monitoring.IncrEmissionsDropped()
		s.log.Warn("Send queue full, dropping emission", "conn", id)
	}
}

// Shutdown closes every live connection.
func (s *Server) Shutdown() {
	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for _, conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.sock.Close()
	}
	s.log.Info("Closed all connections", "count", len(conns))
}

func normalizeOrigins(origins []string) (map[string]struct{}, bool) {
	normalized := make(map[string]struct{}, len(origins))
	allowAll := len(origins) == 0

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
			continue
		}
		if norm, ok := normalizeOrigin(trimmed); ok {
			normalized[norm] = struct{}{}
		}
	}
	return normalized, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func checkOrigin(r *http.Request, allowed map[string]struct{}, allowAll bool) bool {
	if allowAll {
		return true
	}
	norm, ok := normalizeOrigin(r.Header.Get("Origin"))
	if !ok {
		return false
	}
	_, exists := allowed[norm]
	return exists
}
