package runtime

import (
	"context"
	"log/slog"

	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/observability"

	"github.com/samber/lo"
)

// RoutedEvent is one inbound protocol event tagged with the connection that
// produced it.
type RoutedEvent struct {
	Conn  domain.ConnID
	Event event.Inbound
}

// Router is the state machine that consumes inbound events, mutates the two
// registries, computes delivery sets, and emits outbound events.
//
// A single goroutine owns the loop: each inbound event is handled to
// completion before the next one, so registry mutations are atomic with
// respect to other inbound events. Emission never blocks the handler.
// There is no transaction spanning events; each event is its own unit of
// atomicity and a crash mid-broadcast loses nothing durable, the registries
// are soft state.
//
// Every unexpected condition (unknown room, inactive receiver, absent user,
// disconnecting connection found nowhere) degrades to a no-op for the
// missing case while the remaining valid cases proceed. No error event is
// ever emitted back over the transport.
type Router struct {
	log        *slog.Logger
	presence   *PresenceRegistry
	rooms      *RoomRegistry
	emitter    contract.Emitter
	monitoring *observability.MonitoringManager
	inbound    chan RoutedEvent
}

func NewRouter(log *slog.Logger, presence *PresenceRegistry, rooms *RoomRegistry,
	emitter contract.Emitter, monitoring *observability.MonitoringManager, bufferSize int) *Router {
	return &Router{
		log:        log,
		presence:   presence,
		rooms:      rooms,
		emitter:    emitter,
		monitoring: monitoring,
		inbound:    make(chan RoutedEvent, bufferSize),
	}
}

// Dispatch enqueues an inbound event for the router loop. Client events are
// non-blocking: if the queue is full the event is dropped and counted,
// favoring availability over strict delivery. The transport-synthesized
// disconnect event is the exception: it runs exactly once per connection,
// and shedding it would strand the closed connection in both registries, so
// it waits for room instead. The caller is the dying read pump, which can
// afford to block.
func (r *Router) Dispatch(conn domain.ConnID, evt event.Inbound) {
	if _, ok := evt.(event.Disconnect); ok {
		r.inbound <- RoutedEvent{Conn: conn, Event: evt}
		return
	}

	select {
	case r.inbound <- RoutedEvent{Conn: conn, Event: evt}:
	default:
		r.monitoring.IncrEventsDropped()
		r.log.Warn("Inbound queue full, dropping event", "kind", evt.Kind(), "conn", conn)
	}
}

// Run consumes inbound events until the context is canceled.
func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Stopping router")
			return ctx.Err()
		case routed := <-r.inbound:
			r.handle(routed)
		}
	}
}

func (r *Router) handle(routed RoutedEvent) {
	r.monitoring.IncrEventsRouted()

	switch evt := routed.Event.(type) {
	case event.RegisterPresence:
		r.handleRegisterPresence(routed.Conn, evt)
	case event.JoinRoom:
		r.handleJoinRoom(routed.Conn, evt)
	case event.LeaveRoom:
		r.handleLeaveRoom(routed.Conn, evt)
	case event.SendMessage:
		r.handleSendMessage(routed.Conn, evt)
	case event.Typing:
		r.handleTyping(evt)
	case event.Disconnect:
		r.handleDisconnect(routed.Conn)
	default:
		r.log.Warn("Unroutable event", "kind", routed.Event.Kind())
	}
}

func (r *Router) handleRegisterPresence(conn domain.ConnID, evt event.RegisterPresence) {
	r.presence.Register(evt.UserID, conn)
	r.emitter.Broadcast(event.ActiveUsers{UserIDs: r.presence.ActiveUserIDs()})
}

func (r *Router) handleJoinRoom(conn domain.ConnID, evt event.JoinRoom) {
	r.rooms.Join(evt.RoomID, evt.UserID, conn)
	r.broadcastRoomMembers(evt.RoomID)
}

func (r *Router) handleLeaveRoom(conn domain.ConnID, evt event.LeaveRoom) {
	changed, roomExists := r.rooms.Leave(evt.RoomID, evt.UserID, conn)
	if changed && roomExists {
		r.broadcastRoomMembers(evt.RoomID)
	}
}

// handleSendMessage runs the three-way delivery classification.
//
// An unknown room drops the message silently: live delivery is fire-and-
// forget and durable archiving belongs to the persistence collaborator.
// Receivers without presence get nothing through this path.
func (r *Router) handleSendMessage(origin domain.ConnID, evt event.SendMessage) {
	if !r.rooms.Exists(evt.RoomID) {
		r.log.Debug("Message to unknown room dropped", "room", evt.RoomID, "sender", evt.SenderID)
		return
	}
	members := r.rooms.MembersOf(evt.RoomID)

	// Sender echo: other devices of the sender see the message itself, and
	// every sender device, the originating one included, refreshes its
	// conversation list.
	for _, conn := range r.presence.ConnectionsOf(evt.SenderID) {
		if conn != origin {
			r.emitter.Send(conn, event.MessageReceived{SenderID: evt.SenderID, Message: evt.Message})
		}
		r.emitter.Send(conn, event.LatestMessagePreview{SenderID: evt.SenderID, Message: evt.Message})
	}

	for _, receiver := range evt.ReceiverIDs {
		conns := r.presence.ConnectionsOf(receiver)
		if len(conns) == 0 {
			// Inactive receiver: offline devices simply miss the live event.
			continue
		}

		roomConns, joined := members[receiver]
		if !joined {
			// Never joined or already left: every device is out-of-room.
			for _, conn := range conns {
				r.emitter.Send(conn, event.InAppNotification{SenderID: evt.SenderID, Message: evt.Message})
			}
			continue
		}

		for _, conn := range conns {
			if lo.Contains(roomConns, conn) {
				r.emitter.Send(conn, event.MessageReceived{SenderID: evt.SenderID, Message: evt.Message})
				r.emitter.Send(conn, event.LatestMessagePreview{SenderID: evt.SenderID, Message: evt.Message})
			} else {
				// Active but not viewing the room: badge only, no preview,
				// so the device's conversation list does not silently
				// reorder.
				r.emitter.Send(conn, event.InAppNotification{SenderID: evt.SenderID, Message: evt.Message})
			}
		}
	}
}

// handleTyping relays a typing indicator to every connection of every active
// receiver. No room-membership check: indicators reach receivers whether or
// not they are viewing the room.
func (r *Router) handleTyping(evt event.Typing) {
	state := event.TypingState{Typing: evt.Active, SenderID: evt.SenderID, RoomID: evt.RoomID}
	for _, receiver := range evt.ReceiverIDs {
		for _, conn := range r.presence.ConnectionsOf(receiver) {
			r.emitter.Send(conn, state)
		}
	}
}

// handleDisconnect runs the cleanup pass for a closed connection: presence
// first, then every room the connection had actually joined. Survivors of
// each affected room get the member list re-sent; a room deleted by the pass
// has nobody left to notify. The global active-user list is deliberately not
// re-broadcast here.
func (r *Router) handleDisconnect(conn domain.ConnID) {
	r.presence.RemoveConnection(conn)
	for _, room := range r.rooms.RemoveConnection(conn) {
		r.broadcastRoomMembers(room)
	}
}

// broadcastRoomMembers sends room's current member list to every connection
// subscribed to it. A vanished room is a no-op.
func (r *Router) broadcastRoomMembers(room domain.RoomID) {
	members := r.rooms.MembersOf(room)
	if members == nil {
		return
	}
	evt := event.RoomMembers{RoomID: room, UserIDs: r.rooms.MemberIDs(room)}
	for _, conns := range members {
		for _, conn := range conns {
			r.emitter.Send(conn, evt)
		}
	}
}
