// Package event defines the tagged protocol events exchanged with clients.
// Inbound payloads carry validation tags; a frame that fails validation is
// rejected at decode time instead of flowing into the router half-formed.
package event

import (
	"chat-presence/domain"
)

// Inbound event kinds as they appear on the wire.
const (
	KindRegisterPresence = "register-presence"
	KindJoinRoom         = "join-room"
	KindLeaveRoom        = "leave-room"
	KindSendMessage      = "send-message"
	KindTyping           = "typing"
	KindStopTyping       = "stop-typing"
	KindDisconnect       = "disconnect"
)

// Inbound is one protocol event received from a client connection.
type Inbound interface {
	Kind() string
}

// RegisterPresence announces which user a connection represents.
// The payload carries no proof of identity; identity proofing belongs to an
// upstream collaborator.
type RegisterPresence struct {
	UserID domain.UserID `json:"userId" validate:"required"`
}

func (RegisterPresence) Kind() string { return KindRegisterPresence }

// JoinRoom subscribes the origin connection to a room.
type JoinRoom struct {
	RoomID domain.RoomID `json:"roomId" validate:"required"`
	UserID domain.UserID `json:"userId" validate:"required"`
}

func (JoinRoom) Kind() string { return KindJoinRoom }

// LeaveRoom unsubscribes the origin connection from a room.
type LeaveRoom struct {
	RoomID domain.RoomID `json:"roomId" validate:"required"`
	UserID domain.UserID `json:"userId" validate:"required"`
}

func (LeaveRoom) Kind() string { return KindLeaveRoom }

// SendMessage asks the router to fan a message out to the given receivers.
// An empty receiver list is valid: the sender echo still runs.
type SendMessage struct {
	RoomID      domain.RoomID   `json:"roomId" validate:"required"`
	SenderID    domain.UserID   `json:"senderId" validate:"required"`
	ReceiverIDs []domain.UserID `json:"receiverIds" validate:"dive,required"`
	Message     string          `json:"message" validate:"required"`
}

func (SendMessage) Kind() string { return KindSendMessage }

// Typing carries a typing-state change. Active is derived from the envelope
// kind (typing vs stop-typing), not from the payload.
type Typing struct {
	ReceiverIDs []domain.UserID `json:"receiverIds" validate:"dive,required"`
	SenderID    domain.UserID   `json:"sender" validate:"required"`
	RoomID      domain.RoomID   `json:"roomId" validate:"required"`
	Active      bool            `json:"-"`
}

func (t Typing) Kind() string {
	if t.Active {
		return KindTyping
	}
	return KindStopTyping
}

// Disconnect is synthesized by the transport when a channel closes.
// It never arrives over the wire.
type Disconnect struct{}

func (Disconnect) Kind() string { return KindDisconnect }
