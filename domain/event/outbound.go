package event

import (
	"chat-presence/domain"
)

// Outbound event kinds as they appear on the wire.
const (
	KindActiveUsers          = "active-user-ids"
	KindRoomMembers          = "room-members"
	KindMessageReceived      = "message-received"
	KindLatestMessagePreview = "latest-message-preview"
	KindInAppNotification    = "in-app-notification"
	KindTypingState          = "typing-state"
)

// Outbound is one protocol event emitted to a client connection.
// Emission is best-effort, at-most-once, with no retry.
type Outbound interface {
	Kind() string
}

// ActiveUsers is the full list of currently known user ids, broadcast to
// every open connection after a presence registration.
type ActiveUsers struct {
	UserIDs []domain.UserID `json:"userIds"`
}

func (ActiveUsers) Kind() string { return KindActiveUsers }

// RoomMembers is the member list of one room, broadcast to the room's
// subscribed connections after membership changes.
type RoomMembers struct {
	RoomID  domain.RoomID   `json:"roomId"`
	UserIDs []domain.UserID `json:"userIds"`
}

func (RoomMembers) Kind() string { return KindRoomMembers }

// MessageReceived delivers a message to a connection currently viewing the
// room it was sent to, and to the sender's other devices.
type MessageReceived struct {
	SenderID domain.UserID `json:"senderId"`
	Message  string        `json:"message"`
}

func (MessageReceived) Kind() string { return KindMessageReceived }

// LatestMessagePreview refreshes conversation-list UIs. It follows every
// in-room delivery and every sender echo, but deliberately never reaches an
// out-of-room connection so that a device not viewing the conversation does
// not silently reorder its list.
type LatestMessagePreview struct {
	SenderID domain.UserID `json:"senderId"`
	Message  string        `json:"message"`
}

func (LatestMessagePreview) Kind() string { return KindLatestMessagePreview }

// InAppNotification is the badge/alert sent to a receiver's connections that
// are active but not currently joined to the room.
type InAppNotification struct {
	SenderID domain.UserID `json:"senderId"`
	Message  string        `json:"message"`
}

func (InAppNotification) Kind() string { return KindInAppNotification }

// TypingState relays a typing indicator. Delivered regardless of room
// membership.
type TypingState struct {
	Typing   bool          `json:"typing"`
	SenderID domain.UserID `json:"senderId"`
	RoomID   domain.RoomID `json:"roomId"`
}

func (TypingState) Kind() string { return KindTypingState }
