package services

import (
	"chat-presence/domain"
	"chat-presence/runtime"
)

// IPresenceService is the read-only view of the registries offered to the
// synchronous CRUD collaborators (who-is-online badges, member lists). It
// never mutates state; all mutation flows through the router.
type IPresenceService interface {
	IsActive(user domain.UserID) bool
	ActiveUserIDs() []domain.UserID
	ConnectionsOf(user domain.UserID) []domain.ConnID
	RoomIDs() []domain.RoomID
	RoomMemberIDs(room domain.RoomID) []domain.UserID
}

type PresenceService struct {
	presence *runtime.PresenceRegistry
	rooms    *runtime.RoomRegistry
}

func NewPresenceService(presence *runtime.PresenceRegistry, rooms *runtime.RoomRegistry) *PresenceService {
	return &PresenceService{presence: presence, rooms: rooms}
}

func (s *PresenceService) IsActive(user domain.UserID) bool {
	return s.presence.IsActive(user)
}

func (s *PresenceService) ActiveUserIDs() []domain.UserID {
	return s.presence.ActiveUserIDs()
}

func (s *PresenceService) ConnectionsOf(user domain.UserID) []domain.ConnID {
	return s.presence.ConnectionsOf(user)
}

func (s *PresenceService) RoomIDs() []domain.RoomID {
	return s.rooms.RoomIDs()
}

func (s *PresenceService) RoomMemberIDs(room domain.RoomID) []domain.UserID {
	return s.rooms.MemberIDs(room)
}
