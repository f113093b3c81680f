// Package runtime holds the presence and room registries plus the router
// that mutates them. It orchestrates delivery without containing transport
// or UI logic.
package runtime

import (
	"sort"
	"sync"

	"chat-presence/domain"

	"github.com/samber/lo"
)

type connSet map[domain.ConnID]struct{}

// PresenceRegistry maps a user to the set of connections currently
// representing that user's live sessions. A user appears in the registry
// iff it has at least one active connection; removing the last connection
// removes the user entry entirely.
//
// The registry is process-wide soft state: it is rebuilt from nothing on
// start and lost on restart, reconstructed as clients reconnect and
// re-announce themselves.
type PresenceRegistry struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]connSet
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		sessions: make(map[domain.UserID]connSet),
	}
}

// Register idempotently adds conn to user's session set, creating the entry
// if absent. Registering the same pair twice leaves a single occurrence.
// The payload carries no proof of identity; any connection may claim any
// user id (identity proofing is an upstream concern).
func (r *PresenceRegistry) Register(user domain.UserID, conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[user]; !ok {
		r.sessions[user] = make(connSet)
	}
	r.sessions[user][conn] = struct{}{}
}

// RemoveConnection scans all user entries and removes conn wherever present.
// A user whose set becomes empty is deleted entirely; removal is always
// connection-driven, there is no direct remove-user operation.
// Reports whether the connection was found anywhere.
func (r *PresenceRegistry) RemoveConnection(conn domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for user, conns := range r.sessions {
		if _, ok := conns[conn]; !ok {
			continue
		}
		found = true
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.sessions, user)
		}
	}
	return found
}

// IsActive reports whether user has at least one live connection.
func (r *PresenceRegistry) IsActive(user domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sessions[user]
	return ok
}

// ConnectionsOf returns the connections currently bound to user.
// Returns nil for an unknown user.
func (r *PresenceRegistry) ConnectionsOf(user domain.UserID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, ok := r.sessions[user]
	if !ok {
		return nil
	}
	return lo.Keys(conns)
}

// ActiveUserIDs returns every user id with at least one live connection,
// sorted so that repeated broadcasts of the same population are identical.
func (r *PresenceRegistry) ActiveUserIDs() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := lo.Keys(r.sessions)
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}
