// Package domain contains core concepts of the presence engine.
// This file defines the opaque identifiers shared by the registries
// and the router. No runtime, network, or UI logic should be added here.
package domain

// UserID identifies an application user. A user may be represented by
// several live connections at once (multi-device).
type UserID string

// RoomID identifies a conversation room.
type RoomID string

// ConnID identifies one live transport channel (one device or tab).
// It is bound to exactly one channel for the channel's lifetime; only the
// identifier is held in registries, the channel itself belongs to the
// transport layer.
type ConnID string
