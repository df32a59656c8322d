// Package room implements room membership, state replay, and broadcast
// fan-out, plus the server-wide client and room registry.
package room

import (
	"context"

	"github.com/hellomouse/tptmp-server/internal/wire"
)

// State is the per-client mirror: derived state a room replays to a
// joiner so it can reconstruct the world. Brush is stored as the number
// of shape-change steps from 0, so replay can re-derive the client's
// shape counter by emitting that many [35,id] frames.
type State struct {
	Brush          int
	BrushSize      [2]byte
	BrushSelection [4][2]byte
	ReplaceMode    byte
	Deco           [4]byte
	IsChat         bool
}

// DefaultState is the initial mirror state of a freshly identified client.
func DefaultState() State {
	return State{
		Brush:     0,
		BrushSize: [2]byte{4, 4},
		BrushSelection: [4][2]byte{
			{0, 1}, {64, 0}, {128, 0}, {192, 0},
		},
		ReplaceMode: '0',
	}
}

// Member is the interface a Room and Registry need from a connected
// client session, kept narrow so internal/room never imports
// internal/session (the session is the one that imports room, not the
// other way around).
type Member interface {
	ID() byte
	Nick() string
	State() State
	// Enqueue queues buf for delivery to this member's connection. It must
	// not block the caller's room-wide broadcast indefinitely; callers pass
	// a context that can be used to bound that wait.
	Enqueue(ctx context.Context, buf wire.Frame) error
}
