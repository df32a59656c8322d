package room

import (
	"context"
	"sync"

	"github.com/hellomouse/tptmp-server/internal/logging"
	"github.com/hellomouse/tptmp-server/internal/metrics"
	"github.com/hellomouse/tptmp-server/internal/wire"
)

// LobbyName is the implicit room every client joins immediately after
// handshake.
const LobbyName = "null"

// Room is a named, dynamically created group of client sessions. Shaped
// like an RWMutex-guarded client set with a snapshot-then-iterate
// broadcast, generalized from one global set to many independently
// lifecycled rooms, from "broadcast to everyone" to "broadcast to
// everyone except the sender", and extended with operator election and a
// join replay protocol.
type Room struct {
	mu      sync.RWMutex
	name    string
	order   []Member // insertion order; re-election promotes order[0]
	members map[byte]Member
	op      byte
}

// New constructs an empty room named name.
func New(name string) *Room {
	return &Room{name: name, members: make(map[byte]Member)}
}

func (r *Room) Name() string { return r.name }

// Op returns the id of the current operator.
func (r *Room) Op() byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.op
}

// IsOp reports whether id is the room's operator.
func (r *Room) IsOp(id byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order) > 0 && r.op == id
}

// Members returns a snapshot of current members in join order.
func (r *Room) Members() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Member, len(r.order))
	copy(out, r.order)
	return out
}

// Has reports whether id is currently a member.
func (r *Room) Has(id byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[id]
	return ok
}

// ByNick locates a member by nickname, first match wins (there is at most
// one: nicknames are globally unique while connected).
func (r *Room) ByNick(nick string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.order {
		if m.Nick() == nick {
			return m, true
		}
	}
	return nil, false
}

// Count returns the number of current members.
func (r *Room) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Join runs the join replay protocol: idempotent no-op if already a
// member; otherwise snapshots every existing member's state to
// the joiner, broadcasts the joiner's arrival to existing members, issues
// a sync request to one eligible peer, and only then adds the joiner to
// the set. The ordering matters: the joiner must never see itself in its
// own roster, and existing members must be notified exactly once.
func (r *Room) Join(ctx context.Context, client Member) error {
	r.mu.Lock()
	if _, already := r.members[client.ID()]; already {
		r.mu.Unlock()
		return nil
	}
	existing := make([]Member, len(r.order))
	copy(existing, r.order)
	if len(existing) == 0 {
		r.op = client.ID()
	}
	r.mu.Unlock()

	if err := client.Enqueue(ctx, wire.RosterHeader(len(existing))); err != nil {
		return err
	}
	for _, m := range existing {
		if err := client.Enqueue(ctx, wire.RosterEntry(m.ID(), m.Nick())); err != nil {
			return err
		}
	}
	for _, m := range existing {
		st := m.State()
		for i := 0; i < st.Brush; i++ {
			if err := client.Enqueue(ctx, wire.BrushShape(m.ID())); err != nil {
				return err
			}
		}
		if err := client.Enqueue(ctx, wire.BrushSize(m.ID(), st.BrushSize)); err != nil {
			return err
		}
		for i := 0; i < 4; i++ {
			sel := st.BrushSelection[i]
			if err := client.Enqueue(ctx, wire.SelectedElement(m.ID(), sel[0], sel[1])); err != nil {
				return err
			}
		}
		if err := client.Enqueue(ctx, wire.ReplaceMode(m.ID(), st.ReplaceMode)); err != nil {
			return err
		}
		if err := client.Enqueue(ctx, wire.DecoColor(m.ID(), st.Deco)); err != nil {
			return err
		}
	}

	joinFrame := wire.MemberJoined(client.ID(), client.Nick())
	for _, m := range existing {
		_ = m.Enqueue(ctx, joinFrame)
	}

	for _, m := range existing {
		st := m.State()
		if !st.IsChat && m.ID() != client.ID() {
			_ = m.Enqueue(ctx, wire.SyncRequest(client.ID()))
			break
		}
	}

	r.mu.Lock()
	r.members[client.ID()] = client
	r.order = append(r.order, client)
	r.mu.Unlock()
	metrics.SetBroadcastFanout(len(existing))
	return nil
}

// Part removes client from the room, re-electing the operator as the
// first remaining member in join order if the departing client held the
// role, then broadcasts the departure to survivors.
func (r *Room) Part(ctx context.Context, client Member) {
	r.mu.Lock()
	if _, ok := r.members[client.ID()]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.members, client.ID())
	for i, m := range r.order {
		if m.ID() == client.ID() {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	wasOp := r.op == client.ID()
	if wasOp && len(r.order) > 0 {
		r.op = r.order[0].ID()
	}
	survivors := make([]Member, len(r.order))
	copy(survivors, r.order)
	r.mu.Unlock()

	frame := wire.MemberParted(client.ID())
	for _, m := range survivors {
		_ = m.Enqueue(ctx, frame)
	}
}

// Send fans buf out to every member except the one with id exceptID.
func (r *Room) Send(ctx context.Context, buf wire.Frame, exceptID byte) {
	members := r.Members()
	metrics.SetBroadcastFanout(len(members))
	for _, m := range members {
		if m.ID() == exceptID {
			continue
		}
		if err := m.Enqueue(ctx, buf); err != nil {
			logging.L().Debug("room_send_failed", "room", r.name, "target", m.ID(), "error", err)
		}
	}
}

// Empty reports whether the room currently has no members.
func (r *Room) Empty() bool { return r.Count() == 0 }
