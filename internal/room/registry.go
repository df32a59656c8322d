package room

import (
	"context"
	"fmt"
	"sync"

	"github.com/hellomouse/tptmp-server/internal/metrics"
)

// MaxClients is the hard wire-format ceiling: ids are one byte wide and
// must lie in [0,255), so the registry can never admit more than this many
// concurrent clients regardless of configuration.
const MaxClients = 255

// Hooks are veto predicates: a hook returning false aborts the associated
// action. Nil hooks always allow.
type Hooks struct {
	Connect func(client Member) bool
	Join    func(client Member, roomName string) bool
	Message func(client Member, text string) bool
}

// Observer receives lifecycle events as a small set of named callbacks
// instead of an ambient event bus. Every field is optional; a nil field
// is simply not called.
type Observer struct {
	NewClient  func(client Member)
	Identified func(client Member)
	Join       func(client Member, r *Room)
	Part       func(client Member, r *Room)
	Disconnect func(client Member, reason string)
	Kicked     func(client Member, source Member, reason string)
	Chat       func(client Member, text string)
	RoomCreate func(r *Room)
	RoomDelete func(r *Room)
}

// Registry is the server-wide client and room table: id allocation,
// nickname uniqueness, the 255-client cap, and create-on-first-join /
// delete-on-last-part room lifecycle.
//
// Shaped like a client set guarded by a single mutex with Add/Remove/Count
// operations, generalized to also own the room table and run nickname/id
// bookkeeping. A single Registry value is constructed explicitly and
// passed to sessions rather than kept as a global singleton.
type Registry struct {
	mu         sync.Mutex
	maxClients int
	used       [MaxClients]bool
	clients    map[byte]Member
	nicknames  map[string]byte
	rooms      map[string]*Room

	hooks    Hooks
	observer Observer
}

// Option configures a Registry at construction time, following the
// teacher's functional-options constructor style.
type Option func(*Registry)

// WithMaxClients caps concurrent clients below the wire-format ceiling of
// 255. Values <= 0 or > 255 are clamped to 255.
func WithMaxClients(n int) Option {
	return func(r *Registry) {
		if n <= 0 || n > MaxClients {
			n = MaxClients
		}
		r.maxClients = n
	}
}

func WithConnectHook(fn func(Member) bool) Option {
	return func(r *Registry) { r.hooks.Connect = fn }
}

func WithJoinHook(fn func(Member, string) bool) Option {
	return func(r *Registry) { r.hooks.Join = fn }
}

func WithMessageHook(fn func(Member, string) bool) Option {
	return func(r *Registry) { r.hooks.Message = fn }
}

// WithLifecycleObserver installs the named-callback lifecycle observer.
func WithLifecycleObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// New constructs a Registry with the 255-client cap unless narrowed by
// WithMaxClients.
func New(opts ...Option) *Registry {
	r := &Registry{
		maxClients: MaxClients,
		clients:    make(map[byte]Member),
		nicknames:  make(map[string]byte),
		rooms:      make(map[string]*Room),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ErrFull is returned by Admit when the registry is at capacity.
var ErrFull = fmt.Errorf("registry: at capacity")

// ErrNicknameTaken is returned by Admit when the requested nickname is
// already held by another connected client.
var ErrNicknameTaken = fmt.Errorf("registry: nickname taken")

// Hooks exposes the configured veto predicates so a session can run them
// without reaching into registry internals.
func (r *Registry) Hooks() Hooks { return r.hooks }

// MaxClients returns the registry's configured capacity (<= the
// wire-format ceiling of 255).
func (r *Registry) MaxClients() int { return r.maxClients }

// NicknameTaken reports whether nick is currently held by a connected
// client.
func (r *Registry) NicknameTaken(nick string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.nicknames[nick]
	return ok
}

// Admit allocates the lowest free id in [0,255) for nick and registers
// client under it, failing if the registry is at its configured capacity
// or nick is already taken. client.ID() need not be valid until after
// Admit assigns one; callers typically call Admit before constructing the
// session's final identity, then bind the returned id.
func (r *Registry) Admit(nick string, client Member) (byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.nicknames[nick]; taken {
		return 0, ErrNicknameTaken
	}
	if len(r.clients) >= r.maxClients {
		metrics.IncRejected()
		return 0, ErrFull
	}
	for id := 0; id < MaxClients; id++ {
		if !r.used[id] {
			r.used[id] = true
			r.clients[byte(id)] = client
			r.nicknames[nick] = byte(id)
			metrics.SetActiveClients(len(r.clients))
			return byte(id), nil
		}
	}
	metrics.IncRejected()
	return 0, ErrFull
}

// ClientCount returns the number of currently admitted clients.
func (r *Registry) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Client looks up a currently connected client by id.
func (r *Registry) Client(id byte) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.clients[id]
	return m, ok
}

// RunConnectHook runs the connect veto hook, defaulting to allow.
func (r *Registry) RunConnectHook(client Member) bool {
	if r.hooks.Connect == nil {
		return true
	}
	return r.hooks.Connect(client)
}

// RunJoinHook runs the join veto hook, defaulting to allow.
func (r *Registry) RunJoinHook(client Member, roomName string) bool {
	if r.hooks.Join == nil {
		return true
	}
	return r.hooks.Join(client, roomName)
}

// RunMessageHook runs the message veto hook, defaulting to allow.
func (r *Registry) RunMessageHook(client Member, text string) bool {
	if r.hooks.Message == nil {
		return true
	}
	return r.hooks.Message(client, text)
}

// EmitNewClient, EmitIdentified, EmitChat and EmitKicked fire the matching
// observer callbacks; the corresponding Join/Part/Disconnect events are
// emitted by this registry's own Join/Part/Disconnect methods, since those
// already hold the authoritative state transition.
func (r *Registry) EmitNewClient(client Member) {
	if r.observer.NewClient != nil {
		r.observer.NewClient(client)
	}
}

func (r *Registry) EmitIdentified(client Member) {
	if r.observer.Identified != nil {
		r.observer.Identified(client)
	}
}

func (r *Registry) EmitChat(client Member, text string) {
	if r.observer.Chat != nil {
		r.observer.Chat(client, text)
	}
}

func (r *Registry) EmitKicked(client, source Member, reason string) {
	if r.observer.Kicked != nil {
		r.observer.Kicked(client, source, reason)
	}
}

// roomLocked returns the named room, creating it if it does not yet
// exist. It emits no event; Join fires RoomCreate after releasing r.mu.
// Must be called with r.mu held.
func (r *Registry) roomLocked(name string) *Room {
	rm, ok := r.rooms[name]
	if ok {
		return rm
	}
	rm = New(name)
	r.rooms[name] = rm
	metrics.SetActiveRooms(len(r.rooms))
	return rm
}

// Join creates the named room if absent, delegates to Room.Join, and
// emits the join lifecycle event.
func (r *Registry) Join(ctx context.Context, client Member, name string) (*Room, error) {
	r.mu.Lock()
	rm, existed := r.rooms[name]
	if !existed {
		rm = r.roomLocked(name)
	}
	r.mu.Unlock()
	if !existed && r.observer.RoomCreate != nil {
		r.observer.RoomCreate(rm)
	}
	if err := rm.Join(ctx, client); err != nil {
		return rm, err
	}
	if r.observer.Join != nil {
		r.observer.Join(client, rm)
	}
	return rm, nil
}

// Part delegates to Room.Part, emits the part event, and tears the room
// down (emitting RoomDelete) if that was its last member.
func (r *Registry) Part(ctx context.Context, client Member, rm *Room) {
	if rm == nil {
		return
	}
	rm.Part(ctx, client)
	if r.observer.Part != nil {
		r.observer.Part(client, rm)
	}
	if rm.Empty() {
		r.mu.Lock()
		if existing, ok := r.rooms[rm.Name()]; ok && existing == rm {
			delete(r.rooms, rm.Name())
		}
		metrics.SetActiveRooms(len(r.rooms))
		r.mu.Unlock()
		if r.observer.RoomDelete != nil {
			r.observer.RoomDelete(rm)
		}
	}
}

// Room looks up a room by name without creating it.
func (r *Registry) Room(name string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[name]
	return rm, ok
}

// Disconnect is idempotent: it emits the disconnect event and releases
// the client's id and nickname exactly once, no matter how many times it
// is called for the same client. The caller is still responsible for
// closing the socket and parting the client's current room.
func (r *Registry) Disconnect(client Member, reason string) {
	id := client.ID()
	r.mu.Lock()
	cur, ok := r.clients[id]
	if !ok || cur != client {
		r.mu.Unlock()
		return
	}
	delete(r.clients, id)
	r.used[id] = false
	delete(r.nicknames, client.Nick())
	metrics.SetActiveClients(len(r.clients))
	r.mu.Unlock()

	metrics.IncDisconnected()
	if r.observer.Disconnect != nil {
		r.observer.Disconnect(client, reason)
	}
}
