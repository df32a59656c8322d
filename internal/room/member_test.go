package room

import (
	"context"
	"sync"

	"github.com/hellomouse/tptmp-server/internal/wire"
)

// fakeMember is a room.Member backed by an in-memory inbox, standing in for
// a real session connection in tests.
type fakeMember struct {
	id    byte
	nick  string
	mu    sync.Mutex
	st    State
	inbox []wire.Frame
	fail  bool
}

func newFakeMember(id byte, nick string) *fakeMember {
	return &fakeMember{id: id, nick: nick, st: DefaultState()}
}

func (f *fakeMember) ID() byte     { return f.id }
func (f *fakeMember) Nick() string { return f.nick }

func (f *fakeMember) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st
}

func (f *fakeMember) setState(st State) {
	f.mu.Lock()
	f.st = st
	f.mu.Unlock()
}

func (f *fakeMember) Enqueue(ctx context.Context, buf wire.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return wire.ErrClosed
	}
	f.inbox = append(f.inbox, buf)
	return nil
}

func (f *fakeMember) received() []wire.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wire.Frame, len(f.inbox))
	copy(out, f.inbox)
	return out
}
