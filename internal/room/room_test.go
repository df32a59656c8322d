package room

import (
	"context"
	"testing"
)

func TestRoom_JoinFirstMemberBecomesOp(t *testing.T) {
	r := New("lobby")
	a := newFakeMember(1, "alice")
	if err := r.Join(context.Background(), a); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !r.IsOp(1) {
		t.Fatalf("expected first joiner to be op")
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
}

func TestRoom_JoinIsIdempotent(t *testing.T) {
	r := New("lobby")
	a := newFakeMember(1, "alice")
	if err := r.Join(context.Background(), a); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := r.Join(context.Background(), a); err != nil {
		t.Fatalf("second Join: %v", err)
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1 after re-join", r.Count())
	}
}

func TestRoom_JoinReplaysRosterToNewcomer(t *testing.T) {
	r := New("lobby")
	a := newFakeMember(1, "alice")
	a.setState(State{Brush: 2, BrushSize: [2]byte{9, 9}, ReplaceMode: '1'})
	if err := r.Join(context.Background(), a); err != nil {
		t.Fatalf("Join a: %v", err)
	}

	b := newFakeMember(2, "bob")
	if err := r.Join(context.Background(), b); err != nil {
		t.Fatalf("Join b: %v", err)
	}

	frames := b.received()
	if len(frames) == 0 {
		t.Fatalf("expected newcomer to receive roster frames")
	}
	// First frame is the roster header naming one existing member (alice).
	if frames[0][0] != byte(16) || frames[0][1] != 1 {
		t.Fatalf("unexpected roster header: % X", frames[0])
	}
	// Second frame is the roster entry for alice.
	if string(frames[1][1:len(frames[1])-1]) != "alice" {
		t.Fatalf("unexpected roster entry: % X", frames[1])
	}
}

func TestRoom_JoinNotifiesExistingMembers(t *testing.T) {
	r := New("lobby")
	a := newFakeMember(1, "alice")
	if err := r.Join(context.Background(), a); err != nil {
		t.Fatalf("Join a: %v", err)
	}
	b := newFakeMember(2, "bob")
	if err := r.Join(context.Background(), b); err != nil {
		t.Fatalf("Join b: %v", err)
	}

	frames := a.received()
	found := false
	for _, f := range frames {
		if len(f) >= 2 && f[0] == byte(17) && f[1] == 2 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected alice to receive a MemberJoined frame for bob, got %v", frames)
	}
}

func TestRoom_PartReelectsOperator(t *testing.T) {
	r := New("lobby")
	a := newFakeMember(1, "alice")
	b := newFakeMember(2, "bob")
	_ = r.Join(context.Background(), a)
	_ = r.Join(context.Background(), b)

	if !r.IsOp(1) {
		t.Fatalf("expected alice to be op before part")
	}
	r.Part(context.Background(), a)
	if !r.IsOp(2) {
		t.Fatalf("expected bob to be promoted to op after alice parts")
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1 after part", r.Count())
	}
}

func TestRoom_PartBroadcastsToSurvivors(t *testing.T) {
	r := New("lobby")
	a := newFakeMember(1, "alice")
	b := newFakeMember(2, "bob")
	_ = r.Join(context.Background(), a)
	_ = r.Join(context.Background(), b)

	r.Part(context.Background(), a)

	frames := b.received()
	found := false
	for _, f := range frames {
		if len(f) == 2 && f[0] == byte(18) && f[1] == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected bob to receive a MemberParted frame for alice, got %v", frames)
	}
}

func TestRoom_PartOfUnknownMemberIsNoop(t *testing.T) {
	r := New("lobby")
	a := newFakeMember(1, "alice")
	r.Part(context.Background(), a) // never joined
	if r.Count() != 0 {
		t.Fatalf("Count = %d, want 0", r.Count())
	}
}

func TestRoom_SendExcludesSender(t *testing.T) {
	r := New("lobby")
	a := newFakeMember(1, "alice")
	b := newFakeMember(2, "bob")
	_ = r.Join(context.Background(), a)
	_ = r.Join(context.Background(), b)

	before := len(a.received())
	r.Send(context.Background(), []byte{99, 1}, 1)

	if len(b.received()) == 0 {
		t.Fatalf("expected bob to receive the broadcast")
	}
	if len(a.received()) != before {
		t.Fatalf("sender should not receive its own broadcast")
	}
}

func TestRoom_ByNick(t *testing.T) {
	r := New("lobby")
	a := newFakeMember(1, "alice")
	_ = r.Join(context.Background(), a)

	if m, ok := r.ByNick("alice"); !ok || m.ID() != 1 {
		t.Fatalf("ByNick(alice) = %v, %v", m, ok)
	}
	if _, ok := r.ByNick("nobody"); ok {
		t.Fatalf("expected ByNick to miss for unknown nick")
	}
}
