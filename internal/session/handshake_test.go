package session

import (
	"context"
	"net"
	"testing"

	"github.com/hellomouse/tptmp-server/internal/logging"
	"github.com/hellomouse/tptmp-server/internal/room"
	"github.com/hellomouse/tptmp-server/internal/wire"
)

func newTestSession(conn net.Conn, reg *room.Registry, cfg Config) *Session {
	return newSession(conn, reg, cfg, logging.L())
}

func TestHandshake_Success(t *testing.T) {
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	reg := room.New()
	s := newTestSession(srv, reg, DefaultConfig())

	go func() {
		_, _ = cli.Write([]byte{1, 0, 0})
		_, _ = cli.Write([]byte("ant\x00"))
	}()

	reason, err := s.handshake()
	if err != nil {
		t.Fatalf("handshake failed: %v (%s)", err, reason)
	}
	if s.nick != "ant" {
		t.Fatalf("nick = %q, want ant", s.nick)
	}
	if _, ok := reg.Client(s.id); !ok {
		t.Fatalf("expected session to be registered after handshake")
	}
}

func TestHandshake_RejectsOldVersion(t *testing.T) {
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	reg := room.New()
	s := newTestSession(srv, reg, DefaultConfig())

	go func() {
		_, _ = cli.Write([]byte{0, 9, 0})
		_, _ = cli.Write([]byte("ant\x00"))
	}()

	if _, err := s.handshake(); err == nil {
		t.Fatalf("expected handshake to reject an out-of-window version")
	}
}

func TestHandshake_RejectsScriptMismatch(t *testing.T) {
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	reg := room.New()
	cfg := DefaultConfig()
	cfg.Script = 5
	s := newTestSession(srv, reg, cfg)

	go func() {
		_, _ = cli.Write([]byte{1, 0, 0})
		_, _ = cli.Write([]byte("ant\x00"))
	}()

	if _, err := s.handshake(); err == nil {
		t.Fatalf("expected handshake to reject a script version mismatch")
	}
}

func TestHandshake_RejectsBadNicknameCharset(t *testing.T) {
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	reg := room.New()
	s := newTestSession(srv, reg, DefaultConfig())

	go func() {
		_, _ = cli.Write([]byte{1, 0, 0})
		_, _ = cli.Write([]byte("has space\x00"))
	}()

	if _, err := s.handshake(); err == nil {
		t.Fatalf("expected handshake to reject a nickname with a space")
	}
}

func TestHandshake_RejectsTakenNickname(t *testing.T) {
	reg := room.New()
	taken := &fakeSessionMember{id: 0, nick: "ant"}
	if _, err := reg.Admit("ant", taken); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()
	s := newTestSession(srv, reg, DefaultConfig())

	go func() {
		_, _ = cli.Write([]byte{1, 0, 0})
		_, _ = cli.Write([]byte("ant\x00"))
	}()

	if _, err := s.handshake(); err == nil {
		t.Fatalf("expected handshake to reject an already-taken nickname")
	}
}

// fakeSessionMember is a minimal room.Member used only to occupy a
// nickname/id slot in registry tests that do not need a real Session.
type fakeSessionMember struct {
	id   byte
	nick string
}

func (f *fakeSessionMember) ID() byte          { return f.id }
func (f *fakeSessionMember) Nick() string      { return f.nick }
func (f *fakeSessionMember) State() room.State { return room.DefaultState() }
func (f *fakeSessionMember) Enqueue(_ context.Context, _ wire.Frame) error {
	return nil
}
