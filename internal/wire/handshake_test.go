package wire

import (
	"net"
	"testing"
)

func TestReadHandshake(t *testing.T) {
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	go func() {
		_, _ = cli.Write([]byte{1, 0, 0})
		_, _ = cli.Write([]byte("ant\x00"))
	}()

	r := NewReader(srv, 0)
	rec, err := ReadHandshake(r)
	if err != nil {
		t.Fatalf("ReadHandshake: %v", err)
	}
	if rec.Major != 1 || rec.Minor != 0 || rec.Script != 0 {
		t.Fatalf("unexpected header: %+v", rec)
	}
	if rec.Nickname != "ant" {
		t.Fatalf("Nickname = %q, want %q", rec.Nickname, "ant")
	}
}

func TestReadHandshake_TruncatedNickname(t *testing.T) {
	srv, cli := net.Pipe()
	defer srv.Close()

	go func() {
		_, _ = cli.Write([]byte{1, 0, 0})
		cli.Close()
	}()

	r := NewReader(srv, 0)
	if _, err := ReadHandshake(r); err == nil {
		t.Fatalf("expected error for truncated handshake")
	}
}
