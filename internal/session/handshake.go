package session

import (
	"errors"
	"fmt"

	"github.com/hellomouse/tptmp-server/internal/metrics"
	"github.com/hellomouse/tptmp-server/internal/room"
	"github.com/hellomouse/tptmp-server/internal/wire"
)

// handshake reads the NUL-terminated major/minor/script/nickname record,
// validates it in the prescribed order, and either admits the client
// (writing the 0x01 success byte and assigning an id) or fails it
// (writing an error frame and returning a non-nil error so the caller
// closes without further protocol activity).
//
// On success s.id and s.nick are set and the client is registered in
// s.registry, but not yet a member of any room; the caller joins the
// lobby afterward.
func (s *Session) handshake() (reason string, err error) {
	rec, rerr := wire.ReadHandshake(s.reader)
	if rerr != nil {
		metrics.IncHandshakeFailure()
		return "transport error during handshake", wrapConnErr(ErrHandshake, rerr)
	}

	vw := s.cfg.VersionWindow
	if vw.Below(rec.Major, rec.Minor) {
		msg := fmt.Sprintf("Client out of date (expected at least %d.%d)", vw.MinMajor, vw.MinMinor)
		return s.failHandshake(msg)
	}
	if vw.Above(rec.Major, rec.Minor) {
		msg := fmt.Sprintf("Client too new (expected at most %d.%d)", vw.MaxMajor, vw.MaxMinor)
		return s.failHandshake(msg)
	}
	if rec.Script != s.cfg.Script {
		msg := fmt.Sprintf("Script version mismatch (expected %d)", s.cfg.Script)
		return s.failHandshake(msg)
	}
	if !wire.MatchesNameCharset(rec.Nickname) {
		return s.failHandshake("Bad nickname")
	}
	if len(rec.Nickname) > MaxNicknameLen {
		return s.failHandshake("Nick too long")
	}

	id, admitErr := s.registry.Admit(rec.Nickname, s)
	if admitErr != nil {
		if errors.Is(admitErr, room.ErrNicknameTaken) {
			return s.failHandshake("This nick is already on the server")
		}
		// ErrFull: the accept path already enforces the cap before the
		// handshake starts, but a race against a just-admitted client can
		// still land here; report it the same way.
		max := s.registry.MaxClients()
		return s.failHandshake(fmt.Sprintf("Server is full (%d/%d)", max, max))
	}
	s.id = id
	s.nick = rec.Nickname

	if werr := s.send(wire.IdentifyOK()); werr != nil {
		s.registry.Disconnect(s, "write failed after handshake")
		return "write failed after handshake", werr
	}
	return "", nil
}

// failHandshake writes the NUL-framed error and returns it as the fatal
// error so the caller closes the connection without joining a room.
func (s *Session) failHandshake(msg string) (string, error) {
	metrics.IncHandshakeFailure()
	_ = s.send(wire.ErrorFrame(msg))
	return msg, errors.New(msg)
}
