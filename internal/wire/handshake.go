package wire

// HandshakeRecord is the NUL-terminated record a client sends immediately
// on connect: major/minor/script bytes followed by its requested nickname.
// The read is bounded by the Reader's idle timeout, the same deadline
// discipline used for the steady state; the session constructs its Reader
// with the handshake timeout and relaxes it with SetIdleTimeout afterward.
// There is no simultaneous write half to race since the server
// only reads here and replies afterward.
type HandshakeRecord struct {
	Major, Minor, Script byte
	Nickname             string
}

// ReadHandshake reads the handshake record: three header bytes followed by
// a NUL-terminated nickname. Semantic validation (version window, script
// match, nickname charset/length/uniqueness) is the caller's job; this
// only parses the wire shape.
func ReadHandshake(r *Reader) (HandshakeRecord, error) {
	head, err := r.ReadN(3)
	if err != nil {
		return HandshakeRecord{}, err
	}
	nick, err := r.ReadUntilNull()
	if err != nil {
		return HandshakeRecord{}, err
	}
	return HandshakeRecord{Major: head[0], Minor: head[1], Script: head[2], Nickname: string(nick)}, nil
}
