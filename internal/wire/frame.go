package wire

import "encoding/binary"

// Frame is a fully serialized outbound frame: opcode followed by whatever
// payload bytes that opcode carries. Frame Writer never inspects the
// contents, only writes them atomically with respect to one connection.
type Frame []byte

// ErrorFrame builds the handshake/protocol error frame [0x00, reason, 0x00].
func ErrorFrame(reason string) Frame {
	f := make(Frame, 0, 2+len(reason))
	f = append(f, byte(OpErrorFrame))
	f = append(f, reason...)
	f = append(f, 0x00)
	return f
}

// IdentifyOK builds the single-byte handshake success reply.
func IdentifyOK() Frame { return Frame{byte(OpIdentifyOK)} }

// ServerMessage builds [22, text, 0, r, g, b].
func ServerMessage(text string, r, g, b byte) Frame {
	f := make(Frame, 0, 5+len(text))
	f = append(f, byte(OpServerMessage))
	f = append(f, text...)
	f = append(f, 0x00, r, g, b)
	return f
}

// Relay rewrites a client-originated frame as [op, originID, payload...],
// the rewrite every "relay" row in the opcode table performs.
func Relay(op Opcode, originID byte, payload []byte) Frame {
	f := make(Frame, 0, 2+len(payload))
	f = append(f, byte(op), originID)
	f = append(f, payload...)
	return f
}

// RosterHeader builds the [16, memberCount] frame that opens a join replay.
func RosterHeader(memberCount int) Frame {
	return Frame{byte(OpJoin), byte(memberCount)}
}

// RosterEntry builds one [id, nick, 0] roster record (no opcode prefix).
func RosterEntry(id byte, nick string) Frame {
	f := make(Frame, 0, 2+len(nick))
	f = append(f, id)
	f = append(f, nick...)
	f = append(f, 0x00)
	return f
}

// BrushShape builds the [35, id] frame used both for a live relay and,
// repeated brush times, to replay an existing member's shape counter to a
// joiner.
func BrushShape(id byte) Frame { return Frame{byte(OpBrushShape), id} }

// BrushSize builds [34, id, size0, size1].
func BrushSize(id byte, size [2]byte) Frame {
	return Frame{byte(OpBrushSize), id, size[0], size[1]}
}

// SelectedElement builds [37, id, a, b].
func SelectedElement(id byte, a, b byte) Frame {
	return Frame{byte(OpSelectedElement), id, a, b}
}

// ReplaceMode builds [38, id, mode].
func ReplaceMode(id byte, mode byte) Frame {
	return Frame{byte(OpReplaceMode), id, mode}
}

// DecoColor builds [65, id, r, g, b, a].
func DecoColor(id byte, deco [4]byte) Frame {
	return Frame{byte(OpDecoColor), id, deco[0], deco[1], deco[2], deco[3]}
}

// MemberJoined builds the [17, id, nick, 0] broadcast sent to existing
// members when a new client joins.
func MemberJoined(id byte, nick string) Frame {
	f := make(Frame, 0, 3+len(nick))
	f = append(f, byte(OpMemberJoined), id)
	f = append(f, nick...)
	f = append(f, 0x00)
	return f
}

// MemberParted builds the [18, id] broadcast sent when a member departs.
func MemberParted(id byte) Frame { return Frame{byte(OpMemberParted), id} }

// SyncRequest builds [128, joinerID], sent to a non-chat peer to request a
// stamp/property snapshot of the world for the joiner.
func SyncRequest(joinerID byte) Frame { return Frame{byte(OpSyncReply), joinerID} }

// SyncForward builds [129, a, b, c, payload...], the forwarded form of a
// client's op-128 sync reply, addressed by the header bytes the replying
// client chose (minus the target id it consumed).
func SyncForward(a, b, c byte, payload []byte) Frame {
	f := make(Frame, 0, 4+len(payload))
	f = append(f, byte(OpSyncForward), a, b, c)
	f = append(f, payload...)
	return f
}

// SyncPropsForward builds [command, originID, value], the forwarded form of
// an op-130 sync-properties reply.
func SyncPropsForward(command Opcode, originID, value byte) Frame {
	return Frame{byte(command), originID, value}
}

// PutUint24 encodes n into a 3-byte big-endian field, the length-prefix
// width used by the stamp (66) and sync-reply (128) opcodes.
func PutUint24(n uint32) [3]byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], n)
	return [3]byte{buf[1], buf[2], buf[3]}
}

// Uint24 decodes a 3-byte big-endian length field.
func Uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
