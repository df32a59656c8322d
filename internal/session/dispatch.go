package session

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hellomouse/tptmp-server/internal/metrics"
	"github.com/hellomouse/tptmp-server/internal/room"
	"github.com/hellomouse/tptmp-server/internal/wire"
)

// loop is the main dispatch loop: read one opcode byte, handle it to
// completion, read the next. Any unrecoverable error (transport failure,
// idle timeout, or a framing desync the session cannot safely
// resynchronize from) ends the session via disconnect.
func (s *Session) loop() {
	for {
		opByte, err := s.reader.ReadByte()
		if err != nil {
			reason := idleOrTransportReason(err)
			_ = wrapConnErr(ErrConnRead, err)
			s.disconnect(reason)
			return
		}
		op := wire.Opcode(opByte)
		if err := s.dispatch(op); err != nil {
			s.disconnect(s.dispatchErrorReason(op, err))
			return
		}
	}
}

func (s *Session) dispatchErrorReason(op wire.Opcode, err error) string {
	if wire.IsTimeout(err) {
		metrics.IncIdleTimeout()
		return "Ping timeout"
	}
	if isTerminalReadErr(err) {
		return "Connection closed"
	}
	if errors.Is(err, wire.ErrMalformed) {
		metrics.IncMalformed()
		return fmt.Sprintf("protocol desync: malformed field in opcode %d", op)
	}
	if errors.Is(err, ErrUnknownOpcode) {
		return fmt.Sprintf("protocol desync: unknown opcode %d", op)
	}
	return err.Error()
}

func (s *Session) dispatch(op wire.Opcode) error {
	switch op {
	case wire.OpPing:
		s.touchIdle()
		return nil
	case wire.OpJoin:
		return s.handleJoin()
	case wire.OpChat:
		return s.handleChatLike(wire.OpChat)
	case wire.OpEmote:
		return s.handleChatLike(wire.OpEmote)
	case wire.OpKick:
		return s.handleKick()
	case wire.OpBrushSize:
		return s.handleBrushSize()
	case wire.OpBrushShape:
		return s.handleBrushShape()
	case wire.OpSelectedElement:
		return s.handleSelectedElement()
	case wire.OpReplaceMode:
		return s.handleReplaceMode()
	case wire.OpDecoColor:
		return s.handleDecoColor()
	case wire.OpStamp:
		return s.handleStamp()
	case wire.OpSyncReply:
		return s.handleSyncReply()
	case wire.OpSyncPropsReply:
		return s.handleSyncPropsReply()
	default:
		if n, ok := wire.FixedPayloadLen(op); ok {
			return s.relayFixed(op, n)
		}
		metrics.IncMalformed()
		return fmt.Errorf("%w: opcode %d", ErrUnknownOpcode, op)
	}
}

// relayToRoom broadcasts frame to every other member of the session's
// current room, a no-op if the session is not (yet) in a room.
func (s *Session) relayToRoom(frame wire.Frame) {
	rm := s.currentRoom()
	if rm == nil {
		return
	}
	rm.Send(s.ctx, frame, s.id)
	metrics.IncRelayed()
}

// relayFixed handles every opcode whose payload length is statically
// known and which carries no session-side effect beyond relay.
func (s *Session) relayFixed(op wire.Opcode, n int) error {
	var payload []byte
	if n > 0 {
		p, err := s.reader.ReadN(n)
		if err != nil {
			return err
		}
		payload = p
	}
	metrics.IncOpcode(strconv.Itoa(int(op)))
	s.relayToRoom(wire.Relay(op, s.id, payload))
	return nil
}

// handleJoin implements opcode 16: validate the target room name, run the
// join hook, part the current room, and join the target.
func (s *Session) handleJoin() error {
	nameBytes, err := s.reader.ReadUntilNull()
	if err != nil {
		return err
	}
	name := string(nameBytes)
	if !wire.ValidName(name, MaxRoomNameLen) {
		return s.send(wire.ServerMessage("Bad room name", 255, 0, 0))
	}
	if !s.registry.RunJoinHook(s, name) {
		return nil
	}
	if cur := s.currentRoom(); cur != nil {
		s.registry.Part(s.ctx, s, cur)
		s.setCurrentRoom(nil)
	}
	rm, jerr := s.registry.Join(s.ctx, s, name)
	if jerr != nil {
		return jerr
	}
	s.setCurrentRoom(rm)
	return nil
}

// handleChatLike implements opcodes 19 (chat) and 20 (emote): both read a
// NUL-terminated message, validate it, run the message hook, and relay.
// Observers render emote's relayed text as "* "+msg client-side; the wire
// shape the server produces is identical to chat's.
func (s *Session) handleChatLike(op wire.Opcode) error {
	msgBytes, err := s.reader.ReadUntilNull()
	if err != nil {
		return err
	}
	msg := string(msgBytes)
	if !wire.ValidPrintable(msg, MaxTextLen) {
		return s.send(wire.ServerMessage("Invalid message", 255, 0, 0))
	}
	if !s.registry.RunMessageHook(s, msg) {
		return nil
	}
	if op == wire.OpChat {
		s.registry.EmitChat(s, msg)
	}
	payload := append([]byte(msg), 0x00)
	s.relayToRoom(wire.Relay(op, s.id, payload))
	return nil
}

// handleKick implements opcode 21. Empty reasons fall back to a default;
// the first member matched by nickname is kicked, and only one kick is
// ever issued per request.
func (s *Session) handleKick() error {
	nickBytes, err := s.reader.ReadUntilNull()
	if err != nil {
		return err
	}
	reasonBytes, err := s.reader.ReadUntilNull()
	if err != nil {
		return err
	}
	nick := string(nickBytes)
	reason := string(reasonBytes)
	if !wire.ValidPrintable(reason, MaxTextLen) {
		return s.send(wire.ServerMessage("Bad kick reason", 255, 0, 0))
	}
	if reason == "" {
		reason = "No reason given"
	}
	rm := s.currentRoom()
	if rm == nil {
		return nil
	}
	if rm.Name() == room.LobbyName {
		return s.send(wire.ServerMessage("You can't kick people from here", 255, 0, 0))
	}
	if rm.Op() != s.id {
		return s.send(wire.ServerMessage("You can't kick people from here", 255, 0, 0))
	}
	target, ok := rm.ByNick(nick)
	if !ok {
		return nil
	}
	s.kick(target, reason)
	return nil
}

// kick sends the red kick notice then disconnects target.
func (s *Session) kick(target room.Member, reason string) {
	ts, ok := target.(*Session)
	if !ok {
		return
	}
	notice := fmt.Sprintf("You were kicked by %s (%s)", s.nick, reason)
	_ = ts.send(wire.ServerMessage(notice, 255, 0, 0))
	s.registry.EmitKicked(ts, s, reason)
	metrics.IncKick()
	ts.disconnect(fmt.Sprintf("Kicked by %s (%s)", s.nick, reason))
}

// handleBrushSize implements opcode 34: store and relay.
func (s *Session) handleBrushSize() error {
	payload, err := s.reader.ReadN(2)
	if err != nil {
		return err
	}
	size := [2]byte{payload[0], payload[1]}
	s.mutateState(func(st *room.State) { st.BrushSize = size })
	s.relayToRoom(wire.BrushSize(s.id, size))
	return nil
}

// handleBrushShape implements opcode 35: the shape counter cycles
// 1,2,3,1,2,... starting from an initial 0, never relaying a payload.
func (s *Session) handleBrushShape() error {
	s.mutateState(func(st *room.State) { st.Brush = (st.Brush % 3) + 1 })
	s.relayToRoom(wire.BrushShape(s.id))
	return nil
}

// handleSelectedElement implements opcode 37. (194,195) is the client's
// chat-window-focus sentinel: set isChat and do not relay. The original
// client's literal test ANDs two inequalities, which only ever takes the
// "normal" branch; the evident intent, both bytes matching the sentinel,
// is implemented here instead.
func (s *Session) handleSelectedElement() error {
	payload, err := s.reader.ReadN(2)
	if err != nil {
		return err
	}
	a, b := payload[0], payload[1]
	if a == 194 && b == 195 {
		s.mutateState(func(st *room.State) { st.IsChat = true })
		return nil
	}
	button := int(a / 64)
	idx := (button + 1) % 4
	s.mutateState(func(st *room.State) { st.BrushSelection[idx] = [2]byte{a, b} })
	s.relayToRoom(wire.SelectedElement(s.id, a, b))
	return nil
}

// handleReplaceMode implements opcode 38: store and relay.
func (s *Session) handleReplaceMode() error {
	payload, err := s.reader.ReadN(1)
	if err != nil {
		return err
	}
	mode := payload[0]
	s.mutateState(func(st *room.State) { st.ReplaceMode = mode })
	s.relayToRoom(wire.ReplaceMode(s.id, mode))
	return nil
}

// handleDecoColor implements opcode 65: store and relay.
func (s *Session) handleDecoColor() error {
	payload, err := s.reader.ReadN(4)
	if err != nil {
		return err
	}
	var deco [4]byte
	copy(deco[:], payload)
	s.mutateState(func(st *room.State) { st.Deco = deco })
	s.relayToRoom(wire.DecoColor(s.id, deco))
	return nil
}

// handleStamp implements opcode 66: a 3-byte location, a 3-byte
// big-endian length, then that many payload bytes, relayed whole.
func (s *Session) handleStamp() error {
	loc, err := s.reader.ReadN(3)
	if err != nil {
		return err
	}
	lenBytes, err := s.reader.ReadN(3)
	if err != nil {
		return err
	}
	l := wire.Uint24(lenBytes)
	if int(l) > s.cfg.MaxStampPayload {
		metrics.IncMalformed()
		return fmt.Errorf("%w: stamp payload %d exceeds cap %d", ErrProtocol, l, s.cfg.MaxStampPayload)
	}
	payload, err := s.reader.ReadN(int(l))
	if err != nil {
		return err
	}
	raw := make([]byte, 0, 6+len(payload))
	raw = append(raw, loc...)
	raw = append(raw, lenBytes...)
	raw = append(raw, payload...)
	s.relayToRoom(wire.Relay(wire.OpStamp, s.id, raw))
	return nil
}

// handleSyncReply implements opcode 128: forward the stamp the client is
// replying with to the id named in its own header, dropping it silently
// if that target has since disconnected.
func (s *Session) handleSyncReply() error {
	header, err := s.reader.ReadN(4)
	if err != nil {
		return err
	}
	targetID := header[0]
	l := wire.Uint24(header[1:4])
	if int(l) > s.cfg.MaxStampPayload {
		metrics.IncMalformed()
		return fmt.Errorf("%w: sync payload %d exceeds cap %d", ErrProtocol, l, s.cfg.MaxStampPayload)
	}
	payload, err := s.reader.ReadN(int(l))
	if err != nil {
		return err
	}
	target, ok := s.registry.Client(targetID)
	if !ok {
		return nil
	}
	_ = target.Enqueue(s.ctx, wire.SyncForward(header[1], header[2], header[3], payload))
	return nil
}

// handleSyncPropsReply implements opcode 130: forward a single mirrored
// property to its target if the named command is on the whitelist.
func (s *Session) handleSyncPropsReply() error {
	payload, err := s.reader.ReadN(3)
	if err != nil {
		return err
	}
	targetID, command, value := payload[0], wire.Opcode(payload[1]), payload[2]
	if !s.cfg.Valid130[command] {
		return nil
	}
	target, ok := s.registry.Client(targetID)
	if !ok {
		return nil
	}
	_ = target.Enqueue(s.ctx, wire.SyncPropsForward(command, s.id, value))
	return nil
}
