package wire

// Opcode is the one-byte message type tag introducing each frame in the
// main dispatch loop.
type Opcode byte

// Client-originated opcodes. Everything in the "relay" family is rewritten
// as [op, origin_id, payload] and broadcast to the sender's room excluding
// the sender; a few (join, chat, emote, kick) carry session-side effects
// before or instead of relay.
const (
	OpPing             Opcode = 2
	OpJoin             Opcode = 16
	OpChat             Opcode = 19
	OpEmote            Opcode = 20
	OpKick             Opcode = 21
	OpMousePos         Opcode = 32
	OpMouseClick       Opcode = 33
	OpBrushSize        Opcode = 34
	OpBrushShape       Opcode = 35
	OpModifier         Opcode = 36
	OpSelectedElement  Opcode = 37
	OpReplaceMode      Opcode = 38
	OpCModeDefault     Opcode = 48
	OpPause            Opcode = 49
	OpStepFrame        Opcode = 50
	OpDecoMode         Opcode = 51
	OpHUDMode          Opcode = 52
	OpAmbientHeat      Opcode = 53
	OpNewtonianGravity Opcode = 54
	OpDebug            Opcode = 55
	OpLegacyHeat       Opcode = 56
	OpWaterEq          Opcode = 57
	OpGravityMode      Opcode = 58
	OpAirMode          Opcode = 59
	OpClearSparks      Opcode = 60
	OpClearPressure    Opcode = 61
	OpInvertPressure   Opcode = 62
	OpClearSim         Opcode = 63
	OpManualGraphics   Opcode = 64
	OpDecoColor        Opcode = 65
	OpStamp            Opcode = 66
	OpClearArea        Opcode = 67
	OpEdgeMode         Opcode = 68
	OpLoadSaveID       Opcode = 69
	OpReloadSave       Opcode = 70
	OpSyncReply        Opcode = 128
	OpSyncPropsReply   Opcode = 130
)

// Server-originated opcodes that a client never sends.
const (
	OpErrorFrame    Opcode = 0
	OpIdentifyOK    Opcode = 1
	OpMemberJoined  Opcode = 17
	OpMemberParted  Opcode = 18
	OpServerMessage Opcode = 22
	OpSyncForward   Opcode = 129
)

// fixedPayloadLen gives the number of payload bytes opcodes with a
// statically-known length read after the opcode byte; opcodes with no
// payload are listed with length 0. Opcodes absent from this table are
// either NUL-terminated or length-prefixed (stamp, sync reply) and are
// handled specially by the dispatcher.
var fixedPayloadLen = map[Opcode]int{
	OpPing:             0,
	OpMousePos:         3,
	OpMouseClick:       1,
	OpBrushSize:        2,
	OpBrushShape:       0,
	OpModifier:         1,
	OpSelectedElement:  2,
	OpReplaceMode:      1,
	OpCModeDefault:     1,
	OpPause:            1,
	OpStepFrame:        0,
	OpDecoMode:         1,
	OpHUDMode:          1,
	OpAmbientHeat:      1,
	OpNewtonianGravity: 1,
	OpDebug:            1,
	OpLegacyHeat:       1,
	OpWaterEq:          1,
	OpGravityMode:      1,
	OpAirMode:          1,
	OpClearSparks:      0,
	OpClearPressure:    0,
	OpInvertPressure:   0,
	OpClearSim:         0,
	OpManualGraphics:   3,
	OpDecoColor:        4,
	OpClearArea:        6,
	OpEdgeMode:         1,
	OpLoadSaveID:       3,
	OpReloadSave:       0,
	OpSyncPropsReply:   3,
}

// FixedPayloadLen reports the statically-known payload length for op, and
// whether op has one at all (false for NUL-terminated or length-prefixed
// opcodes, and for anything unknown).
func FixedPayloadLen(op Opcode) (int, bool) {
	n, ok := fixedPayloadLen[op]
	return n, ok
}

// DefaultValid130 is the whitelist of opcodes legal to appear as the
// forwarded command in a sync-properties reply (op 130): brush size, brush
// shape, selected element, replace mode and deco color, exactly the
// per-client mirrored-state opcodes the join replay re-derives.
var DefaultValid130 = map[Opcode]bool{
	OpBrushSize:       true,
	OpBrushShape:      true,
	OpSelectedElement: true,
	OpReplaceMode:     true,
	OpDecoColor:       true,
}
