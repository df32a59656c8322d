package session

import (
	"time"

	"github.com/hellomouse/tptmp-server/internal/wire"
)

// VersionWindow is the inclusive (major, minor) acceptance range checked
// during handshake, compared lexicographically major-first.
type VersionWindow struct {
	MinMajor, MinMinor byte
	MaxMajor, MaxMinor byte
}

// Below reports whether (major, minor) is strictly below the window.
func (v VersionWindow) Below(major, minor byte) bool {
	return major < v.MinMajor || (major == v.MinMajor && minor < v.MinMinor)
}

// Above reports whether (major, minor) is strictly above the window.
func (v VersionWindow) Above(major, minor byte) bool {
	return major > v.MaxMajor || (major == v.MaxMajor && minor > v.MaxMinor)
}

// DefaultVersionWindow accepts protocol 1.0 through 1.99, a permissive
// default a deployment is expected to narrow via configuration.
var DefaultVersionWindow = VersionWindow{MinMajor: 1, MinMinor: 0, MaxMajor: 1, MaxMinor: 99}

const (
	// MaxNicknameLen and MaxRoomNameLen are the shared charset/length
	// bound for nicknames and room names.
	MaxNicknameLen = 32
	MaxRoomNameLen = 32
	// MaxTextLen bounds chat, emote, and kick-reason bodies.
	MaxTextLen = 200
	// DefaultIdleTimeout is the idle-read disconnect window.
	DefaultIdleTimeout = 90 * time.Second
	// DefaultHandshakeTimeout bounds the initial handshake read.
	DefaultHandshakeTimeout = 10 * time.Second
	// DefaultWriterBuffer is the per-connection outbound queue depth.
	DefaultWriterBuffer = 256
	// DefaultMaxStampPayload is a sane absolute cap on top of the 3-byte
	// length prefix's 16,777,215-byte theoretical ceiling, bounding
	// memory per stamp.
	DefaultMaxStampPayload = 4 << 20
)

// Config bundles the per-server tunables every Session needs. Constructed
// once by Server and shared (read-only after construction) by every
// session it spawns.
type Config struct {
	VersionWindow    VersionWindow
	Script           byte
	Valid130         map[wire.Opcode]bool
	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration
	WriterBuffer     int
	MaxStampPayload  int
}

// DefaultConfig returns a Config with the standard defaults and
// wire.DefaultValid130.
func DefaultConfig() Config {
	return Config{
		VersionWindow:    DefaultVersionWindow,
		Script:           0,
		Valid130:         wire.DefaultValid130,
		HandshakeTimeout: DefaultHandshakeTimeout,
		IdleTimeout:      DefaultIdleTimeout,
		WriterBuffer:     DefaultWriterBuffer,
		MaxStampPayload:  DefaultMaxStampPayload,
	}
}
