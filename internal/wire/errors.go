package wire

import "errors"

// ErrDisconnected is the sentinel wrapping every Reader transport failure
// that should fold into the owning session's disconnect path: EOF, reset
// connections, and idle-timeout deadline trips all look the same to a
// caller of Reader. Writer reports failures as ErrClosed instead.
var ErrDisconnected = errors.New("disconnected")

// ErrClosed is returned by Writer.Enqueue once the writer has been closed.
var ErrClosed = errors.New("writer closed")

// ErrMalformed flags a field that violates the wire format: Reader's
// ReadUntilNull returns it when a field runs past its cap with no
// terminator.
var ErrMalformed = errors.New("malformed frame")
