package session

import (
	"errors"

	"github.com/hellomouse/tptmp-server/internal/metrics"
	"github.com/hellomouse/tptmp-server/internal/wire"
)

// Sentinel errors, wrapped with %w so callers can classify with errors.Is.
var (
	ErrListen        = errors.New("listen")
	ErrAccept        = errors.New("accept")
	ErrHandshake     = errors.New("handshake")
	ErrConnRead      = errors.New("conn_read")
	ErrConnWrite     = errors.New("conn_write")
	ErrCapacity      = errors.New("capacity")
	ErrUnknownOpcode = errors.New("unknown_opcode")
	ErrProtocol      = errors.New("protocol_violation")
	ErrContext       = errors.New("context_cancelled")
)

// mapErrToMetric classifies a wrapped sentinel error into a metrics label.
func mapErrToMetric(err error) string {
	switch {
	case errors.Is(err, ErrConnRead):
		return metrics.ErrConnRead
	case errors.Is(err, ErrConnWrite):
		return metrics.ErrConnWrite
	case errors.Is(err, ErrHandshake):
		return metrics.ErrHandshake
	case errors.Is(err, ErrAccept), errors.Is(err, ErrListen):
		return metrics.ErrConnRead
	case errors.Is(err, ErrCapacity):
		return metrics.ErrRegistry
	case errors.Is(err, ErrUnknownOpcode), errors.Is(err, ErrProtocol), errors.Is(err, wire.ErrMalformed):
		return metrics.ErrOpcodeBody
	case errors.Is(err, ErrContext):
		return "context"
	default:
		return "other"
	}
}
