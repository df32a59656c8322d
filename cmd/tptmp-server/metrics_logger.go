package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hellomouse/tptmp-server/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"active_clients", snap.ActiveClients,
					"active_rooms", snap.ActiveRooms,
					"connected", snap.Connected,
					"rejected", snap.Rejected,
					"disconnected", snap.Disconnected,
					"handshake_failures", snap.HandshakeErrs,
					"idle_timeouts", snap.IdleTimeouts,
					"kicks", snap.Kicks,
					"relayed", snap.Relayed,
					"malformed", snap.Malformed,
					"errors", snap.Errors,
					"fanout", snap.Fanout,
					"queue_depth_max", snap.QueueDepthMax,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
