// Package metrics exposes Prometheus counters and gauges for the relay
// server plus a small local mirror used for periodic non-Prometheus logging.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/hellomouse/tptmp-server/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ClientsConnected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tptmp_clients_connected_total",
		Help: "Total TCP connections accepted under the client cap, before the handshake.",
	})
	ClientsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tptmp_clients_rejected_total",
		Help: "Total connection attempts rejected at the 255-client cap.",
	})
	ClientsDisconnected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tptmp_clients_disconnected_total",
		Help: "Total clients that have completed disconnect.",
	})
	HandshakeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tptmp_handshake_failures_total",
		Help: "Total handshakes rejected (version, script, nickname).",
	})
	IdleTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tptmp_idle_timeouts_total",
		Help: "Total sessions closed for 90s read inactivity.",
	})
	Kicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tptmp_kicks_total",
		Help: "Total successful kicks issued by room operators.",
	})
	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tptmp_messages_relayed_total",
		Help: "Total opcode frames relayed to other room members.",
	})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tptmp_malformed_frames_total",
		Help: "Total rejected malformed frames (bad length, unknown opcode, truncated read).",
	})
	ActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tptmp_active_clients",
		Help: "Current number of connected, identified clients.",
	})
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tptmp_active_rooms",
		Help: "Current number of non-empty rooms (including the lobby once occupied).",
	})
	RoomBroadcastFanout = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tptmp_room_broadcast_fanout",
		Help: "Member count targeted by the most recent room broadcast.",
	})
	OutboundQueueDepthMax = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tptmp_outbound_queue_depth_max",
		Help: "Observed max queued frames among per-client outbound queues in the last sample.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tptmp_build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tptmp_errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	OpcodeDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tptmp_opcode_dispatched_total",
		Help: "Frames dispatched by opcode.",
	}, []string{"opcode"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrConnRead   = "conn_read"
	ErrConnWrite  = "conn_write"
	ErrHandshake  = "handshake"
	ErrRegistry   = "registry"
	ErrRoom       = "room"
	ErrOpcodeBody = "opcode_body"
)

// StartHTTP serves Prometheus metrics at /metrics and a readiness probe at
// /ready on addr.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters, cheap to sample for periodic logging without
// scraping Prometheus in-process.
var (
	localConnected    uint64
	localRejected     uint64
	localDisconnected uint64
	localHandshakeErr uint64
	localIdleTimeouts uint64
	localKicks        uint64
	localRelayed      uint64
	localMalformed    uint64
	localErrors       uint64
	localActive       uint64
	localRooms        uint64
	localFanout       uint64
	localQDMax        uint64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	Connected     uint64
	Rejected      uint64
	Disconnected  uint64
	HandshakeErrs uint64
	IdleTimeouts  uint64
	Kicks         uint64
	Relayed       uint64
	Malformed     uint64
	Errors        uint64
	ActiveClients uint64
	ActiveRooms   uint64
	Fanout        uint64
	QueueDepthMax uint64
}

func Snap() Snapshot {
	return Snapshot{
		Connected:     atomic.LoadUint64(&localConnected),
		Rejected:      atomic.LoadUint64(&localRejected),
		Disconnected:  atomic.LoadUint64(&localDisconnected),
		HandshakeErrs: atomic.LoadUint64(&localHandshakeErr),
		IdleTimeouts:  atomic.LoadUint64(&localIdleTimeouts),
		Kicks:         atomic.LoadUint64(&localKicks),
		Relayed:       atomic.LoadUint64(&localRelayed),
		Malformed:     atomic.LoadUint64(&localMalformed),
		Errors:        atomic.LoadUint64(&localErrors),
		ActiveClients: atomic.LoadUint64(&localActive),
		ActiveRooms:   atomic.LoadUint64(&localRooms),
		Fanout:        atomic.LoadUint64(&localFanout),
		QueueDepthMax: atomic.LoadUint64(&localQDMax),
	}
}

func IncConnected() {
	ClientsConnected.Inc()
	atomic.AddUint64(&localConnected, 1)
}

func IncRejected() {
	ClientsRejected.Inc()
	atomic.AddUint64(&localRejected, 1)
}

func IncDisconnected() {
	ClientsDisconnected.Inc()
	atomic.AddUint64(&localDisconnected, 1)
}

func IncHandshakeFailure() {
	HandshakeFailures.Inc()
	atomic.AddUint64(&localHandshakeErr, 1)
}

func IncIdleTimeout() {
	IdleTimeouts.Inc()
	atomic.AddUint64(&localIdleTimeouts, 1)
}

func IncKick() {
	Kicks.Inc()
	atomic.AddUint64(&localKicks, 1)
}

func IncRelayed() {
	MessagesRelayed.Inc()
	atomic.AddUint64(&localRelayed, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

func IncOpcode(name string) {
	OpcodeDispatched.WithLabelValues(name).Inc()
}

func SetActiveClients(n int) {
	ActiveClients.Set(float64(n))
	atomic.StoreUint64(&localActive, uint64(n))
}

func SetActiveRooms(n int) {
	ActiveRooms.Set(float64(n))
	atomic.StoreUint64(&localRooms, uint64(n))
}

func SetBroadcastFanout(n int) {
	RoomBroadcastFanout.Set(float64(n))
	atomic.StoreUint64(&localFanout, uint64(n))
}

func SetOutboundQueueDepthMax(n int) {
	OutboundQueueDepthMax.Set(float64(n))
	atomic.StoreUint64(&localQDMax, uint64(n))
}

// InitBuildInfo sets the build info gauge; call once at startup.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrConnRead, ErrConnWrite, ErrHandshake, ErrRegistry, ErrRoom, ErrOpcodeBody} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
