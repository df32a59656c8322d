package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	listenAddr      string
	handshakeTO     time.Duration
	idleTO          time.Duration
	maxClients      int
	versionMin      string
	versionMax      string
	scriptVersion   int
	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string
	writerBuffer    int
	maxStampPayload int
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	listen := flag.String("listen", ":34403", "TCP listen address")
	handshakeTO := flag.Duration("handshake-timeout", 10*time.Second, "Client handshake timeout")
	idleTO := flag.Duration("idle-timeout", 90*time.Second, "Per-connection idle read timeout")
	maxClients := flag.Int("max-clients", 255, "Maximum simultaneous clients (hard ceiling 255)")
	versionMin := flag.String("version-min", "1.0", "Minimum accepted client protocol version, M.m")
	versionMax := flag.String("version-max", "1.99", "Maximum accepted client protocol version, M.m")
	scriptVersion := flag.Int("script-version", 0, "Required exact client script version")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Avahi advertisement")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default tptmp-server-<hostname>)")
	writerBuffer := flag.Int("writer-buffer", 256, "Per-connection outbound queue depth (frames)")
	maxStampPayload := flag.Int("max-stamp-payload", 4<<20, "Maximum accepted stamp/sync payload size in bytes")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.listenAddr = *listen
	cfg.handshakeTO = *handshakeTO
	cfg.idleTO = *idleTO
	cfg.maxClients = *maxClients
	cfg.versionMin = *versionMin
	cfg.versionMax = *versionMax
	cfg.scriptVersion = *scriptVersion
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName
	cfg.writerBuffer = *writerBuffer
	cfg.maxStampPayload = *maxStampPayload

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// parseVersionPair parses an "M.m" string into (major, minor) bytes.
func parseVersionPair(s string) (byte, byte, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected M.m, got %q", s)
	}
	maj, err := strconv.Atoi(parts[0])
	if err != nil || maj < 0 || maj > 255 {
		return 0, 0, fmt.Errorf("invalid major in %q", s)
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil || min < 0 || min > 255 {
		return 0, 0, fmt.Errorf("invalid minor in %q", s)
	}
	return byte(maj), byte(min), nil
}

// validate performs basic semantic validation of the parsed configuration.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.maxClients <= 0 || c.maxClients > 255 {
		return fmt.Errorf("max-clients must be in 1..255 (got %d)", c.maxClients)
	}
	if c.handshakeTO <= 0 {
		return fmt.Errorf("handshake-timeout must be > 0")
	}
	if c.idleTO <= 0 {
		return fmt.Errorf("idle-timeout must be > 0")
	}
	if c.scriptVersion < 0 || c.scriptVersion > 255 {
		return fmt.Errorf("script-version must be in 0..255 (got %d)", c.scriptVersion)
	}
	if c.writerBuffer <= 0 {
		return fmt.Errorf("writer-buffer must be > 0")
	}
	if c.maxStampPayload <= 0 || c.maxStampPayload > 1<<24 {
		return fmt.Errorf("max-stamp-payload must be in 1..16777216 (got %d)", c.maxStampPayload)
	}
	if _, _, err := parseVersionPair(c.versionMin); err != nil {
		return fmt.Errorf("version-min: %w", err)
	}
	if _, _, err := parseVersionPair(c.versionMax); err != nil {
		return fmt.Errorf("version-max: %w", err)
	}
	return nil
}

// applyEnvOverrides maps TPTMP_SERVER_* environment variables onto cfg
// unless a corresponding flag was explicitly set (flag wins).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["listen"]; !ok {
		if v, ok := get("TPTMP_SERVER_LISTEN"); ok && v != "" {
			c.listenAddr = v
		}
	}
	if _, ok := set["handshake-timeout"]; !ok {
		if v, ok := get("TPTMP_SERVER_HANDSHAKE_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.handshakeTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid TPTMP_SERVER_HANDSHAKE_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["idle-timeout"]; !ok {
		if v, ok := get("TPTMP_SERVER_IDLE_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.idleTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid TPTMP_SERVER_IDLE_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["max-clients"]; !ok {
		if v, ok := get("TPTMP_SERVER_MAX_CLIENTS"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.maxClients = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid TPTMP_SERVER_MAX_CLIENTS: %w", err)
			}
		}
	}
	if _, ok := set["version-min"]; !ok {
		if v, ok := get("TPTMP_SERVER_VERSION_MIN"); ok && v != "" {
			c.versionMin = v
		}
	}
	if _, ok := set["version-max"]; !ok {
		if v, ok := get("TPTMP_SERVER_VERSION_MAX"); ok && v != "" {
			c.versionMax = v
		}
	}
	if _, ok := set["script-version"]; !ok {
		if v, ok := get("TPTMP_SERVER_SCRIPT_VERSION"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.scriptVersion = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid TPTMP_SERVER_SCRIPT_VERSION: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("TPTMP_SERVER_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("TPTMP_SERVER_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("TPTMP_SERVER_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("TPTMP_SERVER_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid TPTMP_SERVER_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("TPTMP_SERVER_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("TPTMP_SERVER_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["writer-buffer"]; !ok {
		if v, ok := get("TPTMP_SERVER_WRITER_BUFFER"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.writerBuffer = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid TPTMP_SERVER_WRITER_BUFFER: %w", err)
			}
		}
	}
	if _, ok := set["max-stamp-payload"]; !ok {
		if v, ok := get("TPTMP_SERVER_MAX_STAMP_PAYLOAD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.maxStampPayload = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid TPTMP_SERVER_MAX_STAMP_PAYLOAD: %w", err)
			}
		}
	}
	return firstErr
}
