package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grandcat/zeroconf"
)

// mdnsServiceType advertises this relay so LAN clients can discover it
// without a hardcoded host.
const mdnsServiceType = "_tptmp._tcp"

func startMDNS(ctx context.Context, cfg *appConfig, port int) (func(), error) {
	if !cfg.mdnsEnable {
		return func() {}, nil
	}
	instance := cfg.mdnsName
	if instance == "" {
		host, _ := os.Hostname()
		instance = fmt.Sprintf("tptmp-server-%s", host)
	}
	meta := []string{
		"version=" + version,
		"commit=" + commit,
		"script-version=" + fmt.Sprint(cfg.scriptVersion),
		"version-min=" + cfg.versionMin,
		"version-max=" + cfg.versionMax,
		"nickname-max=32",
	}
	svc, err := zeroconf.Register(instance, mdnsServiceType, "local.", port, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		svc.Shutdown()
	}()
	return func() { close(done); svc.Shutdown(); time.Sleep(50 * time.Millisecond) }, nil
}
