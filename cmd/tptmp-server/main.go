package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/hellomouse/tptmp-server/internal/metrics"
	"github.com/hellomouse/tptmp-server/internal/room"
	"github.com/hellomouse/tptmp-server/internal/session"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("tptmp-server %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(2)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	versionMinMaj, versionMinMin, _ := parseVersionPair(cfg.versionMin)
	versionMaxMaj, versionMaxMin, _ := parseVersionPair(cfg.versionMax)

	registry := room.New(
		room.WithMaxClients(cfg.maxClients),
		room.WithLifecycleObserver(lifecycleLogger(l)),
	)

	sessCfg := session.DefaultConfig()
	sessCfg.VersionWindow = session.VersionWindow{
		MinMajor: versionMinMaj, MinMinor: versionMinMin,
		MaxMajor: versionMaxMaj, MaxMinor: versionMaxMin,
	}
	sessCfg.Script = byte(cfg.scriptVersion)
	sessCfg.HandshakeTimeout = cfg.handshakeTO
	sessCfg.IdleTimeout = cfg.idleTO
	sessCfg.WriterBuffer = cfg.writerBuffer
	sessCfg.MaxStampPayload = cfg.maxStampPayload

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	srv := session.New(
		session.WithListenAddr(cfg.listenAddr),
		session.WithRegistry(registry),
		session.WithConfig(sessCfg),
		session.WithLogger(l),
	)

	go func() {
		if err := srv.Serve(ctx); err != nil {
			l.Error("tcp_server_error", "error", err)
			cancel()
		}
	}()

	go func() {
		if !cfg.mdnsEnable {
			return
		}
		select {
		case <-srv.Ready():
		case <-ctx.Done():
			return
		}
		addr := srv.Addr()
		var portNum int
		if _, p, err := net.SplitHostPort(addr); err == nil {
			if pn, perr := strconv.Atoi(p); perr == nil {
				portNum = pn
			}
		}
		if portNum == 0 {
			if i := strings.LastIndex(addr, ":"); i >= 0 {
				if pn, perr := strconv.Atoi(addr[i+1:]); perr == nil {
					portNum = pn
				}
			}
		}
		cleanupMDNS, err := startMDNS(ctx, cfg, portNum)
		if err != nil {
			l.Warn("mdns_start_failed", "error", err)
			return
		}
		l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", portNum)
		go func() { <-ctx.Done(); cleanupMDNS() }()
	}()

	metrics.SetReadinessFunc(func() bool {
		select {
		case <-srv.Ready():
		default:
			return false
		}
		return ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		metricsHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = metricsHTTP.Shutdown(context.Background()) }()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.handshakeTO+cfg.idleTO)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("shutdown_error", "error", err)
	}
	wg.Wait()
}
