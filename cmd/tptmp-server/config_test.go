package main

import (
	"testing"
	"time"
)

func baseConfig() *appConfig {
	return &appConfig{
		listenAddr:      ":34403",
		handshakeTO:     10 * time.Second,
		idleTO:          90 * time.Second,
		maxClients:      255,
		versionMin:      "1.0",
		versionMax:      "1.99",
		scriptVersion:   0,
		logFormat:       "text",
		logLevel:        "info",
		metricsAddr:     "",
		logMetricsEvery: 0,
		mdnsEnable:      false,
		mdnsName:        "",
		writerBuffer:    256,
		maxStampPayload: 4 << 20,
	}
}

func TestConfigValidate_OK(t *testing.T) {
	if err := baseConfig().validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"badLogFormat", func(c *appConfig) { c.logFormat = "xml" }},
		{"badLogLevel", func(c *appConfig) { c.logLevel = "loud" }},
		{"maxClientsZero", func(c *appConfig) { c.maxClients = 0 }},
		{"maxClientsOverCeiling", func(c *appConfig) { c.maxClients = 256 }},
		{"handshakeTOZero", func(c *appConfig) { c.handshakeTO = 0 }},
		{"idleTOZero", func(c *appConfig) { c.idleTO = 0 }},
		{"scriptVersionNegative", func(c *appConfig) { c.scriptVersion = -1 }},
		{"scriptVersionOverflow", func(c *appConfig) { c.scriptVersion = 256 }},
		{"writerBufferZero", func(c *appConfig) { c.writerBuffer = 0 }},
		{"maxStampPayloadZero", func(c *appConfig) { c.maxStampPayload = 0 }},
		{"maxStampPayloadOverCeiling", func(c *appConfig) { c.maxStampPayload = 1 << 25 }},
		{"versionMinMalformed", func(c *appConfig) { c.versionMin = "one" }},
		{"versionMaxMalformed", func(c *appConfig) { c.versionMax = "1" }},
	}
	for _, tc := range tests {
		c := baseConfig()
		tc.mod(c)
		if err := c.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestConfigValidate_NilReceiver(t *testing.T) {
	var c *appConfig
	if err := c.validate(); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestParseVersionPair(t *testing.T) {
	cases := []struct {
		in        string
		wantMajor byte
		wantMinor byte
		wantErr   bool
	}{
		{"1.0", 1, 0, false},
		{"1.99", 1, 99, false},
		{"0.0", 0, 0, false},
		{"1", 0, 0, true},
		{"1.2.3", 0, 0, true},
		{"x.0", 0, 0, true},
		{"1.x", 0, 0, true},
		{"256.0", 0, 0, true},
	}
	for _, c := range cases {
		maj, min, err := parseVersionPair(c.in)
		if c.wantErr {
			if err == nil {
				t.Fatalf("parseVersionPair(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseVersionPair(%q): %v", c.in, err)
		}
		if maj != c.wantMajor || min != c.wantMinor {
			t.Fatalf("parseVersionPair(%q) = %d.%d, want %d.%d", c.in, maj, min, c.wantMajor, c.wantMinor)
		}
	}
}
