package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/antonionduarte/go-link-supervisor/pkg/link/net"
)

func TestParseEmptyAppliesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := Default()
	if cfg.Peer != want.Peer || cfg.Link != want.Link || cfg.Timeouts != want.Timeouts ||
		cfg.Supervisor != want.Supervisor || cfg.GPIO != want.GPIO || cfg.Status != want.Status {
		t.Fatalf("defaults differ:\n got %+v\nwant %+v", cfg, want)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Fatalf("logging defaults: %+v", cfg.Logging)
	}
	if cfg.Peer.IP != DefaultPeerIP || cfg.Peer.Port != DefaultPeerPort {
		t.Fatalf("peer defaults: %+v", cfg.Peer)
	}
	def := net.DefaultTimeouts()
	got := cfg.Timeouts
	if got.Connect != def.Connect || got.Send != def.Send || got.Receive != def.Receive ||
		got.Heartbeat != def.Heartbeat || got.QueueWait != def.QueueWait ||
		got.Probe != def.Probe || got.KeepAlive != def.KeepAlive {
		t.Fatalf("timeout defaults %+v differ from session defaults %+v", got, def)
	}
	if cfg.GPIO.Button != -1 || !cfg.GPIO.ButtonActiveLow {
		t.Fatalf("button should be disabled and active low by default: %+v", cfg.GPIO)
	}
}

func TestParseOverrides(t *testing.T) {
	data := []byte(`
logging:
  level: debug
  format: json
  components: [session, supervisor]
peer:
  ip: 10.0.0.2
  port: 9000
link:
  interface: enp3s0
timeouts:
  connect: 1s
  heartbeat: 250ms
supervisor:
  period: 250ms
  maxAttempts: 3
  stableWindow: 5s
gpio:
  led: led0
  button: 17
  buttonActiveLow: false
status:
  interval: 1m
  file: /tmp/link-status
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" || len(cfg.Logging.Components) != 2 {
		t.Fatalf("logging: %+v", cfg.Logging)
	}
	if cfg.Peer.IP != "10.0.0.2" || cfg.Peer.Port != 9000 || cfg.Link.Interface != "enp3s0" {
		t.Fatalf("peer/link: %+v %+v", cfg.Peer, cfg.Link)
	}
	if cfg.Timeouts.Connect != time.Second || cfg.Timeouts.Heartbeat != 250*time.Millisecond {
		t.Fatalf("timeouts: %+v", cfg.Timeouts)
	}
	if cfg.Timeouts.Send != net.DefaultTimeouts().Send {
		t.Fatalf("unset timeout not defaulted: %s", cfg.Timeouts.Send)
	}
	if cfg.Supervisor.Period != 250*time.Millisecond || cfg.Supervisor.MaxAttempts != 3 ||
		cfg.Supervisor.StableWindow != 5*time.Second || cfg.Supervisor.PayloadInterval != DefaultPayloadInterval {
		t.Fatalf("supervisor: %+v", cfg.Supervisor)
	}
	if cfg.GPIO.LED != "led0" || cfg.GPIO.Button != 17 || cfg.GPIO.ButtonActiveLow || cfg.GPIO.LEDRoot != DefaultLEDRoot {
		t.Fatalf("gpio: %+v", cfg.GPIO)
	}
	if cfg.Status.Interval != time.Minute || cfg.Status.File != "/tmp/link-status" {
		t.Fatalf("status: %+v", cfg.Status)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("peer:\n  host: 10.0.0.1\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestParseRejectsBadDuration(t *testing.T) {
	if _, err := Parse([]byte("timeouts:\n  connect: soon\n")); err == nil {
		t.Fatalf("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"port too high", "peer:\n  port: 70000\n"},
		{"port negative", "peer:\n  port: -1\n"},
		{"stable window shorter than period", "supervisor:\n  period: 2s\n  stableWindow: 1s\n"},
	}
	for _, tc := range tests {
		if _, err := Parse([]byte(tc.yaml)); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link.yaml")
	if err := os.WriteFile(path, []byte("peer:\n  ip: 192.0.2.7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Peer.IP != "192.0.2.7" || cfg.Peer.Port != DefaultPeerPort {
		t.Fatalf("peer: %+v", cfg.Peer)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
