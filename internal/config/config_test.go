package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != "" {
		t.Fatalf("expected defaults, got source %q", cfg.Source)
	}
	if cfg.ProxyAddr() != "127.0.0.1:9050" || cfg.Addr() != "127.0.0.1:3000" {
		t.Fatalf("unexpected defaults: proxy=%s server=%s", cfg.ProxyAddr(), cfg.Addr())
	}
	if len(cfg.Endpoints) != 4 {
		t.Fatalf("want 4 default endpoints, got %d", len(cfg.Endpoints))
	}
	if cfg.CheckInterval() != 30*time.Second || cfg.ConnectionTimeout() != 10*time.Second {
		t.Fatalf("unexpected durations: %v %v", cfg.CheckInterval(), cfg.ConnectionTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  host: 0.0.0.0
  port: 8081
proxy:
  host: tor
  port: 9150
monitoring:
  check_interval_seconds: 60
  connection_timeout_seconds: 5
endpoints:
  - name: Only One
    address: abc.onion
    port: 443
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != path {
		t.Fatalf("source = %q", cfg.Source)
	}
	if cfg.Addr() != "0.0.0.0:8081" || cfg.ProxyAddr() != "tor:9150" {
		t.Fatalf("addr/proxy wrong: %+v", cfg)
	}
	if len(cfg.Endpoints) != 1 || cfg.Endpoints[0].Name != "Only One" || cfg.Endpoints[0].Port != 443 {
		t.Fatalf("endpoints wrong: %+v", cfg.Endpoints)
	}
	// sections absent from the file keep their defaults
	if cfg.Logging.Dir != "logs" || cfg.Dashboard.RefreshSeconds != 30 || cfg.Monitoring.Probe != ProbeConnect {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_ = os.WriteFile(path, []byte("server: [unterminated"), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv("ONIONWATCH_PROXY", "10.0.0.5:9051")
	t.Setenv("ONIONWATCH_ADDR", ":9090")
	t.Setenv("LOG_DIR", "./_testlogs")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("API_KEYS", "key_a, key_b,")
	t.Setenv("CHECK_INTERVAL_SECONDS", "15")
	t.Setenv("CONNECTION_TIMEOUT_SECONDS", "3")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.ProxyAddr() != "10.0.0.5:9051" || cfg.Addr() != ":9090" {
		t.Fatalf("addr/proxy wrong: %s %s", cfg.ProxyAddr(), cfg.Addr())
	}
	if cfg.Logging.Dir != "./_testlogs" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging wrong: %+v", cfg.Logging)
	}
	if len(cfg.Dashboard.APIKeys) != 2 || cfg.Dashboard.APIKeys[1] != "key_b" {
		t.Fatalf("keys wrong: %+v", cfg.Dashboard.APIKeys)
	}
	if cfg.CheckInterval() != 15*time.Second || cfg.ConnectionTimeout() != 3*time.Second {
		t.Fatalf("durations wrong: %v %v", cfg.CheckInterval(), cfg.ConnectionTimeout())
	}
}

func TestApplyEnv_ReportsAllErrors(t *testing.T) {
	t.Setenv("ONIONWATCH_PROXY", "no-port")
	t.Setenv("CHECK_INTERVAL_SECONDS", "soon")

	cfg := Default()
	err := cfg.ApplyEnv()
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("want 2 errors, got %d: %v", got, err)
	}
	if cfg.ProxyAddr() != "127.0.0.1:9050" {
		t.Fatalf("bad env should not change proxy, got %s", cfg.ProxyAddr())
	}
}

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := Default()
	cfg.Proxy.Port = 0
	cfg.Monitoring.CheckIntervalSeconds = 0
	cfg.Monitoring.Probe = "ping"
	cfg.Endpoints = append(cfg.Endpoints, Default().Endpoints[0])
	cfg.Endpoints[0].Address = ""
	cfg.Endpoints[1].Address = strings.Repeat("x", 256)
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	if got := len(multierr.Errors(err)); got != 6 {
		t.Fatalf("want 6 errors, got %d: %v", got, err)
	}
	if !strings.Contains(err.Error(), "proxy.port") {
		t.Fatalf("missing proxy error: %v", err)
	}
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if err := WriteDefault(path); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Endpoints) != 4 || cfg.Endpoints[3].Name != "RoboSats" {
		t.Fatalf("round trip lost endpoints: %+v", cfg.Endpoints)
	}
}
