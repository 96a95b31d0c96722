package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/onionwatch/internal/domain"
)

const DefaultPath = "config.yaml"

const (
	ProbeConnect = "connect"
	ProbeHTTP    = "http"
)

type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Proxy      ProxyConfig       `yaml:"proxy"`
	Monitoring MonitoringConfig  `yaml:"monitoring"`
	Endpoints  []domain.Endpoint `yaml:"endpoints"`
	Logging    LoggingConfig     `yaml:"logging"`
	Dashboard  DashboardConfig   `yaml:"dashboard"`

	// Source is the file the config was read from; empty for defaults.
	Source string `yaml:"-"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port uint16 `yaml:"port"`
}

type ProxyConfig struct {
	Host string `yaml:"host"`
	Port uint16 `yaml:"port"`
}

type MonitoringConfig struct {
	CheckIntervalSeconds     int    `yaml:"check_interval_seconds"`
	ConnectionTimeoutSeconds int    `yaml:"connection_timeout_seconds"`
	MaxConcurrentChecks      int    `yaml:"max_concurrent_checks"` // 0 = all at once
	Probe                    string `yaml:"probe"`                 // connect | http
}

type LoggingConfig struct {
	Dir     string `yaml:"dir"`
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

type DashboardConfig struct {
	RefreshSeconds     int      `yaml:"refresh_seconds"`
	APIKeys            []string `yaml:"api_keys"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
}

// Default returns the built-in configuration used when no file exists.
func Default() Config {
	return Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 3000},
		Proxy:  ProxyConfig{Host: "127.0.0.1", Port: 9050},
		Monitoring: MonitoringConfig{
			CheckIntervalSeconds:     30,
			ConnectionTimeoutSeconds: 10,
			Probe:                    ProbeConnect,
		},
		Endpoints: []domain.Endpoint{
			{Name: "Example Hidden Service", Address: "example1234567890abcdef1234567890abcdef12345678.onion", Port: 80},
			{Name: "Another Service", Address: "another1234567890abcdef1234567890abcdef12345678.onion", Port: 8080},
			{Name: "HTTPS Service", Address: "secure1234567890abcdef1234567890abcdef12345678.onion", Port: 443},
			{Name: "RoboSats", Address: "robosatsy56bwqn56qyadmcxkx767hnabg4mihxlmgyt6if5gnuxvzad.onion", Port: 80},
		},
		Logging: LoggingConfig{Dir: "logs", Level: "info", Console: true},
		Dashboard: DashboardConfig{
			RefreshSeconds:     30,
			RateLimitPerMinute: 120,
			RateLimitBurst:     60,
		},
	}
}

// Load reads a yaml file on top of Default. A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Monitoring.Probe == "" {
		cfg.Monitoring.Probe = ProbeConnect
	}
	cfg.Source = path
	return cfg, nil
}

// WriteDefault writes Default to path, refusing to overwrite.
func WriteDefault(path string) error {
	b, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	_, err = f.Write(b)
	return multierr.Append(err, f.Close())
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() error {
	var errs error

	if v := os.Getenv("ONIONWATCH_PROXY"); v != "" {
		host, port, err := splitHostPort(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("ONIONWATCH_PROXY: %w", err))
		} else {
			c.Proxy = ProxyConfig{Host: host, Port: port}
		}
	}
	if v := os.Getenv("ONIONWATCH_ADDR"); v != "" {
		host, port, err := splitHostPort(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("ONIONWATCH_ADDR: %w", err))
		} else {
			c.Server = ServerConfig{Host: host, Port: port}
		}
	}

	// Logs
	if v := os.Getenv("LOG_DIR"); v != "" {
		c.Logging.Dir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv("API_KEYS"); v != "" {
		c.Dashboard.APIKeys = splitCSV(v)
	}

	if v := os.Getenv("CHECK_INTERVAL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("CHECK_INTERVAL_SECONDS: %w", err))
		} else {
			c.Monitoring.CheckIntervalSeconds = n
		}
	}
	if v := os.Getenv("CONNECTION_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("CONNECTION_TIMEOUT_SECONDS: %w", err))
		} else {
			c.Monitoring.ConnectionTimeoutSeconds = n
		}
	}
	return errs
}

// Validate reports every problem found, not just the first.
func (c Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Port == 0 {
		add("server.port must be set")
	}
	if c.Proxy.Host == "" {
		add("proxy.host must be set")
	}
	if c.Proxy.Port == 0 {
		add("proxy.port must be set")
	}
	if c.Monitoring.CheckIntervalSeconds <= 0 {
		add("monitoring.check_interval_seconds must be positive, got %d", c.Monitoring.CheckIntervalSeconds)
	}
	if c.Monitoring.ConnectionTimeoutSeconds <= 0 {
		add("monitoring.connection_timeout_seconds must be positive, got %d", c.Monitoring.ConnectionTimeoutSeconds)
	}
	if c.Monitoring.MaxConcurrentChecks < 0 {
		add("monitoring.max_concurrent_checks must not be negative")
	}
	switch c.Monitoring.Probe {
	case ProbeConnect, ProbeHTTP:
	default:
		add("monitoring.probe must be %q or %q, got %q", ProbeConnect, ProbeHTTP, c.Monitoring.Probe)
	}

	if len(c.Endpoints) == 0 {
		add("at least one endpoint is required")
	}
	for i, ep := range c.Endpoints {
		switch {
		case ep.Address == "":
			add("endpoints[%d] (%s): address is required", i, ep.Name)
		case len(ep.Address) > 255:
			add("endpoints[%d] (%s): address longer than 255 bytes", i, ep.Name)
		}
		if ep.Port == 0 {
			add("endpoints[%d] (%s): port is required", i, ep.Name)
		}
	}

	if c.Logging.Dir == "" {
		add("logging.dir must be set")
	}
	if c.Logging.Level != "" {
		if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
			add("logging.level: %v", err)
		}
	}

	if c.Dashboard.RefreshSeconds <= 0 {
		add("dashboard.refresh_seconds must be positive")
	}
	if c.Dashboard.RateLimitPerMinute < 0 || c.Dashboard.RateLimitBurst < 0 {
		add("dashboard rate limits must not be negative")
	}
	return errs
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(int(c.Server.Port)))
}

func (c Config) ProxyAddr() string {
	return net.JoinHostPort(c.Proxy.Host, strconv.Itoa(int(c.Proxy.Port)))
}

func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.Monitoring.CheckIntervalSeconds) * time.Second
}

func (c Config) ConnectionTimeout() time.Duration {
	return time.Duration(c.Monitoring.ConnectionTimeoutSeconds) * time.Second
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Dashboard.RefreshSeconds) * time.Second
}

func splitHostPort(v string) (string, uint16, error) {
	host, p, err := net.SplitHostPort(v)
	if err != nil {
		return "", 0, err
	}
	n, err := strconv.ParseUint(p, 10, 16)
	if err != nil || n == 0 {
		return "", 0, fmt.Errorf("invalid port %q", p)
	}
	return host, uint16(n), nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
