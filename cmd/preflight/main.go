// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/hamed0406/onionwatch/internal/config"
	"github.com/hamed0406/onionwatch/internal/domain"
	"github.com/hamed0406/onionwatch/internal/socks5"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	_ = godotenv.Load()

	var (
		configPath = pflag.StringP("config", "c", config.DefaultPath, "Path to the yaml configuration file")
		initConfig = pflag.Bool("init", false, "Write the default configuration to --config and exit")
		skipProxy  = pflag.Bool("skip-proxy", false, "Do not contact the SOCKS5 proxy")
	)
	pflag.Parse()

	if *initConfig {
		if err := config.WriteDefault(*configPath); err != nil {
			fail("write default config: " + err.Error())
		}
		ok("wrote " + *configPath)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err.Error())
	}
	if cfg.Source == "" {
		warn(*configPath + " not found; built-in defaults will be used (run with --init to create it).")
	} else {
		ok("config " + cfg.Source)
	}

	errs := multierr.Append(cfg.ApplyEnv(), cfg.Validate())
	for _, e := range multierr.Errors(errs) {
		fmt.Fprintln(os.Stderr, "✖", e)
	}
	if errs != nil {
		os.Exit(1)
	}
	ok(fmt.Sprintf("%d endpoints, every %s, timeout %s", len(cfg.Endpoints), cfg.CheckInterval(), cfg.ConnectionTimeout()))

	if n := len(domain.UniqueEndpoints(cfg.Endpoints)); n != len(cfg.Endpoints) {
		warn(fmt.Sprintf("%d duplicate endpoint(s); the last entry for each address:port wins.", len(cfg.Endpoints)-n))
	}
	if cfg.ConnectionTimeout() >= cfg.CheckInterval() {
		warn("connection timeout is not shorter than the check interval.")
	}
	if len(cfg.Dashboard.APIKeys) == 0 {
		warn("no API keys configured; /api/* is open to anyone who can reach " + cfg.Addr() + ".")
	}

	if *skipProxy {
		warn("proxy check skipped")
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := socks5.NewClient(cfg.ProxyAddr()).Ping(ctx); err != nil {
			fail("proxy " + cfg.ProxyAddr() + ": " + err.Error())
		}
		ok("proxy " + cfg.ProxyAddr() + " accepts no-auth SOCKS5")
	}

	ok("preflight passed")
}
