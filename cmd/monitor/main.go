package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/onionwatch/internal/config"
	"github.com/hamed0406/onionwatch/internal/httpapi"
	"github.com/hamed0406/onionwatch/internal/logging"
	"github.com/hamed0406/onionwatch/internal/probe"
	"github.com/hamed0406/onionwatch/internal/repo/memory"
	"github.com/hamed0406/onionwatch/internal/scheduler"
	"github.com/hamed0406/onionwatch/internal/socks5"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "onionwatch:", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	var (
		configPath = pflag.StringP("config", "c", config.DefaultPath, "Path to the yaml configuration file")
		logDir     = pflag.String("log-dir", "", "Directory for rotated log files (overrides logging.dir)")
		console    = pflag.Bool("console", true, "Also log human-readable lines to stderr")
	)
	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	if pflag.CommandLine.Changed("log-dir") {
		cfg.Logging.Dir = *logDir
	}
	if pflag.CommandLine.Changed("console") {
		cfg.Logging.Console = *console
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Dir:     cfg.Logging.Dir,
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Source == "" {
		logger.Warn("config_not_found_using_defaults", zap.String("path", *configPath))
	}
	logger.Info("config_loaded",
		zap.String("server", cfg.Addr()),
		zap.String("proxy", cfg.ProxyAddr()),
		zap.Int("endpoints", len(cfg.Endpoints)),
		zap.Duration("check_interval", cfg.CheckInterval()),
		zap.Duration("connection_timeout", cfg.ConnectionTimeout()),
		zap.String("probe", cfg.Monitoring.Probe),
	)

	store := memory.New(cfg.Endpoints)
	mon := scheduler.NewMonitor(
		logger,
		store,
		newChecker(cfg),
		cfg.Endpoints,
		cfg.CheckInterval(),
		cfg.Monitoring.MaxConcurrentChecks,
	)
	api := httpapi.NewServer(logger, store, httpapi.Options{
		Refresh:            cfg.RefreshInterval(),
		APIKeys:            cfg.Dashboard.APIKeys,
		RateLimitPerMinute: cfg.Dashboard.RateLimitPerMinute,
		RateLimitBurst:     cfg.Dashboard.RateLimitBurst,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		return mon.Run(ctx)
	})
	g.Go(func() error {
		return serveHTTP(ctx, srv, ln, shutdownGrace)
	})
	logger.Info("dashboard_listen", zap.String("url", "http://"+cfg.Addr()+"/"))

	err = g.Wait()
	logger.Info("shutting_down")
	return err
}

const shutdownGrace = 5 * time.Second

// serveHTTP serves until ctx is done, then drains in-flight requests for up
// to grace before returning.
func serveHTTP(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return fmt.Errorf("http serve: %w", err)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	err := srv.Shutdown(sctx)
	if serr := <-errc; !errors.Is(serr, http.ErrServerClosed) && err == nil {
		err = serr
	}
	return err
}

func newChecker(cfg config.Config) probe.Checker {
	switch cfg.Monitoring.Probe {
	case config.ProbeHTTP:
		return probe.NewHTTPChecker(socks5.NewClient(cfg.ProxyAddr()).DialContext, cfg.ConnectionTimeout())
	default:
		return probe.NewSOCKSChecker(cfg.ProxyAddr(), cfg.ConnectionTimeout())
	}
}
