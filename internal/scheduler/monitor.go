package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/onionwatch/internal/domain"
	"github.com/hamed0406/onionwatch/internal/probe"
	"github.com/hamed0406/onionwatch/internal/repo"
)

// Monitor checks every endpoint concurrently, waits for the whole batch,
// then sleeps Interval before the next cycle.
type Monitor struct {
	Logger      *zap.Logger
	Store       repo.StatusStore
	Checker     probe.Checker
	Endpoints   []domain.Endpoint
	Interval    time.Duration
	Concurrency int // 0 means one goroutine per endpoint
}

func NewMonitor(
	logger *zap.Logger,
	store repo.StatusStore,
	checker probe.Checker,
	endpoints []domain.Endpoint,
	interval time.Duration,
	concurrency int,
) *Monitor {
	if interval < 0 {
		interval = 0
	}
	if concurrency < 0 {
		concurrency = 0
	}
	return &Monitor{
		Logger:      logger,
		Store:       store,
		Checker:     checker,
		Endpoints:   domain.UniqueEndpoints(endpoints),
		Interval:    interval,
		Concurrency: concurrency,
	}
}

// Run does an immediate pass, then one pass per Interval measured from the
// end of the previous pass. It returns once ctx is cancelled; a pass that
// has already started is allowed to finish.
func (m *Monitor) Run(ctx context.Context) error {
	m.Logger.Info("monitor_started",
		zap.Int("endpoints", len(m.Endpoints)),
		zap.Duration("interval", m.Interval),
	)

	for {
		if ctx.Err() != nil {
			m.Logger.Info("monitor_stopped")
			return nil
		}

		m.RunOnce(ctx)

		t := time.NewTimer(m.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			m.Logger.Info("monitor_stopped")
			return nil
		case <-t.C:
		}
	}
}

// RunOnce checks every endpoint and returns when all results are recorded.
// Checks and writes are detached from ctx cancellation; each check is
// bounded by the checker's own timeout.
func (m *Monitor) RunOnce(ctx context.Context) {
	start := time.Now()
	cctx := context.WithoutCancel(ctx)

	var sem chan struct{}
	if m.Concurrency > 0 {
		sem = make(chan struct{}, m.Concurrency)
	}
	var wg sync.WaitGroup

	for _, ep := range m.Endpoints {
		ep := ep
		if sem != nil {
			sem <- struct{}{}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}
			m.checkOne(cctx, ep)
		}()
	}

	wg.Wait()

	recs, err := m.Store.Snapshot(cctx)
	if err != nil {
		m.Logger.Warn("monitor_snapshot_error", zap.Error(err))
		return
	}
	sum := domain.Summarize(recs)
	m.Logger.Info("monitor_cycle_completed",
		zap.Int("online", sum.Online),
		zap.Int("offline", sum.Offline),
		zap.Int("total", len(recs)),
		zap.Duration("duration", time.Since(start)),
	)
}

func (m *Monitor) checkOne(ctx context.Context, ep domain.Endpoint) {
	key := ep.Key()
	if err := m.Store.MarkChecking(ctx, key); err != nil {
		m.Logger.Warn("monitor_mark_error", zap.String("endpoint", key.String()), zap.Error(err))
	}

	st := m.Checker.Check(ctx, ep)

	if err := m.Store.Record(ctx, key, st, time.Now().UTC()); err != nil {
		m.Logger.Warn("monitor_record_error",
			zap.String("endpoint", key.String()),
			zap.Error(err),
		)
		return
	}

	switch st.Kind {
	case domain.KindOnline:
		m.Logger.Info("endpoint_checked",
			zap.String("name", ep.Name),
			zap.String("endpoint", key.String()),
			zap.String("status", st.Kind.String()),
			zap.Int64("response_time_ms", st.ResponseTimeMS),
		)
	case domain.KindOffline:
		m.Logger.Info("endpoint_checked",
			zap.String("name", ep.Name),
			zap.String("endpoint", key.String()),
			zap.String("status", st.Kind.String()),
			zap.String("reason", st.Error),
		)
	case domain.KindUnknown, domain.KindChecking:
		m.Logger.Warn("endpoint_check_inconclusive",
			zap.String("endpoint", key.String()),
			zap.String("status", st.Kind.String()),
		)
	}
}
