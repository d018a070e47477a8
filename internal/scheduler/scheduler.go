// Package scheduler drives periodic reconciliation against the coin
// backends. Each tick fans out one Cron call per registered adapter; a
// slow or failing backend never blocks the others.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/custodia/walletcore/internal/adapters"
	"github.com/custodia/walletcore/pkg/errors"
	"github.com/custodia/walletcore/pkg/metrics"
)

// presets are the supported reconciliation intervals.
var presets = map[string]time.Duration{
	"5m":  5 * time.Minute,
	"10m": 10 * time.Minute,
	"20m": 20 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
}

// ParseInterval resolves a configured interval name to its duration.
func ParseInterval(name string) (time.Duration, error) {
	d, ok := presets[name]
	if !ok {
		return 0, errors.Newf(errors.KindInvalidRequest,
			"unknown interval %q, want one of 5m, 10m, 20m, 30m, 1h, 4h", name)
	}
	return d, nil
}

// Config tunes one scheduler instance.
type Config struct {
	Interval time.Duration
	// Timeout bounds a single adapter's Cron call.
	Timeout time.Duration
	// Concurrency caps how many adapters reconcile at once.
	Concurrency int
}

// Scheduler runs the reconciliation loop.
type Scheduler struct {
	registry *adapters.Registry
	cfg      Config
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func New(registry *adapters.Registry, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Scheduler{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker loop. The first reconciliation runs
// immediately rather than waiting a full interval.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		s.RunOnce(ctx)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// RunOnce reconciles every registered adapter. Runs are idempotent:
// adapters only refresh what the backend reports, so calling this
// again with no backend activity changes nothing.
func (s *Scheduler) RunOnce(ctx context.Context) {
	all := s.registry.All()
	if len(all) == 0 {
		return
	}

	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, adapter := range all {
		wg.Add(1)
		sem <- struct{}{}
		go func(a adapters.CoinAdapter) {
			defer wg.Done()
			defer func() { <-sem }()
			s.runAdapter(ctx, a)
		}(adapter)
	}
	wg.Wait()
}

func (s *Scheduler) runAdapter(ctx context.Context, adapter adapters.CoinAdapter) {
	symbol := adapter.Symbol()
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := s.safeCron(runCtx, adapter)
	elapsed := time.Since(start)

	metrics.ReconcileRuns.WithLabelValues(symbol).Inc()
	metrics.ReconcileDuration.WithLabelValues(symbol).Observe(elapsed.Seconds())
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(symbol).Inc()
		metrics.AdapterUp.WithLabelValues(symbol).Set(0)
		s.logger.Warn("adapter reconciliation failed",
			zap.String("symbol", symbol),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return
	}
	metrics.AdapterUp.WithLabelValues(symbol).Set(1)
	s.logger.Debug("adapter reconciliation finished",
		zap.String("symbol", symbol),
		zap.Duration("elapsed", elapsed),
	)
}

// safeCron converts an adapter panic into an error so one broken
// adapter cannot take down the loop.
func (s *Scheduler) safeCron(ctx context.Context, adapter adapters.CoinAdapter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.KindExecutionFailure,
				"adapter %s panicked: %v", adapter.Symbol(), r)
		}
	}()
	return adapter.Cron(ctx)
}
