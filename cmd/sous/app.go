package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"gopkg.in/yaml.v3"

	"github.com/pario-ai/sous/pkg/ai"
	"github.com/pario-ai/sous/pkg/budget"
	"github.com/pario-ai/sous/pkg/cache"
	"github.com/pario-ai/sous/pkg/cache/memory"
	cachepkg "github.com/pario-ai/sous/pkg/cache/sqlite"
	"github.com/pario-ai/sous/pkg/cache/tiered"
	"github.com/pario-ai/sous/pkg/config"
	"github.com/pario-ai/sous/pkg/logging"
	"github.com/pario-ai/sous/pkg/orchestrator"
	"github.com/pario-ai/sous/pkg/ratelimit"
	"github.com/pario-ai/sous/pkg/telemetry"
	"github.com/pario-ai/sous/pkg/usage"
)

// app is the fully wired orchestration stack for one CLI invocation.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	svc     *orchestrator.Service
	closers []func()
}

func newApp(configPath string) (a *app, err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.Log)
	a = &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	metrics, err := a.initMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	l2, err := cachepkg.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	a.closers = append(a.closers, func() { _ = l2.Close() })
	l2.StartSweeper(cfg.Cache.SweepInterval, log)

	var store cache.Store = l2
	if cfg.Cache.L1.Enabled {
		l1, err := memory.New(cfg.Cache.L1.MaxCostBytes, cfg.Cache.L1.MaxTTL)
		if err != nil {
			return nil, fmt.Errorf("init l1 cache: %w", err)
		}
		a.closers = append(a.closers, l1.Close)
		store = tiered.New(l1, l2, cfg.Cache.L1.MaxTTL)
	}

	ledger, err := usage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init usage ledger: %w", err)
	}
	a.closers = append(a.closers, func() { _ = ledger.Close() })

	var enforcer *budget.Enforcer
	if cfg.Budget.Enabled {
		enforcer = budget.New(cfg.Budget.Policies, ledger)
	}

	client, err := ai.NewClient(cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("init ai client: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{
		MinInterval: cfg.RateLimit.MinInterval,
		OnGrant: func(_ time.Time, waited time.Duration) {
			log.Debug("call slot granted", "waited_ms", waited.Milliseconds())
		},
	})
	a.closers = append(a.closers, limiter.Close)

	svc, err := orchestrator.New(orchestrator.Deps{
		Store:     store,
		Limiter:   limiter,
		Generator: client,
		TTL:       cfg.Cache.TTL,
		Usage:     ledger,
		Budget:    enforcer,
		Metrics:   metrics,
		Logger:    log,
		Dedupe:    cfg.Cache.DedupeInflight,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, svc.Close)
	a.svc = svc
	return a, nil
}

// initMetrics installs a stdout OpenTelemetry exporter when enabled.
// Without it, instruments bind to the global no-op provider.
func (a *app) initMetrics() (*telemetry.Metrics, error) {
	if !a.cfg.Metrics.Enabled {
		return nil, nil
	}
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(a.cfg.Metrics.Interval))),
	)
	otel.SetMeterProvider(provider)
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			a.log.Warn("metrics shutdown failed", "error", err)
		}
	})
	return telemetry.NewGlobal()
}

// Close releases resources in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// source labels a result for the user.
func source(usedFallback bool) string {
	if usedFallback {
		return "default"
	}
	return "ai"
}
