// Package orchestrator composes the cache, rate limiter, model client,
// parser and fallback heuristics into one call per product feature.
//
// Every operation returns a usable result. Provider failures, unparseable
// output and cache outages are absorbed and reported only through the
// usedFallback flag, logs and metrics. The only error returned to callers
// is ErrInvalidInput.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pario-ai/sous/pkg/ai"
	"github.com/pario-ai/sous/pkg/budget"
	"github.com/pario-ai/sous/pkg/cache"
	"github.com/pario-ai/sous/pkg/config"
	"github.com/pario-ai/sous/pkg/logging"
	"github.com/pario-ai/sous/pkg/models"
	"github.com/pario-ai/sous/pkg/parse"
	"github.com/pario-ai/sous/pkg/ratelimit"
	"github.com/pario-ai/sous/pkg/telemetry"
)

// ErrInvalidInput is returned when a required caller input is missing.
var ErrInvalidInput = errors.New("invalid input")

// Fallback reasons, as logged and recorded in metrics.
const (
	ReasonProviderError  = "provider_error"
	ReasonParseError     = "parse_error"
	ReasonBudgetExceeded = "budget_exceeded"
	ReasonCanceled       = "canceled"
	ReasonUnavailable    = "unavailable"
)

// Limiter hands out the outbound call slot. The release func is called once
// the call has finished.
type Limiter interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Recorder stores one usage record per outbound call.
type Recorder interface {
	Record(ctx context.Context, rec models.UsageRecord) error
}

// Deps are the collaborators of a Service. Store, Usage, Budget and
// Metrics are optional.
type Deps struct {
	Store     cache.Store
	Limiter   Limiter
	Generator ai.Generator
	TTL       config.TTLConfig
	Usage     Recorder
	Budget    *budget.Enforcer
	Metrics   *telemetry.Metrics
	Logger    *slog.Logger
	// Dedupe collapses concurrent cache misses for the same key into one call.
	Dedupe bool
}

// Service runs the four feature pipelines. It is safe for concurrent use.
type Service struct {
	deps  Deps
	log   *slog.Logger
	group singleflight.Group

	mu     sync.Mutex
	closed bool
	async  sync.WaitGroup
}

// New validates deps and returns a Service.
func New(deps Deps) (*Service, error) {
	if deps.Limiter == nil {
		return nil, errors.New("orchestrator: limiter is required")
	}
	if deps.Generator == nil {
		return nil, errors.New("orchestrator: generator is required")
	}
	log := deps.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Service{deps: deps, log: log}, nil
}

// Close waits for background sentiment classifications to finish.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.async.Wait()
}

// job describes one pipeline run. An empty identifier disables caching.
type job[T any] struct {
	feature    models.Feature
	identifier string
	prompt     string
	parse      func(raw string) (T, error)
	fallback   func() T
}

// run executes CacheCheck, Acquire, Invoke, Parse, CacheWrite, falling back
// on any failure. The bool result reports whether the fallback was used.
func run[T any](ctx context.Context, s *Service, j job[T]) (T, bool) {
	if logging.RequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, uuid.NewString())
	}
	log := s.log.With("feature", string(j.feature), "request_id", logging.RequestID(ctx))

	ttl := s.deps.TTL.For(j.feature)
	cacheable := s.deps.Store != nil && j.feature.Cacheable() && j.identifier != "" && ttl > 0

	if cacheable {
		if v, ok := lookup[T](ctx, s, log, j); ok {
			return v, false
		}
	}

	var payload []byte
	var err error
	if cacheable && s.deps.Dedupe {
		payload, err = shared(ctx, s, log, j, ttl)
	} else {
		payload, err = invoke(ctx, s, log, j, cacheable, ttl)
	}

	if err == nil {
		var v T
		if err = json.Unmarshal(payload, &v); err == nil {
			return v, false
		}
	}

	reason := fallbackReason(err)
	log.Info("serving fallback", "reason", reason, "error", err)
	s.deps.Metrics.Fallback(ctx, j.feature, reason)
	return j.fallback(), true
}

// shared joins or starts the single in-flight call for the key. The call runs
// detached from any one caller's cancellation; each caller stops waiting at
// its own deadline.
func shared[T any](ctx context.Context, s *Service, log *slog.Logger, j job[T], ttl time.Duration) ([]byte, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(cache.Key(j.feature, j.identifier), func() (any, error) {
		return invoke(detached, s, log, j, true, ttl)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// lookup consults the cache. Store errors and undecodable payloads are misses.
func lookup[T any](ctx context.Context, s *Service, log *slog.Logger, j job[T]) (T, bool) {
	var v T
	data, found, err := s.deps.Store.Get(ctx, j.feature, j.identifier)
	switch {
	case err != nil:
		log.Warn("cache read failed, treating as miss", "identifier", j.identifier, "error", err)
		s.deps.Metrics.CacheLookup(ctx, j.feature, telemetry.LookupError)
		return v, false
	case !found:
		s.deps.Metrics.CacheLookup(ctx, j.feature, telemetry.LookupMiss)
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		log.Warn("cached payload undecodable, treating as miss", "identifier", j.identifier, "error", err)
		s.deps.Metrics.CacheLookup(ctx, j.feature, telemetry.LookupError)
		return v, false
	}
	s.deps.Metrics.CacheLookup(ctx, j.feature, telemetry.LookupHit)
	log.Debug("cache hit", "identifier", j.identifier)
	return v, true
}

// invoke performs the outbound part of the pipeline and returns the parsed
// value encoded as JSON, which is also the cached representation.
func invoke[T any](ctx context.Context, s *Service, log *slog.Logger, j job[T], cacheable bool, ttl time.Duration) ([]byte, error) {
	if s.deps.Budget != nil {
		if err := s.deps.Budget.Check(ctx, j.feature); err != nil {
			if errors.Is(err, budget.ErrBudgetExceeded) {
				return nil, err
			}
			log.Warn("budget check failed, allowing call", "error", err)
		}
	}

	queued := time.Now()
	release, err := s.deps.Limiter.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire call slot: %w", err)
	}
	s.deps.Metrics.SlotWait(ctx, time.Since(queued))

	start := time.Now()
	completion, err := func() (ai.Completion, error) {
		defer release()
		return s.deps.Generator.Generate(ctx, j.prompt)
	}()
	latency := time.Since(start)
	if err != nil {
		s.record(ctx, log, j.feature, j.identifier, completion, models.OutcomeProviderError, latency)
		return nil, err
	}

	v, err := j.parse(completion.Text)
	if err != nil {
		s.record(ctx, log, j.feature, j.identifier, completion, models.OutcomeParseError, latency)
		return nil, err
	}
	s.record(ctx, log, j.feature, j.identifier, completion, models.OutcomeOK, latency)

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode result: %v", parse.ErrParse, err)
	}

	if cacheable {
		if err := s.deps.Store.Put(ctx, j.feature, j.identifier, payload, ttl); err != nil {
			log.Warn("cache write failed, result not persisted", "identifier", j.identifier, "error", err)
			s.deps.Metrics.CacheWriteError(ctx, j.feature)
		}
	}
	return payload, nil
}

func (s *Service) record(ctx context.Context, log *slog.Logger, f models.Feature, id string, c ai.Completion, outcome models.CallOutcome, latency time.Duration) {
	s.deps.Metrics.AICall(ctx, f, outcome, latency)
	if s.deps.Usage == nil {
		return
	}
	err := s.deps.Usage.Record(ctx, models.UsageRecord{
		RequestID:        logging.RequestID(ctx),
		Feature:          f,
		Identifier:       id,
		Model:            c.Model,
		Outcome:          outcome,
		PromptTokens:     c.Usage.PromptTokens,
		CompletionTokens: c.Usage.CompletionTokens,
		TotalTokens:      c.Usage.TotalTokens,
		LatencyMs:        latency.Milliseconds(),
		CreatedAt:        time.Now(),
	})
	if err != nil {
		log.Warn("usage record failed", "error", err)
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, budget.ErrBudgetExceeded):
		return ReasonBudgetExceeded
	case errors.Is(err, parse.ErrParse):
		return ReasonParseError
	case errors.Is(err, ai.ErrProvider):
		return ReasonProviderError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	case errors.Is(err, ratelimit.ErrClosed):
		return ReasonUnavailable
	default:
		return ReasonProviderError
	}
}
