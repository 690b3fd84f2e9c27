// Package ratelimit spaces outbound model calls process-wide.
//
// A Limiter owns a single goroutine that serves acquire requests in arrival
// order. Because only that goroutine reads and advances the last grant time,
// two callers can never both observe a stale timestamp and proceed together.
// A grant is a slot held until released, so at most one call is in flight.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("ratelimit: limiter closed")

// Config configures a Limiter.
type Config struct {
	// MinInterval is the minimum spacing between two grants.
	// Default: 15 seconds
	MinInterval time.Duration

	// Clock supplies time. Default: the wall clock.
	Clock Clock

	// OnGrant, if set, is called by the owner goroutine for every grant with
	// the grant instant and how long the request waited in the queue.
	OnGrant func(grantedAt time.Time, waited time.Duration)
}

type request struct {
	ctx      context.Context
	enqueued time.Time
	reply    chan struct{}
	released chan struct{}
	once     sync.Once

	mu        sync.Mutex
	granted   bool
	abandoned bool
}

func newRequest(ctx context.Context, now time.Time) *request {
	return &request{
		ctx:      ctx,
		enqueued: now,
		reply:    make(chan struct{}, 1),
		released: make(chan struct{}),
	}
}

// grant marks the request granted unless its caller already gave up.
func (r *request) grant() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return false
	}
	r.granted = true
	return true
}

// abandon marks the request abandoned unless it was already granted.
func (r *request) abandon() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.granted {
		return false
	}
	r.abandoned = true
	return true
}

func (r *request) release() {
	r.once.Do(func() { close(r.released) })
}

// Limiter grants at most one outbound call per MinInterval, first come first
// served, and never more than one at a time.
type Limiter struct {
	cfg      Config
	requests chan *request
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// New creates a Limiter and starts its owner goroutine.
func New(cfg Config) *Limiter {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 15 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}

	l := &Limiter{
		cfg:      cfg,
		requests: make(chan *request),
		done:     make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// MinInterval returns the configured spacing.
func (l *Limiter) MinInterval() time.Duration {
	return l.cfg.MinInterval
}

// Acquire blocks until the caller holds the call slot. The returned release
// func must be called once the outbound call has finished; the next grant
// waits for it. Acquire fails only when ctx ends before the grant or the
// limiter is closed. A caller that gives up before its grant does not
// advance the spacing, and a grant that races ctx is still returned.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	req := newRequest(ctx, l.cfg.Clock.Now())

	select {
	case l.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, ErrClosed
	}

	select {
	case <-req.reply:
		return req.release, nil
	case <-ctx.Done():
		if req.abandon() {
			return nil, ctx.Err()
		}
		<-req.reply
		return req.release, nil
	case <-l.done:
		return nil, ErrClosed
	}
}

// Close stops the owner goroutine. Pending and future Acquire calls return ErrClosed.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
	l.wg.Wait()
}

func (l *Limiter) run() {
	defer l.wg.Done()

	var last time.Time
	for {
		var req *request
		select {
		case req = <-l.requests:
		case <-l.done:
			return
		}

		if !last.IsZero() {
			if wait := last.Add(l.cfg.MinInterval).Sub(l.cfg.Clock.Now()); wait > 0 {
				select {
				case <-l.cfg.Clock.After(wait):
				case <-req.ctx.Done():
					continue
				case <-l.done:
					return
				}
			}
		}
		if req.ctx.Err() != nil || !req.grant() {
			continue
		}

		now := l.cfg.Clock.Now()
		last = now
		req.reply <- struct{}{}
		if l.cfg.OnGrant != nil {
			l.cfg.OnGrant(now, now.Sub(req.enqueued))
		}

		select {
		case <-req.released:
		case <-l.done:
			return
		}
	}
}
