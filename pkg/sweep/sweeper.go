// Package sweep runs the background eviction loop that deletes expired
// cache entries.
//
// The loop is an explicit state machine: stopped (no timer armed),
// scheduled (timer armed, no sweep running) and sweeping (a sweep in
// progress). Each tick moves scheduled -> sweeping -> scheduled; Stop
// cancels the pending timer without waiting for an in-flight sweep.
package sweep

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/depscout/depscout/pkg/observability"
	"github.com/depscout/depscout/pkg/store"
)

// ErrAlreadyStarted is returned by Start when the loop is running.
var ErrAlreadyStarted = errors.New("sweeper already started")

const (
	// DefaultInterval is the sweep interval applied when none is
	// configured.
	DefaultInterval = 5 * time.Minute

	// MinInterval is the floor applied to configured intervals so a
	// misconfigured value cannot spin the loop.
	MinInterval = time.Second
)

// State is the eviction loop's lifecycle state.
type State int

const (
	StateStopped State = iota
	StateScheduled
	StateSweeping
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateScheduled:
		return "scheduled"
	case StateSweeping:
		return "sweeping"
	default:
		return "unknown"
	}
}

// Sweeper periodically deletes expired entries from the cache store.
type Sweeper struct {
	store    store.Store
	interval time.Duration
	logger   *log.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

// New creates a stopped sweeper. A non-positive interval falls back to
// DefaultInterval; anything below MinInterval is clamped to it. A nil
// logger falls back to the default logger.
func New(s store.Store, interval time.Duration, logger *log.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if interval < MinInterval {
		interval = MinInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		store:    s,
		interval: interval,
		logger:   logger,
	}
}

// Start arms the timer on a dedicated goroutine. Starting a running
// sweeper returns ErrAlreadyStarted.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStopped {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = StateScheduled

	go s.run(ctx)

	s.logger.Debug("sweeper started", "interval", s.interval)
	return nil
}

// Stop cancels the pending timer. It does not wait for an in-flight
// sweep; that sweep's context is cancelled so it winds down on its
// own. Stopping a stopped sweeper is a no-op.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return
	}
	s.cancel()
	s.cancel = nil
	s.state = StateStopped

	s.logger.Debug("sweeper stopped")
}

// State returns the loop's current state.
func (s *Sweeper) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Interval returns the effective sweep interval after clamping.
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs one eviction pass. Failures are logged and leave the
// timer armed for the next tick.
func (s *Sweeper) sweep(ctx context.Context) {
	if !s.transition(StateScheduled, StateSweeping) {
		return
	}
	defer s.transition(StateSweeping, StateScheduled)

	start := time.Now()
	removed, err := s.store.SweepExpired(ctx)
	observability.Sweep().OnSweep(ctx, removed, time.Since(start), err)
	if err != nil {
		s.logger.Warn("sweep failed", "err", err)
		return
	}
	if removed > 0 {
		s.logger.Debug("swept expired cache entries", "removed", removed, "duration", time.Since(start))
	}
}

// transition moves the state machine from one state to another. It
// reports false when the sweeper left the from state meanwhile, which
// happens when Stop lands mid-tick.
func (s *Sweeper) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != from {
		return false
	}
	s.state = to
	return true
}
