// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register
// hooks at startup to receive events about cache operations, registry
// calls, analysis runs, and eviction sweeps.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    observability.SetRegistryHooks(&myRegistryHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Cache().OnHit(ctx, "versions")
//	observability.Registry().OnCall(ctx, "versions", id, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// CacheHooks receives events from cache-aside operations. The op
// argument is the cache key's operation tag (search, versions, ...).
type CacheHooks interface {
	// OnHit records a cache hit.
	OnHit(ctx context.Context, op string)

	// OnMiss records a cache miss.
	OnMiss(ctx context.Context, op string)

	// OnSet records a cache write with the payload size in bytes.
	OnSet(ctx context.Context, op string, size int)

	// OnPurge records the removal of a poisoned (undecodable) entry.
	OnPurge(ctx context.Context, key string)
}

// RegistryHooks receives events from remote registry calls.
type RegistryHooks interface {
	// OnCall records a completed registry call.
	OnCall(ctx context.Context, op, subject string, duration time.Duration, err error)
}

// AnalysisHooks receives events from dependency analysis runs.
type AnalysisHooks interface {
	// OnAnalysisStart records the beginning of an analysis.
	OnAnalysisStart(ctx context.Context, path string, manifests int)

	// OnAnalysisComplete records the end of an analysis with the
	// number of resolved and dropped dependencies.
	OnAnalysisComplete(ctx context.Context, path string, resolved, dropped int, duration time.Duration)
}

// SweepHooks receives events from the background eviction loop.
type SweepHooks interface {
	// OnSweep records one finished sweep.
	OnSweep(ctx context.Context, removed int, duration time.Duration, err error)
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnHit(context.Context, string)       {}
func (NoopCacheHooks) OnMiss(context.Context, string)      {}
func (NoopCacheHooks) OnSet(context.Context, string, int)  {}
func (NoopCacheHooks) OnPurge(context.Context, string)     {}

// NoopRegistryHooks is a no-op implementation of RegistryHooks.
type NoopRegistryHooks struct{}

func (NoopRegistryHooks) OnCall(context.Context, string, string, time.Duration, error) {}

// NoopAnalysisHooks is a no-op implementation of AnalysisHooks.
type NoopAnalysisHooks struct{}

func (NoopAnalysisHooks) OnAnalysisStart(context.Context, string, int)                        {}
func (NoopAnalysisHooks) OnAnalysisComplete(context.Context, string, int, int, time.Duration) {}

// NoopSweepHooks is a no-op implementation of SweepHooks.
type NoopSweepHooks struct{}

func (NoopSweepHooks) OnSweep(context.Context, int, time.Duration, error) {}

var (
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	registryHooks RegistryHooks = NoopRegistryHooks{}
	analysisHooks AnalysisHooks = NoopAnalysisHooks{}
	sweepHooks    SweepHooks    = NoopSweepHooks{}
	hooksMu       sync.RWMutex
)

// SetCacheHooks registers custom cache hooks.
// Call once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetRegistryHooks registers custom registry hooks.
// Call once at application startup before any registry operations.
func SetRegistryHooks(h RegistryHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		registryHooks = h
	}
}

// SetAnalysisHooks registers custom analysis hooks.
// Call once at application startup before any analysis runs.
func SetAnalysisHooks(h AnalysisHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		analysisHooks = h
	}
}

// SetSweepHooks registers custom sweep hooks.
// Call once at application startup before the eviction loop starts.
func SetSweepHooks(h SweepHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		sweepHooks = h
	}
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Registry returns the registered registry hooks.
func Registry() RegistryHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return registryHooks
}

// Analysis returns the registered analysis hooks.
func Analysis() AnalysisHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return analysisHooks
}

// Sweep returns the registered sweep hooks.
func Sweep() SweepHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return sweepHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	cacheHooks = NoopCacheHooks{}
	registryHooks = NoopRegistryHooks{}
	analysisHooks = NoopAnalysisHooks{}
	sweepHooks = NoopSweepHooks{}
}
