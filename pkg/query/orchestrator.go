// Package query makes every remote registry lookup cache-transparent.
//
// The Orchestrator sits between callers and the registry client: each
// query shape (search, version list, metadata, latest metadata) is
// served through one cache-aside primitive with its own key rule.
// Negative results are never cached, so a transient registry outage
// heals on the next call instead of being frozen for the full TTL.
package query

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	apperrors "github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/observability"
	"github.com/depscout/depscout/pkg/registry"
	"github.com/depscout/depscout/pkg/store"
	"github.com/depscout/depscout/pkg/version"
)

// DefaultTTL is the cache lifetime applied when the caller does not
// configure one.
const DefaultTTL = 24 * time.Hour

// RegistryClient is the remote side of the orchestrator. Implemented
// by registry.Client; test doubles supply canned responses.
type RegistryClient interface {
	Search(ctx context.Context, term string, includePrerelease bool, skip, take int) ([]registry.SearchResult, error)
	ListVersions(ctx context.Context, id string) ([]string, error)
	GetMetadata(ctx context.Context, id, version string) (*registry.PackageMetadata, error)
	GetLatestMetadata(ctx context.Context, id string, filter version.Filter) (*registry.PackageMetadata, error)
}

// Orchestrator serves registry queries through a TTL cache store.
//
// It is stateless apart from the injected store and logger; multiple
// goroutines can share one instance.
type Orchestrator struct {
	Store    store.Store
	Registry RegistryClient
	TTL      time.Duration
	Logger   *log.Logger

	// Refresh skips cache reads so every query goes to the registry.
	// Non-empty results still refresh the stored entry.
	Refresh bool
}

// New creates an orchestrator. A nil store disables caching, a
// non-positive ttl falls back to DefaultTTL and a nil logger falls
// back to the default logger.
func New(s store.Store, r RegistryClient, ttl time.Duration, logger *log.Logger) *Orchestrator {
	if s == nil {
		s = store.NewNullStore()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		Store:    s,
		Registry: r,
		TTL:      ttl,
		Logger:   logger,
	}
}

// Search returns registry search results for term. Every distinct
// query shape (term, prerelease flag, page window) caches separately.
func (o *Orchestrator) Search(ctx context.Context, term string, includePrerelease bool, skip, take int) ([]registry.SearchResult, error) {
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		take = registry.DefaultTake
	}
	key := store.Key(store.OpSearch, term,
		strconv.FormatBool(includePrerelease), strconv.Itoa(skip), strconv.Itoa(take))

	return fetchCachedList(ctx, o, key, o.TTL, func(ctx context.Context) ([]registry.SearchResult, error) {
		return o.Registry.Search(ctx, term, includePrerelease, skip, take)
	})
}

// Versions returns every published version of id as normalized strings
// in registry order. The full list is cached under one key; prerelease
// filtering and ordering happen in-process on top of it.
func (o *Orchestrator) Versions(ctx context.Context, id string) ([]string, error) {
	key := store.Key(store.OpVersions, id)

	return fetchCachedList(ctx, o, key, o.TTL, func(ctx context.Context) ([]string, error) {
		return o.Registry.ListVersions(ctx, id)
	})
}

// VersionsOrdered returns the version list of id in descending
// precedence order, restricted to the versions admitted by filter.
func (o *Orchestrator) VersionsOrdered(ctx context.Context, id string, filter version.Filter) ([]string, error) {
	versions, err := o.Versions(ctx, id)
	if err != nil {
		return nil, err
	}

	if filter == version.Stable {
		stable := make([]string, 0, len(versions))
		for _, raw := range versions {
			v, err := version.Parse(raw)
			if err != nil || v.IsPrerelease() {
				continue
			}
			stable = append(stable, raw)
		}
		versions = stable
	}
	return version.SortDescending(versions), nil
}

// LatestVersion derives the newest version of id admitted by filter
// from the cached version list; it never issues a separate remote
// call. The bool is false when no version qualifies.
func (o *Orchestrator) LatestVersion(ctx context.Context, id string, filter version.Filter) (string, bool, error) {
	versions, err := o.Versions(ctx, id)
	if err != nil {
		return "", false, err
	}
	latest, ok := version.Latest(versions, filter)
	return latest, ok, nil
}

// Metadata returns the catalog metadata of one exact package version,
// or nil when the package or version is absent from the registry.
// Absence is not cached.
func (o *Orchestrator) Metadata(ctx context.Context, id, ver string) (*registry.PackageMetadata, error) {
	normalized, err := version.Normalize(ver)
	if err != nil {
		return nil, err
	}
	key := store.Key(store.OpMetadata, id, normalized)

	return fetchCachedObject(ctx, o, key, o.TTL, func(ctx context.Context) (*registry.PackageMetadata, error) {
		meta, err := o.Registry.GetMetadata(ctx, id, normalized)
		if apperrors.Is(err, apperrors.ErrCodePackageNotFound) {
			return nil, nil
		}
		return meta, err
	})
}

// LatestMetadata returns the metadata of the newest version of id
// admitted by filter, or nil when no version qualifies.
func (o *Orchestrator) LatestMetadata(ctx context.Context, id string, filter version.Filter) (*registry.PackageMetadata, error) {
	key := store.Key(store.OpLatestMetadata, id, filter.String())

	return fetchCachedObject(ctx, o, key, o.TTL, func(ctx context.Context) (*registry.PackageMetadata, error) {
		meta, err := o.Registry.GetLatestMetadata(ctx, id, filter)
		if apperrors.Is(err, apperrors.ErrCodePackageNotFound) {
			return nil, nil
		}
		return meta, err
	})
}

// fetchCachedList is fetchCached for slice-shaped results; an empty
// slice counts as a negative result.
func fetchCachedList[E any](ctx context.Context, o *Orchestrator, key string, ttl time.Duration, fetch func(context.Context) ([]E, error)) ([]E, error) {
	return fetchCached(ctx, o, key, ttl, fetch, func(s []E) bool { return len(s) == 0 })
}

// fetchCachedObject is fetchCached for single-object results; nil
// counts as a negative result.
func fetchCachedObject[T any](ctx context.Context, o *Orchestrator, key string, ttl time.Duration, fetch func(context.Context) (*T, error)) (*T, error) {
	return fetchCached(ctx, o, key, ttl, fetch, func(p *T) bool { return p == nil })
}

// fetchCached serves one query shape through the cache store.
//
// A hit returns the decoded payload without touching the registry. An
// undecodable hit is purged so it cannot keep failing until it expires,
// then treated as a miss. On a miss the fetched result is written back
// only when non-empty. Refresh mode skips the read path entirely.
// Cache failures never block the live path; the only storage error
// that surfaces is exhausted write retries.
func fetchCached[T any](ctx context.Context, o *Orchestrator, key string, ttl time.Duration, fetch func(context.Context) (T, error), empty func(T) bool) (T, error) {
	var zero T
	op, _, _ := strings.Cut(key, ":")

	if !o.Refresh {
		payload, hit, err := o.Store.Get(ctx, key)
		if err != nil {
			o.Logger.Warn("cache read failed", "key", key, "err", err)
		}
		if hit {
			var cached T
			decodeErr := json.Unmarshal(payload, &cached)
			if decodeErr == nil {
				observability.Cache().OnHit(ctx, op)
				return cached, nil
			}
			observability.Cache().OnPurge(ctx, key)
			o.Logger.Warn("purging undecodable cache entry", "key", key, "err", decodeErr)
			if err := o.Store.Remove(ctx, key); err != nil {
				o.Logger.Warn("cache purge failed", "key", key, "err", err)
			}
		}
	}
	observability.Cache().OnMiss(ctx, op)

	result, err := fetch(ctx)
	if err != nil {
		return zero, err
	}
	if empty(result) {
		return result, nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		o.Logger.Warn("cache encode failed", "key", key, "err", err)
		return result, nil
	}
	if err := o.Store.Set(ctx, key, data, ttl); err != nil {
		if apperrors.Is(err, apperrors.ErrCodeStorageExhausted) {
			return zero, err
		}
		o.Logger.Warn("cache write failed", "key", key, "err", err)
		return result, nil
	}
	observability.Cache().OnSet(ctx, op, len(data))
	return result, nil
}
