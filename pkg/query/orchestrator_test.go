package query

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	apperrors "github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/registry"
	"github.com/depscout/depscout/pkg/store"
	"github.com/depscout/depscout/pkg/version"
)

type mockRegistry struct {
	searchResults []registry.SearchResult
	versions      map[string][]string
	metadata      map[string]*registry.PackageMetadata
	err           error

	searchCalls   int
	versionCalls  int
	metadataCalls int
	latestCalls   int
}

func (m *mockRegistry) Search(ctx context.Context, term string, includePrerelease bool, skip, take int) ([]registry.SearchResult, error) {
	m.searchCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.searchResults, nil
}

func (m *mockRegistry) ListVersions(ctx context.Context, id string) ([]string, error) {
	m.versionCalls++
	if m.err != nil {
		return nil, m.err
	}
	versions, ok := m.versions[strings.ToLower(id)]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodePackageNotFound, "package %s not found", id)
	}
	return versions, nil
}

func (m *mockRegistry) GetMetadata(ctx context.Context, id, ver string) (*registry.PackageMetadata, error) {
	m.metadataCalls++
	if m.err != nil {
		return nil, m.err
	}
	meta, ok := m.metadata[strings.ToLower(id)+":"+ver]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodePackageNotFound, "version %s of %s not found", ver, id)
	}
	return meta, nil
}

func (m *mockRegistry) GetLatestMetadata(ctx context.Context, id string, filter version.Filter) (*registry.PackageMetadata, error) {
	m.latestCalls++
	if m.err != nil {
		return nil, m.err
	}
	versions, ok := m.versions[strings.ToLower(id)]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodePackageNotFound, "package %s not found", id)
	}
	latest, ok := version.Latest(versions, filter)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodePackageNotFound, "no matching version of %s found", id)
	}
	meta, ok := m.metadata[strings.ToLower(id)+":"+latest]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodePackageNotFound, "version %s of %s not found", latest, id)
	}
	return meta, nil
}

func newTestOrchestrator(reg *mockRegistry) *Orchestrator {
	return New(store.NewMemoryStore(), reg, time.Hour, log.New(io.Discard))
}

func TestVersions_CachedAcrossCalls(t *testing.T) {
	reg := &mockRegistry{versions: map[string][]string{
		"foo": {"1.0.0", "2.0.0"},
	}}
	o := newTestOrchestrator(reg)

	for i := 0; i < 3; i++ {
		versions, err := o.Versions(context.Background(), "Foo")
		if err != nil {
			t.Fatalf("Versions failed: %v", err)
		}
		if len(versions) != 2 {
			t.Fatalf("expected 2 versions, got %v", versions)
		}
	}
	if reg.versionCalls != 1 {
		t.Errorf("expected 1 registry call, got %d", reg.versionCalls)
	}
}

func TestVersionsOrdered_ServedFromSeededCache(t *testing.T) {
	s := store.NewMemoryStore()
	reg := &mockRegistry{}
	o := New(s, reg, time.Hour, log.New(io.Discard))

	payload, err := json.Marshal([]string{"12.0.0", "13.0.1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(context.Background(), "versions:newtonsoft.json", payload, time.Minute); err != nil {
		t.Fatal(err)
	}

	versions, err := o.VersionsOrdered(context.Background(), "Newtonsoft.Json", version.Stable)
	if err != nil {
		t.Fatalf("VersionsOrdered failed: %v", err)
	}

	want := []string{"13.0.1", "12.0.0"}
	if len(versions) != len(want) {
		t.Fatalf("expected %v, got %v", want, versions)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Errorf("versions[%d] = %s, want %s", i, versions[i], want[i])
		}
	}
	if reg.versionCalls != 0 {
		t.Errorf("registry invoked %d times for a cached key", reg.versionCalls)
	}
}

func TestVersionsOrdered_StableFilterDropsPrereleases(t *testing.T) {
	reg := &mockRegistry{versions: map[string][]string{
		"foo": {"1.0.0", "1.2.0-beta", "0.9.0"},
	}}
	o := newTestOrchestrator(reg)

	versions, err := o.VersionsOrdered(context.Background(), "foo", version.Stable)
	if err != nil {
		t.Fatalf("VersionsOrdered failed: %v", err)
	}

	want := []string{"1.0.0", "0.9.0"}
	if len(versions) != len(want) {
		t.Fatalf("expected %v, got %v", want, versions)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Errorf("versions[%d] = %s, want %s", i, versions[i], want[i])
		}
	}
}

func TestLatestVersion_DerivedInProcess(t *testing.T) {
	reg := &mockRegistry{versions: map[string][]string{
		"foo": {"1.0.0", "1.2.0-beta"},
	}}
	o := newTestOrchestrator(reg)

	stable, ok, err := o.LatestVersion(context.Background(), "foo", version.Stable)
	if err != nil || !ok {
		t.Fatalf("LatestVersion(stable) = %v, %v, %v", stable, ok, err)
	}
	if stable != "1.0.0" {
		t.Errorf("latest stable = %s, want 1.0.0", stable)
	}

	latest, ok, err := o.LatestVersion(context.Background(), "foo", version.IncludingPrerelease)
	if err != nil || !ok {
		t.Fatalf("LatestVersion(prerelease) = %v, %v, %v", latest, ok, err)
	}
	if latest != "1.2.0-beta" {
		t.Errorf("latest = %s, want 1.2.0-beta", latest)
	}

	// Both flavors derive from one cached list; no dedicated remote call.
	if reg.versionCalls != 1 {
		t.Errorf("expected 1 registry call, got %d", reg.versionCalls)
	}
	if reg.latestCalls != 0 {
		t.Errorf("expected no latest-metadata calls, got %d", reg.latestCalls)
	}
}

func TestLatestVersion_Absent(t *testing.T) {
	reg := &mockRegistry{versions: map[string][]string{
		"foo": {"1.0.0-alpha"},
	}}
	o := newTestOrchestrator(reg)

	_, ok, err := o.LatestVersion(context.Background(), "foo", version.Stable)
	if err != nil {
		t.Fatalf("LatestVersion failed: %v", err)
	}
	if ok {
		t.Error("expected no stable version")
	}
}

func TestVersions_EmptyResultNotCached(t *testing.T) {
	s := store.NewMemoryStore()
	reg := &mockRegistry{versions: map[string][]string{"foo": {}}}
	o := New(s, reg, time.Hour, log.New(io.Discard))

	for i := 0; i < 2; i++ {
		versions, err := o.Versions(context.Background(), "foo")
		if err != nil {
			t.Fatalf("Versions failed: %v", err)
		}
		if len(versions) != 0 {
			t.Fatalf("expected empty list, got %v", versions)
		}
	}

	if _, hit, _ := s.Get(context.Background(), "versions:foo"); hit {
		t.Error("empty result must not be cached")
	}
	if reg.versionCalls != 2 {
		t.Errorf("expected 2 registry calls, got %d", reg.versionCalls)
	}
}

func TestVersions_FailedFetchNotCached(t *testing.T) {
	s := store.NewMemoryStore()
	reg := &mockRegistry{err: apperrors.New(apperrors.ErrCodeNetwork, "registry unreachable")}
	o := New(s, reg, time.Hour, log.New(io.Discard))

	_, err := o.Versions(context.Background(), "foo")
	if !apperrors.Is(err, apperrors.ErrCodeNetwork) {
		t.Fatalf("expected NETWORK_ERROR, got %v", err)
	}
	if _, hit, _ := s.Get(context.Background(), "versions:foo"); hit {
		t.Error("failed fetch must not be cached")
	}
}

func TestFetchCached_PurgesPoisonedEntry(t *testing.T) {
	s := store.NewMemoryStore()
	reg := &mockRegistry{err: apperrors.New(apperrors.ErrCodeNetwork, "registry unreachable")}
	o := New(s, reg, time.Hour, log.New(io.Discard))

	if err := s.Set(context.Background(), "versions:foo", []byte(`{"not":"a list"}`), time.Minute); err != nil {
		t.Fatal(err)
	}

	// The undecodable payload is treated as a miss; the fetch then
	// fails, leaving the purge observable.
	_, err := o.Versions(context.Background(), "foo")
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if reg.versionCalls != 1 {
		t.Errorf("expected fallthrough to registry, got %d calls", reg.versionCalls)
	}
	if _, hit, _ := s.Get(context.Background(), "versions:foo"); hit {
		t.Error("poisoned entry should have been purged")
	}
}

func TestMetadata_AbsentNotCached(t *testing.T) {
	reg := &mockRegistry{metadata: map[string]*registry.PackageMetadata{}}
	o := newTestOrchestrator(reg)

	for i := 0; i < 2; i++ {
		meta, err := o.Metadata(context.Background(), "foo", "1.0.0")
		if err != nil {
			t.Fatalf("Metadata failed: %v", err)
		}
		if meta != nil {
			t.Fatalf("expected absent metadata, got %+v", meta)
		}
	}
	if reg.metadataCalls != 2 {
		t.Errorf("absence must not be cached; got %d calls", reg.metadataCalls)
	}
}

func TestMetadata_Cached(t *testing.T) {
	reg := &mockRegistry{metadata: map[string]*registry.PackageMetadata{
		"foo:1.0.0": {ID: "Foo", Version: "1.0.0", Description: "a package"},
	}}
	o := newTestOrchestrator(reg)

	for i := 0; i < 2; i++ {
		// The four-part form normalizes onto the same cache key.
		meta, err := o.Metadata(context.Background(), "Foo", "1.0.0.0")
		if err != nil {
			t.Fatalf("Metadata failed: %v", err)
		}
		if meta == nil || meta.Version != "1.0.0" {
			t.Fatalf("unexpected metadata: %+v", meta)
		}
	}
	if reg.metadataCalls != 1 {
		t.Errorf("expected 1 registry call, got %d", reg.metadataCalls)
	}
}

func TestMetadata_InvalidVersion(t *testing.T) {
	o := newTestOrchestrator(&mockRegistry{})

	_, err := o.Metadata(context.Background(), "foo", "not.a.version")
	if !apperrors.Is(err, apperrors.ErrCodeInvalidVersion) {
		t.Fatalf("expected INVALID_VERSION, got %v", err)
	}
}

func TestLatestMetadata_CachedPerFilter(t *testing.T) {
	reg := &mockRegistry{
		versions: map[string][]string{"foo": {"1.0.0", "1.2.0-beta"}},
		metadata: map[string]*registry.PackageMetadata{
			"foo:1.0.0":      {ID: "Foo", Version: "1.0.0"},
			"foo:1.2.0-beta": {ID: "Foo", Version: "1.2.0-beta", IsPrerelease: true},
		},
	}
	o := newTestOrchestrator(reg)

	for i := 0; i < 2; i++ {
		meta, err := o.LatestMetadata(context.Background(), "foo", version.Stable)
		if err != nil {
			t.Fatalf("LatestMetadata failed: %v", err)
		}
		if meta == nil || meta.Version != "1.0.0" {
			t.Fatalf("unexpected stable metadata: %+v", meta)
		}
	}
	if reg.latestCalls != 1 {
		t.Errorf("expected 1 registry call, got %d", reg.latestCalls)
	}

	meta, err := o.LatestMetadata(context.Background(), "foo", version.IncludingPrerelease)
	if err != nil {
		t.Fatalf("LatestMetadata failed: %v", err)
	}
	if meta == nil || meta.Version != "1.2.0-beta" {
		t.Fatalf("unexpected prerelease metadata: %+v", meta)
	}
	if reg.latestCalls != 2 {
		t.Errorf("filters cache separately; expected 2 calls, got %d", reg.latestCalls)
	}
}

func TestSearch_DistinctShapesCacheSeparately(t *testing.T) {
	reg := &mockRegistry{searchResults: []registry.SearchResult{{ID: "Foo", Version: "1.0.0"}}}
	o := newTestOrchestrator(reg)

	for i := 0; i < 2; i++ {
		if _, err := o.Search(context.Background(), "foo", false, 0, 20); err != nil {
			t.Fatalf("Search failed: %v", err)
		}
	}
	if reg.searchCalls != 1 {
		t.Errorf("expected 1 registry call, got %d", reg.searchCalls)
	}

	if _, err := o.Search(context.Background(), "foo", true, 0, 20); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if reg.searchCalls != 2 {
		t.Errorf("prerelease flag is part of the key; expected 2 calls, got %d", reg.searchCalls)
	}
}

type faultyStore struct {
	store.Store
	getErr error
	setErr error
}

func (f *faultyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *faultyStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, payload, ttl)
}

func TestFetchCached_ReadErrorFallsThroughToFetch(t *testing.T) {
	s := &faultyStore{
		Store:  store.NewMemoryStore(),
		getErr: apperrors.New(apperrors.ErrCodeStorage, "cannot read"),
	}
	reg := &mockRegistry{versions: map[string][]string{"foo": {"1.0.0"}}}
	o := New(s, reg, time.Hour, log.New(io.Discard))

	versions, err := o.Versions(context.Background(), "foo")
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if len(versions) != 1 || versions[0] != "1.0.0" {
		t.Fatalf("unexpected versions: %v", versions)
	}
	if reg.versionCalls != 1 {
		t.Errorf("expected live fetch, got %d calls", reg.versionCalls)
	}
}

func TestFetchCached_RefreshBypassesRead(t *testing.T) {
	s := store.NewMemoryStore()
	reg := &mockRegistry{versions: map[string][]string{"foo": {"9.9.9"}}}
	o := New(s, reg, time.Hour, log.New(io.Discard))
	o.Refresh = true

	payload, err := json.Marshal([]string{"1.0.0"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(context.Background(), "versions:foo", payload, time.Minute); err != nil {
		t.Fatal(err)
	}

	versions, err := o.Versions(context.Background(), "Foo")
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if len(versions) != 1 || versions[0] != "9.9.9" {
		t.Fatalf("refresh served stale data: %v", versions)
	}
	if reg.versionCalls != 1 {
		t.Errorf("expected live fetch, got %d calls", reg.versionCalls)
	}

	// The fresh result replaced the stored entry.
	o.Refresh = false
	versions, err = o.Versions(context.Background(), "Foo")
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if len(versions) != 1 || versions[0] != "9.9.9" {
		t.Fatalf("refreshed entry not written back: %v", versions)
	}
	if reg.versionCalls != 1 {
		t.Errorf("cached read issued a registry call, total %d", reg.versionCalls)
	}
}

func TestFetchCached_WriteFailureNonFatal(t *testing.T) {
	s := &faultyStore{
		Store:  store.NewMemoryStore(),
		setErr: apperrors.New(apperrors.ErrCodeStorage, "disk error"),
	}
	reg := &mockRegistry{versions: map[string][]string{"foo": {"1.0.0"}}}
	o := New(s, reg, time.Hour, log.New(io.Discard))

	versions, err := o.Versions(context.Background(), "foo")
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("unexpected versions: %v", versions)
	}
}

func TestFetchCached_ExhaustedWriteRetriesSurface(t *testing.T) {
	s := &faultyStore{
		Store:  store.NewMemoryStore(),
		setErr: apperrors.New(apperrors.ErrCodeStorageExhausted, "write retries exhausted"),
	}
	reg := &mockRegistry{versions: map[string][]string{"foo": {"1.0.0"}}}
	o := New(s, reg, time.Hour, log.New(io.Discard))

	_, err := o.Versions(context.Background(), "foo")
	if !apperrors.Is(err, apperrors.ErrCodeStorageExhausted) {
		t.Fatalf("expected STORAGE_RETRIES_EXHAUSTED, got %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	o := New(nil, &mockRegistry{}, 0, nil)

	if o.Store == nil {
		t.Error("nil store should default to the null store")
	}
	if o.TTL != DefaultTTL {
		t.Errorf("TTL = %v, want %v", o.TTL, DefaultTTL)
	}
	if o.Logger == nil {
		t.Error("nil logger should default")
	}
}
