// Package analyze aggregates the dependencies declared by a project or
// solution with the latest versions the registry knows about.
//
// Analysis is tolerant by design: an unreadable manifest or a failed
// registry lookup drops the affected piece with a warning instead of
// failing the run. Only cancellation aborts the whole analysis.
package analyze

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/depscout/depscout/pkg/observability"
	"github.com/depscout/depscout/pkg/project"
	"github.com/depscout/depscout/pkg/version"
)

// DefaultWorkers bounds the lookup fan-out when no worker count is
// configured.
const DefaultWorkers = 8

// Dependency is one analyzed dependency: the declared id and version
// joined with the newest versions the registry offers. The latest
// fields are nil when no version qualifies.
type Dependency struct {
	ID               string  `json:"id"`
	RequestedVersion string  `json:"requestedVersion"`
	LatestStable     *string `json:"latestStableVersion"`
	Latest           *string `json:"latestVersion"`
}

// VersionLookup answers latest-version queries for a package id.
// Implemented by query.Orchestrator.
type VersionLookup interface {
	LatestVersion(ctx context.Context, id string, filter version.Filter) (string, bool, error)
}

// Analyzer resolves manifests and fans out version lookups.
type Analyzer struct {
	Lookup  VersionLookup
	Workers int
	Logger  *log.Logger
}

// New creates an analyzer. A non-positive workers count falls back to
// DefaultWorkers and a nil logger falls back to the default logger.
func New(lookup VersionLookup, workers int, logger *log.Logger) *Analyzer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Analyzer{
		Lookup:  lookup,
		Workers: workers,
		Logger:  logger,
	}
}

// Analyze resolves path to its manifests, collects the declared
// dependencies and joins each with its latest registry versions.
//
// The result keeps declaration order and holds exactly one entry per
// dependency id (case-insensitive, first occurrence wins). A path that
// is neither a project nor a solution yields an empty result, not an
// error. The only error returned is cancellation.
func (a *Analyzer) Analyze(ctx context.Context, path string) ([]Dependency, error) {
	start := time.Now()

	manifests := a.resolveManifests(path)
	if len(manifests) == 0 {
		return []Dependency{}, nil
	}
	observability.Analysis().OnAnalysisStart(ctx, path, len(manifests))

	declared := dedupeFirstSeen(a.collectDeclared(manifests))

	results := make([]*Dependency, len(declared))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Workers)
	for i, dep := range declared {
		i, dep := i, dep
		g.Go(func() error {
			analyzed, err := a.lookup(gctx, dep)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				a.Logger.Warn("lookup failed, dropping dependency", "id", dep.ID, "err", err)
				return nil
			}
			results[i] = analyzed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Dependency, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	dropped := len(results) - len(out)

	observability.Analysis().OnAnalysisComplete(ctx, path, len(out), dropped, time.Since(start))
	a.Logger.Info("analyzed dependencies",
		"path", path,
		"manifests", len(manifests),
		"resolved", len(out),
		"dropped", dropped,
		"duration", time.Since(start))

	return out, nil
}

// resolveManifests expands path into the manifest files to read. An
// unrecognized or unreadable path logs a warning and resolves to
// nothing: a validation outcome, not an error.
func (a *Analyzer) resolveManifests(path string) []string {
	switch {
	case project.IsSolutionFile(path):
		projects, err := project.ParseSolution(path)
		if err != nil {
			a.Logger.Warn("cannot read solution", "path", path, "err", err)
			return nil
		}
		return projects
	case project.IsProjectFile(path):
		return []string{path}
	default:
		a.Logger.Warn("path is neither a project nor a solution", "path", path)
		return nil
	}
}

// collectDeclared parses every manifest, skipping unreadable ones.
func (a *Analyzer) collectDeclared(manifests []string) []project.Dependency {
	var declared []project.Dependency
	for _, m := range manifests {
		deps, err := project.ParseProject(m)
		if err != nil {
			a.Logger.Warn("skipping unreadable manifest", "path", m, "err", err)
			continue
		}
		declared = append(declared, deps...)
	}
	return declared
}

// lookup joins one declared dependency with its latest versions. The
// overall lookup runs first so the stable one is served from the
// version list it just cached.
func (a *Analyzer) lookup(ctx context.Context, dep project.Dependency) (*Dependency, error) {
	analyzed := &Dependency{ID: dep.ID, RequestedVersion: dep.RequestedVersion}

	latest, ok, err := a.Lookup.LatestVersion(ctx, dep.ID, version.IncludingPrerelease)
	if err != nil {
		return nil, err
	}
	if ok {
		analyzed.Latest = &latest
	}

	stable, ok, err := a.Lookup.LatestVersion(ctx, dep.ID, version.Stable)
	if err != nil {
		return nil, err
	}
	if ok {
		analyzed.LatestStable = &stable
	}
	return analyzed, nil
}

// dedupeFirstSeen keeps the first occurrence of each dependency id,
// comparing ids case-insensitively.
func dedupeFirstSeen(deps []project.Dependency) []project.Dependency {
	seen := make(map[string]bool, len(deps))
	out := make([]project.Dependency, 0, len(deps))
	for _, dep := range deps {
		key := strings.ToLower(dep.ID)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, dep)
	}
	return out
}
