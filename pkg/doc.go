// Package pkg provides the core libraries for depscout dependency analysis.
//
// # Overview
//
// Depscout inspects .NET projects and solutions, looks every declared
// package up in a NuGet V3 registry, and reports how far behind each
// dependency is. The pkg directory is organized into three main areas:
//
//  1. Domain logic (manifest parsing, version ordering, analysis)
//  2. Registry access (NuGet client, cached query orchestration)
//  3. Infrastructure (cache stores, sweeping, config, errors)
//
// # Architecture
//
// The typical data flow through depscout:
//
//	.csproj / .sln manifest
//	         ↓
//	    [project] package (parse PackageReference entries)
//	         ↓
//	    [analyze] package (fan out version lookups)
//	         ↓
//	    [query] package (TTL cache in front of the registry)
//	         ↓
//	    [registry] package (NuGet V3 API client)
//
// Responses are cached in a [store] backend; a background [sweep]
// loop evicts expired entries.
//
// # Quick Start
//
// Analyze a project against nuget.org with an in-memory cache:
//
//	import (
//	    "context"
//	    "time"
//
//	    "github.com/charmbracelet/log"
//
//	    "github.com/depscout/depscout/pkg/analyze"
//	    "github.com/depscout/depscout/pkg/config"
//	    "github.com/depscout/depscout/pkg/query"
//	    "github.com/depscout/depscout/pkg/registry"
//	    "github.com/depscout/depscout/pkg/store"
//	)
//
//	client := registry.New(config.DefaultRegistryURL, "", "")
//	orch := query.New(store.NewMemoryStore(), client, 24*time.Hour, log.Default())
//	analyzer := analyze.New(orch, 8, log.Default())
//
//	deps, err := analyzer.Analyze(context.Background(), "App.csproj")
//	for _, d := range deps {
//	    if d.LatestStable != nil {
//	        fmt.Printf("%s %s -> %s\n", d.ID, d.RequestedVersion, *d.LatestStable)
//	    }
//	}
//
// # Main Packages
//
// ## Domain Logic
//
// [project] - Manifest parsing for .csproj, .fsproj and .vbproj project
// files plus .sln solutions. Extracts PackageReference dependencies and
// resolves solution members to project paths.
//
// [version] - NuGet-flavored semantic version handling built on
// Masterminds/semver: normalization, descending ordering and
// stable/prerelease filtering.
//
// [analyze] - Concurrent dependency analysis. Deduplicates package
// references case-insensitively and resolves the latest stable and
// absolute latest version for each through a version lookup.
//
// ## Registry Access
//
// [registry] - NuGet V3 API client (service index discovery, search,
// package metadata, version enumeration) with retrying HTTP transport.
//
// [query] - Cached query orchestration. Every registry read goes
// through a TTL cache store; empty results are never cached and
// undecodable entries are purged.
//
// ## Infrastructure
//
// [store] - Cache store backends behind one interface: SQLite for the
// CLI default, Redis and MongoDB for shared deployments, an in-memory
// map for tests and a null store that caches nothing.
//
// [sweep] - Background eviction loop that periodically removes expired
// cache entries from a store.
//
// [config] - TOML configuration with environment overrides and XDG
// default paths.
//
// [httputil] - Shared HTTP client construction and retry/backoff
// policy for registry calls.
//
// [errors] - Coded errors. Every failure carries a stable machine code
// (PACKAGE_NOT_FOUND, INVALID_MANIFEST, ...) that survives wrapping.
//
// [observability] - Hook points for cache and sweep instrumentation.
//
// [buildinfo] - Version metadata injected at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/query/...              # Specific package
//	go test -run Example                 # Examples only
//
// [project]: https://pkg.go.dev/github.com/depscout/depscout/pkg/project
// [version]: https://pkg.go.dev/github.com/depscout/depscout/pkg/version
// [analyze]: https://pkg.go.dev/github.com/depscout/depscout/pkg/analyze
// [registry]: https://pkg.go.dev/github.com/depscout/depscout/pkg/registry
// [query]: https://pkg.go.dev/github.com/depscout/depscout/pkg/query
// [store]: https://pkg.go.dev/github.com/depscout/depscout/pkg/store
// [sweep]: https://pkg.go.dev/github.com/depscout/depscout/pkg/sweep
// [config]: https://pkg.go.dev/github.com/depscout/depscout/pkg/config
// [httputil]: https://pkg.go.dev/github.com/depscout/depscout/pkg/httputil
// [errors]: https://pkg.go.dev/github.com/depscout/depscout/pkg/errors
// [observability]: https://pkg.go.dev/github.com/depscout/depscout/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/depscout/depscout/pkg/buildinfo
package pkg
