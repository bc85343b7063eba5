package cli

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/depscout/depscout/pkg/analyze"
	"github.com/depscout/depscout/pkg/config"
	apperrors "github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/store"
	"github.com/depscout/depscout/pkg/version"
)

func newTestCLI() *CLI {
	c := New(io.Discard, LogInfo)
	c.cfg = config.Default()
	return c
}

func TestOpenStore_BackendSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("no-cache flag wins", func(t *testing.T) {
		c := newTestCLI()
		c.noCache = true
		st, err := c.openStore(ctx)
		if err != nil {
			t.Fatalf("openStore error: %v", err)
		}
		defer st.Close()
		if _, ok := st.(*store.NullStore); !ok {
			t.Errorf("got %T, want *store.NullStore", st)
		}
	})

	t.Run("off backend", func(t *testing.T) {
		c := newTestCLI()
		c.cfg.Cache.Backend = "off"
		st, err := c.openStore(ctx)
		if err != nil {
			t.Fatalf("openStore error: %v", err)
		}
		defer st.Close()
		if _, ok := st.(*store.NullStore); !ok {
			t.Errorf("got %T, want *store.NullStore", st)
		}
	})

	t.Run("memory backend", func(t *testing.T) {
		c := newTestCLI()
		c.cfg.Cache.Backend = "memory"
		st, err := c.openStore(ctx)
		if err != nil {
			t.Fatalf("openStore error: %v", err)
		}
		defer st.Close()
		if _, ok := st.(*store.MemoryStore); !ok {
			t.Errorf("got %T, want *store.MemoryStore", st)
		}
	})

	t.Run("sqlite backend creates the cache directory", func(t *testing.T) {
		c := newTestCLI()
		c.cfg.Cache.Backend = "sqlite"
		c.cfg.Cache.Path = filepath.Join(t.TempDir(), "nested", "depscout.db")
		st, err := c.openStore(ctx)
		if err != nil {
			t.Fatalf("openStore error: %v", err)
		}
		defer st.Close()
		if _, ok := st.(*store.SQLiteStore); !ok {
			t.Errorf("got %T, want *store.SQLiteStore", st)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		c := newTestCLI()
		c.cfg.Cache.Backend = "etcd"
		_, err := c.openStore(ctx)
		if !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
			t.Errorf("err = %v, want INVALID_INPUT", err)
		}
	})
}

func TestStorePath(t *testing.T) {
	c := newTestCLI()
	c.cfg.Cache.Path = "/var/lib/depscout/cache.db"

	path, err := c.storePath()
	if err != nil {
		t.Fatalf("storePath error: %v", err)
	}
	if path != "/var/lib/depscout/cache.db" {
		t.Errorf("path = %q, want the configured one", path)
	}

	// Without a configured path the XDG default applies.
	c.cfg.Cache.Path = ""
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)

	path, err = c.storePath()
	if err != nil {
		t.Fatalf("storePath error: %v", err)
	}
	if !strings.HasPrefix(path, cacheHome) {
		t.Errorf("path = %q, want under %q", path, cacheHome)
	}
}

func TestNewOrchestrator_AppliesConfigAndFlags(t *testing.T) {
	c := newTestCLI()
	c.refresh = true

	o := c.newOrchestrator(store.NewMemoryStore())
	if !o.Refresh {
		t.Error("refresh flag not applied to the orchestrator")
	}
	if want := time.Duration(config.DefaultTTLMinutes) * time.Minute; o.TTL != want {
		t.Errorf("TTL = %v, want %v", o.TTL, want)
	}
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	root := newTestCLI().RootCommand()

	want := []string{"analyze", "search", "versions", "latest", "details", "cache", "serve", "completion"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing %q", name)
		}
	}
}

func TestFilterFor(t *testing.T) {
	if filterFor(false) != version.Stable {
		t.Error("filterFor(false) should be Stable")
	}
	if filterFor(true) != version.IncludingPrerelease {
		t.Error("filterFor(true) should be IncludingPrerelease")
	}
}

func TestOutdated(t *testing.T) {
	stable := "2.0.0"
	tests := []struct {
		name string
		dep  analyze.Dependency
		want bool
	}{
		{"no stable version", analyze.Dependency{RequestedVersion: "1.0.0"}, false},
		{"up to date", analyze.Dependency{RequestedVersion: "2.0.0", LatestStable: &stable}, false},
		{"behind", analyze.Dependency{RequestedVersion: "1.0.0", LatestStable: &stable}, true},
		{"range is flagged", analyze.Dependency{RequestedVersion: "[1.0.0,2.0.0)", LatestStable: &stable}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outdated(tt.dep); got != tt.want {
				t.Errorf("outdated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrDash(t *testing.T) {
	if got := orDash(nil); got != iconAbsent {
		t.Errorf("orDash(nil) = %q, want %q", got, iconAbsent)
	}
	v := "1.2.3"
	if got := orDash(&v); got != "1.2.3" {
		t.Errorf("orDash(&v) = %q, want 1.2.3", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	got := truncate("a long description that keeps going", 10)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncate should append an ellipsis, got %q", got)
	}
	if len([]rune(got)) > 13 {
		t.Errorf("truncate result too long: %q", got)
	}
}
