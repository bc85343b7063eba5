package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/depscout/depscout/pkg/analyze"
	"github.com/depscout/depscout/pkg/buildinfo"
	"github.com/depscout/depscout/pkg/config"
	apperrors "github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/query"
	"github.com/depscout/depscout/pkg/registry"
	"github.com/depscout/depscout/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "depscout"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	noCache    bool
	refresh    bool

	cfg *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// Configuration is loaded once in the persistent pre-run, after flag parsing.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Depscout analyzes .NET dependencies against the NuGet registry",
		Long:         `Depscout reads .NET project and solution files, resolves every declared package against a NuGet V3 registry, and reports how far each dependency lags behind the latest release. Registry responses are cached locally with a TTL.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/depscout/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the response cache")
	root.PersistentFlags().BoolVar(&c.refresh, "refresh", false, "bypass cached responses and query the registry")

	// Register all subcommands
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.versionsCommand())
	root.AddCommand(c.latestCommand())
	root.AddCommand(c.detailsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// configuration returns the loaded config, or defaults when commands
// run outside the cobra pre-run (tests mostly).
func (c *CLI) configuration() *config.Config {
	if c.cfg != nil {
		return c.cfg
	}
	return config.Default()
}

// =============================================================================
// Store / Query Factories
// =============================================================================

// openStore constructs the cache store selected by configuration.
// The caller owns the returned store and must close it.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	if c.noCache {
		return store.NewNullStore(), nil
	}

	cfg := c.configuration()
	switch cfg.Cache.Backend {
	case "off":
		return store.NewNullStore(), nil
	case "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		return store.NewRedisStore(ctx, cfg.Cache.Addr)
	case "mongo":
		return store.NewMongoStore(ctx, cfg.Cache.Addr)
	case "sqlite":
		path, err := c.storePath()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "resolve cache path")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "create cache directory")
		}
		return store.NewSQLiteStore(path)
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "unknown cache backend %q", cfg.Cache.Backend)
	}
}

// storePath resolves the SQLite database location, preferring the
// configured path over the XDG default.
func (c *CLI) storePath() (string, error) {
	if p := c.configuration().Cache.Path; p != "" {
		return p, nil
	}
	return config.DefaultCachePath()
}

// newOrchestrator wires the cached query layer over the given store.
func (c *CLI) newOrchestrator(s store.Store) *query.Orchestrator {
	cfg := c.configuration()
	client := registry.New(cfg.Registry.URL, cfg.Registry.Username, cfg.Registry.Password)
	o := query.New(s, client, cfg.TTL(), c.Logger)
	o.Refresh = c.refresh
	return o
}

// newAnalyzer builds the fan-out analyzer on top of the orchestrator.
func (c *CLI) newAnalyzer(o *query.Orchestrator) *analyze.Analyzer {
	return analyze.New(o, c.configuration().Analyze.Workers, c.Logger)
}
