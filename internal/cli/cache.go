package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/store"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	cmd.AddCommand(c.cacheStatsCommand())
	cmd.AddCommand(c.cacheSweepCommand())
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheStatsCommand creates the "cache stats" subcommand.
func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				counter, ok := st.(store.Counter)
				if !ok {
					printInfo("The %s backend does not report stats", c.configuration().Cache.Backend)
					return nil
				}
				total, expired, err := counter.Count(ctx)
				if err != nil {
					return err
				}
				printKeyValue("Backend", c.configuration().Cache.Backend)
				printKeyValue("Entries", fmt.Sprintf("%d", total))
				printKeyValue("Expired", fmt.Sprintf("%d", expired))
				return nil
			})
		},
	}
}

// cacheSweepCommand creates the "cache sweep" subcommand.
func (c *CLI) cacheSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired cache entries now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				removed, err := st.SweepExpired(ctx)
				if err != nil {
					return err
				}
				printSuccess("Swept %d expired entries", removed)
				return nil
			})
		},
	}
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				clearer, ok := st.(store.Clearer)
				if !ok {
					return apperrors.New(apperrors.ErrCodeStorage, "the %s backend cannot be cleared", c.configuration().Cache.Backend)
				}
				if err := clearer.Clear(ctx); err != nil {
					return err
				}
				printSuccess("Cache cleared")
				return nil
			})
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.configuration()
			switch cfg.Cache.Backend {
			case "sqlite":
				path, err := c.storePath()
				if err != nil {
					return err
				}
				fmt.Println(path)
			case "redis", "mongo":
				fmt.Println(cfg.Cache.Addr)
			default:
				printInfo("The %s backend has no location", cfg.Cache.Backend)
			}
			return nil
		},
	}
}

// withStore opens the configured store, runs fn and closes the store.
func (c *CLI) withStore(ctx context.Context, fn func(context.Context, store.Store) error) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}
