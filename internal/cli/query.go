package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/registry"
	"github.com/depscout/depscout/pkg/version"
)

// filterFor maps the --prerelease flag onto a version filter.
func filterFor(includePrerelease bool) version.Filter {
	if includePrerelease {
		return version.IncludingPrerelease
	}
	return version.Stable
}

// =============================================================================
// search
// =============================================================================

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var (
		prerelease bool
		skip       int
		take       int
	)

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search the registry for packages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd.Context(), args[0], prerelease, skip, take)
		},
	}

	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "include prerelease packages")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of results to skip")
	cmd.Flags().IntVar(&take, "take", registry.DefaultTake, "number of results to return")

	return cmd
}

// runSearch queries the registry search service and lists the hits.
func (c *CLI) runSearch(ctx context.Context, term string, prerelease bool, skip, take int) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := c.newOrchestrator(st).Search(ctx, term, prerelease, skip, take)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		printInfo("No packages match %q", term)
		return nil
	}

	for _, r := range results {
		line := StyleHighlight.Render(r.ID) + " " + StyleValue.Render(r.Version)
		if r.TotalDownloads > 0 {
			line += " " + StyleDim.Render(fmt.Sprintf("(%d downloads)", r.TotalDownloads))
		}
		fmt.Println(line)
		if r.Description != "" {
			printDetail("%s", truncate(r.Description, 100))
		}
	}
	printNewline()
	printDetail("%d results", len(results))
	return nil
}

// =============================================================================
// versions
// =============================================================================

// versionsCommand creates the versions command.
func (c *CLI) versionsCommand() *cobra.Command {
	var prerelease bool

	cmd := &cobra.Command{
		Use:   "versions <package>",
		Short: "List the published versions of a package, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runVersions(cmd.Context(), args[0], prerelease)
		},
	}

	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "include prerelease versions")

	return cmd
}

// runVersions prints the version list in descending precedence order.
func (c *CLI) runVersions(ctx context.Context, id string, prerelease bool) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	versions, err := c.newOrchestrator(st).VersionsOrdered(ctx, id, filterFor(prerelease))
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		printWarning("No matching versions of %s (try --prerelease)", id)
		return nil
	}

	for _, v := range versions {
		fmt.Println(v)
	}
	return nil
}

// =============================================================================
// latest
// =============================================================================

// latestCommand creates the latest command.
func (c *CLI) latestCommand() *cobra.Command {
	var prerelease bool

	cmd := &cobra.Command{
		Use:   "latest <package>",
		Short: "Show the latest version of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLatest(cmd.Context(), args[0], prerelease)
		},
	}

	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "consider prerelease versions")

	return cmd
}

// runLatest prints the newest version admitted by the filter.
func (c *CLI) runLatest(ctx context.Context, id string, prerelease bool) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	latest, ok, err := c.newOrchestrator(st).LatestVersion(ctx, id, filterFor(prerelease))
	if err != nil {
		return err
	}
	if !ok {
		printWarning("No matching versions of %s (try --prerelease)", id)
		return nil
	}

	fmt.Println(latest)
	return nil
}

// =============================================================================
// details
// =============================================================================

// detailsCommand creates the details command.
func (c *CLI) detailsCommand() *cobra.Command {
	var prerelease bool

	cmd := &cobra.Command{
		Use:   "details <package> [version]",
		Short: "Show the metadata of a package version",
		Long: `Show the registry metadata of a package.

With an explicit version the exact release is looked up. Without one the
latest version is shown (stable by default, see --prerelease).`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ver := ""
			if len(args) == 2 {
				ver = args[1]
			}
			return c.runDetails(cmd.Context(), args[0], ver, prerelease)
		},
	}

	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "consider prerelease versions for the latest lookup")

	return cmd
}

// runDetails looks up and prints one package's catalog metadata.
func (c *CLI) runDetails(ctx context.Context, id, ver string, prerelease bool) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	orch := c.newOrchestrator(st)

	var meta *registry.PackageMetadata
	if ver != "" {
		meta, err = orch.Metadata(ctx, id, ver)
	} else {
		meta, err = orch.LatestMetadata(ctx, id, filterFor(prerelease))
	}
	if err != nil {
		return err
	}
	if meta == nil {
		if ver != "" {
			return apperrors.New(apperrors.ErrCodePackageNotFound, "version %s of %s not found", ver, id)
		}
		return apperrors.New(apperrors.ErrCodePackageNotFound, "no matching version of %s found", id)
	}

	printPackageMetadata(meta)
	return nil
}

// printPackageMetadata renders one catalog entry as key-value lines.
func printPackageMetadata(meta *registry.PackageMetadata) {
	fmt.Println(StyleTitle.Render(meta.ID) + " " + StyleValue.Render(meta.Version))
	printNewline()

	if meta.IsPrerelease {
		printKeyValue("Stability", StyleWarning.Render("prerelease"))
	}
	if !meta.Published.IsZero() {
		printKeyValue("Published", meta.Published.Format("Jan 2, 2006"))
	}
	if meta.Authors != "" {
		printKeyValue("Authors", meta.Authors)
	}
	if len(meta.Tags) > 0 {
		printKeyValue("Tags", strings.Join(meta.Tags, ", "))
	}
	if meta.ProjectURL != "" {
		printKeyValue("Project", StyleLink.Render(meta.ProjectURL))
	}
	if meta.LicenseURL != "" {
		printKeyValue("License", StyleLink.Render(meta.LicenseURL))
	}
	if meta.Description != "" {
		printNewline()
		printDetail("%s", meta.Description)
	}
}

// truncate shortens s to at most n runes, appending an ellipsis when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}
