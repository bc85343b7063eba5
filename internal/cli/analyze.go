package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/depscout/depscout/pkg/analyze"
)

// analyzeOpts holds the command-line flags for the analyze command.
type analyzeOpts struct {
	jsonOut     bool   // emit JSON instead of the table
	interactive bool   // browse results in the TUI
	output      string // JSON output file path (stdout if empty)
}

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var opts analyzeOpts

	cmd := &cobra.Command{
		Use:   "analyze <project-or-solution>",
		Short: "Resolve latest versions for every declared dependency",
		Long: `Analyze the package references of a .NET project or solution.

The command accepts a .csproj, .fsproj or .vbproj project file, or a .sln
solution whose member projects are analyzed together. Every declared package
is resolved against the registry for its latest stable and latest overall
version. Duplicate references across projects are reported once.

Examples:
  depscout analyze App.csproj
  depscout analyze src/App.sln --json
  depscout analyze src/App.sln -i`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAnalyze(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit results as JSON")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse results interactively")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write JSON results to a file (implies --json)")

	return cmd
}

// runAnalyze resolves the manifest's dependencies and prints the results.
func (c *CLI) runAnalyze(ctx context.Context, path string, opts analyzeOpts) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	analyzer := c.newAnalyzer(c.newOrchestrator(st))

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Analyzing %s...", path))
	spinner.Start()
	deps, err := analyzer.Analyze(ctx, path)
	if err != nil {
		spinner.StopWithError("Analysis failed")
		return err
	}
	spinner.Stop()

	switch {
	case opts.jsonOut || opts.output != "":
		return writeDependencyJSON(deps, opts.output)
	case opts.interactive:
		return browseDependencies(deps)
	default:
		if len(deps) == 0 {
			printInfo("No dependencies found in %s", path)
			return nil
		}
		fmt.Println(renderDependencyTable(deps))
		printDependencySummary(deps)
		return nil
	}
}

// writeDependencyJSON writes results as indented JSON to path (or stdout
// if empty).
func writeDependencyJSON(deps []analyze.Dependency, path string) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(deps)
}

// nopCloser wraps an io.Writer with a no-op Close method so os.Stdout
// can stand in for a file.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path.
// If path is empty, it returns os.Stdout wrapped in nopCloser.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
