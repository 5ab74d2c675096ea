package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/peertrace/pkg/lockfile"
)

// parseOpts holds the command-line flags for the parse command.
type parseOpts struct {
	output  string // output file path (stdout if empty)
	noCache bool   // bypass the parsed-graph cache
}

// parseCommand creates the parse command. It detects the lockfile format,
// parses it into a graph, and writes the graph document as JSON.
func (c *CLI) parseCommand() *cobra.Command {
	opts := parseOpts{}

	cmd := &cobra.Command{
		Use:   "parse <lockfile>",
		Short: "Parse a lockfile into a dependency graph document",
		Long: `Parse a pnpm-lock.yaml or package-lock.json into a graph document.

The document captures entries, dependency edges (including peer edges and
transitive peer sets), and the referrer index. It can be fed back into
trace and render, which skips re-parsing large lockfiles.

Examples:
  peertrace parse pnpm-lock.yaml
  peertrace parse package-lock.json -o graph.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			logger := loggerFromContext(ctx)

			runner := c.newRunner(opts.noCache)

			prog := newProgress(logger)
			loaded, err := runner.Load(ctx, args[0])
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Parsed %d entries with %d edges (%s)",
				loaded.Graph.Len(), loaded.Graph.EdgeCount(), loaded.ParserType))

			out, err := openOutput(opts.output)
			if err != nil {
				return err
			}
			defer out.Close()

			if err := lockfile.Export(loaded.Graph, out); err != nil {
				return err
			}

			if opts.output != "" {
				printSuccess("Parsed %s", args[0])
				printStats(loaded.Graph.Len(), loaded.Graph.EdgeCount(), loaded.Cached)
				printFile(opts.output)
				printNextStep("Trace a peer dependency", fmt.Sprintf("peertrace trace %s <entry> <dep>", opts.output))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the parsed-graph cache")

	return cmd
}

// nopCloser wraps an io.Writer with a no-op Close method.
// It is used to make os.Stdout compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path.
// If path is empty, it returns os.Stdout wrapped in nopCloser.
// Otherwise, it creates the file at path, overwriting if it exists.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
