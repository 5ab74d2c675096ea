package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/peertrace/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	format  string // dot or svg; inferred from output extension when empty
	output  string // output file path (stdout if empty)
	noCache bool
}

// renderCommand creates the render command: a trace rendered as a Graphviz
// graph instead of a report.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{}

	cmd := &cobra.Command{
		Use:   "render <lockfile> <entry> <dependency>",
		Short: "Render a peer dependency trace as DOT or SVG",
		Long: `Render the influencer subgraph of a peer dependency edge.

The selected entry, its determinants, transitive referrers, and any
inconsistent referrers are drawn with distinct shapes and colors. SVG
rendering happens in-process; no graphviz installation is required.

Examples:
  peertrace render pnpm-lock.yaml 'react-redux@8.1.3(react@18.2.0)' react -o trace.svg
  peertrace render package-lock.json my-app react --format dot`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := opts.format
			if format == "" {
				format = formatFromExt(opts.output)
			}
			if format != pipeline.FormatDOT && format != pipeline.FormatSVG {
				return fmt.Errorf("invalid render format: %s (valid: dot, svg)", format)
			}

			ctx := withLogger(cmd.Context(), c.Logger)
			logger := loggerFromContext(ctx)
			runner := c.newRunner(opts.noCache)

			loaded, err := runner.Load(ctx, args[0])
			if err != nil {
				return err
			}

			res, err := runner.Analyze(ctx, loaded, args[1], args[2])
			if err != nil {
				return err
			}

			prog := newProgress(logger)
			var data []byte
			if format == pipeline.FormatDOT {
				data = []byte(runner.RenderDOT(ctx, loaded.Graph, res))
			} else {
				data, err = runner.RenderSVG(ctx, loaded.Graph, res)
				if err != nil {
					return err
				}
			}
			prog.done(fmt.Sprintf("Rendered %d influencers as %s",
				len(res.Determinants)+len(res.TransitiveReferrers), format))

			return writeOutput(opts.output, data)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: dot, svg (default: from output extension)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the parsed-graph cache")

	return cmd
}

// formatFromExt infers the render format from the output file extension.
// Stdout defaults to DOT since SVG bytes are not terminal-friendly.
func formatFromExt(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		return pipeline.FormatSVG
	}
	return pipeline.FormatDOT
}
