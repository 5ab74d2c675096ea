package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/peertrace/pkg/influence"
	"github.com/matzehuels/peertrace/pkg/lockfile"
	"github.com/matzehuels/peertrace/pkg/pipeline"
)

// traceOpts holds the command-line flags for the trace command.
type traceOpts struct {
	format   string // text, json, dot, or svg
	output   string // output file path (stdout if empty)
	resolved string // resolved version override for constraint checks
	noCache  bool   // bypass the parsed-graph cache
}

// traceCommand creates the trace command: the influencer search for one
// peer dependency edge.
func (c *CLI) traceCommand() *cobra.Command {
	opts := traceOpts{format: pipeline.FormatText}

	cmd := &cobra.Command{
		Use:   "trace <lockfile> <entry> <dependency>",
		Short: "Find the packages that influence a peer dependency version",
		Long: `Trace a peer dependency edge back through referrers to its influencers.

Determinants declare the dependency directly and fix its version.
Transitive referrers pass the peer constraint through without declaring it.

The entry is a lockfile key, e.g. "react-redux@8.1.3(react@18.2.0)" for
pnpm or a package name for importers.

Examples:
  peertrace trace pnpm-lock.yaml 'react-redux@8.1.3(react@18.2.0)' react
  peertrace trace package-lock.json my-app react --format json
  peertrace trace graph.json 'use-sync-external-store@1.2.0(react@18.2.0)' react -o trace.svg --format svg`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !pipeline.ValidFormats[opts.format] {
				return fmt.Errorf("invalid format: %s (valid: text, json, dot, svg)", opts.format)
			}

			ctx := withLogger(cmd.Context(), c.Logger)
			logger := loggerFromContext(ctx)
			runner := c.newRunner(opts.noCache)

			loaded, err := runner.Load(ctx, args[0])
			if err != nil {
				return err
			}
			logger.Debugf("Loaded %d entries (%s, cached=%v)", loaded.Graph.Len(), loaded.ParserType, loaded.Cached)

			prog := newProgress(logger)
			res, err := runner.Analyze(ctx, loaded, args[1], args[2])
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Found %d determinants and %d transitive referrers",
				len(res.Determinants), len(res.TransitiveReferrers)))

			resolved := opts.resolved
			if resolved == "" {
				resolved = resolvedVersion(loaded.Graph, args[1], args[2])
			}

			switch opts.format {
			case pipeline.FormatText:
				printTrace(loaded.Graph, res, resolved)
				return nil
			case pipeline.FormatJSON:
				return writeTraceJSON(res, resolved, opts.output)
			case pipeline.FormatDOT:
				return writeOutput(opts.output, []byte(runner.RenderDOT(ctx, loaded.Graph, res)))
			case pipeline.FormatSVG:
				svg, err := runner.RenderSVG(ctx, loaded.Graph, res)
				if err != nil {
					return err
				}
				return writeOutput(opts.output, svg)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: text, json, dot, svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&opts.resolved, "resolved", "", "resolved version for constraint checks (default: from the edge target)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the parsed-graph cache")

	return cmd
}

// resolvedVersion looks up the version the traced edge actually resolved to.
// Returns empty when the edge target is unresolved (e.g. workspace links).
func resolvedVersion(g *lockfile.Graph, entryKey, depName string) string {
	e, ok := g.Entry(entryKey)
	if !ok {
		return ""
	}
	dep, ok := e.Dep(depName)
	if !ok || dep.To == "" {
		return ""
	}
	target, ok := g.Entry(dep.To)
	if !ok {
		return ""
	}
	return target.Version
}

// printTrace renders the text report: determinants with their declared
// ranges, transitive referrers, and any consistency diagnostics.
func printTrace(g *lockfile.Graph, res *influence.Result, resolved string) {
	printNewline()
	fmt.Println(StyleTitle.Render("Influencers of ") + StyleHighlight.Render(res.Name) +
		StyleTitle.Render(" for ") + StyleHighlight.Render(res.Entry))
	if resolved != "" {
		printDetail("resolved to %s", resolved)
	}
	printNewline()

	if len(res.Determinants) == 0 && len(res.TransitiveReferrers) == 0 {
		printInfo("No referrers found; nothing constrains this edge from above")
		return
	}

	constraints := map[string]influence.Constraint{}
	if resolved != "" {
		for _, con := range res.Constraints(resolved) {
			constraints[con.Entry] = con
		}
	}

	fmt.Println(StyleSuccess.Render("Determinants") + StyleDim.Render(" (declare the dependency, fix its version)"))
	if len(res.Determinants) == 0 {
		printDetail("none")
	}
	for _, e := range res.Determinants {
		line := "  " + StyleValue.Render(e.DisplayLabel())
		if d, ok := e.Dep(res.Name); ok {
			line += StyleDim.Render("  wants ") + StyleHighlight.Render(d.Spec)
		}
		if con, ok := constraints[e.Key]; ok && con.Known {
			if con.Satisfied {
				line += " " + styleIconSuccess.Render(iconSuccess)
			} else {
				line += " " + styleIconError.Render(iconError+" unsatisfied")
			}
		}
		fmt.Println(line)
	}
	printNewline()

	fmt.Println(StyleValue.Render("Transitive referrers") + StyleDim.Render(" (pass the constraint through)"))
	if len(res.TransitiveReferrers) == 0 {
		printDetail("none")
	}
	for _, e := range res.TransitiveReferrers {
		fmt.Println("  " + StyleDim.Render(e.DisplayLabel()))
	}

	if len(res.Diagnostics) > 0 {
		printNewline()
		for _, d := range res.Diagnostics {
			printWarning("%s", d)
		}
	}
}

// traceDoc is the JSON form of a trace report.
type traceDoc struct {
	Entry               string                 `json:"entry"`
	Dependency          string                 `json:"dependency"`
	Resolved            string                 `json:"resolved,omitempty"`
	Determinants        []traceEntry           `json:"determinants"`
	TransitiveReferrers []traceEntry           `json:"transitive_referrers"`
	Diagnostics         []influence.Diagnostic `json:"diagnostics,omitempty"`
	Constraints         []influence.Constraint `json:"constraints,omitempty"`
}

type traceEntry struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Spec    string `json:"spec,omitempty"`
}

func writeTraceJSON(res *influence.Result, resolved, path string) error {
	doc := traceDoc{
		Entry:               res.Entry,
		Dependency:          res.Name,
		Resolved:            resolved,
		Determinants:        make([]traceEntry, 0, len(res.Determinants)),
		TransitiveReferrers: make([]traceEntry, 0, len(res.TransitiveReferrers)),
		Diagnostics:         res.Diagnostics,
	}
	for _, e := range res.Determinants {
		te := traceEntry{Key: e.Key, Name: e.Name, Version: e.Version}
		if d, ok := e.Dep(res.Name); ok {
			te.Spec = d.Spec
		}
		doc.Determinants = append(doc.Determinants, te)
	}
	for _, e := range res.TransitiveReferrers {
		doc.TransitiveReferrers = append(doc.TransitiveReferrers, traceEntry{Key: e.Key, Name: e.Name, Version: e.Version})
	}
	if resolved != "" {
		doc.Constraints = res.Constraints(resolved)
	}

	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(path string, data []byte) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := out.Write(data); err != nil {
		return err
	}
	if path != "" {
		printFile(path)
	}
	return nil
}
