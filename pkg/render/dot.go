// Package render generates Graphviz visualizations of influence analysis
// results.
//
// The influence subgraph is small by construction (the selected entry, the
// peer target, and the discovered influencers), so a node-link diagram is
// rendered directly: determinants filled, transitive referrers dashed, and
// inconsistent referrers flagged. SVG output uses [github.com/goccy/go-graphviz]
// for in-process rendering with no external Graphviz binary.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/peertrace/pkg/influence"
	"github.com/matzehuels/peertrace/pkg/lockfile"
)

// ToDOT converts an influence result to Graphviz DOT format.
//
// Layout: referrers point down along their actual dependency edges toward
// the selected entry, which points at the peer dependency target, so chains
// like z -> y -> selected keep their intermediate hops. Determinants carry
// their declared range on an edge to the peer target; entries that produced
// a consistency diagnostic are outlined in red.
func ToDOT(g *lockfile.Graph, res *influence.Result) string {
	var buf bytes.Buffer
	buf.WriteString("digraph influence {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	members := map[string]bool{res.Entry: true}
	for _, det := range res.Determinants {
		members[det.Key] = true
	}
	for _, ref := range res.TransitiveReferrers {
		members[ref.Key] = true
	}
	for _, diag := range res.Diagnostics {
		members[diag.Entry] = true
	}

	selected, _ := g.Entry(res.Entry)
	fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=lightblue];\n", res.Entry, entryLabel(selected, res.Entry))

	targetID := "peer:" + res.Name
	fmt.Fprintf(&buf, "  %q [label=%q, shape=ellipse, fillcolor=lightyellow];\n", targetID, res.Name)
	fmt.Fprintf(&buf, "  %q -> %q [style=dashed, label=\"peer\"];\n", res.Entry, targetID)
	buf.WriteString("\n")

	for _, det := range res.Determinants {
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=palegreen];\n", det.Key, det.DisplayLabel())
		label := ""
		if dep, ok := det.Dep(res.Name); ok {
			label = dep.Spec
		}
		fmt.Fprintf(&buf, "  %q -> %q [label=%q, style=dashed];\n", det.Key, targetID, label)
		writeMemberEdges(&buf, det, members, "")
	}
	for _, ref := range res.TransitiveReferrers {
		fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,filled,dashed\", fillcolor=lightgrey];\n", ref.Key, ref.DisplayLabel())
		writeMemberEdges(&buf, ref, members, "style=dashed")
	}
	for _, diag := range res.Diagnostics {
		entry, ok := g.Entry(diag.Entry)
		label := diag.Entry
		if ok {
			label = entry.DisplayLabel()
		}
		fmt.Fprintf(&buf, "  %q [label=%q, color=red, fontcolor=red];\n", diag.Entry, label)
		if ok {
			writeMemberEdges(&buf, entry, members, "style=dotted, color=red")
		} else {
			fmt.Fprintf(&buf, "  %q -> %q [style=dotted, color=red];\n", diag.Entry, res.Entry)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// writeMemberEdges draws the entry's forward dependency edges that land on
// other subgraph members. Every influencer was reached through a referrer
// back-edge from a member, so at least one such forward edge exists.
func writeMemberEdges(buf *bytes.Buffer, e *lockfile.Entry, members map[string]bool, attrs string) {
	for _, dep := range e.Dependencies {
		if dep.To == "" || !members[dep.To] {
			continue
		}
		if attrs == "" {
			fmt.Fprintf(buf, "  %q -> %q;\n", e.Key, dep.To)
		} else {
			fmt.Fprintf(buf, "  %q -> %q [%s];\n", e.Key, dep.To, attrs)
		}
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

func entryLabel(e *lockfile.Entry, fallback string) string {
	if e == nil {
		return fallback
	}
	label := e.DisplayLabel()
	// Peer-suffixed keys repeat the resolution context; keep labels short.
	if i := strings.IndexByte(label, '('); i > 0 {
		label = label[:i]
	}
	return label
}
