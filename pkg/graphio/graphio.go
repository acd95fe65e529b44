// Package graphio serializes resolved dependency forests.
//
// The JSON format is the canonical flat node/edge form used for files, API
// responses and cross-tool exchange; DOT feeds graphviz rendering. Both are
// deterministic: nodes and edges are deduplicated and sorted, so the same
// forest always serializes to the same bytes.
package graphio

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/unhoist/unhoist/pkg/resolve"
)

// Graph is the flat serialization of a resolved forest.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one distinct package occurrence.
type Node struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Root    bool   `json:"root,omitempty"` // top-level entry of the forest
}

// Edge is a directed dependency.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FromForest flattens a resolved forest into nodes and edges. Shared
// subtrees collapse onto single nodes; parallel edges collapse onto one.
func FromForest(roots []*resolve.Node) Graph {
	nodes := make(map[string]Node)
	edges := make(map[Edge]struct{})

	var stack []*resolve.Node
	for _, r := range roots {
		id := r.ID.String()
		nodes[id] = Node{ID: id, Name: r.ID.Name, Version: r.ID.Version, Root: true}
		stack = append(stack, r)
	}

	seen := make(map[string]bool)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := n.ID.String()
		if _, ok := nodes[id]; !ok {
			nodes[id] = Node{ID: id, Name: n.ID.Name, Version: n.ID.Version}
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		for _, c := range n.Children {
			cid := c.ID.String()
			if _, ok := nodes[cid]; !ok {
				nodes[cid] = Node{ID: cid, Name: c.ID.Name, Version: c.ID.Version}
			}
			edges[Edge{From: id, To: cid}] = struct{}{}
			stack = append(stack, c)
		}
	}

	out := Graph{
		Nodes: make([]Node, 0, len(nodes)),
		Edges: make([]Edge, 0, len(edges)),
	}
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, n)
	}
	for e := range edges {
		out.Edges = append(out.Edges, e)
	}

	sort.Slice(out.Nodes, func(i, j int) bool { return out.Nodes[i].ID < out.Nodes[j].ID })
	sort.Slice(out.Edges, func(i, j int) bool {
		if out.Edges[i].From != out.Edges[j].From {
			return out.Edges[i].From < out.Edges[j].From
		}
		return out.Edges[i].To < out.Edges[j].To
	})
	return out
}

// Write encodes the graph as indented JSON.
func Write(g Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}

// Marshal returns the graph as indented JSON bytes.
func Marshal(g Graph) ([]byte, error) {
	var buf strings.Builder
	if err := Write(g, &buf); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

// DOT renders the graph in graphviz dot syntax. Root nodes are drawn with a
// bold outline.
func DOT(g Graph) string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("\trankdir=LR;\n")
	b.WriteString("\tnode [shape=box, fontname=\"Helvetica\"];\n")
	for _, n := range g.Nodes {
		attrs := fmt.Sprintf("label=%s", dotQuote(n.ID))
		if n.Root {
			attrs += ", style=bold"
		}
		fmt.Fprintf(&b, "\t%s [%s];\n", dotQuote(n.ID), attrs)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "\t%s -> %s;\n", dotQuote(e.From), dotQuote(e.To))
	}
	b.WriteString("}\n")
	return b.String()
}

// dotQuote wraps an id in a quoted dot identifier.
func dotQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
