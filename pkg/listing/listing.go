// Package listing models the raw output of `yarn list --json`.
//
// The listing is a forest of nodes in which shared subtrees are printed once
// and referenced elsewhere by a bare stub, so a node's children field carries
// three distinct meanings:
//
//   - absent or null: the node is a stub pointing at a subtree printed elsewhere
//   - empty array: the node genuinely has no dependencies
//   - non-empty array: the node's subtree is printed inline
//
// The distinction is load-bearing for reconstruction (see package resolve), so
// it is kept as a closed ChildState enum rather than a nullable slice.
package listing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed is returned by Parse when the listing is not structurally
// valid JSON in one of the accepted shapes. Use errors.Is to check for it.
var ErrMalformed = errors.New("malformed listing")

// MarkerDirect is the marker yarn attaches to directly declared dependencies
// at the top level of the listing. All other top-level entries are packages
// already shown elsewhere or hoisted transitives.
const MarkerDirect = "bold"

// ChildState classifies a node's children field.
type ChildState int

const (
	// Stub marks a node whose subtree is printed elsewhere in the forest.
	Stub ChildState = iota
	// Leaf marks a node with an explicitly empty dependency list.
	Leaf
	// Expanded marks a node whose subtree is printed inline.
	Expanded
)

// String returns the state name for logs and test failure messages.
func (s ChildState) String() string {
	switch s {
	case Stub:
		return "stub"
	case Leaf:
		return "leaf"
	case Expanded:
		return "expanded"
	default:
		return fmt.Sprintf("ChildState(%d)", int(s))
	}
}

// RawNode is one entry of the listing forest.
//
// Label is either a bare package name (typical for stubs) or a name@version
// literal. Children is only meaningful when State is Expanded. Marker carries
// the listing's presentational tag; MarkerDirect identifies directly declared
// top-level entries.
type RawNode struct {
	Label    string
	State    ChildState
	Children []RawNode
	Marker   string
}

// wireNode is the JSON shape yarn emits for one tree entry. The pointer slice
// distinguishes a missing/null children field from an empty array.
type wireNode struct {
	Name     string      `json:"name"`
	Children *[]wireNode `json:"children"`
	Color    string      `json:"color"`
}

// envelope is the NDJSON record wrapper yarn uses on stdout. Only records of
// type "tree" carry the forest.
type envelope struct {
	Type string `json:"type"`
	Data struct {
		Trees []wireNode `json:"trees"`
	} `json:"data"`
}

// Parse reads a listing and returns the raw forest in input order.
//
// Two input shapes are accepted: a bare JSON array of nodes, or the
// `{"type":"tree","data":{"trees":[...]}}` envelope that `yarn list --json`
// prints. Any structural problem fails the whole parse with an error wrapping
// ErrMalformed; there is no partial result.
func Parse(r io.Reader) ([]RawNode, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes is Parse over an in-memory listing.
func ParseBytes(data []byte) ([]RawNode, error) {
	var wire []wireNode

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Type == "tree" {
		wire = env.Data.Trees
	} else if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	forest := make([]RawNode, 0, len(wire))
	for i, w := range wire {
		n, err := fromWire(w)
		if err != nil {
			return nil, fmt.Errorf("%w: root %d: %v", ErrMalformed, i, err)
		}
		forest = append(forest, n)
	}
	return forest, nil
}

func fromWire(w wireNode) (RawNode, error) {
	if w.Name == "" {
		return RawNode{}, errors.New("node without name")
	}

	n := RawNode{Label: w.Name, Marker: w.Color}
	switch {
	case w.Children == nil:
		n.State = Stub
	case len(*w.Children) == 0:
		n.State = Leaf
	default:
		n.State = Expanded
		n.Children = make([]RawNode, 0, len(*w.Children))
		for _, cw := range *w.Children {
			c, err := fromWire(cw)
			if err != nil {
				return RawNode{}, fmt.Errorf("under %s: %w", w.Name, err)
			}
			n.Children = append(n.Children, c)
		}
	}
	return n, nil
}
