// Package resolve reconstructs the full dependency forest from a deduplicated
// listing.
//
// `yarn list` compresses repeated subtrees: a shared subtree is printed once in
// expanded form and referenced everywhere else by a bare stub. Reconstruction
// undoes that compression using only level-relative context, terminates on
// circular dependency graphs, and is idempotent: resolving the same raw forest
// twice yields structurally identical results.
//
// The algorithm runs in two passes. The index pass walks the whole forest
// breadth-first and records every expanded node under its own label; when two
// expanded occurrences share a label the later-visited one wins. The
// reconstruction pass walks from a synthetic root with an explicit worklist,
// inferring each node's version from its expanded siblings, substituting stub
// children with their indexed expansion, and cutting any edge that would close
// a cycle.
package resolve

import (
	"strings"

	"github.com/unhoist/unhoist/pkg/listing"
)

// ModuleID identifies one package occurrence as a (name, version) pair.
type ModuleID struct {
	Name    string
	Version string
}

// ParseModuleID splits a listing label on the last "@". A leading "@" belongs
// to the scope, not the version, so "@babel/core" parses as a bare name while
// "@babel/core@7.21.0" carries a version.
func ParseModuleID(label string) ModuleID {
	idx := strings.LastIndex(label, "@")
	if idx <= 0 {
		return ModuleID{Name: label}
	}
	return ModuleID{Name: label[:idx], Version: label[idx+1:]}
}

// String re-joins the id as name@version, or just the name when no version is
// known.
func (id ModuleID) String() string {
	if id.Version == "" {
		return id.Name
	}
	return id.Name + "@" + id.Version
}

// MarshalText lets ModuleID serialize as its string form in JSON trees.
func (id ModuleID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// Node is one reconstructed package occurrence. No node's id appears among its
// own transitive ancestors: cycles are cut during reconstruction, never
// represented.
type Node struct {
	ID       ModuleID `json:"id"`
	Children []*Node  `json:"children,omitempty"`
}

// Resolve reconstructs the forest. The result is ordered and aligned 1:1 with
// the raw roots: top-level entries start from an empty ancestor path and can
// therefore never be cycle-cut.
func Resolve(forest []listing.RawNode) []*Node {
	index := buildIndex(forest)
	root := &Node{}

	// Worklist frames. A visit frame resolves one raw node under parent with
	// the version context of its sibling level; an exit frame pops the node's
	// id off the ancestor path once its whole subtree is done.
	type frame struct {
		raw    listing.RawNode
		parent *Node
		vctx   map[string]string
		exit   bool
		exitID ModuleID
	}

	onPath := make(map[ModuleID]struct{})
	stack := make([]frame, 0, len(forest))

	// The synthetic root's effective children are the top-level entries, so
	// their version context is seeded from the expanded entries among them.
	topCtx := versionContext(forest)
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, frame{raw: forest[i], parent: root, vctx: topCtx})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.exit {
			delete(onPath, f.exitID)
			continue
		}

		id := resolveID(f.raw, f.vctx)
		if _, cyclic := onPath[id]; cyclic {
			// Closing edge of a cycle: drop the node and its subtree.
			continue
		}

		node := &Node{ID: id}
		f.parent.Children = append(f.parent.Children, node)

		children := effectiveChildren(f.raw, id, index)
		if len(children) == 0 {
			continue
		}

		onPath[id] = struct{}{}
		stack = append(stack, frame{exit: true, exitID: id})

		childCtx := versionContext(children)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{raw: children[i], parent: node, vctx: childCtx})
		}
	}

	return root.Children
}

// resolveID computes a node's true id. Within one sibling level at most one
// version of a name is actually installed, so the version inferred from an
// expanded sibling wins over whatever is embedded in the node's own label.
func resolveID(raw listing.RawNode, vctx map[string]string) ModuleID {
	id := ParseModuleID(raw.Label)
	if v, ok := vctx[id.Name]; ok {
		id.Version = v
	}
	return id
}

// effectiveChildren returns the children to recurse into: an expanded node's
// own children, a stub's indexed expansion, or nothing. A stub with no index
// entry degenerates to a leaf rather than failing.
func effectiveChildren(raw listing.RawNode, id ModuleID, index map[string]listing.RawNode) []listing.RawNode {
	switch raw.State {
	case listing.Expanded:
		return raw.Children
	case listing.Stub:
		if repl, ok := index[id.String()]; ok {
			return repl.Children
		}
	}
	return nil
}

// versionContext maps bare names to versions for one sibling level. Only
// expanded siblings contribute: a stub's label never seeds context for the
// level below it.
func versionContext(level []listing.RawNode) map[string]string {
	var vctx map[string]string
	for _, n := range level {
		if n.State != listing.Expanded {
			continue
		}
		id := ParseModuleID(n.Label)
		if id.Version == "" {
			continue
		}
		if vctx == nil {
			vctx = make(map[string]string)
		}
		vctx[id.Name] = id.Version
	}
	return vctx
}

// buildIndex records every expanded node keyed by its own label. The walk is a
// breadth-first queue over the roots in input order, which makes the
// last-write-wins behavior on duplicate labels deterministic: of two expanded
// occurrences sharing a label, the one deeper in the forest (or later among
// equals) overwrites the other.
func buildIndex(forest []listing.RawNode) map[string]listing.RawNode {
	index := make(map[string]listing.RawNode)
	queue := append([]listing.RawNode(nil), forest...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.State == listing.Expanded {
			index[n.Label] = n
		}
		queue = append(queue, n.Children...)
	}
	return index
}

// FilterDeclared narrows resolved roots to the declared scope: entries whose
// raw marker names them directly declared and whose id is actually installed.
// Everything else (already-shown pointers, unmet optional or platform
// dependencies) is dropped from the top level, though it remains reachable as
// a transitive child of retained roots.
//
// raw and resolved must be the aligned input and output of Resolve.
func FilterDeclared(raw []listing.RawNode, resolved []*Node, installed func(ModuleID) bool) []*Node {
	kept := make([]*Node, 0, len(resolved))
	for i, node := range resolved {
		if i >= len(raw) {
			break
		}
		if raw[i].Marker != listing.MarkerDirect {
			continue
		}
		if installed != nil && !installed(node.ID) {
			continue
		}
		kept = append(kept, node)
	}
	return kept
}
