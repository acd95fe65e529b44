package resolve

import (
	"reflect"
	"testing"

	"github.com/unhoist/unhoist/pkg/listing"
)

func mustParse(t *testing.T, input string) []listing.RawNode {
	t.Helper()
	forest, err := listing.ParseBytes([]byte(input))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	return forest
}

// flatten renders a resolved forest as "id(children...)" strings so tests can
// compare whole structures at a glance.
func flatten(nodes []*Node) string {
	out := ""
	for i, n := range nodes {
		if i > 0 {
			out += " "
		}
		out += n.ID.String()
		if len(n.Children) > 0 {
			out += "(" + flatten(n.Children) + ")"
		}
	}
	return out
}

func TestParseModuleID(t *testing.T) {
	tests := []struct {
		label   string
		name    string
		version string
	}{
		{"lodash@4.0.0", "lodash", "4.0.0"},
		{"lodash", "lodash", ""},
		{"@babel/core@7.21.0", "@babel/core", "7.21.0"},
		{"@babel/core", "@babel/core", ""},
		{"minimist@^1.2.0", "minimist", "^1.2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			id := ParseModuleID(tt.label)
			if id.Name != tt.name || id.Version != tt.version {
				t.Errorf("ParseModuleID(%q) = %+v, want {%s %s}", tt.label, id, tt.name, tt.version)
			}
		})
	}
}

func TestResolveStubFromSiblingContext(t *testing.T) {
	// The classic hoisting shape: lodash is printed expanded once at the top
	// level, and a bare stub at the same level must pick up its version from
	// the expanded sibling and its subtree from the index.
	forest := mustParse(t, `[
		{"name": "lodash@4.0.0", "color": "bold", "children": [
			{"name": "isobject@1.0.0", "children": []}
		]},
		{"name": "lodash", "children": null}
	]`)

	got := flatten(Resolve(forest))
	want := "lodash@4.0.0(isobject@1.0.0) lodash@4.0.0(isobject@1.0.0)"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveStubNestedDeeper(t *testing.T) {
	// A stub nested inside another package, carrying the full name@version
	// label, expands via the replacement index.
	forest := mustParse(t, `[
		{"name": "lodash@4.0.0", "color": "bold", "children": [
			{"name": "isobject@1.0.0", "children": []}
		]},
		{"name": "express@4.18.0", "color": "bold", "children": [
			{"name": "lodash@4.0.0"}
		]}
	]`)

	resolved := Resolve(forest)
	got := flatten(resolved)
	want := "lodash@4.0.0(isobject@1.0.0) express@4.18.0(lodash@4.0.0(isobject@1.0.0))"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}

	// Every stub of the same id expands to a structurally identical subtree.
	if !reflect.DeepEqual(resolved[0], resolved[1].Children[0]) {
		t.Error("stub expansion differs from the expanded occurrence")
	}
}

func TestResolveSiblingContextWinsOverLabel(t *testing.T) {
	// Within one sibling level only one version of a name is installed, so
	// the version inferred from the expanded sibling overrides the version
	// embedded in the stub's own label.
	forest := mustParse(t, `[
		{"name": "z@3.0.0", "color": "bold", "children": [
			{"name": "w@1.0.0", "children": []}
		]},
		{"name": "z@9.9.9", "children": null}
	]`)

	got := flatten(Resolve(forest))
	want := "z@3.0.0(w@1.0.0) z@3.0.0(w@1.0.0)"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveUnresolvedStubBecomesLeaf(t *testing.T) {
	forest := mustParse(t, `[
		{"name": "a@1.0.0", "color": "bold", "children": [
			{"name": "ghost@2.0.0"}
		]}
	]`)

	got := flatten(Resolve(forest))
	want := "a@1.0.0(ghost@2.0.0)"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveCutsCycle(t *testing.T) {
	// a depends on b, and b's subtree points back at a via a stub. The cyclic
	// edge must be absent and reconstruction must terminate.
	forest := mustParse(t, `[
		{"name": "a@1.0.0", "color": "bold", "children": [
			{"name": "b@1.0.0", "children": [
				{"name": "a@1.0.0"}
			]}
		]}
	]`)

	got := flatten(Resolve(forest))
	want := "a@1.0.0(b@1.0.0)"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveCycleThroughReplacementIndex(t *testing.T) {
	// The cycle closes only after stub substitution: the stub for b expands
	// to a subtree containing a stub for a.
	forest := mustParse(t, `[
		{"name": "a@1.0.0", "color": "bold", "children": [
			{"name": "b@1.0.0"}
		]},
		{"name": "b@1.0.0", "children": [
			{"name": "a@1.0.0"}
		]}
	]`)

	got := flatten(Resolve(forest))
	want := "a@1.0.0(b@1.0.0) b@1.0.0(a@1.0.0)"
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveIdempotent(t *testing.T) {
	forest := mustParse(t, `[
		{"name": "a@1.0.0", "color": "bold", "children": [
			{"name": "b@1.0.0", "children": [{"name": "a@1.0.0"}]},
			{"name": "c@2.0.0"}
		]},
		{"name": "c@2.0.0", "children": [{"name": "b@1.0.0"}]}
	]`)

	first := Resolve(forest)
	second := Resolve(forest)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Resolve not idempotent:\nfirst:  %s\nsecond: %s", flatten(first), flatten(second))
	}
}

func TestResolveIndexLastWriteWins(t *testing.T) {
	// Two expanded occurrences share the label p@1.0.0. The breadth-first
	// index pass visits the deeper one later, so its children win for every
	// stub of that id.
	forest := mustParse(t, `[
		{"name": "p@1.0.0", "color": "bold", "children": [
			{"name": "c1@1.0.0", "children": []}
		]},
		{"name": "q@1.0.0", "color": "bold", "children": [
			{"name": "p@1.0.0", "children": [
				{"name": "c2@1.0.0", "children": []}
			]}
		]},
		{"name": "p", "children": null}
	]`)

	resolved := Resolve(forest)
	got := flatten(resolved[2:])
	want := "p@1.0.0(c2@1.0.0)"
	if got != want {
		t.Errorf("stub expansion = %q, want %q (deeper occurrence should win)", got, want)
	}
}

func TestFilterDeclared(t *testing.T) {
	forest := mustParse(t, `[
		{"name": "a@1.0.0", "color": "bold", "children": []},
		{"name": "b@2.0.0", "children": []},
		{"name": "c@3.0.0", "color": "bold", "children": []}
	]`)
	resolved := Resolve(forest)

	installed := map[string]bool{"a@1.0.0": true, "b@2.0.0": true}
	kept := FilterDeclared(forest, resolved, func(id ModuleID) bool {
		return installed[id.String()]
	})

	// b is installed but not marked direct; c is direct but not installed.
	got := flatten(kept)
	if got != "a@1.0.0" {
		t.Errorf("FilterDeclared = %q, want %q", got, "a@1.0.0")
	}
}

func TestFilterDeclaredNilInstalled(t *testing.T) {
	forest := mustParse(t, `[
		{"name": "a@1.0.0", "color": "bold", "children": []},
		{"name": "b@2.0.0", "children": []}
	]`)
	kept := FilterDeclared(forest, Resolve(forest), nil)
	if flatten(kept) != "a@1.0.0" {
		t.Errorf("nil installed predicate should only filter by marker, got %q", flatten(kept))
	}
}
