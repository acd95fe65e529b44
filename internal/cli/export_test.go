package cli

import (
	"testing"

	"github.com/unhoist/unhoist/pkg/resolve"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"graph.dot", "dot"},
		{"graph.gv", "dot"},
		{"graph.SVG", "svg"},
		{"graph.png", "png"},
		{"graph.json", "json"},
		{"graph", "json"},
		{"", "json"},
	}
	for _, tt := range tests {
		if got := formatFromPath(tt.path); got != tt.want {
			t.Errorf("formatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestCountNodes(t *testing.T) {
	leaf := &resolve.Node{ID: resolve.ModuleID{Name: "c", Version: "1.0.0"}}
	forest := []*resolve.Node{
		{
			ID: resolve.ModuleID{Name: "a", Version: "1.0.0"},
			Children: []*resolve.Node{
				{ID: resolve.ModuleID{Name: "b", Version: "1.0.0"}, Children: []*resolve.Node{leaf}},
			},
		},
		{ID: resolve.ModuleID{Name: "d", Version: "2.0.0"}},
	}
	if got := countNodes(forest); got != 4 {
		t.Errorf("countNodes = %d, want 4", got)
	}
	if got := countNodes(nil); got != 0 {
		t.Errorf("countNodes(nil) = %d, want 0", got)
	}
}
