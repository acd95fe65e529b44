package listing

import (
	"errors"
	"strings"
	"testing"
)

func TestParseBareForest(t *testing.T) {
	input := `[
		{"name": "lodash@4.0.0", "color": "bold", "children": [
			{"name": "isobject@1.0.0", "children": []}
		]},
		{"name": "lodash", "children": null},
		{"name": "minimist@1.2.8"}
	]`

	forest, err := ParseBytes([]byte(input))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if len(forest) != 3 {
		t.Fatalf("got %d roots, want 3", len(forest))
	}

	root := forest[0]
	if root.Label != "lodash@4.0.0" || root.State != Expanded || root.Marker != "bold" {
		t.Errorf("root = %+v, want expanded bold lodash@4.0.0", root)
	}
	if len(root.Children) != 1 || root.Children[0].State != Leaf {
		t.Errorf("root children = %+v, want one leaf", root.Children)
	}
	if forest[1].State != Stub {
		t.Errorf("null children should parse as stub, got %v", forest[1].State)
	}
	if forest[2].State != Stub {
		t.Errorf("absent children should parse as stub, got %v", forest[2].State)
	}
}

func TestParseEnvelope(t *testing.T) {
	input := `{"type":"tree","data":{"trees":[{"name":"react@18.2.0","children":[]}]}}`

	forest, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(forest) != 1 || forest[0].Label != "react@18.2.0" || forest[0].State != Leaf {
		t.Errorf("forest = %+v, want single react leaf", forest)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "yarn list v1.22"},
		{"object without envelope", `{"name":"x"}`},
		{"node without name", `[{"children":[]}]`},
		{"nested node without name", `[{"name":"a@1.0.0","children":[{"children":[]}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.input))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("ParseBytes(%q) err = %v, want ErrMalformed", tt.input, err)
			}
		})
	}
}

func TestChildStateString(t *testing.T) {
	if Stub.String() != "stub" || Leaf.String() != "leaf" || Expanded.String() != "expanded" {
		t.Error("ChildState names changed")
	}
}
