package npm

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/unhoist/unhoist/pkg/depgraph"
	"github.com/unhoist/unhoist/pkg/metastore"
	"github.com/unhoist/unhoist/pkg/resolve"
)

func testIndex() Index {
	return Index{
		"lodash@4.0.0": &Manifest{
			Name: "lodash", Version: "4.0.0",
			Description: "utility belt", License: "MIT",
		},
		"lodash@3.10.1": &Manifest{Name: "lodash", Version: "3.10.1"},
		"@babel/core@7.21.0": &Manifest{
			Name: "@babel/core", Version: "7.21.0",
		},
	}
}

func node(label string, children ...*resolve.Node) *resolve.Node {
	return &resolve.Node{ID: resolve.ParseModuleID(label), Children: children}
}

func TestIdentifierFor(t *testing.T) {
	h := NewHandler(testIndex(), nil, nil)

	tests := []struct {
		label string
		want  depgraph.Identifier
	}{
		{"lodash@4.0.0", depgraph.Identifier{Type: "NPM", Name: "lodash", Version: "4.0.0"}},
		{"@babel/core@7.21.0", depgraph.Identifier{Type: "NPM", Namespace: "@babel", Name: "core", Version: "7.21.0"}},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := h.IdentifierFor(node(tt.label)); got != tt.want {
				t.Errorf("IdentifierFor = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDependenciesForDropsUninstalled(t *testing.T) {
	h := NewHandler(testIndex(), nil, nil)

	n := node("@babel/core@7.21.0",
		node("lodash@4.0.0"),
		node("fsevents@2.3.2"), // optional platform dep, not materialized
	)

	deps := h.DependenciesFor(n)
	if len(deps) != 1 || deps[0].ID.Name != "lodash" {
		t.Errorf("DependenciesFor = %v, want only lodash", deps)
	}
}

func TestLinkageForIsAlwaysDynamic(t *testing.T) {
	h := NewHandler(testIndex(), nil, nil)
	if got := h.LinkageFor(node("lodash@4.0.0")); got != depgraph.LinkageDynamic {
		t.Errorf("LinkageFor = %q, want %q", got, depgraph.LinkageDynamic)
	}
}

func TestCreatePackageMissingManifest(t *testing.T) {
	h := NewHandler(testIndex(), nil, nil)

	pkg, issues := h.CreatePackage(context.Background(), node("ghost@1.0.0"))
	if pkg != nil {
		t.Errorf("CreatePackage = %+v, want nil", pkg)
	}
	if len(issues) != 1 || !strings.Contains(issues[0].Message, "ghost@1.0.0") {
		t.Errorf("issues = %v, want one naming ghost@1.0.0", issues)
	}
}

func TestCreatePackageEnrichment(t *testing.T) {
	runner := &staticRunner{
		stdout: `{"type":"inspect","data":{"name":"lodash","version":"4.0.0","description":"remote description","homepage":"https://lodash.com","license":"Apache-2.0","dist":{"tarball":"https://registry/lodash.tgz","shasum":"abc"}}}`,
	}
	fetcher := NewFetcher(metastore.NewNullStore(), runner.run, nil)
	h := NewHandler(testIndex(), fetcher, nil)
	ctx := context.Background()

	pkg, issues := h.CreatePackage(ctx, node("lodash@4.0.0"))
	if len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}

	// Local manifest fields win; remote fills the gaps.
	if pkg.Description != "utility belt" {
		t.Errorf("Description = %q, want local manifest value", pkg.Description)
	}
	if pkg.License != "MIT" {
		t.Errorf("License = %q, want local manifest value", pkg.License)
	}
	if pkg.Homepage != "https://lodash.com" {
		t.Errorf("Homepage = %q, want remote value", pkg.Homepage)
	}
	if pkg.TarballURL != "https://registry/lodash.tgz" || pkg.Shasum != "abc" {
		t.Errorf("dist = %q %q, want remote values", pkg.TarballURL, pkg.Shasum)
	}

	// A second version of the same name reuses the fetched details.
	pkg2, _ := h.CreatePackage(ctx, node("lodash@3.10.1"))
	if pkg2 == nil || pkg2.Homepage != "https://lodash.com" {
		t.Errorf("second version not enriched: %+v", pkg2)
	}
	if runner.calls != 1 {
		t.Errorf("runner called %d times, want 1 (amortized per name)", runner.calls)
	}
}

func TestCreatePackageSurvivesFetchFailure(t *testing.T) {
	fetcher := NewFetcher(metastore.NewNullStore(), func(context.Context, string) (io.Reader, io.Reader, error) {
		return nil, nil, io.ErrUnexpectedEOF
	}, nil)
	h := NewHandler(testIndex(), fetcher, nil)

	pkg, issues := h.CreatePackage(context.Background(), node("lodash@4.0.0"))
	if pkg == nil || len(issues) != 0 {
		t.Fatalf("CreatePackage = %+v issues=%v, want local-only package", pkg, issues)
	}
	if pkg.Description != "utility belt" {
		t.Errorf("Description = %q", pkg.Description)
	}
	if pkg.TarballURL != "" {
		t.Errorf("TarballURL = %q, want empty without enrichment", pkg.TarballURL)
	}
}
