package npm

import (
	"testing"
	"testing/fstest"

	"github.com/unhoist/unhoist/pkg/resolve"
)

func TestParseManifestShapes(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Manifest
	}{
		{
			name: "string fields",
			data: `{"name":"a","version":"1.0.0","license":"MIT","author":"Jane Doe","repository":"git+https://github.com/x/a.git"}`,
			want: Manifest{Name: "a", Version: "1.0.0", License: "MIT", Author: "Jane Doe", Repository: "https://github.com/x/a"},
		},
		{
			name: "object fields",
			data: `{"name":"b","version":"2.0.0","license":{"type":"ISC"},"author":{"name":"J","email":"j@x.io"},"repository":{"type":"git","url":"git://github.com/x/b.git"}}`,
			want: Manifest{Name: "b", Version: "2.0.0", License: "ISC", Author: "J", Repository: "https://github.com/x/b"},
		},
		{
			name: "ssh repository",
			data: `{"name":"c","version":"3.0.0","repository":"git@github.com:x/c.git"}`,
			want: Manifest{Name: "c", Version: "3.0.0", Repository: "https://github.com/x/c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseManifest([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseManifest: %v", err)
			}
			if m.Name != tt.want.Name || m.Version != tt.want.Version ||
				m.License != tt.want.License || m.Author != tt.want.Author ||
				m.Repository != tt.want.Repository {
				t.Errorf("ParseManifest = %+v, want %+v", *m, tt.want)
			}
		})
	}
}

func TestBuildIndex(t *testing.T) {
	fsys := fstest.MapFS{
		"lodash/package.json": &fstest.MapFile{
			Data: []byte(`{"name":"lodash","version":"4.0.0","description":"utils"}`),
		},
		"express/package.json": &fstest.MapFile{
			Data: []byte(`{"name":"express","version":"4.18.0"}`),
		},
		// Conflicting copy nested under another package.
		"express/node_modules/lodash/package.json": &fstest.MapFile{
			Data: []byte(`{"name":"lodash","version":"3.10.1"}`),
		},
		// Scoped package.
		"@babel/core/package.json": &fstest.MapFile{
			Data: []byte(`{"name":"@babel/core","version":"7.21.0"}`),
		},
		// Broken and incomplete manifests must be skipped, not fatal.
		"broken/package.json":  &fstest.MapFile{Data: []byte(`{not json`)},
		"unnamed/package.json": &fstest.MapFile{Data: []byte(`{"version":"1.0.0"}`)},
		// Non-manifest files are ignored.
		"lodash/index.js": &fstest.MapFile{Data: []byte(`module.exports = {}`)},
	}

	idx, err := BuildIndex(fsys, nil)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	wantKeys := []string{"lodash@4.0.0", "lodash@3.10.1", "express@4.18.0", "@babel/core@7.21.0"}
	if len(idx) != len(wantKeys) {
		t.Errorf("index has %d entries, want %d: %v", len(idx), len(wantKeys), idx)
	}
	for _, key := range wantKeys {
		if _, ok := idx[key]; !ok {
			t.Errorf("index missing %q", key)
		}
	}

	if !idx.Has(resolve.ModuleID{Name: "lodash", Version: "4.0.0"}) {
		t.Error("Has(lodash@4.0.0) = false")
	}
	if idx.Has(resolve.ModuleID{Name: "lodash", Version: "9.9.9"}) {
		t.Error("Has(lodash@9.9.9) = true, want false")
	}

	m, ok := idx.Lookup(resolve.ModuleID{Name: "lodash", Version: "4.0.0"})
	if !ok || m.Description != "utils" {
		t.Errorf("Lookup(lodash@4.0.0) = %+v ok=%v", m, ok)
	}
}
