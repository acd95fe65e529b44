// Package npm deals with packages materialized by npm-family managers (npm,
// yarn): the locally installed manifest index, remote metadata lookup via the
// manager's info output, and the dependency-handler bridge to the graph
// assembler.
package npm

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/unhoist/unhoist/pkg/resolve"
)

// Manifest is the subset of package.json this module consumes. License,
// author and repository appear in several historical shapes (bare string,
// object, array); they are normalized to strings at parse time.
type Manifest struct {
	Name                 string
	Version              string
	Description          string
	Homepage             string
	License              string
	Author               string
	Repository           string
	Dependencies         map[string]string
	OptionalDependencies map[string]string
}

// ID returns the manifest's module id.
func (m *Manifest) ID() resolve.ModuleID {
	return resolve.ModuleID{Name: m.Name, Version: m.Version}
}

// Index holds every manifest found under one install root, keyed by
// name@version. Within one install root a given name@version pair is unique,
// however deeply its copy is nested.
type Index map[string]*Manifest

// Lookup returns the manifest for an exact id.
func (idx Index) Lookup(id resolve.ModuleID) (*Manifest, bool) {
	m, ok := idx[id.String()]
	return m, ok
}

// Has reports whether an exact id is installed.
func (idx Index) Has(id resolve.ModuleID) bool {
	_, ok := idx[id.String()]
	return ok
}

// BuildIndex walks fsys for package.json files at any depth and indexes them.
// A manifest that cannot be read or parsed is skipped with a debug log; one
// broken package must not sink the whole index. Manifests without a name or
// version (workspace roots, fixtures) are skipped silently.
func BuildIndex(fsys fs.FS, logger *log.Logger) (Index, error) {
	if logger == nil {
		logger = log.Default()
	}

	idx := make(Index)
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Name() != "package.json" {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			logger.Debug("skipping unreadable manifest", "path", path, "err", err)
			return nil
		}
		m, err := ParseManifest(data)
		if err != nil {
			logger.Debug("skipping malformed manifest", "path", path, "err", err)
			return nil
		}
		if m.Name == "" || m.Version == "" {
			return nil
		}
		idx[m.ID().String()] = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// BuildIndexDir is BuildIndex over a directory on the host filesystem,
// typically a project's node_modules.
func BuildIndexDir(dir string, logger *log.Logger) (Index, error) {
	return BuildIndex(os.DirFS(filepath.Clean(dir)), logger)
}

// wireManifest mirrors package.json's loosely-typed fields.
type wireManifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Description          string            `json:"description"`
	Homepage             string            `json:"homepage"`
	License              any               `json:"license"`
	Author               any               `json:"author"`
	Repository           any               `json:"repository"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// ParseManifest decodes one package.json payload.
func ParseManifest(data []byte) (*Manifest, error) {
	var w wireManifest
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &Manifest{
		Name:                 w.Name,
		Version:              w.Version,
		Description:          w.Description,
		Homepage:             w.Homepage,
		License:              extractField(w.License, "type"),
		Author:               extractField(w.Author, "name"),
		Repository:           normalizeRepoURL(extractField(w.Repository, "url")),
		Dependencies:         w.Dependencies,
		OptionalDependencies: w.OptionalDependencies,
	}, nil
}

// extractField reads a string either directly or from the named field of an
// object, covering the two shapes package.json allows for license, author and
// repository.
func extractField(v any, field string) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if s, ok := val[field].(string); ok {
			return s
		}
	}
	return ""
}

var repoURLReplacer = strings.NewReplacer(
	"git@github.com:", "https://github.com/",
	"git://github.com/", "https://github.com/",
)

// normalizeRepoURL converts git@, git:// and git+ repository URL forms to
// canonical HTTPS and strips .git suffixes.
func normalizeRepoURL(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "git+")
	s = repoURLReplacer.Replace(s)
	return strings.TrimSuffix(s, ".git")
}
