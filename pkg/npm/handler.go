package npm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/unhoist/unhoist/pkg/depgraph"
	"github.com/unhoist/unhoist/pkg/resolve"
)

// identifierType marks identifiers from npm-family managers.
const identifierType = "NPM"

// Handler bridges resolved nodes to the graph assembler for one project.
//
// The installed index and fetcher are fixed at construction: a handler serves
// exactly one project resolution. Resolving another project means building
// another handler, never mutating this one.
type Handler struct {
	installed Index
	fetcher   *Fetcher
	logger    *log.Logger

	mu      sync.Mutex
	details map[string]*Details // by bare name; nil entries record absence
}

// NewHandler builds a handler over one project's installed index. fetcher may
// be nil to disable remote enrichment entirely.
func NewHandler(installed Index, fetcher *Fetcher, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		installed: installed,
		fetcher:   fetcher,
		logger:    logger,
		details:   make(map[string]*Details),
	}
}

// IdentifierFor derives the stable identifier for a node: the scope (the
// portion before the last "/") becomes the namespace, the remainder the local
// name, and the version is taken verbatim.
func (h *Handler) IdentifierFor(node *resolve.Node) depgraph.Identifier {
	namespace, name := splitScope(node.ID.Name)
	return depgraph.Identifier{
		Type:      identifierType,
		Namespace: namespace,
		Name:      name,
		Version:   node.ID.Version,
	}
}

// DependenciesFor returns the node's children that are actually materialized
// on disk. Edges to uninstalled packages (unmet optional or platform
// dependencies) are dropped here.
func (h *Handler) DependenciesFor(node *resolve.Node) []*resolve.Node {
	deps := make([]*resolve.Node, 0, len(node.Children))
	for _, child := range node.Children {
		if h.installed.Has(child.ID) {
			deps = append(deps, child)
		}
	}
	return deps
}

// LinkageFor always reports dynamic linkage: npm-family managers install one
// shared flattened copy per version, never a vendored copy per dependent.
func (h *Handler) LinkageFor(*resolve.Node) depgraph.Linkage {
	return depgraph.LinkageDynamic
}

// CreatePackage builds the package record from the locally installed
// manifest, enriched with remote metadata for fields the manifest lacks.
// A node without a local manifest contributes no package, only an issue.
func (h *Handler) CreatePackage(ctx context.Context, node *resolve.Node) (*depgraph.Package, []depgraph.Issue) {
	m, ok := h.installed.Lookup(node.ID)
	if !ok {
		return nil, []depgraph.Issue{{
			Message: fmt.Sprintf("no installed manifest for %s", node.ID),
		}}
	}

	pkg := &depgraph.Package{
		ID:            h.IdentifierFor(node),
		Description:   m.Description,
		Homepage:      m.Homepage,
		License:       m.License,
		Author:        m.Author,
		RepositoryURL: m.Repository,
	}

	if d := h.detailsFor(ctx, node.ID.Name); d != nil {
		if pkg.Description == "" {
			pkg.Description = d.Description
		}
		if pkg.Homepage == "" {
			pkg.Homepage = d.Homepage
		}
		if pkg.License == "" {
			pkg.License = d.License
		}
		if pkg.Author == "" {
			pkg.Author = d.Author
		}
		if pkg.RepositoryURL == "" {
			pkg.RepositoryURL = d.Repository.URL
		}
		pkg.TarballURL = d.Dist.Tarball
		pkg.Shasum = d.Dist.Shasum
	}

	return pkg, nil
}

// detailsFor fetches remote metadata once per bare name for the lifetime of
// the handler, whatever the number of versions and occurrences referencing
// it. Absence (including fetch failure) is memoized too.
func (h *Handler) detailsFor(ctx context.Context, name string) *Details {
	if h.fetcher == nil {
		return nil
	}

	h.mu.Lock()
	d, seen := h.details[name]
	h.mu.Unlock()
	if seen {
		return d
	}

	d, err := h.fetcher.Fetch(ctx, name)
	if err != nil {
		h.logger.Warn("remote metadata unavailable", "package", name, "err", err)
		d = nil
	}

	h.mu.Lock()
	h.details[name] = d
	h.mu.Unlock()
	return d
}

// splitScope splits a package name into scope and local name on the last "/".
func splitScope(name string) (namespace, local string) {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		return name[:idx], name[idx+1:]
	}
	return "", name
}

var _ depgraph.DependencyHandler = (*Handler)(nil)
