// Package depgraph defines the contract between package-manager resolvers
// and a dependency-graph assembler.
//
// The assembler itself lives outside this module: it walks resolved nodes
// through a DependencyHandler, deduplicates identifiers across projects, and
// builds the final graph. This package only fixes the types both sides agree
// on, so a handler can be implemented and tested without the assembler.
package depgraph

import (
	"context"

	"github.com/unhoist/unhoist/pkg/resolve"
)

// Linkage describes how a dependency is attached to its dependent.
type Linkage string

const (
	// LinkageDynamic marks a dependency shared from a single flattened
	// install location (hoisting).
	LinkageDynamic Linkage = "dynamic"

	// LinkageStatic marks a dependency vendored per dependent. No npm-family
	// manager produces this, but the assembler contract includes it.
	LinkageStatic Linkage = "static"
)

// Identifier names one package occurrence unambiguously.
type Identifier struct {
	Type      string `json:"type"`      // package manager family, e.g. "NPM"
	Namespace string `json:"namespace"` // scope, e.g. "@babel"; empty if none
	Name      string `json:"name"`
	Version   string `json:"version"`
}

// String renders the identifier in type:namespace:name:version form.
func (id Identifier) String() string {
	return id.Type + ":" + id.Namespace + ":" + id.Name + ":" + id.Version
}

// Package is the metadata record the assembler stores per identifier.
// Local-manifest fields are always present for installed packages; remote
// fields stay empty when enrichment was unavailable.
type Package struct {
	ID            Identifier `json:"id"`
	Description   string     `json:"description,omitempty"`
	Homepage      string     `json:"homepage,omitempty"`
	License       string     `json:"license,omitempty"`
	Author        string     `json:"author,omitempty"`
	RepositoryURL string     `json:"repository_url,omitempty"`
	TarballURL    string     `json:"tarball_url,omitempty"`
	Shasum        string     `json:"shasum,omitempty"`
}

// Issue is a non-fatal problem encountered while creating packages, e.g. a
// dependency edge pointing at a package that is not materialized on disk.
type Issue struct {
	Message string `json:"message"`
}

// DependencyHandler exposes resolved nodes to the graph assembler.
//
// The handler's per-project context (install root, manifest index) must stay
// fixed for the duration of one project's assembly; implementations are built
// per project rather than mutated between projects.
type DependencyHandler interface {
	// IdentifierFor derives the stable identifier for a node.
	IdentifierFor(node *resolve.Node) Identifier

	// DependenciesFor returns the node's children that the assembler should
	// follow, dropping edges to packages not actually installed.
	DependenciesFor(node *resolve.Node) []*resolve.Node

	// LinkageFor reports how node is attached to its dependent.
	LinkageFor(node *resolve.Node) Linkage

	// CreatePackage builds the package record for node, or returns nil with
	// an issue when no local manifest backs it. The returned issues are
	// recorded by the assembler; they never abort assembly.
	CreatePackage(ctx context.Context, node *resolve.Node) (*Package, []Issue)
}
