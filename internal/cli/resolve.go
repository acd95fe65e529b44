package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/unhoist/unhoist/pkg/depgraph"
	"github.com/unhoist/unhoist/pkg/graphio"
	"github.com/unhoist/unhoist/pkg/listing"
	"github.com/unhoist/unhoist/pkg/npm"
	"github.com/unhoist/unhoist/pkg/observability"
	"github.com/unhoist/unhoist/pkg/resolve"
)

// newResolveCmd creates the resolve command, which reads a yarn listing and
// prints the reconstructed dependency tree.
func newResolveCmd(configFile *string) *cobra.Command {
	var (
		rootDir string
		all     bool
		format  string
		outPath string
		yarnBin string
		backend string
	)

	cmd := &cobra.Command{
		Use:   "resolve [listing.json]",
		Short: "Reconstruct the full dependency tree from a yarn listing",
		Long: `Resolve reads the JSON output of "yarn list --json" from a file or stdin,
undoes yarn's subtree deduplication and prints the complete tree.

By default the top level is narrowed to directly declared, installed
dependencies; --all keeps every top-level entry. The packages format runs
"yarn info" per package and enriches the output with registry metadata,
using the configured cache backend.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			data, source, err := readListing(args)
			if err != nil {
				return err
			}
			forest, err := listing.Parse(data)
			if err != nil {
				return fmt.Errorf("parse listing from %s: %w", source, err)
			}
			logger.Debug("parsed listing", "source", source, "roots", len(forest))

			observability.Resolve().OnResolveStart(ctx, len(forest))
			start := time.Now()
			resolved := resolve.Resolve(forest)
			observability.Resolve().OnResolveComplete(ctx, len(resolved), countNodes(resolved), time.Since(start))

			// The installed index narrows the top level and backs package
			// enrichment. Its absence degrades the filter to marker-only.
			var installed npm.Index
			if !all || format == "packages" {
				installed = loadInstalled(cmd, rootDir)
			}

			if !all {
				var pred func(resolve.ModuleID) bool
				if installed != nil {
					pred = installed.Has
				}
				resolved = resolve.FilterDeclared(forest, resolved, pred)
			}

			out, closeOut, err := openOutput(outPath)
			if err != nil {
				return err
			}
			defer closeOut()

			switch format {
			case "tree":
				renderTree(out, resolved)
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(resolved); err != nil {
					return fmt.Errorf("encode tree: %w", err)
				}
			case "graph":
				if err := graphio.Write(graphio.FromForest(resolved), out); err != nil {
					return err
				}
			case "packages":
				if err := writePackages(cmd, *configFile, backend, yarnBin, rootDir, installed, resolved, out); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (must be one of: tree, json, graph, packages)", format)
			}

			printSuccess("resolved %d top-level entries (%d packages total)", len(resolved), countNodes(resolved))
			if outPath != "" {
				printDetail("written to %s", outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rootDir, "root", "r", ".", "project directory containing node_modules")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "keep every top-level entry instead of only declared dependencies")
	cmd.Flags().StringVarP(&format, "format", "f", "tree", "output format: tree, json, graph or packages")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write output to file instead of stdout")
	cmd.Flags().StringVar(&yarnBin, "yarn", "yarn", "yarn executable used for metadata lookups")
	cmd.Flags().StringVar(&backend, "cache-backend", "", "override the configured cache backend: file, redis, mongo or none")

	return cmd
}

// readListing opens the listing source: the file named by the first argument,
// or stdin when no argument is given.
func readListing(args []string) (io.Reader, string, error) {
	if len(args) == 0 {
		return os.Stdin, "stdin", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("read listing: %w", err)
	}
	return bytes.NewReader(data), args[0], nil
}

// loadInstalled indexes the project's node_modules. A missing or unreadable
// tree is a warning, not an error: commands degrade rather than fail.
func loadInstalled(cmd *cobra.Command, rootDir string) npm.Index {
	logger := loggerFromContext(cmd.Context())
	dir := filepath.Join(rootDir, "node_modules")

	sp := newSpinner(cmd.Context(), fmt.Sprintf("indexing %s", dir))
	sp.start()
	installed, err := npm.BuildIndexDir(dir, logger)
	sp.stop()

	if err != nil {
		printWarning("cannot index %s: %v", dir, err)
		return nil
	}
	logger.Debug("indexed installed packages", "dir", dir, "count", len(installed))
	return installed
}

// writePackages enriches every distinct package in the forest with registry
// metadata and writes the result as a JSON array.
func writePackages(cmd *cobra.Command, configFile, backend, yarnBin, rootDir string, installed npm.Index, roots []*resolve.Node, out io.Writer) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	if backend != "" {
		cfg.Cache.Backend = backend
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open metadata cache: %w", err)
	}
	defer store.Close()

	fetcher := npm.NewFetcher(store, yarnInfoRunner(yarnBin, rootDir), logger)
	handler := npm.NewHandler(installed, fetcher, logger)
	prog := newProgress(logger)

	type entry struct {
		Package *depgraph.Package `json:"package"`
		Issues  []string          `json:"issues,omitempty"`
	}

	var (
		entries []entry
		seen    = make(map[depgraph.Identifier]bool)
		stack   = append([]*resolve.Node(nil), roots...)
	)
	sp := newSpinner(ctx, "fetching package metadata")
	sp.start()
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, handler.DependenciesFor(n)...)

		id := handler.IdentifierFor(n)
		if seen[id] {
			continue
		}
		seen[id] = true

		pkg, issues := handler.CreatePackage(ctx, n)
		e := entry{Package: pkg}
		for _, issue := range issues {
			e.Issues = append(e.Issues, issue.Message)
		}
		entries = append(entries, e)
	}
	sp.stop()
	prog.done(fmt.Sprintf("enriched %d packages", len(entries)))

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode packages: %w", err)
	}
	return nil
}

// countNodes returns the total node count of a resolved forest.
func countNodes(roots []*resolve.Node) int {
	total := 0
	stack := append([]*resolve.Node(nil), roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total++
		stack = append(stack, n.Children...)
	}
	return total
}

// openOutput returns the destination writer for a command's primary output.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { f.Close() }, nil
}
