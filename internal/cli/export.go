package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/unhoist/unhoist/pkg/graphio"
	"github.com/unhoist/unhoist/pkg/listing"
	"github.com/unhoist/unhoist/pkg/resolve"
)

// newExportCmd creates the export command, which resolves a listing and
// writes the graph in a chosen format.
func newExportCmd() *cobra.Command {
	var (
		all     bool
		format  string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "export [listing.json]",
		Short: "Export the resolved dependency graph as json, dot, svg or png",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, source, err := readListing(args)
			if err != nil {
				return err
			}
			forest, err := listing.Parse(data)
			if err != nil {
				return fmt.Errorf("parse listing from %s: %w", source, err)
			}

			resolved := resolve.Resolve(forest)
			if !all {
				resolved = resolve.FilterDeclared(forest, resolved, nil)
			}
			graph := graphio.FromForest(resolved)

			if format == "" {
				format = formatFromPath(outPath)
			}

			switch format {
			case "json":
				out, closeOut, err := openOutput(outPath)
				if err != nil {
					return err
				}
				defer closeOut()
				if err := graphio.Write(graph, out); err != nil {
					return err
				}
			case "dot":
				out, closeOut, err := openOutput(outPath)
				if err != nil {
					return err
				}
				defer closeOut()
				fmt.Fprint(out, graphio.DOT(graph))
			case "svg", "png":
				if outPath == "" {
					return fmt.Errorf("%s output requires --out", format)
				}
				rendered, err := renderImage(cmd.Context(), graphio.DOT(graph), format)
				if err != nil {
					return err
				}
				if err := os.WriteFile(outPath, rendered, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
			default:
				return fmt.Errorf("unknown format %q (must be one of: json, dot, svg, png)", format)
			}

			printSuccess("exported %d nodes, %d edges", len(graph.Nodes), len(graph.Edges))
			if outPath != "" {
				printDetail("written to %s", outPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "keep every top-level entry instead of only declared dependencies")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: json, dot, svg or png (default from --out extension, else json)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write output to file instead of stdout")

	return cmd
}

// formatFromPath infers the export format from the output file extension.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dot", ".gv":
		return "dot"
	case ".svg":
		return "svg"
	case ".png":
		return "png"
	default:
		return "json"
	}
}

// renderImage rasterizes a DOT graph with graphviz.
func renderImage(ctx context.Context, dot, format string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	target := graphviz.SVG
	if format == "png" {
		target = graphviz.PNG
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, target, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
