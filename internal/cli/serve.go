package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/unhoist/unhoist/pkg/graphio"
	"github.com/unhoist/unhoist/pkg/listing"
	"github.com/unhoist/unhoist/pkg/observability"
	"github.com/unhoist/unhoist/pkg/resolve"
)

// maxListingBody bounds request bodies on the resolve endpoint. Listings for
// very large projects run to a few MB; 32 MB leaves ample headroom.
const maxListingBody = 32 << 20

// newServeCmd creates the serve command, which exposes resolution over HTTP.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dependency resolution over HTTP",
		Long: `Serve starts an HTTP server with two endpoints:

  POST /api/resolve   accepts yarn listing JSON and responds with the
                      resolved graph in flat node/edge form. The query
                      parameter all=true keeps every top-level entry.
  GET  /healthz       liveness probe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8415", "listen address")
	return cmd
}

func runServer(ctx context.Context, addr string) error {
	logger := loggerFromContext(ctx)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	r.Post("/api/resolve", handleResolve)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleResolve reads a listing from the request body and responds with the
// resolved graph.
func handleResolve(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	forest, err := listing.Parse(http.MaxBytesReader(w, req.Body, maxListingBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("parse listing: %v", err))
		return
	}

	observability.Resolve().OnResolveStart(ctx, len(forest))
	start := time.Now()
	resolved := resolve.Resolve(forest)
	observability.Resolve().OnResolveComplete(ctx, len(resolved), countNodes(resolved), time.Since(start))

	if req.URL.Query().Get("all") != "true" {
		resolved = resolve.FilterDeclared(forest, resolved, nil)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := graphio.Write(graphio.FromForest(resolved), w); err != nil {
		// Headers are gone; nothing left to do but note it.
		loggerFromContext(ctx).Warn("write response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
