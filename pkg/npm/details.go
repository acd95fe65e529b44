package npm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/unhoist/unhoist/pkg/metastore"
)

// InfoRunner produces the two raw streams of the manager's info command
// (`yarn info <name> --json`): primary output and diagnostics. Invoking the
// actual process is the caller's concern; tests and embedders inject their
// own runner.
type InfoRunner func(ctx context.Context, name string) (stdout, stderr io.Reader, err error)

// Repository is a package's source location as reported by the registry.
type Repository struct {
	Type string `json:"type,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Dist describes the registry artifact for a package version.
type Dist struct {
	Tarball   string `json:"tarball,omitempty"`
	Shasum    string `json:"shasum,omitempty"`
	Integrity string `json:"integrity,omitempty"`
}

// Details is the remote metadata record for one package, filling in fields
// the locally installed manifest does not carry.
type Details struct {
	Name        string
	Version     string
	Description string
	Homepage    string
	License     string
	Author      string
	Repository  Repository
	Dist        Dist
}

// infoRecord is one NDJSON line of the info command's output. Data stays raw:
// inspect payloads are parsed as Details, diagnostic payloads as free text.
type infoRecord struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Fetcher resolves remote metadata by package name, backed by a store so each
// distinct name is fetched at most once per max-age window. Concurrent
// fetches for the same name are collapsed into a single in-flight call.
type Fetcher struct {
	store  metastore.Store
	run    InfoRunner
	logger *log.Logger
	group  singleflight.Group
}

// NewFetcher wires a fetcher to its cache and its info collaborator.
func NewFetcher(store metastore.Store, run InfoRunner, logger *log.Logger) *Fetcher {
	if store == nil {
		store = metastore.NewNullStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{store: store, run: run, logger: logger}
}

// Fetch returns the metadata for name, consulting the cache first.
//
// A (nil, nil) result is a soft absence: the info command produced no inspect
// record, its diagnostics have been logged, and the caller proceeds with
// local-only data. Only failures to invoke the collaborator surface as
// errors; retrying them is the caller's policy.
func (f *Fetcher) Fetch(ctx context.Context, name string) (*Details, error) {
	v, err, _ := f.group.Do(name, func() (any, error) {
		return f.fetch(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*Details), nil
}

func (f *Fetcher) fetch(ctx context.Context, name string) (*Details, error) {
	if text, ok, err := f.store.Read(ctx, name); err != nil {
		f.logger.Warn("metadata cache read failed", "package", name, "err", err)
	} else if ok {
		d, err := parseDetails([]byte(text))
		if err == nil {
			return d, nil
		}
		// Corrupt entry: fall through to a fresh fetch that overwrites it.
		f.logger.Debug("discarding unparseable cache entry", "package", name, "err", err)
	}

	stdout, stderr, err := f.run(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("info %s: %w", name, err)
	}

	payload, found := firstInspectPayload(stdout)
	if !found {
		f.logDiagnostics(name, stderr)
		return nil, nil
	}

	d, err := parseDetails(payload)
	if err != nil {
		return nil, fmt.Errorf("info %s: parse inspect payload: %w", name, err)
	}
	if err := f.store.Write(ctx, name, string(payload)); err != nil {
		f.logger.Warn("metadata cache write failed", "package", name, "err", err)
	}
	return d, nil
}

// firstInspectPayload scans newline-delimited records for the first one of
// type "inspect". Retried network operations can leave multiple records on
// the stream and partial output can leave broken lines; anything unparseable
// is skipped rather than failing the scan.
func firstInspectPayload(r io.Reader) (json.RawMessage, bool) {
	scanner := newLineScanner(r)
	for scanner.Scan() {
		var rec infoRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if rec.Type == "inspect" {
			return rec.Data, true
		}
	}
	return nil, false
}

// logDiagnostics surfaces warning and error records from the diagnostic
// stream at log level. They never fail the fetch: remote enrichment is
// optional.
func (f *Fetcher) logDiagnostics(name string, r io.Reader) {
	if r == nil {
		return
	}
	scanner := newLineScanner(r)
	for scanner.Scan() {
		var rec infoRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		switch rec.Type {
		case "warning":
			f.logger.Warn("info diagnostic", "package", name, "message", rawText(rec.Data))
		case "error":
			f.logger.Error("info diagnostic", "package", name, "message", rawText(rec.Data))
		}
	}
}

// newLineScanner returns a scanner sized for registry metadata lines, which
// routinely exceed bufio's default token limit.
func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return scanner
}

// rawText renders a diagnostic payload: JSON strings unquoted, everything
// else verbatim.
func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// wireDetails mirrors the loosely-typed fields of an inspect payload.
type wireDetails struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Homepage    string `json:"homepage"`
	License     any    `json:"license"`
	Author      any    `json:"author"`
	Repository  any    `json:"repository"`
	Dist        Dist   `json:"dist"`
}

// parseDetails decodes an inspect payload or a cached copy of one.
func parseDetails(data []byte) (*Details, error) {
	var w wireDetails
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	repo := Repository{URL: normalizeRepoURL(extractField(w.Repository, "url"))}
	if m, ok := w.Repository.(map[string]any); ok {
		if t, ok := m["type"].(string); ok {
			repo.Type = t
		}
	}

	return &Details{
		Name:        w.Name,
		Version:     w.Version,
		Description: w.Description,
		Homepage:    w.Homepage,
		License:     extractField(w.License, "type"),
		Author:      extractField(w.Author, "name"),
		Repository:  repo,
		Dist:        w.Dist,
	}, nil
}
