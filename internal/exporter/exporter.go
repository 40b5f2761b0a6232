// Package exporter runs the fetch, normalize and render pipeline that turns
// a translated search URL into a citation file.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/Epistemic-Technology/arxiv-export/arxiv"
	"github.com/Epistemic-Technology/arxiv-export/internal/citation"
	"github.com/Epistemic-Technology/arxiv-export/internal/record"
	"github.com/Epistemic-Technology/arxiv-export/internal/searchurl"
)

const (
	// MaxResults is the most records a single export may contain.
	MaxResults = 1000

	// DefaultPageSize is the number of entries requested per API call.
	DefaultPageSize = 100

	fileTimeLayout = "20060102_150405"
)

// ErrNoResults is returned when a search yields nothing to export.
var ErrNoResults = errors.New("no results to export")

// Exporter wires the API client to the record normalizer and emitters.
type Exporter struct {
	client     *arxiv.Client
	pageSize   int
	maxResults int
	logger     zerolog.Logger
	now        func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithPageSize sets how many entries are requested per API call.
func WithPageSize(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.pageSize = min(n, arxiv.MaxPageSize)
		}
	}
}

// WithMaxResults lowers the per-export record limit. Values above
// MaxResults are ignored.
func WithMaxResults(n int) Option {
	return func(e *Exporter) {
		if n > 0 && n <= MaxResults {
			e.maxResults = n
		}
	}
}

// WithLogger sets the logger used for progress and summary lines.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// WithClock replaces time.Now when naming output files.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// New returns an Exporter that fetches through client.
func New(client *arxiv.Client, opts ...Option) *Exporter {
	e := &Exporter{
		client:     client,
		pageSize:   DefaultPageSize,
		maxResults: MaxResults,
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxResults returns the per-export record limit.
func (e *Exporter) MaxResults() int {
	return e.maxResults
}

// Total returns the number of results the API reports for q.
func (e *Exporter) Total(ctx context.Context, q searchurl.Query) (int, error) {
	total, err := e.client.Count(ctx, q.SearchQuery)
	if err != nil {
		return 0, fmt.Errorf("counting results: %w", err)
	}
	e.logger.Debug().Str("query", q.SearchQuery).Int("total", total).Msg("result count")
	return total, nil
}

// ClampCount limits requested to min(total, MaxResults). The boolean reports
// whether the value was lowered.
func ClampCount(requested, total int) (int, bool) {
	return clamp(requested, total, MaxResults)
}

// ClampCount is like the package function but uses the exporter's limit.
func (e *Exporter) ClampCount(requested, total int) (int, bool) {
	return clamp(requested, total, e.maxResults)
}

func clamp(requested, total, limit int) (int, bool) {
	if total >= 0 && total < limit {
		limit = total
	}
	if requested > limit {
		return limit, true
	}
	return requested, false
}

// Fetch retrieves up to n records for q in the query's sort order. On a
// failed page it returns the records fetched so far with the error.
func (e *Exporter) Fetch(ctx context.Context, q searchurl.Query, n int) ([]record.Record, error) {
	if n <= 0 {
		return nil, fmt.Errorf("record count must be positive, got %d", n)
	}
	n = min(n, e.maxResults)

	start := time.Now()
	entries, err := e.client.Collect(ctx, q.Params(), n, e.pageSize)
	records := record.FromEntries(entries)
	e.logger.Debug().
		Str("query", q.SearchQuery).
		Int("requested", n).
		Int("fetched", len(records)).
		Dur("duration", time.Since(start)).
		Msg("fetched records")
	return records, err
}

// Request describes one export.
type Request struct {
	Query  searchurl.Query
	Count  int
	Format citation.Format

	// OutputDir receives a timestamped file when Writer is nil. Empty
	// means the current directory.
	OutputDir string

	// Writer, when set, receives the document instead of a file.
	Writer io.Writer
}

// Result summarizes a finished export.
type Result struct {
	// Path is the absolute path of the written file, empty when the
	// document went to Request.Writer.
	Path   string
	Count  int
	Format citation.Format
	Bytes  int
}

// FileName returns the output file name for format f at time t.
func FileName(f citation.Format, t time.Time) string {
	return "arxiv_export_" + t.Format(fileTimeLayout) + "." + f.Extension()
}

// Export fetches, normalizes and renders req.Count records and writes the
// document.
func (e *Exporter) Export(ctx context.Context, req Request) (Result, error) {
	if !req.Format.Valid() {
		return Result{}, fmt.Errorf("%w: %d", citation.ErrUnknownFormat, int(req.Format))
	}

	records, err := e.Fetch(ctx, req.Query, req.Count)
	if err != nil {
		return Result{}, err
	}
	if len(records) == 0 {
		return Result{}, ErrNoResults
	}

	doc, err := citation.Render(req.Format, records)
	if err != nil {
		return Result{}, err
	}
	doc += "\n"
	result := Result{
		Count:  citation.CountEntries(req.Format, doc),
		Format: req.Format,
	}

	if req.Writer != nil {
		n, err := io.WriteString(req.Writer, doc)
		result.Bytes = n
		if err != nil {
			return result, fmt.Errorf("writing export: %w", err)
		}
		e.logger.Info().Int("count", result.Count).Str("format", req.Format.Name()).Msg("export written")
		return result, nil
	}

	path, err := e.writeFile(req.OutputDir, req.Format, doc)
	if err != nil {
		return result, err
	}
	result.Path = path
	result.Bytes = len(doc)
	e.logger.Info().
		Int("count", result.Count).
		Str("format", req.Format.Name()).
		Str("path", path).
		Msg("export written")
	return result, nil
}

func (e *Exporter) writeFile(dir string, f citation.Format, doc string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(f, e.now()))
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}
