package exporter

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Epistemic-Technology/arxiv-export/arxiv"
	"github.com/Epistemic-Technology/arxiv-export/internal/citation"
	"github.com/Epistemic-Technology/arxiv-export/internal/searchurl"
)

type feedServer struct {
	*httptest.Server
	requests atomic.Int32
	lastSort atomic.Value
}

// newFeedServer serves total synthetic entries and honors start and
// max_results.
func newFeedServer(t *testing.T, total int) *feedServer {
	t.Helper()
	fs := &feedServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.requests.Add(1)
		q := r.URL.Query()
		fs.lastSort.Store(q.Get("sortBy") + "/" + q.Get("sortOrder"))
		start, _ := strconv.Atoi(q.Get("start"))
		maxResults, _ := strconv.Atoi(q.Get("max_results"))

		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">`)
		fmt.Fprintf(&b, "<opensearch:totalResults>%d</opensearch:totalResults>", total)
		fmt.Fprintf(&b, "<opensearch:startIndex>%d</opensearch:startIndex>", start)
		fmt.Fprintf(&b, "<opensearch:itemsPerPage>%d</opensearch:itemsPerPage>", maxResults)
		for i := start; i < min(start+maxResults, total); i++ {
			fmt.Fprintf(&b, `<entry>
  <id>http://arxiv.org/abs/2401.%05dv1</id>
  <published>2024-01-%02dT10:00:00Z</published>
  <updated>2024-01-%02dT10:00:00Z</updated>
  <title>Sparse Models Number %d</title>
  <summary>An abstract about $x$.</summary>
  <author><name>Ada Lovelace</name></author>
  <arxiv:primary_category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
  <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
</entry>`, i, i%28+1, i%28+1, i)
		}
		b.WriteString("</feed>")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(b.String()))
	}))
	t.Cleanup(fs.Close)
	return fs
}

func newTestExporter(fs *feedServer, opts ...Option) *Exporter {
	client := arxiv.NewClient(
		arxiv.WithBaseURL(fs.URL),
		arxiv.WithHTTPClient(fs.Client()),
		arxiv.WithRateLimit(0),
	)
	return New(client, opts...)
}

var testQuery = searchurl.Query{
	Kind:        searchurl.KindSimple,
	SearchQuery: "ti:(sparse models)",
	SortBy:      arxiv.SortBySubmittedDate,
	SortOrder:   arxiv.SortOrderDescending,
}

func TestClampCount(t *testing.T) {
	tests := []struct {
		requested, total int
		want             int
		clamped          bool
	}{
		{10, 50, 10, false},
		{50, 50, 50, false},
		{60, 50, 50, true},
		{5000, 20000, MaxResults, true},
		{1000, 20000, 1000, false},
		{1, 0, 0, true},
	}
	for _, tt := range tests {
		got, clamped := ClampCount(tt.requested, tt.total)
		assert.Equal(t, tt.want, got, "ClampCount(%d, %d)", tt.requested, tt.total)
		assert.Equal(t, tt.clamped, clamped, "ClampCount(%d, %d)", tt.requested, tt.total)
	}

	e := New(arxiv.NewClient(), WithMaxResults(200))
	got, clamped := e.ClampCount(500, 10000)
	assert.Equal(t, 200, got)
	assert.True(t, clamped)
}

func TestTotal(t *testing.T) {
	fs := newFeedServer(t, 321)
	e := newTestExporter(fs)

	total, err := e.Total(context.Background(), testQuery)
	require.NoError(t, err)
	assert.Equal(t, 321, total)
	assert.EqualValues(t, 1, fs.requests.Load())
}

func TestFetch(t *testing.T) {
	fs := newFeedServer(t, 250)
	e := newTestExporter(fs, WithPageSize(100))

	records, err := e.Fetch(context.Background(), testQuery, 230)
	require.NoError(t, err)
	require.Len(t, records, 230)
	assert.EqualValues(t, 3, fs.requests.Load())
	assert.Equal(t, "submittedDate/descending", fs.lastSort.Load())

	assert.Equal(t, "2401.00000v1", records[0].ArxivID)
	assert.Equal(t, "Sparse Models Number 229", records[229].Title)
	assert.Equal(t, "An abstract about x.", records[0].Abstract)
	assert.Equal(t, "cs.LG", records[0].PrimaryCategory)
}

func TestFetchHonorsMaxResults(t *testing.T) {
	fs := newFeedServer(t, 5000)
	e := newTestExporter(fs, WithPageSize(500), WithMaxResults(600))

	records, err := e.Fetch(context.Background(), testQuery, 900)
	require.NoError(t, err)
	assert.Len(t, records, 600)
	assert.EqualValues(t, 2, fs.requests.Load())
}

func TestFetchRejectsNonPositiveCount(t *testing.T) {
	e := New(arxiv.NewClient())
	_, err := e.Fetch(context.Background(), testQuery, 0)
	assert.Error(t, err)
}

func TestExportToFile(t *testing.T) {
	fs := newFeedServer(t, 30)
	stamp := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	e := newTestExporter(fs, WithClock(func() time.Time { return stamp }))
	dir := filepath.Join(t.TempDir(), "nested", "out")

	for _, f := range citation.Formats {
		t.Run(f.Name(), func(t *testing.T) {
			result, err := e.Export(context.Background(), Request{
				Query:     testQuery,
				Count:     12,
				Format:    f,
				OutputDir: dir,
			})
			require.NoError(t, err)

			assert.Equal(t, 12, result.Count)
			assert.Equal(t, f, result.Format)
			assert.True(t, filepath.IsAbs(result.Path))
			assert.Equal(t, "arxiv_export_20240309_140507."+f.Extension(), filepath.Base(result.Path))

			data, err := os.ReadFile(result.Path)
			require.NoError(t, err)
			assert.Equal(t, result.Bytes, len(data))
			assert.Equal(t, 12, citation.CountEntries(f, string(data)))
			assert.True(t, strings.HasSuffix(string(data), "\n"))
		})
	}
}

func TestExportToWriter(t *testing.T) {
	fs := newFeedServer(t, 3)
	var logs bytes.Buffer
	e := newTestExporter(fs, WithLogger(zerolog.New(&logs)))

	var out bytes.Buffer
	result, err := e.Export(context.Background(), Request{
		Query:  testQuery,
		Count:  10,
		Format: citation.BibTeX,
		Writer: &out,
	})
	require.NoError(t, err)

	assert.Empty(t, result.Path)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, out.Len(), result.Bytes)
	assert.Equal(t, 3, strings.Count(out.String(), "@article{"))
	assert.Contains(t, out.String(), "@article{sparsemodels2024,")
	assert.Contains(t, out.String(), "@article{sparsemodels2024a,")
	assert.Contains(t, logs.String(), "export written")
}

func TestExportNoResults(t *testing.T) {
	fs := newFeedServer(t, 0)
	e := newTestExporter(fs)

	_, err := e.Export(context.Background(), Request{Query: testQuery, Count: 5, Format: citation.RIS, OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestExportUnknownFormat(t *testing.T) {
	e := New(arxiv.NewClient())
	_, err := e.Export(context.Background(), Request{Query: testQuery, Count: 5})
	assert.ErrorIs(t, err, citation.ErrUnknownFormat)
}

func TestExportPropagatesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := arxiv.NewClient(arxiv.WithBaseURL(server.URL), arxiv.WithHTTPClient(server.Client()), arxiv.WithRateLimit(0))
	e := New(client)

	_, err := e.Export(context.Background(), Request{Query: testQuery, Count: 5, Format: citation.RIS, OutputDir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, arxiv.StatusCode(err))
}

func TestFileName(t *testing.T) {
	stamp := time.Date(2023, 12, 1, 8, 0, 59, 0, time.UTC)
	assert.Equal(t, "arxiv_export_20231201_080059.ris", FileName(citation.RIS, stamp))
	assert.Equal(t, "arxiv_export_20231201_080059.bib", FileName(citation.BibTeX, stamp))
	assert.Equal(t, "arxiv_export_20231201_080059.enw", FileName(citation.EndNote, stamp))
}
