// Package shell implements the interactive prompt flow: pick a search
// type, paste a URL, choose a format and a count, then export.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/Epistemic-Technology/arxiv-export/internal/citation"
	"github.com/Epistemic-Technology/arxiv-export/internal/exporter"
	"github.com/Epistemic-Technology/arxiv-export/internal/searchurl"
)

// ErrAborted is returned when input ends before the flow completes.
var ErrAborted = errors.New("input closed before export finished")

// Shell runs the prompt flow over a reader and writer.
type Shell struct {
	exporter   *exporter.Exporter
	parser     searchurl.Parser
	in         *bufio.Scanner
	out        io.Writer
	defaultDir string
	logger     zerolog.Logger
}

// Option configures a Shell.
type Option func(*Shell)

// WithDefaultDir sets the directory used when the output prompt is left
// blank.
func WithDefaultDir(dir string) Option {
	return func(s *Shell) {
		if dir != "" {
			s.defaultDir = dir
		}
	}
}

// WithParser replaces the URL parser, e.g. to pin the clock in tests.
func WithParser(p searchurl.Parser) Option {
	return func(s *Shell) {
		s.parser = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Shell) {
		s.logger = logger
	}
}

// New returns a Shell reading answers from in and printing to out.
func New(exp *exporter.Exporter, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		exporter:   exp,
		in:         bufio.NewScanner(in),
		out:        out,
		defaultDir: ".",
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run walks through the prompts and performs one export.
func (s *Shell) Run(ctx context.Context) error {
	s.printf("\n===============================================\n")
	s.printf("  arXiv batch export (RIS / BibTeX / EndNote)\n")
	s.printf("===============================================\n")

	kind, err := s.askKind()
	if err != nil {
		return err
	}
	rawURL, err := s.ask("Paste the full arXiv search results URL: ")
	if err != nil {
		return err
	}
	dir, err := s.ask(fmt.Sprintf("Directory to save the file in (blank for %s): ", s.defaultDir))
	if err != nil {
		return err
	}
	if dir == "" {
		dir = s.defaultDir
	}

	query, err := s.parser.Parse(rawURL, kind)
	if err != nil {
		s.printf("Fatal: could not parse the URL: %v\n", err)
		s.printf("Check that the pasted URL matches the search type you selected.\n")
		return err
	}
	s.printf("\n[ok] URL parsed.\n")
	s.logger.Debug().Str("query", query.SearchQuery).Str("kind", query.Kind.String()).Msg("translated search URL")

	if err := ctx.Err(); err != nil {
		return err
	}
	s.printf("  > Asking the arXiv API how many results match...\n")
	total, err := s.exporter.Total(ctx, query)
	if err != nil {
		s.printf("Fatal: could not get the result count: %v\n", err)
		return err
	}
	if total == 0 {
		s.printf("[x] The search has 0 results, nothing to export. Check your query.\n")
		return exporter.ErrNoResults
	}
	s.printf("\n[i] Total results: %s papers.\n", humanize.Comma(int64(total)))

	format, err := s.askFormat()
	if err != nil {
		return err
	}
	count, err := s.askCount(total)
	if err != nil {
		return err
	}

	s.printf("\n[1/2] Fetching the first %d papers as %s...\n", count, format)
	result, err := s.exporter.Export(ctx, exporter.Request{
		Query:     query,
		Count:     count,
		Format:    format,
		OutputDir: dir,
	})
	if err != nil {
		s.printf("Error: export failed: %v\n", err)
		return err
	}

	s.printf("\n[2/2] Export finished.\n")
	s.printf("  > Exported %d %s records (%s).\n", result.Count, result.Format, humanize.Bytes(uint64(result.Bytes)))
	s.printf("  > Saved to: %s\n", result.Path)
	return nil
}

func (s *Shell) askKind() (searchurl.Kind, error) {
	for {
		answer, err := s.ask("Search URL type (1: simple search, 2: advanced search): ")
		if err != nil {
			return searchurl.KindAuto, err
		}
		n, err := strconv.Atoi(answer)
		switch {
		case err != nil:
			s.printf("Please enter a number.\n")
		case n == 1:
			return searchurl.KindSimple, nil
		case n == 2:
			return searchurl.KindAdvanced, nil
		default:
			s.printf("Invalid choice, enter 1 or 2.\n")
		}
	}
}

func (s *Shell) askFormat() (citation.Format, error) {
	for {
		s.printf("\nExport format:\n")
		s.printf("  1: RIS (.ris) - recommended for EndNote\n")
		s.printf("  2: BibTeX (.bib) - LaTeX and most reference managers\n")
		s.printf("  3: EndNote Tagged (.enw) - EndNote only\n")
		answer, err := s.ask("Format number (1, 2 or 3): ")
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err != nil {
			s.printf("Please enter a number.\n")
			continue
		}
		f := citation.Format(n)
		if !f.Valid() {
			s.printf("Invalid choice, enter 1, 2 or 3.\n")
			continue
		}
		return f, nil
	}
}

func (s *Shell) askCount(total int) (int, error) {
	limit := s.exporter.MaxResults()
	for {
		s.printf("Note: at most %d records can be exported at once.\n", limit)
		answer, err := s.ask(fmt.Sprintf("How many of the first N papers to export (max %d, limit %d): ", total, limit))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err != nil {
			s.printf("Please enter a number.\n")
			continue
		}
		if n <= 0 {
			s.printf("The count must be greater than 0.\n")
			continue
		}
		if clamped, lowered := s.exporter.ClampCount(n, total); lowered {
			s.printf("Count out of range, using %d.\n", clamped)
			n = clamped
		}
		return n, nil
	}
}

// ask prints prompt and returns the trimmed answer line.
func (s *Shell) ask(prompt string) (string, error) {
	s.printf("%s", prompt)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		s.printf("\n")
		return "", ErrAborted
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
