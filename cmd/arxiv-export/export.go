package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/arxiv-export/arxiv"
	"github.com/Epistemic-Technology/arxiv-export/internal/citation"
	"github.com/Epistemic-Technology/arxiv-export/internal/exporter"
)

type exportOptions struct {
	urlFlags
	format    string
	count     int
	outputDir string
	stdout    bool
	quiet     bool
}

func (a *app) newExportCmd() *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the first N results of a search URL",
		Long: `Export the first N results of an arXiv search URL without prompts.

N is clamped to the number of results and to the export limit (1000).

Examples:
  arxiv-export export -u 'https://arxiv.org/search/?query=transformer&searchtype=all' -f ris -n 100
  arxiv-export export -u '...' -f bibtex -n 50 --stdout > refs.bib`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(cmd, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: ris, bibtex or endnote (default from config)")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "number of results to export (required)")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "directory for the export file (default from config)")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "write the export to stdout instead of a file")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not report progress")
	return cmd
}

func (a *app) runExport(cmd *cobra.Command, opts *exportOptions) error {
	query, err := opts.parse()
	if err != nil {
		return err
	}
	if opts.count <= 0 {
		return usageError{errors.New("--count must be greater than 0")}
	}
	format, err := a.exportFormat(opts.format)
	if err != nil {
		return usageError{err}
	}

	// Progress lines go to stderr so --stdout output stays clean. They start
	// once the count probe has fixed the number of records to export.
	status := cmd.ErrOrStderr()
	target := 0
	progress := arxiv.ProgressInterceptor(func(start, fetched, _ int) {
		if target > 0 && !opts.quiet {
			fmt.Fprintf(status, "  fetched %d of %d\n", min(start+fetched, target), target)
		}
	})

	client, release := a.newClient(cmd, progress)
	defer release()
	exp := a.newExporter(client)

	total, err := exp.Total(cmd.Context(), query)
	if err != nil {
		return err
	}
	if total == 0 {
		return exporter.ErrNoResults
	}
	count, clamped := exp.ClampCount(opts.count, total)
	if clamped {
		fmt.Fprintf(status, "Requested %d results, exporting %d (%s available).\n",
			opts.count, count, humanize.Comma(int64(total)))
	}

	req := exporter.Request{
		Query:     query,
		Count:     count,
		Format:    format,
		OutputDir: a.cfg.Export.OutputDir,
	}
	if opts.outputDir != "" {
		req.OutputDir = opts.outputDir
	}
	var summary io.Writer = cmd.OutOrStdout()
	if opts.stdout {
		req.Writer = cmd.OutOrStdout()
		summary = status
	}

	target = count
	result, err := exp.Export(cmd.Context(), req)
	if err != nil {
		return err
	}

	if opts.quiet && opts.stdout {
		return nil
	}
	if result.Path != "" {
		fmt.Fprintf(summary, "Exported %d %s records (%s) to %s\n",
			result.Count, result.Format, humanize.Bytes(uint64(result.Bytes)), result.Path)
	} else {
		fmt.Fprintf(summary, "Exported %d %s records (%s)\n",
			result.Count, result.Format, humanize.Bytes(uint64(result.Bytes)))
	}
	return nil
}

// exportFormat parses the --format flag, falling back to the configured
// default.
func (a *app) exportFormat(flag string) (citation.Format, error) {
	if flag != "" {
		return citation.ParseFormat(flag)
	}
	return a.cfg.Export.ExportFormat()
}
