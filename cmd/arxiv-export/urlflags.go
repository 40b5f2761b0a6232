package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/arxiv-export/internal/searchurl"
)

// urlFlags are shared by the commands that take a search URL.
type urlFlags struct {
	url  string
	kind string
}

func (f *urlFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "arXiv search results URL (required)")
	cmd.Flags().StringVarP(&f.kind, "type", "t", "auto", "search URL type: auto, simple or advanced")
}

// parse translates the URL flag into an API query.
func (f *urlFlags) parse() (searchurl.Query, error) {
	if f.url == "" {
		return searchurl.Query{}, usageError{errors.New("--url is required")}
	}
	kind, err := searchurl.ParseKind(f.kind)
	if err != nil {
		return searchurl.Query{}, usageError{err}
	}
	q, err := searchurl.Parse(f.url, kind)
	if err != nil {
		return searchurl.Query{}, usageError{err}
	}
	return q, nil
}
