package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Epistemic-Technology/arxiv-export/arxiv"
	"github.com/Epistemic-Technology/arxiv-export/internal/searchurl"
)

// translation is the printable form of a translated search URL.
type translation struct {
	Kind        string `json:"kind" yaml:"kind"`
	SearchQuery string `json:"search_query" yaml:"search_query"`
	SortBy      string `json:"sort_by,omitempty" yaml:"sort_by,omitempty"`
	SortOrder   string `json:"sort_order,omitempty" yaml:"sort_order,omitempty"`
	APIURL      string `json:"api_url" yaml:"api_url"`
}

func newTranslation(q searchurl.Query, client *arxiv.Client) translation {
	return translation{
		Kind:        q.Kind.String(),
		SearchQuery: q.SearchQuery,
		SortBy:      string(q.SortBy),
		SortOrder:   string(q.SortOrder),
		APIURL:      client.QueryURL(q.Params()),
	}
}

func (a *app) newTranslateCmd() *cobra.Command {
	opts := &urlFlags{}
	var output string
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Print the API query a search URL translates to",
		Long: `Print the arXiv API query, sort and request URL for a search URL
without contacting the API.

Examples:
  arxiv-export translate -u 'https://arxiv.org/search/advanced?advanced=&terms-0-term=diffusion&terms-0-field=title'
  arxiv-export translate -u '...' --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := opts.parse()
			if err != nil {
				return err
			}
			client := arxiv.NewClient(a.cfg.API.ClientOptions()...)
			return writeTranslation(cmd.OutOrStdout(), output, newTranslation(query, client))
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&output, "output", "text", "output format: text, json or yaml")
	return cmd
}

func writeTranslation(w io.Writer, output string, t translation) error {
	switch strings.ToLower(output) {
	case "text", "":
		fmt.Fprintf(w, "kind:       %s\n", t.Kind)
		fmt.Fprintf(w, "query:      %s\n", t.SearchQuery)
		if t.SortBy != "" {
			fmt.Fprintf(w, "sort:       %s %s\n", t.SortBy, t.SortOrder)
		}
		fmt.Fprintf(w, "request:    %s\n", t.APIURL)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return err
		}
		return enc.Close()
	}
	return usageError{fmt.Errorf("unknown output format %q (use text, json or yaml)", output)}
}
