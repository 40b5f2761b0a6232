package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/arxiv-export/arxiv"
	"github.com/Epistemic-Technology/arxiv-export/internal/record"
)

type searchOptions struct {
	query      string
	idList     string
	start      int
	maxResults int
	sortBy     string
	sortOrder  string
}

func (a *app) newSearchCmd() *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List raw API results for an API query",
		Long: `List results for an arXiv API query (search_query syntax) as a table.

Examples:
  arxiv-export search --query 'ti:(graph neural networks) AND cat:cs.LG' --max-results 20
  arxiv-export search --id-list 2401.00001,2401.00002`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.query, "query", "", "search query")
	cmd.Flags().StringVar(&opts.idList, "id-list", "", "comma-separated list of IDs")
	cmd.Flags().IntVar(&opts.start, "start", 0, "start index for results")
	cmd.Flags().IntVar(&opts.maxResults, "max-results", 10, "maximum number of results")
	cmd.Flags().StringVar(&opts.sortBy, "sort-by", "", "field to sort results by (relevance, lastUpdatedDate, submittedDate)")
	cmd.Flags().StringVar(&opts.sortOrder, "sort-order", "", "sort order (ascending, descending)")
	return cmd
}

func (o *searchOptions) params() (arxiv.SearchParams, error) {
	params := arxiv.SearchParams{
		Query:      strings.TrimSpace(o.query),
		Start:      o.start,
		MaxResults: o.maxResults,
		SortBy:     arxiv.SortBy(o.sortBy),
		SortOrder:  arxiv.SortOrder(o.sortOrder),
	}
	for _, id := range strings.Split(o.idList, ",") {
		if id = strings.TrimSpace(id); id != "" {
			params.IdList = append(params.IdList, id)
		}
	}
	if params.Query == "" && len(params.IdList) == 0 {
		return params, fmt.Errorf("one of --query or --id-list is required")
	}
	if params.Query != "" && !arxiv.IsValidSearchQuery(params.Query) {
		return params, fmt.Errorf("invalid search query %q", params.Query)
	}
	switch params.SortBy {
	case "", arxiv.SortByRelevance, arxiv.SortByLastUpdatedDate, arxiv.SortBySubmittedDate:
	default:
		return params, fmt.Errorf("unknown --sort-by %q", o.sortBy)
	}
	switch params.SortOrder {
	case "", arxiv.SortOrderAscending, arxiv.SortOrderDescending:
	default:
		return params, fmt.Errorf("unknown --sort-order %q", o.sortOrder)
	}
	if err := params.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

func (a *app) runSearch(cmd *cobra.Command, opts *searchOptions) error {
	params, err := opts.params()
	if err != nil {
		return usageError{err}
	}

	client, release := a.newClient(cmd)
	defer release()

	response, err := client.Search(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("searching arXiv: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTitle\tAuthor\tYear\tDOI")
	fmt.Fprintln(w, "--\t-----\t------\t----\t---")
	for _, r := range record.FromEntries(response.Entries) {
		author := ""
		if len(r.Authors) > 0 {
			author = r.Authors[0]
			if len(r.Authors) > 1 {
				author += " et al."
			}
		}
		fmt.Fprintf(w, "%s\t%.50s\t%.25s\t%s\t%.25s\n", r.ArxivID, r.Title, author, r.Year(), r.DOI)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "showing %d-%d of %d results\n",
		response.StartIndex+min(1, len(response.Entries)), response.StartIndex+len(response.Entries), response.TotalResults)
	return nil
}
