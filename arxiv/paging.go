package arxiv

import (
	"context"
	"fmt"
	"iter"
)

// SearchNext retrieves the next page of results based on the current SearchResponse.
func (c *Client) SearchNext(ctx context.Context, response SearchResults) (SearchResults, error) {
	if !SearchHasMoreResults(response) {
		return SearchResults{}, ErrNoMoreResults
	}
	response.Params.Start = response.StartIndex + response.ItemsPerPage
	return c.Search(ctx, response.Params)
}

// SearchPrevious retrieves the previous page of results based on the current SearchResponse.
func (c *Client) SearchPrevious(ctx context.Context, response SearchResults) (SearchResults, error) {
	if !SearchHasPreviousResults(response) {
		return SearchResults{}, ErrNoMoreResults
	}
	response.Params.Start = response.StartIndex - response.ItemsPerPage
	if response.Params.Start < 0 {
		response.Params.Start = 0
	}
	return c.Search(ctx, response.Params)
}

// SearchIter returns an iterator over search results, automatically handling pagination.
// The iterator stops silently on the first error; use Collect when errors
// must be surfaced.
func (c *Client) SearchIter(ctx context.Context, params SearchParams) iter.Seq[EntryMetadata] {
	return func(yield func(EntryMetadata) bool) {
		for {
			response, err := c.Search(ctx, params)
			if err != nil {
				return
			}
			for _, entry := range response.Entries {
				if !yield(entry) {
					return
				}
			}
			if len(response.Entries) == 0 || !SearchHasMoreResults(response) {
				return
			}
			params.Start = response.StartIndex + response.ItemsPerPage
		}
	}
}

// SearchHasMoreResults returns true if there are more results available for the search query.
func SearchHasMoreResults(response SearchResults) bool {
	return response.TotalResults > 0 && response.StartIndex+response.ItemsPerPage < response.TotalResults
}

// SearchHasPreviousResults returns true if there are previous results available for the search query.
func SearchHasPreviousResults(response SearchResults) bool {
	return response.TotalResults > 0 && response.StartIndex > 0
}

// Count returns the total number of results for query. It asks for a single
// entry and reads opensearch:totalResults from the feed.
func (c *Client) Count(ctx context.Context, query string) (int, error) {
	response, err := c.Search(ctx, SearchParams{Query: query, MaxResults: 1})
	if err != nil {
		return 0, err
	}
	if response.TotalResults == 0 && len(response.Entries) > 0 {
		return len(response.Entries), nil
	}
	return response.TotalResults, nil
}

// Collect fetches up to limit entries, pageSize at a time, starting at
// params.Start. Unlike SearchIter it returns the first error it meets. It
// stops early when the result set is exhausted or the API returns an empty
// page.
func (c *Client) Collect(ctx context.Context, params SearchParams, limit, pageSize int) ([]EntryMetadata, error) {
	if limit <= 0 {
		return nil, nil
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		return nil, fmt.Errorf("page size must be between 1 and %d, got %d", MaxPageSize, pageSize)
	}

	entries := make([]EntryMetadata, 0, min(limit, pageSize))
	for len(entries) < limit {
		params.MaxResults = min(pageSize, limit-len(entries))
		response, err := c.Search(ctx, params)
		if err != nil {
			return entries, fmt.Errorf("fetching results %d-%d: %w", params.Start, params.Start+params.MaxResults, err)
		}
		if len(response.Entries) == 0 {
			break
		}

		remaining := limit - len(entries)
		if len(response.Entries) > remaining {
			response.Entries = response.Entries[:remaining]
		}
		entries = append(entries, response.Entries...)

		params.Start += len(response.Entries)
		if response.TotalResults > 0 && params.Start >= response.TotalResults {
			break
		}
		if params.Start > MaxStart {
			break
		}
	}
	return entries, nil
}
