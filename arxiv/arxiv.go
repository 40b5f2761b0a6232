// Package arxiv provides a client interface to the arXiv metadata API.
//
// [ArXiv] provides a public API for accessing metadata of scientific papers.
// Documentation for the API can be found in the [ArXiv API User Manual].
//
// Basic usage:
//
//	client := arxiv.NewClient(
//		arxiv.WithTimeout(30 * time.Second),
//		arxiv.WithRateLimit(3 * time.Second),
//		arxiv.WithDefaultRetry(),
//	)
//
//	ctx := context.Background()
//	query := arxiv.NewSearchQuery().Term(arxiv.FieldTitle, "graph neural networks")
//	params := arxiv.SearchParams{
//		Query:     query.String(),
//		SortBy:    arxiv.SortBySubmittedDate,
//		SortOrder: arxiv.SortOrderDescending,
//	}
//
//	total, err := client.Count(ctx, params.Query)
//	if err != nil {
//		return err
//	}
//	entries, err := client.Collect(ctx, params, min(total, 250), 100)
//	if err != nil {
//		return err
//	}
//	for _, entry := range entries {
//		fmt.Println(entry.Title)
//	}
//
// [ArXiv]: https://arxiv.org/
// [ArXiv API User Manual]: https://info.arxiv.org/help/api/user-manual.html
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the arXiv query endpoint.
	DefaultBaseURL = "http://export.arxiv.org/api/query"

	// DefaultUserAgent identifies the client to arXiv.
	DefaultUserAgent = "arxiv-export/1.0 (+https://github.com/Epistemic-Technology/arxiv-export)"

	// MaxPageSize is the largest max_results the API accepts in one call.
	MaxPageSize = 2000

	// MaxStart is the deepest offset the API will page to.
	MaxStart = 30000
)

// Client represents an arXiv API client.
type Client struct {
	BaseURL       string        // Base URL for the arXiv API
	RequestMethod RequestMethod // HTTP request method to use
	Timeout       time.Duration // Timeout for the HTTP request
	RateLimit     time.Duration // How long to wait between requests
	UserAgent     string        // User-Agent header sent with each request
	RetryConfig   *RetryConfig  // Configuration for retry
	interceptors  []Interceptor // Interceptors for modifying search behavior
	httpClient    *http.Client
	rateLimiter   *rate.Limiter
}

type ClientOption func(*Client)

// SearchFunc represents a function that performs a search operation.
// This is the core signature that interceptors wrap.
type SearchFunc func(ctx context.Context, params SearchParams) (SearchResults, error)

// Interceptor wraps a SearchFunc to add behavior before/after/instead of the search.
// Interceptors can:
// - Modify parameters before calling next
// - Short-circuit by not calling next (e.g., return cached results)
// - Handle errors from next
// - Add timing, logging, or other cross-cutting concerns
type Interceptor func(ctx context.Context, params SearchParams, next SearchFunc) (SearchResults, error)

// NewClient creates a new arXiv API client with the given options.
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		BaseURL:       DefaultBaseURL,
		RequestMethod: RequestMethodGet,
		Timeout:       30 * time.Second,
		RateLimit:     3 * time.Second,
		UserAgent:     DefaultUserAgent,
	}

	for _, option := range options {
		option(client)
	}

	if client.rateLimiter == nil && client.RateLimit > 0 {
		client.rateLimiter = rate.NewLimiter(rate.Every(client.RateLimit), 1)
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{
			Timeout: client.Timeout,
		}
	}

	return client
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.BaseURL = baseURL
	}
}

func WithRequestMethod(method RequestMethod) ClientOption {
	return func(c *Client) {
		c.RequestMethod = method
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.Timeout = timeout
	}
}

// WithRateLimit sets the minimum spacing between requests. Zero disables
// rate limiting.
func WithRateLimit(rateLimit time.Duration) ClientOption {
	return func(c *Client) {
		c.RateLimit = rateLimit
	}
}

func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.UserAgent = userAgent
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithRateLimiter(rateLimiter *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.rateLimiter = rateLimiter
	}
}

// WithInterceptor adds one or more interceptors to the client.
// Interceptors are executed in the order they are added, with the first
// interceptor being the outermost (called first, returns last).
// Example usage:
//
//	client := arxiv.NewClient(
//		arxiv.WithInterceptor(
//			arxiv.LoggingInterceptor(logger),
//			responseCache.Interceptor(arxiv.DefaultBaseURL, time.Hour),
//		),
//	)
func WithInterceptor(interceptors ...Interceptor) ClientOption {
	return func(c *Client) {
		c.interceptors = append(c.interceptors, interceptors...)
	}
}

// RequestMethod specifies the HTTP method for API requests. ArXiv's API supports
// both GET and POST methods for search queries.
type RequestMethod int

const (
	RequestMethodGet RequestMethod = iota
	RequestMethodPost
)

// SearchParams contains parameters for making a search request to the arXiv API.
// See the [arXiv API documentation] for more information on the available
// parameters and constructing queries.
//
// Note that MaxResults should be limited to 2000 and Start should be limited to 30000.
//
// [arXiv API documentation]: https://info.arxiv.org/help/api/user-manual.html#_query_interface
type SearchParams struct {
	Query      string
	IdList     []string
	Start      int
	MaxResults int
	SortBy     SortBy
	SortOrder  SortOrder
}

func (p SearchParams) Validate() error {
	if p.MaxResults > MaxPageSize {
		return fmt.Errorf("maxResults cannot exceed %d", MaxPageSize)
	}
	if p.Start > MaxStart {
		return fmt.Errorf("start cannot exceed %d", MaxStart)
	}
	if p.Start < 0 || p.MaxResults < 0 {
		return fmt.Errorf("start and maxResults must not be negative")
	}
	return nil
}

// SortBy specifies how to sort search results.
type SortBy string

const (
	SortByRelevance       SortBy = "relevance"
	SortByLastUpdatedDate SortBy = "lastUpdatedDate"
	SortBySubmittedDate   SortBy = "submittedDate"
)

// SortOrder specifies the ordering direction for sorted search results.
type SortOrder string

const (
	SortOrderAscending  SortOrder = "ascending"
	SortOrderDescending SortOrder = "descending"
)

// SearchResults contains metadata for search results returned by the arXiv API.
// The Params field contains the parameters used to make the search request.
type SearchResults struct {
	Links        []Link          `xml:"link" json:"links,omitempty"`        // Links included in the response. Includes link for current search.
	Title        string          `xml:"title" json:"title,omitempty"`       // Title of the search response, includes search query.
	ID           string          `xml:"id" json:"id,omitempty"`             // ID of the search response, as a URL.
	Updated      string          `xml:"updated" json:"updated,omitempty"`   // Time the search response was updated (generally the time it was made).
	TotalResults int             `xml:"totalResults" json:"total_results"`  // Total number of results available for the search query.
	StartIndex   int             `xml:"startIndex" json:"start_index"`      // Index of the first result returned in the current response.
	ItemsPerPage int             `xml:"itemsPerPage" json:"items_per_page"` // Number of results returned in the current response.
	Entries      []EntryMetadata `xml:"entry" json:"entries"`               // Metadata for each entry in the search response.
	Params       SearchParams    `xml:"-" json:"params"`                    // Parameters used to make the search request.
}

// EntryMetadata contains metadata for a single entry in the search response.
type EntryMetadata struct {
	Title            string     `xml:"title" json:"title"`                             // Title of the entry.
	ID               string     `xml:"id" json:"id"`                                   // ID of the entry, as a URL.
	Published        time.Time  `xml:"published" json:"published"`                     // Time the entry was published.
	Updated          time.Time  `xml:"updated" json:"updated"`                         // Time the entry was last updated.
	Summary          string     `xml:"summary" json:"summary"`                         // Summary (abstract) of the entry.
	Authors          []Author   `xml:"author" json:"authors"`                          // Authors of the entry.
	Categories       []Category `xml:"category" json:"categories"`                     // Subject categories of the entry.
	PrimaryCategory  Category   `xml:"primary_category" json:"primary_category"`       // Primary subject category of the entry.
	Links            []Link     `xml:"link" json:"links"`                              // Links included in the entry. Includes link to the PDF.
	Comment          string     `xml:"comment" json:"comment,omitempty"`               // Comment on the entry. Includes information such as where the paper was submitted or number of pages, figures, etc.
	JournalReference string     `xml:"journal_ref" json:"journal_reference,omitempty"` // Journal reference for the entry.
	DOI              string     `xml:"doi" json:"doi,omitempty"`                       // Digital Object Identifier (DOI) for the entry.
}

// Author contains information about an author of a paper.
type Author struct {
	Name        string `xml:"name" json:"name"`
	Affiliation string `xml:"affiliation" json:"affiliation,omitempty"`
}

// Category contains information about a subject category of a paper.
type Category struct {
	Term string `xml:"term,attr" json:"term"`
}

// Link contains information about a link associated with a paper.
type Link struct {
	Href  string `xml:"href,attr" json:"href"`
	Rel   string `xml:"rel,attr" json:"rel,omitempty"`
	Type  string `xml:"type,attr" json:"type,omitempty"`
	Title string `xml:"title,attr" json:"title,omitempty"`
}

// RawSearch sends one search request, retried per RetryConfig, and returns
// the raw HTTP response. The caller closes the body. A non-200 response
// is returned with a nil error once retries are exhausted.
func (c *Client) RawSearch(ctx context.Context, params SearchParams) (*http.Response, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return c.withRetry(ctx, func() (*http.Response, error) {
		if c.RequestMethod == RequestMethodPost {
			return DoPostRequest(ctx, c, params)
		}
		return DoGetRequest(ctx, c, params)
	})
}

// Search makes a search request to the arXiv API and returns the parsed response.
func (c *Client) Search(ctx context.Context, params SearchParams) (SearchResults, error) {
	searchFunc := c.doSearch

	// Apply interceptors in reverse order (first added = outermost)
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		interceptor := c.interceptors[i]
		next := searchFunc
		searchFunc = func(ctx context.Context, p SearchParams) (SearchResults, error) {
			return interceptor(ctx, p, next)
		}
	}

	return searchFunc(ctx, params)
}

// doSearch performs the actual search operation.
// This is the core implementation that interceptors wrap.
func (c *Client) doSearch(ctx context.Context, params SearchParams) (SearchResults, error) {
	response, err := c.RawSearch(ctx, params)
	if err != nil {
		return SearchResults{}, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1<<20))
		return SearchResults{}, newStatusError(response.StatusCode, body)
	}

	parsedResponse, err := ParseResponse(io.LimitReader(response.Body, 50<<20))
	if err != nil {
		return SearchResults{}, fmt.Errorf("decoding response: %w", err)
	}
	if apiErr := feedError(parsedResponse); apiErr != nil {
		return SearchResults{}, apiErr
	}
	parsedResponse.Params = params

	return parsedResponse, nil
}

// DoGetRequest performs a GET request to the arXiv API with the specified parameters.
func DoGetRequest(ctx context.Context, client *Client, params SearchParams) (*http.Response, error) {
	queryString := makeGetQuery(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.BaseURL+"?"+queryString, nil)
	if err != nil {
		return nil, err
	}
	client.setHeaders(req)
	return client.httpClient.Do(req)
}

// DoPostRequest performs a POST request to the arXiv API with the specified
// parameters sent as a form-encoded body.
func DoPostRequest(ctx context.Context, client *Client, params SearchParams) (*http.Response, error) {
	body := strings.NewReader(makeGetQuery(params))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.BaseURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	client.setHeaders(req)
	return client.httpClient.Do(req)
}

// QueryURL returns the GET request URL for params.
func (c *Client) QueryURL(params SearchParams) string {
	return c.BaseURL + "?" + makeGetQuery(params)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
}

// ParseResponse parses a search response from the arXiv API.
func ParseResponse(responseData io.Reader) (SearchResults, error) {
	decoder := xml.NewDecoder(responseData)
	var searchResponse SearchResults
	err := decoder.Decode(&searchResponse)
	if err != nil {
		return SearchResults{}, err
	}
	return searchResponse, nil
}

// ParseSingleEntry parses a single entry from the arXiv API.
func ParseSingleEntry(entryData io.Reader) (EntryMetadata, error) {
	decoder := xml.NewDecoder(entryData)
	var entry EntryMetadata
	err := decoder.Decode(&entry)
	if err != nil {
		return EntryMetadata{}, err
	}
	return entry, nil
}

func makeGetQuery(params SearchParams) string {
	query := url.Values{}

	if params.Query != "" {
		query.Add("search_query", params.Query)
	}
	if len(params.IdList) > 0 {
		idListStr := strings.Join(params.IdList, ",")
		query.Add("id_list", idListStr)
	}
	if params.Start > 0 {
		query.Add("start", strconv.Itoa(params.Start))
	}
	if params.MaxResults > 0 {
		query.Add("max_results", strconv.Itoa(params.MaxResults))
	}
	if params.SortBy != "" {
		query.Add("sortBy", string(params.SortBy))
	}
	if params.SortOrder != "" {
		query.Add("sortOrder", string(params.SortOrder))
	}

	return query.Encode()
}
