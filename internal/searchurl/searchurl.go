// Package searchurl translates arXiv web search result URLs (simple and
// advanced search) into arXiv API query parameters.
package searchurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Epistemic-Technology/arxiv-export/arxiv"
)

var (
	// ErrInvalidURL is returned when the input is not a usable URL.
	ErrInvalidURL = errors.New("invalid search URL")

	// ErrMissingParams is returned for a simple search URL without both
	// query and searchtype.
	ErrMissingParams = errors.New("URL has no 'query' or 'searchtype' parameter")

	// ErrNoTerms is returned for an advanced search URL without any usable
	// terms-N-term parameter.
	ErrNoTerms = errors.New("URL has no usable 'terms-N-term' parameter")

	// ErrKindMismatch is returned when the requested kind contradicts the
	// URL path.
	ErrKindMismatch = errors.New("URL does not match the selected search type")
)

// Kind selects how a URL is interpreted.
type Kind int

const (
	// KindAuto picks simple or advanced from the URL.
	KindAuto Kind = iota
	KindSimple
	KindAdvanced
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindAdvanced:
		return "advanced"
	}
	return "auto"
}

// ParseKind accepts "auto", "simple" or "1", "advanced" or "2".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return KindAuto, nil
	case "1", "simple":
		return KindSimple, nil
	case "2", "advanced":
		return KindAdvanced, nil
	}
	return KindAuto, fmt.Errorf("unknown search type %q (use auto, simple or advanced)", s)
}

// Query is the normalized parameter set extracted from a search URL.
type Query struct {
	Kind        Kind
	SearchQuery string
	SortBy      arxiv.SortBy
	SortOrder   arxiv.SortOrder
}

// Params returns API search parameters for the query, starting at the
// first result.
func (q Query) Params() arxiv.SearchParams {
	return arxiv.SearchParams{
		Query:     q.SearchQuery,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	}
}

// Parser translates URLs. The zero value is ready to use.
type Parser struct {
	// Now returns the current time for relative date filters such as
	// "past 12 months". Nil means time.Now.
	Now func() time.Time
}

var defaultParser Parser

// Parse translates rawURL using kind.
func Parse(rawURL string, kind Kind) (Query, error) {
	return defaultParser.Parse(rawURL, kind)
}

// ParseSimple translates a simple search URL.
func ParseSimple(rawURL string) (Query, error) {
	return defaultParser.Parse(rawURL, KindSimple)
}

// ParseAdvanced translates an advanced search URL.
func ParseAdvanced(rawURL string) (Query, error) {
	return defaultParser.Parse(rawURL, KindAdvanced)
}

// Parse translates rawURL using kind.
func (p Parser) Parse(rawURL string, kind Kind) (Query, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return Query{}, err
	}
	values := u.Query()
	pathKind := kindFromPath(u.Path)

	if kind == KindAuto {
		kind = pathKind
		if kind == KindAuto {
			kind = kindFromValues(values)
		}
		if kind == KindAuto {
			return Query{}, fmt.Errorf("%w: cannot tell simple from advanced search", ErrInvalidURL)
		}
	} else if pathKind != KindAuto && pathKind != kind {
		return Query{}, fmt.Errorf("%w: selected %s but the URL is a%s search", ErrKindMismatch, kind, article(pathKind))
	}

	var search *arxiv.SearchQuery
	switch kind {
	case KindSimple:
		search, err = simpleQuery(values)
	case KindAdvanced:
		search, err = p.advancedQuery(values)
	default:
		return Query{}, fmt.Errorf("unknown search type %d", kind)
	}
	if err != nil {
		return Query{}, err
	}

	sortBy, sortOrder := sortFromOrder(values)
	return Query{
		Kind:        kind,
		SearchQuery: search.String(),
		SortBy:      sortBy,
		SortOrder:   sortOrder,
	}, nil
}

func parseURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.RawQuery == "" {
		return nil, fmt.Errorf("%w: no query string in %q", ErrInvalidURL, rawURL)
	}
	return u, nil
}

func kindFromPath(path string) Kind {
	path = strings.Trim(path, "/")
	switch {
	case strings.HasSuffix(path, "search/advanced"):
		return KindAdvanced
	case path == "search" || strings.HasSuffix(path, "/search"):
		return KindSimple
	}
	return KindAuto
}

func kindFromValues(values url.Values) Kind {
	switch {
	case values.Has("terms-0-term"):
		return KindAdvanced
	case values.Has("query") || values.Has("searchtype"):
		return KindSimple
	}
	return KindAuto
}

func article(k Kind) string {
	if k == KindAdvanced {
		return "n advanced"
	}
	return " " + k.String()
}

func simpleQuery(values url.Values) (*arxiv.SearchQuery, error) {
	term := unescapeValue(values.Get("query"))
	field := strings.TrimSpace(values.Get("searchtype"))
	if term == "" || field == "" {
		return nil, ErrMissingParams
	}
	return arxiv.NewSearchQuery().Term(APIField(field), term), nil
}

// unescapeValue decodes values that were percent-encoded twice, as happens
// when a search URL is copied out of another link.
func unescapeValue(v string) string {
	if strings.Contains(v, "%") {
		if decoded, err := url.PathUnescape(v); err == nil {
			v = decoded
		}
	}
	return strings.TrimSpace(v)
}

func (p Parser) advancedQuery(values url.Values) (*arxiv.SearchQuery, error) {
	terms := arxiv.NewSearchQuery()
	count := 0
	for i := 0; ; i++ {
		termKey := fmt.Sprintf("terms-%d-term", i)
		if !values.Has(termKey) {
			break
		}
		term := unescapeValue(values.Get(termKey))
		field := strings.TrimSpace(values.Get(fmt.Sprintf("terms-%d-field", i)))
		if term == "" || field == "" {
			continue
		}

		switch strings.ToUpper(strings.TrimSpace(values.Get(fmt.Sprintf("terms-%d-operator", i)))) {
		case "OR":
			terms.Or()
		case "NOT", "ANDNOT":
			terms.AndNot()
		default:
			terms.And()
		}
		apiField := APIField(field)
		terms.Group(func(g *arxiv.SearchQuery) {
			g.Term(apiField, term)
		})
		count++
	}
	if count == 0 {
		return nil, ErrNoTerms
	}

	categories := classificationCategories(values)
	from, to, hasDates, err := p.dateFilter(values)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 && !hasDates {
		return terms, nil
	}

	q := terms
	if count > 1 {
		q = arxiv.NewSearchQuery().AddGroup(terms)
	}
	if len(categories) > 0 {
		q.And().Group(func(g *arxiv.SearchQuery) {
			for _, cat := range categories {
				g.Or().Category(cat)
			}
		})
	}
	if hasDates {
		q.SubmittedBetween(from, to)
	}
	return q, nil
}
