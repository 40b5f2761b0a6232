package searchurl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Epistemic-Technology/arxiv-export/arxiv"
)

const advancedBase = "https://arxiv.org/search/advanced?advanced=&abstracts=show&size=50"

func TestParseSimple(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		want      string
		sortBy    arxiv.SortBy
		sortOrder arxiv.SortOrder
	}{
		{
			name:      "title search",
			url:       "https://arxiv.org/search/?query=graph+neural+networks&searchtype=title&abstracts=show&order=-announced_date_first&size=50",
			want:      "ti:(graph neural networks)",
			sortBy:    arxiv.SortBySubmittedDate,
			sortOrder: arxiv.SortOrderDescending,
		},
		{
			name:      "comments field",
			url:       "https://arxiv.org/search/?query=NeurIPS&searchtype=comments",
			want:      "co:(NeurIPS)",
			sortBy:    arxiv.SortBySubmittedDate,
			sortOrder: arxiv.SortOrderDescending,
		},
		{
			name:      "unmapped field falls back to all",
			url:       "https://arxiv.org/search/?query=0000-0002-1825-0097&searchtype=orcid",
			want:      "all:(0000-0002-1825-0097)",
			sortBy:    arxiv.SortBySubmittedDate,
			sortOrder: arxiv.SortOrderDescending,
		},
		{
			name:   "relevance order",
			url:    "https://arxiv.org/search/?query=dark+matter&searchtype=all&order=",
			want:   "all:(dark matter)",
			sortBy: arxiv.SortByRelevance,
		},
		{
			name:      "oldest first",
			url:       "https://arxiv.org/search/?query=Hinton&searchtype=author&order=submitted_date",
			want:      "au:(Hinton)",
			sortBy:    arxiv.SortBySubmittedDate,
			sortOrder: arxiv.SortOrderAscending,
		},
		{
			name:      "double encoded query",
			url:       "https://arxiv.org/search/?query=quantum%2520error&searchtype=abstract",
			want:      "abs:(quantum error)",
			sortBy:    arxiv.SortBySubmittedDate,
			sortOrder: arxiv.SortOrderDescending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseSimple(tt.url)
			require.NoError(t, err)
			assert.Equal(t, KindSimple, q.Kind)
			assert.Equal(t, tt.want, q.SearchQuery)
			assert.Equal(t, tt.sortBy, q.SortBy)
			assert.Equal(t, tt.sortOrder, q.SortOrder)
		})
	}
}

func TestParseSimpleErrors(t *testing.T) {
	_, err := ParseSimple("https://arxiv.org/search/?searchtype=title")
	assert.ErrorIs(t, err, ErrMissingParams)

	_, err = ParseSimple("https://arxiv.org/search/?query=x&searchtype=")
	assert.ErrorIs(t, err, ErrMissingParams)

	_, err = ParseSimple("https://arxiv.org/search/?query=++&searchtype=all")
	assert.ErrorIs(t, err, ErrMissingParams)
}

func TestParseAdvanced(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "operators between terms",
			url: advancedBase +
				"&terms-0-operator=AND&terms-0-term=diffusion&terms-0-field=title" +
				"&terms-1-operator=OR&terms-1-term=Hinton&terms-1-field=author" +
				"&terms-2-operator=NOT&terms-2-term=survey&terms-2-field=abstract" +
				"&classification-physics_archives=all&classification-include_cross_list=include" +
				"&date-filter_by=all_dates&date-year=&date-from_date=&date-to_date=&date-date_type=submitted_date",
			want: "(ti:(diffusion)) OR (au:(Hinton)) ANDNOT (abs:(survey))",
		},
		{
			name: "empty terms are skipped",
			url: advancedBase +
				"&terms-0-operator=AND&terms-0-term=&terms-0-field=title" +
				"&terms-1-operator=OR&terms-1-term=transformer&terms-1-field=all" +
				"&terms-2-operator=AND&terms-2-term=cs.LG&terms-2-field=cross_list_category",
			want: "(all:(transformer)) AND (cat:(cs.LG))",
		},
		{
			name: "walk stops at first missing term",
			url: advancedBase +
				"&terms-0-term=alpha&terms-0-field=title" +
				"&terms-2-term=gamma&terms-2-field=title",
			want: "(ti:(alpha))",
		},
		{
			name: "missing operator means AND",
			url: advancedBase +
				"&terms-0-term=alpha&terms-0-field=report_num" +
				"&terms-1-term=beta&terms-1-field=journal_ref",
			want: "(rn:(alpha)) AND (jr:(beta))",
		},
		{
			name: "classification filter",
			url: advancedBase +
				"&terms-0-operator=AND&terms-0-term=diffusion&terms-0-field=title" +
				"&classification-computer_science=y&classification-statistics=y" +
				"&classification-physics_archives=all",
			want: "(ti:(diffusion)) AND (cat:cs.* OR cat:stat.*)",
		},
		{
			name: "single physics archive",
			url: advancedBase +
				"&terms-0-term=holography&terms-0-field=all" +
				"&classification-physics=y&classification-physics_archives=hep-th",
			want: "(all:(holography)) AND (cat:hep-th)",
		},
		{
			name: "date range",
			url: advancedBase +
				"&terms-0-term=diffusion&terms-0-field=title" +
				"&date-filter_by=date_range&date-from_date=2023-01-01&date-to_date=2023-12-31&date-date_type=submitted_date",
			want: "(ti:(diffusion)) AND submittedDate:[202301010000 TO 202312312359]",
		},
		{
			name: "specific year wraps several terms",
			url: advancedBase +
				"&terms-0-term=a&terms-0-field=title" +
				"&terms-1-operator=OR&terms-1-term=b&terms-1-field=abstract" +
				"&date-filter_by=specific_year&date-year=2020",
			want: "((ti:(a)) OR (abs:(b))) AND submittedDate:[202001010000 TO 202012312359]",
		},
		{
			name: "open ended range",
			url: advancedBase +
				"&terms-0-term=a&terms-0-field=title" +
				"&date-filter_by=date_range&date-from_date=&date-to_date=1995",
			want: "(ti:(a)) AND submittedDate:[199101010000 TO 199512312359]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseAdvanced(tt.url)
			require.NoError(t, err)
			assert.Equal(t, KindAdvanced, q.Kind)
			assert.Equal(t, tt.want, q.SearchQuery)
			assert.True(t, arxiv.IsValidSearchQuery(q.SearchQuery), "query should round-trip through the parser")
		})
	}
}

func TestParseAdvancedPastTwelveMonths(t *testing.T) {
	p := Parser{Now: func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }}

	q, err := p.Parse(advancedBase+"&terms-0-term=x&terms-0-field=all&date-filter_by=past_12", KindAdvanced)
	require.NoError(t, err)
	assert.Equal(t, "(all:(x)) AND submittedDate:[202306151200 TO 202406151200]", q.SearchQuery)
}

func TestParseAdvancedErrors(t *testing.T) {
	_, err := ParseAdvanced(advancedBase)
	assert.ErrorIs(t, err, ErrNoTerms)

	_, err = ParseAdvanced(advancedBase + "&terms-0-term=&terms-0-field=title&terms-1-term=++&terms-1-field=all")
	assert.ErrorIs(t, err, ErrNoTerms)

	_, err = ParseAdvanced(advancedBase + "&terms-0-term=x&terms-0-field=all&date-filter_by=date_range&date-from_date=yesterday")
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = ParseAdvanced(advancedBase + "&terms-0-term=x&terms-0-field=all&date-filter_by=specific_year&date-year=")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestParseKindDetection(t *testing.T) {
	q, err := Parse("https://arxiv.org/search/?query=x&searchtype=all", KindAuto)
	require.NoError(t, err)
	assert.Equal(t, KindSimple, q.Kind)

	q, err = Parse(advancedBase+"&terms-0-term=x&terms-0-field=all", KindAuto)
	require.NoError(t, err)
	assert.Equal(t, KindAdvanced, q.Kind)

	q, err = Parse("https://mirror.example.org/?terms-0-term=x&terms-0-field=all", KindAuto)
	require.NoError(t, err)
	assert.Equal(t, KindAdvanced, q.Kind)
	assert.Equal(t, "(all:(x))", q.SearchQuery)

	_, err = Parse("https://mirror.example.org/?foo=bar", KindAuto)
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestParseKindMismatch(t *testing.T) {
	_, err := Parse(advancedBase+"&terms-0-term=x&terms-0-field=all", KindSimple)
	assert.ErrorIs(t, err, ErrKindMismatch)

	_, err = Parse("https://arxiv.org/search/?query=x&searchtype=all", KindAdvanced)
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestParseInvalidURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "https://arxiv.org/list/cs.LG/recent", "://bad"} {
		_, err := Parse(raw, KindAuto)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

func TestQueryParams(t *testing.T) {
	q := Query{SearchQuery: "ti:(x)", SortBy: arxiv.SortBySubmittedDate, SortOrder: arxiv.SortOrderAscending}
	p := q.Params()

	assert.Equal(t, "ti:(x)", p.Query)
	assert.Equal(t, arxiv.SortBySubmittedDate, p.SortBy)
	assert.Equal(t, arxiv.SortOrderAscending, p.SortOrder)
	assert.Zero(t, p.Start)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": KindAuto, "auto": KindAuto, "1": KindSimple, "Simple": KindSimple, "2": KindAdvanced, "advanced": KindAdvanced} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseKind("3")
	assert.Error(t, err)
}

func TestAPIField(t *testing.T) {
	assert.Equal(t, arxiv.FieldTitle, APIField("title"))
	assert.Equal(t, arxiv.FieldID, APIField("paper_id"))
	assert.Equal(t, arxiv.FieldAll, APIField("msc_class"))
	assert.Equal(t, arxiv.FieldAll, APIField(""))
}
