package searchurl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Epistemic-Technology/arxiv-export/arxiv"
)

// fieldMap maps web search field names to API field prefixes.
var fieldMap = map[string]arxiv.QueryField{
	"title":               arxiv.FieldTitle,
	"author":              arxiv.FieldAuthor,
	"abstract":            arxiv.FieldAbstract,
	"comments":            arxiv.FieldComment,
	"journal_ref":         arxiv.FieldJournal,
	"report_num":          arxiv.FieldReportNumber,
	"paper_id":            arxiv.FieldID,
	"cross_list_category": arxiv.FieldCategory,
	"all":                 arxiv.FieldAll,
}

// APIField returns the API prefix for a web search field. Fields the API
// cannot search directly (acm_class, msc_class, doi, orcid, ...) map to
// all.
func APIField(webField string) arxiv.QueryField {
	if f, ok := fieldMap[strings.ToLower(strings.TrimSpace(webField))]; ok {
		return f
	}
	return arxiv.FieldAll
}

// classificationGroups maps advanced search classification-<group> flags to
// API categories.
var classificationGroups = map[string][]string{
	"computer_science": {"cs.*"},
	"economics":        {"econ.*"},
	"eess":             {"eess.*"},
	"mathematics":      {"math.*"},
	"q_biology":        {"q-bio.*"},
	"q_finance":        {"q-fin.*"},
	"statistics":       {"stat.*"},
}

// classificationOrder fixes the order groups appear in the query.
var classificationOrder = []string{
	"computer_science", "economics", "eess", "mathematics", "physics",
	"q_biology", "q_finance", "statistics",
}

// physicsArchives maps the classification-physics_archives choice to
// categories. Archives without subject classes are matched exactly.
var physicsArchives = map[string][]string{
	"astro-ph": {"astro-ph.*"},
	"cond-mat": {"cond-mat.*"},
	"gr-qc":    {"gr-qc"},
	"hep-ex":   {"hep-ex"},
	"hep-lat":  {"hep-lat"},
	"hep-ph":   {"hep-ph"},
	"hep-th":   {"hep-th"},
	"math-ph":  {"math-ph"},
	"nlin":     {"nlin.*"},
	"nucl-ex":  {"nucl-ex"},
	"nucl-th":  {"nucl-th"},
	"physics":  {"physics.*"},
	"quant-ph": {"quant-ph"},
}

var physicsArchiveOrder = []string{
	"astro-ph", "cond-mat", "gr-qc", "hep-ex", "hep-lat", "hep-ph", "hep-th",
	"math-ph", "nlin", "nucl-ex", "nucl-th", "physics", "quant-ph",
}

func flagSet(values url.Values, key string) bool {
	switch strings.ToLower(values.Get(key)) {
	case "y", "yes", "on", "true", "1":
		return true
	}
	return false
}

func classificationCategories(values url.Values) []string {
	var cats []string
	for _, group := range classificationOrder {
		if !flagSet(values, "classification-"+group) {
			continue
		}
		if group != "physics" {
			cats = append(cats, classificationGroups[group]...)
			continue
		}
		archive := strings.ToLower(values.Get("classification-physics_archives"))
		if archive == "" || archive == "all" {
			for _, name := range physicsArchiveOrder {
				cats = append(cats, physicsArchives[name]...)
			}
			continue
		}
		if archiveCats, ok := physicsArchives[archive]; ok {
			cats = append(cats, archiveCats...)
		}
	}
	return cats
}

// firstSubmission is the earliest possible arXiv submission date, used as
// the lower bound of open-ended ranges.
var firstSubmission = time.Date(1991, time.January, 1, 0, 0, 0, 0, time.UTC)

func (p Parser) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

// dateFilter reads the date-filter_by group of an advanced search.
func (p Parser) dateFilter(values url.Values) (from, to time.Time, ok bool, err error) {
	switch values.Get("date-filter_by") {
	case "past_12":
		to = p.now()
		return to.AddDate(-1, 0, 0), to, true, nil

	case "specific_year":
		year, convErr := strconv.Atoi(strings.TrimSpace(values.Get("date-year")))
		if convErr != nil {
			return from, to, false, fmt.Errorf("%w: bad date-year %q", ErrInvalidURL, values.Get("date-year"))
		}
		from = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, endOf(from, 1, 0, 0), true, nil

	case "date_range":
		fromStr := strings.TrimSpace(values.Get("date-from_date"))
		toStr := strings.TrimSpace(values.Get("date-to_date"))
		if fromStr == "" && toStr == "" {
			return from, to, false, nil
		}
		from, to = firstSubmission, p.now()
		if fromStr != "" {
			if from, _, err = parseWebDate(fromStr); err != nil {
				return from, to, false, err
			}
		}
		if toStr != "" {
			start, span, parseErr := parseWebDate(toStr)
			if parseErr != nil {
				return from, to, false, parseErr
			}
			to = endOf(start, span[0], span[1], span[2])
		}
		return from, to, true, nil
	}
	return from, to, false, nil
}

// parseWebDate accepts YYYY-MM-DD, YYYY-MM or YYYY and reports the span the
// value covers as (years, months, days).
func parseWebDate(s string) (time.Time, [3]int, error) {
	layouts := []struct {
		layout string
		span   [3]int
	}{
		{"2006-01-02", [3]int{0, 0, 1}},
		{"2006-01", [3]int{0, 1, 0}},
		{"2006", [3]int{1, 0, 0}},
	}
	for _, l := range layouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return t, l.span, nil
		}
	}
	return time.Time{}, [3]int{}, fmt.Errorf("%w: bad date %q (use YYYY-MM-DD)", ErrInvalidURL, s)
}

// endOf returns the last minute of the period starting at t.
func endOf(t time.Time, years, months, days int) time.Time {
	return t.AddDate(years, months, days).Add(-time.Minute)
}

// sortFromOrder maps the web order parameter to API sorting. Without an
// order parameter results are newest first.
func sortFromOrder(values url.Values) (arxiv.SortBy, arxiv.SortOrder) {
	if !values.Has("order") {
		return arxiv.SortBySubmittedDate, arxiv.SortOrderDescending
	}
	order := strings.TrimSpace(values.Get("order"))
	switch order {
	case "":
		return arxiv.SortByRelevance, ""
	case "-announced_date_first", "-submitted_date":
		return arxiv.SortBySubmittedDate, arxiv.SortOrderDescending
	case "announced_date_first", "submitted_date":
		return arxiv.SortBySubmittedDate, arxiv.SortOrderAscending
	}
	return arxiv.SortBySubmittedDate, arxiv.SortOrderDescending
}
