package arxiv

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type queryOperator string

const (
	opAnd    queryOperator = "AND"
	opOr     queryOperator = "OR"
	opAndNot queryOperator = "ANDNOT"
)

// QueryField is an arXiv API search field prefix, such as "ti" or "au".
type QueryField string

const (
	FieldTitle           QueryField = "ti"
	FieldAbstract        QueryField = "abs"
	FieldAuthor          QueryField = "au"
	FieldCategory        QueryField = "cat"
	FieldComment         QueryField = "co"
	FieldJournal         QueryField = "jr"
	FieldReportNumber    QueryField = "rn"
	FieldID              QueryField = "id"
	FieldAll             QueryField = "all"
	FieldSubmittedDate   QueryField = "submittedDate"
	FieldLastUpdatedDate QueryField = "lastUpdatedDate"
)

// dateLayout is the arXiv API date format: YYYYMMDDTTTT in GMT.
const dateLayout = "200601021504"

var searchFields = map[QueryField]bool{
	FieldTitle:        true,
	FieldAbstract:     true,
	FieldAuthor:       true,
	FieldCategory:     true,
	FieldComment:      true,
	FieldJournal:      true,
	FieldReportNumber: true,
	FieldID:           true,
	FieldAll:          true,
}

type queryNode interface {
	encode() string
}

type fieldQuery struct {
	field   QueryField
	value   string
	grouped bool
}

func (f *fieldQuery) encode() string {
	// Don't URL encode here - it will be encoded by url.Values.Encode() in makeGetQuery
	if f.grouped {
		return fmt.Sprintf("%s:(%s)", f.field, f.value)
	}
	return fmt.Sprintf("%s:%s", f.field, f.value)
}

type groupQuery struct {
	nodes []queryNode
}

func (g *groupQuery) encode() string {
	var parts []string
	for _, node := range g.nodes {
		parts = append(parts, node.encode())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

type operatorNode struct {
	op queryOperator
}

func (o *operatorNode) encode() string {
	return string(o.op)
}

type dateRangeQuery struct {
	field     QueryField
	startDate time.Time
	endDate   time.Time
}

func (d *dateRangeQuery) encode() string {
	start := d.startDate.UTC().Format(dateLayout)
	end := d.endDate.UTC().Format(dateLayout)
	// Use spaces instead of + since url.Values.Encode() will handle the encoding
	return fmt.Sprintf("%s:[%s TO %s]", d.field, start, end)
}

// SearchQuery represents a search query for the arXiv API.
type SearchQuery struct {
	nodes []queryNode
}

// NewSearchQuery creates a new SearchQuery builder.
func NewSearchQuery() *SearchQuery {
	return &SearchQuery{
		nodes: []queryNode{},
	}
}

// Title adds a title search term.
func (q *SearchQuery) Title(value string) *SearchQuery {
	return q.Field(FieldTitle, value)
}

// Abstract adds an abstract search term.
func (q *SearchQuery) Abstract(value string) *SearchQuery {
	return q.Field(FieldAbstract, value)
}

// Author adds an author search term.
func (q *SearchQuery) Author(value string) *SearchQuery {
	return q.Field(FieldAuthor, value)
}

// Category adds a category search term.
func (q *SearchQuery) Category(value string) *SearchQuery {
	return q.Field(FieldCategory, value)
}

// Comment adds a comment search term.
func (q *SearchQuery) Comment(value string) *SearchQuery {
	return q.Field(FieldComment, value)
}

// Journal adds a journal reference search term.
func (q *SearchQuery) Journal(value string) *SearchQuery {
	return q.Field(FieldJournal, value)
}

// ReportNumber adds a report number search term.
func (q *SearchQuery) ReportNumber(value string) *SearchQuery {
	return q.Field(FieldReportNumber, value)
}

// All adds a search term that searches all fields.
func (q *SearchQuery) All(value string) *SearchQuery {
	return q.Field(FieldAll, value)
}

// Field adds a bare field:value term.
func (q *SearchQuery) Field(field QueryField, value string) *SearchQuery {
	q.nodes = append(q.nodes, &fieldQuery{field: field, value: value})
	return q
}

// Term adds a field:(value) term. The parentheses keep multi-word values
// scoped to the field instead of spilling over into all:.
func (q *SearchQuery) Term(field QueryField, value string) *SearchQuery {
	q.nodes = append(q.nodes, &fieldQuery{field: field, value: value, grouped: true})
	return q
}

// And adds an AND operator.
func (q *SearchQuery) And() *SearchQuery {
	if len(q.nodes) > 0 {
		q.nodes = append(q.nodes, &operatorNode{op: opAnd})
	}
	return q
}

// Or adds an OR operator.
func (q *SearchQuery) Or() *SearchQuery {
	if len(q.nodes) > 0 {
		q.nodes = append(q.nodes, &operatorNode{op: opOr})
	}
	return q
}

// AndNot adds an ANDNOT operator.
func (q *SearchQuery) AndNot() *SearchQuery {
	if len(q.nodes) > 0 {
		q.nodes = append(q.nodes, &operatorNode{op: opAndNot})
	}
	return q
}

// Group adds a grouped sub-query.
func (q *SearchQuery) Group(fn func(g *SearchQuery)) *SearchQuery {
	group := NewSearchQuery()
	fn(group)
	if len(group.nodes) > 0 {
		q.nodes = append(q.nodes, &groupQuery{nodes: group.nodes})
	}
	return q
}

// AddGroup adds an already built query as a parenthesized group.
func (q *SearchQuery) AddGroup(sub *SearchQuery) *SearchQuery {
	if sub != nil && len(sub.nodes) > 0 {
		q.nodes = append(q.nodes, &groupQuery{nodes: append([]queryNode(nil), sub.nodes...)})
	}
	return q
}

// SubmittedBetween adds a date range query for submission date.
func (q *SearchQuery) SubmittedBetween(start, end time.Time) *SearchQuery {
	return q.dateRange(FieldSubmittedDate, start, end)
}

// LastUpdatedBetween adds a date range query for the last update date.
func (q *SearchQuery) LastUpdatedBetween(start, end time.Time) *SearchQuery {
	return q.dateRange(FieldLastUpdatedDate, start, end)
}

func (q *SearchQuery) dateRange(field QueryField, start, end time.Time) *SearchQuery {
	if len(q.nodes) > 0 && !q.endsWithOperator() {
		q.nodes = append(q.nodes, &operatorNode{op: opAnd})
	}
	q.nodes = append(q.nodes, &dateRangeQuery{
		field:     field,
		startDate: start,
		endDate:   end,
	})
	return q
}

func (q *SearchQuery) endsWithOperator() bool {
	if len(q.nodes) == 0 {
		return false
	}
	_, ok := q.nodes[len(q.nodes)-1].(*operatorNode)
	return ok
}

// IsEmpty reports whether the query has no terms.
func (q *SearchQuery) IsEmpty() bool {
	return len(q.nodes) == 0
}

// String encodes the SearchQuery to a string suitable for the arXiv API.
func (q *SearchQuery) String() string {
	var parts []string
	for _, node := range q.nodes {
		parts = append(parts, node.encode())
	}
	return strings.Join(parts, " ")
}

// ParseSearchQuery parses a search query string into a SearchQuery.
// The query string should not use special characters such as + for
// spaces or % encoded characters. Parenthesized groups are preserved.
func ParseSearchQuery(query string) (*SearchQuery, error) {
	q := NewSearchQuery()
	if strings.TrimSpace(query) == "" {
		return q, nil
	}

	tokens := tokenizeQuery(query)
	pos := 0
	if err := parseSequence(q, tokens, &pos, 0); err != nil {
		return nil, err
	}
	if pos < len(tokens) {
		return nil, fmt.Errorf("unbalanced parentheses in query: %s", query)
	}
	return q, nil
}

func parseSequence(q *SearchQuery, tokens []string, pos *int, depth int) error {
	for *pos < len(tokens) {
		token := tokens[*pos]
		switch {
		case token == "(":
			*pos++
			group := NewSearchQuery()
			if err := parseSequence(group, tokens, pos, depth+1); err != nil {
				return err
			}
			if *pos >= len(tokens) || tokens[*pos] != ")" {
				return fmt.Errorf("unbalanced parentheses in query")
			}
			*pos++
			if len(group.nodes) > 0 {
				q.nodes = append(q.nodes, &groupQuery{nodes: group.nodes})
			}
			continue
		case token == ")":
			if depth == 0 {
				return fmt.Errorf("unbalanced parentheses in query")
			}
			return nil
		case isOperator(token):
			q.nodes = append(q.nodes, &operatorNode{op: queryOperator(strings.ToUpper(token))})
		default:
			if err := parseFieldToken(q, token); err != nil {
				return err
			}
		}
		*pos++
	}
	return nil
}

func parseFieldToken(q *SearchQuery, token string) error {
	field, rawValue, ok := strings.Cut(token, ":")
	if !ok {
		return fmt.Errorf("missing field prefix: %s", token)
	}
	value, err := url.QueryUnescape(rawValue)
	if err != nil {
		return fmt.Errorf("invalid URL encoding: %w", err)
	}

	qf := QueryField(field)
	switch {
	case searchFields[qf]:
		if strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
			q.Term(qf, value[1:len(value)-1])
		} else {
			q.Field(qf, value)
		}
	case qf == FieldSubmittedDate || qf == FieldLastUpdatedDate:
		start, end, err := parseDateRange(value)
		if err != nil {
			return err
		}
		q.dateRange(qf, start, end)
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return nil
}

// IsValidSearchQuery checks if a search query is valid.
func IsValidSearchQuery(query string) bool {
	_, err := ParseSearchQuery(query)
	return err == nil
}

// parseDateRange parses "[YYYYMMDDTTTT TO YYYYMMDDTTTT]".
func parseDateRange(value string) (time.Time, time.Time, error) {
	if !strings.HasPrefix(value, "[") || !strings.HasSuffix(value, "]") {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date range format: %s", value)
	}
	from, to, ok := strings.Cut(strings.Trim(value, "[]"), " TO ")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date range format: %s", value)
	}
	start, err1 := parseArxivDate(from)
	end, err2 := parseArxivDate(to)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date format: %s", value)
	}
	return start, end, nil
}

// parseArxivDate parses a date in arXiv format (YYYYMMDDTTTT) to time.Time.
// The format is YYYYMMDDTTTT where TTTT is 24-hour time to the minute in GMT.
func parseArxivDate(dateStr string) (time.Time, error) {
	if len(dateStr) != len(dateLayout) {
		return time.Time{}, fmt.Errorf("invalid date format: %s", dateStr)
	}
	return time.Parse(dateLayout, dateStr)
}

// tokenizeQuery splits a query string into field terms, operators and
// bare parentheses. A value written as field:(a b) keeps its parentheses.
func tokenizeQuery(query string) []string {
	var tokens []string
	var current strings.Builder
	valueParens := 0
	inBrackets := false
	inFieldValue := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(query); i++ {
		ch := query[i]

		switch ch {
		case '(':
			if inFieldValue && (valueParens > 0 || query[i-1] != ' ') {
				valueParens++
				current.WriteByte(ch)
				continue
			}
			flush()
			tokens = append(tokens, "(")
		case ')':
			if valueParens > 0 {
				valueParens--
				current.WriteByte(ch)
				continue
			}
			flush()
			inFieldValue = false
			tokens = append(tokens, ")")
		case '[':
			inBrackets = true
			current.WriteByte(ch)
		case ']':
			inBrackets = false
			current.WriteByte(ch)
		case ':':
			current.WriteByte(ch)
			if !inBrackets && !inFieldValue {
				inFieldValue = true
			}
		case ' ':
			if valueParens > 0 || inBrackets {
				current.WriteByte(ch)
			} else if inFieldValue {
				nextWord := getNextWord(query, i+1)
				if isOperator(nextWord) || strings.Contains(nextWord, ":") || nextWord == "" {
					flush()
					inFieldValue = false
				} else {
					current.WriteByte(ch)
				}
			} else {
				flush()
			}
		default:
			current.WriteByte(ch)
		}
	}
	flush()

	return tokens
}

// getNextWord gets the next word starting from position i in the string
func getNextWord(s string, i int) string {
	for i < len(s) && (s[i] == ' ' || s[i] == '(') {
		i++
	}

	start := i
	for i < len(s) && s[i] != ' ' && s[i] != '(' && s[i] != ')' {
		i++
	}

	if start < len(s) {
		return s[start:i]
	}
	return ""
}

// isOperator checks if a word is a boolean operator
func isOperator(word string) bool {
	op := queryOperator(strings.ToUpper(word))
	return op == opAnd || op == opOr || op == opAndNot
}
