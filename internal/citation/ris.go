package citation

import (
	"strings"

	"github.com/Epistemic-Technology/arxiv-export/internal/record"
)

// FormatRIS renders r as a RIS JOUR entry. Every tag is followed by two
// spaces, a dash and a space.
func FormatRIS(r record.Record) string {
	lines := []string{
		"TY  - JOUR",
		"T1  - " + r.Title,
	}
	for _, author := range r.Authors {
		lines = append(lines, "AU  - "+author)
	}
	lines = append(lines, "AB  - "+r.Abstract)
	if year := r.Year(); year != "" {
		lines = append(lines, "PY  - "+year)
	}
	if date := r.RISDate(); date != "" {
		lines = append(lines, "DA  - "+date)
	}
	if r.DOI != "" {
		lines = append(lines, "DO  - "+r.DOI)
	}
	lines = append(lines,
		"UR  - "+r.URL,
		"JO  - arXiv",
		"PB  - arXiv",
	)
	if r.PrimaryCategory != "" {
		lines = append(lines, "KW  - "+r.PrimaryCategory)
	}
	lines = append(lines,
		"EP  - "+r.ArxivID,
		"ER  - ",
	)
	return strings.Join(lines, "\n")
}
