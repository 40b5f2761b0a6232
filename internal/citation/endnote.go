package citation

import (
	"strings"

	"github.com/Epistemic-Technology/arxiv-export/internal/record"
)

// FormatEndNote renders r in EndNote tagged (.enw) form.
func FormatEndNote(r record.Record) string {
	lines := []string{
		"%0 Journal Article",
		"%T " + r.Title,
	}
	for _, author := range r.Authors {
		lines = append(lines, "%A "+author)
	}
	if year := r.Year(); year != "" {
		lines = append(lines, "%Y "+year)
	}
	if date := r.EndNoteDate(); date != "" {
		lines = append(lines, "%8 "+date)
	}
	lines = append(lines, "%J arXiv")
	if r.PrimaryCategory != "" {
		lines = append(lines, "%K arXiv; "+r.PrimaryCategory)
	} else {
		lines = append(lines, "%K arXiv")
	}
	if r.DOI != "" {
		lines = append(lines, "%R "+r.DOI)
	}
	lines = append(lines,
		"%Z arXiv:"+r.ArxivID,
		"%U "+r.URL,
		"%X "+r.Abstract,
	)
	return strings.Join(lines, "\n")
}
