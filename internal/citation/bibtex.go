package citation

import (
	"regexp"
	"strings"

	"github.com/Epistemic-Technology/arxiv-export/internal/record"
)

// maxKeyLength bounds generated citation keys, before any duplicate suffix.
const maxKeyLength = 25

var keyWord = regexp.MustCompile(`[A-Za-z0-9]+`)

// bibtexEmitter hands out unique citation keys within one document.
type bibtexEmitter struct {
	seen map[string]bool
}

func newBibTeXEmitter() *bibtexEmitter {
	return &bibtexEmitter{seen: make(map[string]bool)}
}

func (e *bibtexEmitter) Emit(r record.Record) string {
	base := CitationKey(r.Title, r.Year())
	key := base
	for n := 1; e.seen[key]; n++ {
		key = base + keySuffix(n)
	}
	e.seen[key] = true
	return formatBibTeX(key, r)
}

// FormatBibTeX renders a single record with its generated key. Use an
// Emitter from NewEmitter when rendering several records, so that
// duplicate keys get suffixes.
func FormatBibTeX(r record.Record) string {
	return formatBibTeX(CitationKey(r.Title, r.Year()), r)
}

func formatBibTeX(key string, r record.Record) string {
	var b strings.Builder
	b.WriteString("@article{" + key + ",\n")
	writeField(&b, "title", "{"+r.Title+"}")
	writeField(&b, "author", BibTeXAuthors(r.Authors))
	writeField(&b, "journal", "arXiv")
	writeField(&b, "archivePrefix", "arXiv")
	writeField(&b, "eprint", r.ArxivID)
	if r.PrimaryCategory != "" {
		writeField(&b, "primaryClass", r.PrimaryCategory)
	}
	if r.DOI != "" {
		writeField(&b, "doi", r.DOI)
	}
	writeField(&b, "year", r.Year())
	b.WriteString("  abstract = {{" + escapeBraces(r.Abstract) + "}}\n")
	b.WriteString("}")
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	b.WriteString("  " + name + " = {" + value + "},\n")
}

// CitationKey builds a key from the first two alphanumeric words of the
// title, lower-cased, followed by the year, cut to 25 characters. Titles
// without any word fall back to "arxiv".
func CitationKey(title, year string) string {
	words := keyWord.FindAllString(title, 2)
	if len(words) == 0 {
		words = []string{"arxiv"}
	}
	key := strings.ToLower(strings.Join(words, "")) + year
	if len(key) > maxKeyLength {
		key = key[:maxKeyLength]
	}
	return key
}

// keySuffix maps 1, 2, ... 26, 27 to a, b, ... z, aa.
func keySuffix(n int) string {
	var suffix []byte
	for n > 0 {
		n--
		suffix = append([]byte{byte('a' + n%26)}, suffix...)
		n /= 26
	}
	return string(suffix)
}

// BibTeXAuthors joins names as "Last, First and Last, First". The last
// whitespace-separated word is taken as the family name.
func BibTeXAuthors(authors []string) string {
	formatted := make([]string, 0, len(authors))
	for _, name := range authors {
		parts := strings.Fields(name)
		if len(parts) > 1 {
			formatted = append(formatted, parts[len(parts)-1]+", "+strings.Join(parts[:len(parts)-1], " "))
		} else {
			formatted = append(formatted, name)
		}
	}
	return strings.Join(formatted, " and ")
}

var braceEscaper = strings.NewReplacer("{", `\{`, "}", `\}`)

func escapeBraces(s string) string {
	return braceEscaper.Replace(s)
}
