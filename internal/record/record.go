// Package record normalizes arXiv API entries into the flat shape the
// citation emitters consume.
package record

import (
	"strings"
	"time"

	"github.com/Epistemic-Technology/arxiv-export/arxiv"
)

// UnknownID is used when an entry id carries no /abs/ path.
const UnknownID = "unknown"

// AbsURLPrefix is the canonical landing page prefix for a paper.
const AbsURLPrefix = "https://arxiv.org/abs/"

// Record is one paper, cleaned up for export.
type Record struct {
	Title           string
	Authors         []string
	Abstract        string
	ArxivID         string // includes the version suffix, e.g. 2401.01234v2
	URL             string
	DOI             string
	PrimaryCategory string
	Categories      []string
	Published       time.Time
	Updated         time.Time
	JournalRef      string
	Comment         string
}

var abstractStripper = strings.NewReplacer(`\`, "", "{", "", "}", "", "$", "")

// FromEntry converts a single API entry.
func FromEntry(entry arxiv.EntryMetadata) Record {
	id := ExtractID(entry.ID)

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := collapseSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	var categories []string
	for _, c := range entry.Categories {
		if c.Term != "" {
			categories = append(categories, c.Term)
		}
	}

	return Record{
		Title:           collapseSpace(entry.Title),
		Authors:         authors,
		Abstract:        CleanAbstract(entry.Summary),
		ArxivID:         id,
		URL:             AbsURLPrefix + id,
		DOI:             strings.TrimSpace(entry.DOI),
		PrimaryCategory: strings.TrimSpace(entry.PrimaryCategory.Term),
		Categories:      categories,
		Published:       entry.Published.UTC(),
		Updated:         entry.Updated.UTC(),
		JournalRef:      collapseSpace(entry.JournalReference),
		Comment:         collapseSpace(entry.Comment),
	}
}

// FromEntries converts entries in order.
func FromEntries(entries []arxiv.EntryMetadata) []Record {
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, FromEntry(entry))
	}
	return records
}

// ExtractID returns the identifier after /abs/ in an entry id URL, for both
// new-style (2401.01234v2) and old-style (hep-th/9901001v1) ids.
func ExtractID(entryID string) string {
	entryID = strings.TrimSpace(entryID)
	_, id, ok := strings.Cut(entryID, "/abs/")
	id = strings.Trim(id, "/ ")
	if !ok || id == "" {
		return UnknownID
	}
	return id
}

// CleanAbstract drops the TeX characters \ { } $ and collapses whitespace.
func CleanAbstract(s string) string {
	return collapseSpace(abstractStripper.Replace(s))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Year returns the four-digit publication year, or "" if unknown.
func (r Record) Year() string {
	if r.Published.IsZero() {
		return ""
	}
	return r.Published.Format("2006")
}

// RISDate returns the publication date as YYYY/MM/DD/.
func (r Record) RISDate() string {
	if r.Published.IsZero() {
		return ""
	}
	return r.Published.Format("2006/01/02/")
}

// EndNoteDate returns the publication date as "January 02, 2006".
func (r Record) EndNoteDate() string {
	if r.Published.IsZero() {
		return ""
	}
	return r.Published.Format("January 02, 2006")
}
