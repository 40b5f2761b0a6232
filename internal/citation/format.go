// Package citation renders normalized records as RIS, BibTeX or
// EndNote-tagged text.
package citation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/arxiv-export/internal/record"
)

// Format is an export file format.
type Format int

const (
	RIS Format = iota + 1
	BibTeX
	EndNote
)

// Formats lists every supported format in menu order.
var Formats = []Format{RIS, BibTeX, EndNote}

// ErrUnknownFormat is returned by ParseFormat for unrecognized input.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts a menu number (1, 2, 3) or a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "ris":
		return RIS, nil
	case "2", "bib", "bibtex":
		return BibTeX, nil
	case "3", "enw", "endnote":
		return EndNote, nil
	}
	return 0, fmt.Errorf("%w: %q (use ris, bibtex or endnote)", ErrUnknownFormat, s)
}

// Extension returns the file extension without a leading dot.
func (f Format) Extension() string {
	switch f {
	case RIS:
		return "ris"
	case BibTeX:
		return "bib"
	case EndNote:
		return "enw"
	}
	return "txt"
}

// Name returns the short name used in flags and config files.
func (f Format) Name() string {
	switch f {
	case RIS:
		return "ris"
	case BibTeX:
		return "bibtex"
	case EndNote:
		return "endnote"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// String returns the display name.
func (f Format) String() string {
	switch f {
	case RIS:
		return "RIS"
	case BibTeX:
		return "BibTeX"
	case EndNote:
		return "EndNote Tagged (ENW)"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	return f >= RIS && f <= EndNote
}

// opener is the text every entry of the format starts with.
func (f Format) opener() string {
	switch f {
	case RIS:
		return "TY  - "
	case BibTeX:
		return "@article{"
	case EndNote:
		return "%0 "
	}
	return ""
}

// Emitter turns one record into one formatted block, with no trailing
// newline.
type Emitter interface {
	Emit(r record.Record) string
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(r record.Record) string

func (fn EmitterFunc) Emit(r record.Record) string {
	return fn(r)
}

// NewEmitter returns an emitter for f. Emitters may keep per-document state
// (BibTeX tracks citation keys), so use a fresh one for every document.
func NewEmitter(f Format) (Emitter, error) {
	switch f {
	case RIS:
		return EmitterFunc(FormatRIS), nil
	case BibTeX:
		return newBibTeXEmitter(), nil
	case EndNote:
		return EmitterFunc(FormatEndNote), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(f))
}
