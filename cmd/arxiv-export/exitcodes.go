package main

import (
	"errors"

	"github.com/Epistemic-Technology/arxiv-export/internal/citation"
	"github.com/Epistemic-Technology/arxiv-export/internal/exporter"
	"github.com/Epistemic-Technology/arxiv-export/internal/searchurl"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (network, API, file system)
	ExitConfigError = 2 // Bad flags, search URL or configuration
	ExitDataError   = 3 // The search matched nothing to export
)

// usageError marks errors caused by what the user passed in.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// reportedError marks errors the interactive shell already printed.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

var inputErrors = []error{
	searchurl.ErrInvalidURL,
	searchurl.ErrMissingParams,
	searchurl.ErrNoTerms,
	searchurl.ErrKindMismatch,
	citation.ErrUnknownFormat,
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, exporter.ErrNoResults) {
		return ExitDataError
	}
	var ue usageError
	if errors.As(err, &ue) {
		return ExitConfigError
	}
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return ExitConfigError
		}
	}
	return ExitError
}
