// Package parsers turns uploaded reconciliation inputs (spreadsheets and
// delimited text with irregular header positions) into typed rows for the
// processors. Decoding is strict about structure (header row, required
// columns) and lenient about values (unparsable numeric cells degrade to zero).
package parsers

import (
	"errors"
	"fmt"
)

var (
	// ErrHeaderNotFound means no recognizable header row was found within the
	// scanned window. Fatal for the file and for the whole pass.
	ErrHeaderNotFound = errors.New("header row not found")

	// ErrMissingColumn means the header row was located but a mandatory
	// column's marker matched nothing. Fatal for the file and for the whole pass.
	ErrMissingColumn = errors.New("required column not found")

	// ErrUnsupportedFile means the upload is neither a spreadsheet nor
	// delimited text the grid decoder understands.
	ErrUnsupportedFile = errors.New("unsupported file type")
)

func headerNotFound(marker string, scanned int) error {
	return fmt.Errorf("%w: no cell matching %q in first %d rows", ErrHeaderNotFound, marker, scanned)
}

func missingColumn(field, marker string) error {
	return fmt.Errorf("%w: field %q (marker %q)", ErrMissingColumn, field, marker)
}
