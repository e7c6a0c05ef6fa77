package bulk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStoreUnavailable is returned when no connection to the contact store
	// can be obtained before the batch starts.
	ErrStoreUnavailable = errors.New("contact store unavailable")
	// ErrUnsupportedExportFormat is returned for export formats other than csv/excel.
	ErrUnsupportedExportFormat = errors.New("unsupported export format")
	// ErrNoContacts is returned by Export when the owner has no active contacts.
	ErrNoContacts = errors.New("no contacts found")
)

// UnsupportedFormatError rejects an upload whose declared type is neither CSV
// nor an xlsx spreadsheet.
type UnsupportedFormatError struct {
	MimeType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type %q: only text/csv and xlsx spreadsheets are accepted", e.MimeType)
}

// DecodeError reports a file that has an accepted type but cannot be parsed.
// Row is the 1-based data row being read, 0 for container/header problems.
type DecodeError struct {
	Row int
	Err error
}

func (e *DecodeError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("decode row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationFailure lists why a row cannot become a contact.
type ValidationFailure struct {
	Reasons []string
}

func (e *ValidationFailure) Error() string {
	return strings.Join(e.Reasons, "; ")
}
