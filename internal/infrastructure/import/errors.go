package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Row-level error codes surfaced in import results
const (
	ErrCodeRequiredField   = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidType     = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeInvalidValue    = "ERR_IMPORT_INVALID_VALUE"
	ErrCodeDuplicateInFile = "ERR_IMPORT_DUPLICATE_IN_FILE"
	ErrCodeRowFailed       = "ERR_IMPORT_ROW_FAILED"
)

// File-level errors that reject the whole import
var (
	// ErrEmptyFile is returned when the CSV file is empty
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the content is not valid UTF-8
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")

	// ErrMissingHeader is returned when the CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrInvalidHeader is returned for missing, empty, or duplicate columns
	ErrInvalidHeader = errors.New("invalid CSV header")

	// ErrNoDataRows is returned when the CSV file has no data rows
	ErrNoDataRows = errors.New("CSV file contains no data rows")

	// ErrMalformedRow is returned when a row cannot be parsed as CSV
	ErrMalformedRow = errors.New("malformed CSV row")

	// ErrTooManyRows is returned when the file exceeds the row limit
	ErrTooManyRows = errors.New("file exceeds maximum row count")

	// ErrFileTooLarge is returned when the file exceeds the size limit
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
)

// RowError describes a failure on one data row
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{Row: row, Column: column, Code: code, Message: message}
}

// WithValue attaches the offending input value
func (e RowError) WithValue(value string) RowError {
	e.Value = value
	return e
}

// ErrorCollection accumulates row errors up to a cap. The total count
// keeps incrementing past the cap so callers can report truncation.
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates an ErrorCollection with the given cap
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0, maxErrors),
		maxErrors: maxErrors,
	}
}

// Add records an error, dropping it silently once the cap is reached
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequired records a missing required field
func (ec *ErrorCollection) AddRequired(row int, column string) {
	ec.Add(NewRowError(row, column, ErrCodeRequiredField, fmt.Sprintf("field '%s' is required", column)))
}

// AddType records a value that failed type conversion
func (ec *ErrorCollection) AddType(row int, column, expected, value string) {
	ec.Add(NewRowError(row, column, ErrCodeInvalidType, fmt.Sprintf("expected %s", expected)).WithValue(value))
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns the total number of errors including dropped ones
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if any error was recorded
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if errors past the cap were dropped
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// String summarizes the collection for logs
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s)", ec.totalCount)
	if ec.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", ec.maxErrors)
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}
