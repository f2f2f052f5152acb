// Package apperr defines the service error taxonomy: upstream fetch failures,
// data-shape failures during import, and translated database failures.
package apperr

import "fmt"

// UpstreamError signals that the upstream API could not be reached or returned
// an unusable payload. Raised out of the fetch phase; it aborts the import for
// the affected entity type and maps to a 502 at the API boundary.
type UpstreamError struct {
	Message string
	Err     error
	// Body holds the raw response body when one was captured for diagnostics.
	Body string
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError creates an UpstreamError wrapping err.
func NewUpstreamError(message string, err error) *UpstreamError {
	return &UpstreamError{Message: message, Err: err}
}

// DataImportError signals that an upstream payload violated the expected
// envelope contract. It aborts the import for the affected entity type.
type DataImportError struct {
	Message string
	Details map[string]any
}

func (e *DataImportError) Error() string {
	return e.Message
}

// NewDataImportError creates a DataImportError with optional context details.
func NewDataImportError(message string, details map[string]any) *DataImportError {
	return &DataImportError{Message: message, Details: details}
}

// DatabaseError signals a uniqueness or integrity violation at the store,
// translated from the underlying driver error after rollback.
type DatabaseError struct {
	Message string
	Err     error
}

func (e *DatabaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// NewDatabaseError creates a DatabaseError wrapping err.
func NewDatabaseError(message string, err error) *DatabaseError {
	return &DatabaseError{Message: message, Err: err}
}
