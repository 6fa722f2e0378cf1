// Package pipeline defines the error kinds shared by the ETL task steps.
//
// Every step failure is one of four kinds: FetchError, ParseError,
// LoadError, TransformError. Each carries an E_* code and a retryability
// hint; the activity layer uses both when surfacing failures to the
// scheduler.
package pipeline

import "fmt"

const (
	CodeAuthInvalid       = "E_AUTH_INVALID"
	CodeDatasetNotFound   = "E_DATASET_NOT_FOUND"
	CodeNetwork           = "E_NETWORK"
	CodeArchiveCorrupt    = "E_ARCHIVE_CORRUPT"
	CodeMalformedInput    = "E_MALFORMED_INPUT"
	CodeHeaderMismatch    = "E_HEADER_MISMATCH"
	CodeConnection        = "E_CONNECTION"
	CodeConstraint        = "E_CONSTRAINT"
	CodeEmptyStaging      = "E_EMPTY_STAGING"
	CodeStagingUnreadable = "E_STAGING_UNREADABLE"
)

// FetchError reports a failed dataset download: bad credentials, unknown
// dataset, or a network failure.
type FetchError struct {
	Code      string
	Dataset   string
	Retryable bool
	Err       error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: fetch %s: %v", e.Code, e.Dataset, e.Err)
	}
	return fmt.Sprintf("%s: fetch %s", e.Code, e.Dataset)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports malformed source input. Never retryable: the same
// file parses the same way every time.
type ParseError struct {
	Code string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %v", e.Code, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoadError reports a staging or destination write failure.
type LoadError struct {
	Code      string
	Table     string
	Retryable bool
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: table %s: %v", e.Code, e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// TransformError reports a cleaning-stage failure: empty staging, or a
// staging store that could not be read. Retryable only when the
// underlying read failure is transient.
type TransformError struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
