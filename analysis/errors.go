package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTimeout is returned when a single generation call outlives its per-call deadline.
var ErrTimeout = errors.New("generation call timed out")

// TransportError wraps any non-timeout failure of the outbound generator (connectivity,
// auth, rate limits, server errors).
type TransportError struct {
	Task string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (%s): %v", e.Task, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ExtractionError reports that no JSON object candidate exists in the model output.
type ExtractionError struct {
	Length int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no JSON object found in model output (len=%d)", e.Length)
}

// FieldViolation is one field-level validation failure.
type FieldViolation struct {
	Path    string `json:"path"`
	Problem string `json:"problem"`
}

func (v FieldViolation) String() string {
	if v.Path == "" {
		return v.Problem
	}
	return v.Path + ": " + v.Problem
}

// SchemaValidationError lists every violation found while mapping JSON onto a record.
type SchemaValidationError struct {
	Schema     string
	Violations []FieldViolation
}

func (e *SchemaValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: schema validation failed: %s", e.Schema, strings.Join(parts, "; "))
}

// RepairExhaustedError is returned once every allowed repair attempt failed. Last holds the
// final extraction or validation error.
type RepairExhaustedError struct {
	Schema   string
	Attempts int
	Last     error
}

func (e *RepairExhaustedError) Error() string {
	return fmt.Sprintf("%s: repair exhausted after %d attempt(s): %v", e.Schema, e.Attempts, e.Last)
}

func (e *RepairExhaustedError) Unwrap() error { return e.Last }

// isFormatError reports whether err is something a repair call can fix.
func isFormatError(err error) bool {
	var ee *ExtractionError
	var se *SchemaValidationError
	return errors.As(err, &ee) || errors.As(err, &se)
}
