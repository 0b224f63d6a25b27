package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyInput is returned by Run when no batch survives validation.
var ErrEmptyInput = errors.New("pipeline: no valid batches")

// ErrAdvisorNotFound is returned by Analysis.FindAdvisor when no loaded
// record matches the reference.
var ErrAdvisorNotFound = errors.New("pipeline: advisor not found")

// AmbiguousAdvisorError reports a name shared by several advisor codes, such
// as the unknown-advisor label. Callers should ask for a code instead.
type AmbiguousAdvisorError struct {
	Ref  string   `json:"ref"`
	Keys []string `json:"keys"`
}

func (e *AmbiguousAdvisorError) Error() string {
	return fmt.Sprintf("pipeline: advisor %q matches codes %s; use a code",
		e.Ref, strings.Join(e.Keys, ", "))
}

// IsAmbiguousAdvisor returns true if err (or any error in its chain) is an
// AmbiguousAdvisorError.
func IsAmbiguousAdvisor(err error) bool {
	var ae *AmbiguousAdvisorError
	return errors.As(err, &ae)
}

// SchemaError reports a batch rejected before merge. The batch is skipped;
// other batches in the run are unaffected.
type SchemaError struct {
	Period  string   `json:"period"`
	Source  string   `json:"source"`
	Missing []string `json:"missing,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("schema: batch %q (%s) missing columns: %s",
			e.Period, e.Source, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("schema: batch %q (%s): %s", e.Period, e.Source, e.Reason)
}

// ParseError reports a cell that could not be parsed. The value is coerced
// (zero for amounts, unknown for dates) and processing continues.
type ParseError struct {
	Period string `json:"period"`
	Source string `json:"source"`
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %s row %d column %q value %q: %v",
		e.Period, e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsSchemaError returns true if err (or any error in its chain) is a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsParseError returns true if err (or any error in its chain) is a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
