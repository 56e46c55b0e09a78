package model

import (
	"fmt"
)

// The error taxonomy below is recovered at the interaction boundary: one
// failed upload or question never crashes the session or touches previously
// stored records.

// ParseError means the uploaded bytes are not a readable spreadsheet.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "parse: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ClassificationError means the classification or extraction call failed or
// returned an unrecognized shape. Raw carries the model output, when there
// was one, for diagnosis.
type ClassificationError struct {
	Reason string
	Err    error
	Raw    string
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification: %s: %v", e.Reason, e.Err)
	}
	return "classification: " + e.Reason
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// ValidationError means the model response did not match the declared record
// contract. Field is the first offending field path; the record is rejected
// in its entirety.
type ValidationError struct {
	Field  string
	Reason string
	Raw    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: field %q: %s", e.Field, e.Reason)
}

// QueryError means a question could not be answered: either no record is
// stored, or the external call failed.
type QueryError struct {
	Reason string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query: %s: %v", e.Reason, e.Err)
	}
	return "query: " + e.Reason
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
