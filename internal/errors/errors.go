// Package errors defines the failure kinds surfaced by indexing and search.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds callers branch on.
var (
	// ErrMalformedRecord is returned when a post record is missing or has an invalid required field.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrIndexUnavailable is returned when no committed index can be opened.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrUnknownWeightProfile is returned for a profile name not in the profile table.
	ErrUnknownWeightProfile = errors.New("unknown weight profile")

	// ErrInvalidTimestamp is returned when a candidate's stored timestamp cannot be parsed.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// MalformedRecordError names the record and field that failed validation.
type MalformedRecordError struct {
	RecordID string
	Field    string
	// Line is the 1-based line in the source file, or 0 when unknown.
	Line   int
	Source string
	Reason string
	Cause  error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("malformed record %q: field %q", e.RecordID, e.Field)
	if e.Reason != "" {
		msg += " " + e.Reason
	}
	if e.Source != "" {
		msg += fmt.Sprintf(" (%s:%d)", e.Source, e.Line)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Cause
}

// NewMalformedRecordError creates a MalformedRecordError for a missing or invalid field.
func NewMalformedRecordError(recordID, field, reason string) *MalformedRecordError {
	return &MalformedRecordError{RecordID: recordID, Field: field, Reason: reason}
}

// IndexUnavailableError reports an index directory that has no usable generation.
type IndexUnavailableError struct {
	Path  string
	Cause error
}

func (e *IndexUnavailableError) Error() string {
	if e.Path == "" {
		return "index unavailable: no committed index"
	}
	if e.Cause != nil {
		return fmt.Sprintf("index at '%s' unavailable: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("index at '%s' unavailable", e.Path)
}

func (e *IndexUnavailableError) Is(target error) bool {
	return target == ErrIndexUnavailable
}

func (e *IndexUnavailableError) Unwrap() error {
	return e.Cause
}

// NewIndexUnavailableError creates an IndexUnavailableError.
func NewIndexUnavailableError(path string, cause error) *IndexUnavailableError {
	return &IndexUnavailableError{Path: path, Cause: cause}
}

// UnknownWeightProfileError carries the rejected profile name.
type UnknownWeightProfileError struct {
	Name string
}

func (e *UnknownWeightProfileError) Error() string {
	return fmt.Sprintf("weight profile named '%s' not found", e.Name)
}

func (e *UnknownWeightProfileError) Is(target error) bool {
	return target == ErrUnknownWeightProfile
}

// NewUnknownWeightProfileError creates an UnknownWeightProfileError.
func NewUnknownWeightProfileError(name string) *UnknownWeightProfileError {
	return &UnknownWeightProfileError{Name: name}
}

// InvalidTimestampError names the candidate whose timestamp failed to parse.
type InvalidTimestampError struct {
	CandidateID string
	Value       string
	Cause       error
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("candidate '%s' has invalid timestamp %q", e.CandidateID, e.Value)
}

func (e *InvalidTimestampError) Is(target error) bool {
	return target == ErrInvalidTimestamp
}

func (e *InvalidTimestampError) Unwrap() error {
	return e.Cause
}

// NewInvalidTimestampError creates an InvalidTimestampError.
func NewInvalidTimestampError(candidateID, value string, cause error) *InvalidTimestampError {
	return &InvalidTimestampError{CandidateID: candidateID, Value: value, Cause: cause}
}
