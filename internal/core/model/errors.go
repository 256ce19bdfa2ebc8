package model

import "errors"

// Terminal conditions of a render run. Wrapped errors carry the failing context;
// test for them with errors.Is.
var (
	// ErrSchema means a required column is missing from the input table.
	ErrSchema = errors.New("schema error")
	// ErrNoQualifyingSubjects means no subject has a record for every selected visit.
	ErrNoQualifyingSubjects = errors.New("no qualifying subjects")
	// ErrEncoderUnavailable means the output backend cannot be used at all.
	ErrEncoderUnavailable = errors.New("encoder unavailable")
	// ErrEncode means the output backend failed while producing the artifact.
	ErrEncode = errors.New("encode failed")
	// ErrInvalidConfig means the run parameters are unusable.
	ErrInvalidConfig = errors.New("invalid configuration")
)
