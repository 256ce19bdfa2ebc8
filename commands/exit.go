package commands

import (
	"errors"

	"github.com/penwyp/tracevis/internal/core/model"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitSchema     = 2
	ExitNoSubjects = 3
	ExitEncoder    = 4
)

// ExitCode maps an error from Execute to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, model.ErrSchema):
		return ExitSchema
	case errors.Is(err, model.ErrNoQualifyingSubjects):
		return ExitNoSubjects
	case errors.Is(err, model.ErrEncoderUnavailable), errors.Is(err, model.ErrEncode):
		return ExitEncoder
	default:
		return ExitFailure
	}
}
