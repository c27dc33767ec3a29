package generator

import (
	"errors"
	"fmt"
)

// Stage names where a generation attempt can fail.
const (
	StageRequest   = "request"
	StageTransport = "transport"
	StageStatus    = "status"
	StageEmpty     = "empty"
	StageParse     = "parse"
	StageSchema    = "schema"
)

// GenerationError wraps every failure of a single generation attempt.
// The orchestrator recovers from it by falling back; it is never retried here.
type GenerationError struct {
	Stage      string
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation failed at %s (status %d): %v", e.Stage, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// SchemaError reports a response that is valid JSON but not a usable day, or
// not JSON at all.
type SchemaError struct {
	Field  string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := "invalid day payload"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += " " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IsGenerationError reports whether err came from a generation attempt.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
