package harness

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// LoadError reports a scenario that could not be read, parsed, validated
// or turned into a graph.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

// Load error codes.
const (
	ErrCodeRead    = "LOAD_READ"
	ErrCodeParse   = "LOAD_PARSE"
	ErrCodeSchema  = "LOAD_SCHEMA"
	ErrCodeInvalid = "LOAD_INVALID"
	ErrCodeBuild   = "LOAD_BUILD"
)

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError returns true if err is (or wraps) a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// LoadErrorCode returns the code of a wrapped LoadError, or "".
func LoadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
