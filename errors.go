package protoargs

import (
	"errors"
	"fmt"
)

// Failure codes (exported consts for IDE completion and type safety by convention)
const (
	CodeUnknownType      = "unknown_type"
	CodeUnsupportedField = "unsupported_field"
	CodeMalformedField   = "malformed_field"
	CodeOverrideFailure  = "override_failure"
)

// Failure is the single terminal error of a parse. A ParseMessage call
// either succeeds or returns the first Failure it ran into; values emitted
// to the sink before the failure are never retracted.
type Failure struct {
	Code    string // One of the codes listed above.
	Path    string // Indexed key path at the point of failure ("" at the root).
	Message string
	Cause   error // Optional: underlying error.
}

// Error renders the failure as "code at path: message".
func (f *Failure) Error() string {
	if f.Path == "" {
		return fmt.Sprintf("%s: %s", f.Code, f.Message)
	}
	return fmt.Sprintf("%s at %s: %s", f.Code, f.Path, f.Message)
}

func (f *Failure) Unwrap() error { return f.Cause }

// AsFailure extracts a *Failure from an error using errors.As internally.
func AsFailure(err error) (*Failure, bool) {
	if err == nil {
		return nil, false
	}
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func failf(code, path, format string, args ...any) *Failure {
	return &Failure{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}
