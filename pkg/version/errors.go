package version

import "fmt"

// Kinds of input a ParseError can refer to.
const (
	KindVersion    = "version"
	KindConstraint = "constraint"
)

// ParseError reports a malformed version or constraint string.
type ParseError struct {
	Kind   string
	Input  string
	Reason string
	Err    error
}

func newParseError(kind, input, reason string, err error) *ParseError {
	return &ParseError{Kind: kind, Input: input, Reason: reason, Err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }
