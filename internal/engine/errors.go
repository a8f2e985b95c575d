package engine

import "fmt"

// Code is the engine's error taxonomy, by label rather than by Go type, so
// callers can tell failures apart without string-matching error messages.
// httpapi does not consult it: every *QueryError is rendered with status 400.
type Code string

const (
	CodeParseError           Code = "parse_error"
	CodeInvalidPredicateName Code = "invalid_predicate_name"
	CodeInvalidOffset        Code = "invalid_offset"
	CodeInvalidLimit         Code = "invalid_limit"
	CodeCartesianProduct     Code = "cartesian_product"
	CodeTimeout              Code = "timeout"
	CodeIntermediateCap      Code = "intermediate_cap"
)

// QueryError is a structured validation or execution failure, carrying
// enough to render both an HTTP error body and a CLI diagnostic.
type QueryError struct {
	Code    Code
	Message string
}

func (e *QueryError) Error() string {
	return e.Message
}

func newQueryError(code Code, format string, args ...interface{}) *QueryError {
	return &QueryError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// errIntermediateCap is the sentinel the join recursion returns once the
// candidate-binding counter exceeds the configured cap. It is already a
// *QueryError, so ExecuteStreaming and Execute return it to the caller as is.
var errIntermediateCap = newQueryError(CodeIntermediateCap, "intermediate result cap exceeded")
