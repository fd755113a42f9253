package prometheus

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of a tool-level failure. Codes are stable:
// callers match on them programmatically.
type ErrorCode string

const (
	// ErrValidation marks caller-fixable argument problems: missing or
	// mistyped parameters, bad regex, bad pagination bounds, bad time ranges.
	ErrValidation ErrorCode = "ValidationError"
	// ErrConnection marks network-level failures reaching the backend.
	ErrConnection ErrorCode = "ConnectionError"
	// ErrQuery marks queries the backend itself rejected (e.g. malformed
	// PromQL) or answered with an error status.
	ErrQuery ErrorCode = "QueryError"
	// ErrUnknownTool marks dispatch of a disabled or nonexistent tool name.
	ErrUnknownTool ErrorCode = "UnknownToolError"
)

// ToolError is the protocol error payload. Every failed invocation
// serializes exactly this shape; it never propagates past the dispatcher as
// an unhandled failure.
type ToolError struct {
	Code      ErrorCode `json:"error_code"`
	Message   string    `json:"message"`
	Parameter string    `json:"offending_parameter,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Parameter != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Parameter, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func validationError(parameter, format string, args ...interface{}) *ToolError {
	return &ToolError{Code: ErrValidation, Message: fmt.Sprintf(format, args...), Parameter: parameter}
}

func connectionError(format string, args ...interface{}) *ToolError {
	return &ToolError{Code: ErrConnection, Message: fmt.Sprintf(format, args...)}
}

func queryError(format string, args ...interface{}) *ToolError {
	return &ToolError{Code: ErrQuery, Message: fmt.Sprintf(format, args...)}
}

func unknownToolError(name string) *ToolError {
	return &ToolError{Code: ErrUnknownTool, Message: fmt.Sprintf("tool %q is not enabled on this server", name)}
}

// asToolError coerces any handler error into a ToolError. Errors that were
// not classified by the client adapter can only originate from the backend
// call path, so they default to ErrConnection.
func asToolError(err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return connectionError("%v", err)
}
