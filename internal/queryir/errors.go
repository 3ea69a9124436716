package queryir

import (
	"errors"
	"fmt"
)

// Error is the single error type raised while building, validating or
// executing a query model.
//
// Error carries enough context (offending expression or operator) to diagnose
// the failure. No error is retryable; any Error aborts the whole build or
// execution.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Operator names the operator or clause involved, if any.
	Operator string

	// Expression is the canonical text of the offending expression, if any.
	Expression string

	// Err is an underlying cause.
	Err error
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates malformed operator construction.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeTypeMismatch indicates an operator rejected its input type
	// during output type computation.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeUnsupportedOperator indicates an invocation the builder cannot
	// map to any known node.
	ErrCodeUnsupportedOperator ErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeResolution indicates a resolution contract violation, such as
	// resolving a node before it was applied to a model.
	ErrCodeResolution ErrorCode = "RESOLUTION"

	// ErrCodeExecution indicates a failure during in-memory execution.
	ErrCodeExecution ErrorCode = "EXECUTION"
)

// Messages shared by the empty/overfull sequence checks.
const (
	MsgNoElements         = "sequence contains no elements"
	MsgMoreThanOne        = "sequence contains more than one element"
	MsgResolveBeforeApply = "cannot resolve before apply"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Operator != "" {
		msg += fmt.Sprintf(" (operator=%s)", e.Operator)
	}
	if e.Expression != "" {
		msg += fmt.Sprintf(" (expression=%s)", e.Expression)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// IsConfigurationError returns true if err is a configuration error.
func IsConfigurationError(err error) bool { return CodeOf(err) == ErrCodeConfiguration }

// IsTypeMismatch returns true if err is a type mismatch error.
func IsTypeMismatch(err error) bool { return CodeOf(err) == ErrCodeTypeMismatch }

// IsUnsupportedOperator returns true if err is an unsupported operator error.
func IsUnsupportedOperator(err error) bool { return CodeOf(err) == ErrCodeUnsupportedOperator }

// IsResolutionError returns true if err is a resolution error.
func IsResolutionError(err error) bool { return CodeOf(err) == ErrCodeResolution }

// IsExecutionError returns true if err is an execution error.
func IsExecutionError(err error) bool { return CodeOf(err) == ErrCodeExecution }

// NewConfigurationError creates an Error for malformed operator construction.
func NewConfigurationError(operator, format string, args ...any) *Error {
	return &Error{Code: ErrCodeConfiguration, Operator: operator, Message: fmt.Sprintf(format, args...)}
}

// NewTypeMismatchError creates an Error for a rejected input type.
func NewTypeMismatchError(operator, format string, args ...any) *Error {
	return &Error{Code: ErrCodeTypeMismatch, Operator: operator, Message: fmt.Sprintf(format, args...)}
}

// NewUnsupportedOperatorError creates an Error naming an unmapped invocation.
func NewUnsupportedOperatorError(signature, expression string) *Error {
	return &Error{
		Code:       ErrCodeUnsupportedOperator,
		Operator:   signature,
		Expression: expression,
		Message:    fmt.Sprintf("no node is registered for operator %s", signature),
	}
}

// NewResolutionError creates an Error for a resolution contract violation.
func NewResolutionError(expression, format string, args ...any) *Error {
	return &Error{Code: ErrCodeResolution, Expression: expression, Message: fmt.Sprintf(format, args...)}
}

// NewExecutionError creates an Error raised during in-memory execution.
func NewExecutionError(operator, format string, args ...any) *Error {
	return &Error{Code: ErrCodeExecution, Operator: operator, Message: fmt.Sprintf(format, args...)}
}
