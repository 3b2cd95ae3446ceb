// Package envelope defines the stable error taxonomy and the response
// envelope every boundary-facing operation in this repository returns.
// Grounded in the teacher's pkg/config/errors.go wrapping pattern
// (ValidationError/LoadError with Unwrap) and pkg/api/errors.go's
// service-error-to-surface mapping, generalized from HTTP status codes to
// the stable WA-MCP-NNNN codes the spec defines.
package envelope

import "fmt"

// Kind is one of the six stable error classes. Kind values never change
// across versions even if error messages do — automated callers branch on
// Code, which is derived from Kind plus context.
type Kind string

const (
	// KindRetryable is transient I/O or transport failure; the caller may
	// retry with backoff.
	KindRetryable Kind = "retryable"
	// KindOverload is admission denial (queue full, rate limit); the
	// caller must back off and must never retry without delay.
	KindOverload Kind = "overload"
	// KindTerminalData is malformed input, sequence regression, or a bad
	// batch; never retry, surface to the operator.
	KindTerminalData Kind = "terminal_data"
	// KindCorruption is persistent storage corruption; quarantine, do not
	// retry, degrade the owning subsystem.
	KindCorruption Kind = "corruption"
	// KindTerminalConfig is bad configuration; surface on startup and
	// refuse to run.
	KindTerminalConfig Kind = "terminal_config"
	// KindDependencyUnavailable is a missing external collaborator; enter
	// Degraded or Unavailable.
	KindDependencyUnavailable Kind = "dependency_unavailable"
)

// Code is a stable error code from the CLI/RPC contract (spec §6). These
// strings are part of the external contract and must never be renamed.
type Code string

const (
	CodeInvalidArgs         Code = "WA-MCP-0001"
	CodeConfig              Code = "WA-MCP-0003"
	CodeBackendUnavailable  Code = "WA-MCP-0004"
	CodeStorage             Code = "WA-MCP-0005"
	CodePolicy              Code = "WA-MCP-0006"
	CodePaneNotFound        Code = "WA-MCP-0007"
	CodeWorkflow            Code = "WA-MCP-0008"
	CodeTimeout             Code = "WA-MCP-0009"
	CodeNotImplemented      Code = "WA-MCP-0010"
	CodeFTSQuery            Code = "WA-MCP-0011"
	CodeReservationConflict Code = "WA-MCP-0012"
)

// Error is the typed error every core component returns at its boundary. It
// carries a stable Kind/Code pair plus a human-readable message and an
// optional operator hint.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Hint    string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// New constructs an Error with no wrapped cause.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap constructs an Error that wraps an underlying cause.
func Wrap(kind Kind, code Code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, cause: cause}
}

// WithHint attaches an operator-facing diagnostic hint and returns the
// receiver for chaining.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}
