package errors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Phase indicates where in the worker's life the error occurred
type Phase string

const (
	PhaseSurface  Phase = "surface"  // context acquisition and drawing
	PhaseLoad     Phase = "load"     // module loading
	PhaseInit     Phase = "init"     // module graphics initialization
	PhaseRuntime  Phase = "runtime"  // calls into a ready module
	PhaseDispatch Phase = "dispatch" // control message handling
	PhaseProtocol Phase = "protocol" // message encoding/decoding
	PhaseParse    Phase = "parse"    // WIT parsing
)

// Kind categorizes the error
type Kind string

const (
	KindContextUnavailable Kind = "context_unavailable"
	KindContextLost        Kind = "context_lost"
	KindModuleLoad         Kind = "module_load_failure"
	KindModuleRuntime      Kind = "module_runtime_fault"
	KindNotFound           Kind = "not_found"
	KindNotInitialized     Kind = "not_initialized"
	KindInvalidInput       Kind = "invalid_input"
	KindInvalidData        Kind = "invalid_data"
	KindTypeMismatch       Kind = "type_mismatch"
	KindInstantiation      Kind = "instantiation"
	KindUnsupported        Kind = "unsupported"
	KindCanceled           Kind = "canceled"
)

// Error is the structured error type used throughout the worker
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Sentinels usable as errors.Is targets. They match on Kind only.
var (
	ErrContextUnavailable = &Error{Kind: KindContextUnavailable}
	ErrContextLost        = &Error{Kind: KindContextLost}
	ErrModuleLoad         = &Error{Kind: KindModuleLoad}
	ErrModuleRuntime      = &Error{Kind: KindModuleRuntime}
	ErrNotFound           = &Error{Kind: KindNotFound}
)

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ContextUnavailable reports that no graphics context could be acquired
func ContextUnavailable(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseSurface,
		Kind:   KindContextUnavailable,
		Detail: detail,
		Cause:  cause,
	}
}

// ContextLost reports that a previously acquired context went away
func ContextLost(detail string) *Error {
	return &Error{
		Phase:  PhaseSurface,
		Kind:   KindContextLost,
		Detail: detail,
	}
}

// ModuleLoad creates a module loading error
func ModuleLoad(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindModuleLoad,
		Detail: detail,
		Cause:  cause,
	}
}

// ModuleRuntime creates an error for a failed call into a ready module
func ModuleRuntime(function string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindModuleRuntime,
		Detail: fmt.Sprintf("call %s", function),
		Value:  function,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error for a missing module/surface
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Value:  name,
	}
}

// FunctionNotFound creates the runtime fault raised when a module no
// longer provides an entry point the engine calls.
func FunctionNotFound(name string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("function %q not found", name),
		Value:  name,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsMissingFunction reports whether err is the "function not found" fault.
// Handles that do not use this package are recognized by message.
func IsMissingFunction(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	for cur := err; errors.As(cur, &e); cur = e.Cause {
		if e.Phase == PhaseRuntime && e.Kind == KindNotFound {
			return true
		}
	}
	return missingFunctionMsg.MatchString(err.Error())
}

// missingFunctionMsg matches "function not found" and `function "name" not found`.
var missingFunctionMsg = regexp.MustCompile(`function (?:"[^"]*" )?not found`)

// ExportProblem describes one export that does not satisfy the module ABI
type ExportProblem struct {
	Name   string // export name, e.g. "init_libs"
	Reason string // "missing" or a signature mismatch description
}

// ABIMismatchError is returned when a module's exports do not fit the
// graphics module ABI
type ABIMismatchError struct {
	Problems []ExportProblem
}

func (e *ABIMismatchError) Error() string {
	if len(e.Problems) == 0 {
		return "[load] module_load_failure: abi mismatch"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("module does not satisfy the graphics ABI (%d problem(s)):", len(e.Problems)))
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(p.Reason)
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *ABIMismatchError) Is(target error) bool {
	switch t := target.(type) {
	case *ABIMismatchError:
		return true
	case *Error:
		return t.Kind == KindModuleLoad && (t.Phase == "" || t.Phase == PhaseLoad)
	}
	return false
}
