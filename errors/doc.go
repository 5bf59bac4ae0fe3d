// Package errors provides structured error types for the render worker.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The taxonomy of the worker maps onto kinds:
//
//	context_unavailable   no graphics context could be acquired (fatal, engine stays inert)
//	module_load_failure   module script, factory or readiness signal failed
//	module_runtime_fault  a call into a ready module failed
//	not_found (runtime)   the "function not found" fault that triggers a reload
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLoad, errors.KindModuleLoad).
//		Detail("factory returned %d", code).
//		Cause(cause).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ContextUnavailable("no api available", nil)
//	err := errors.FunctionNotFound("frame")
//
// All errors implement the standard error interface and support errors.Is/As.
// The package-level sentinels (ErrModuleLoad, ...) match on Kind alone.
package errors
