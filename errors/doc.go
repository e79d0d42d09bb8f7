// Package errors provides structured error types for the packaging pipeline.
//
// Errors are categorized by Phase (which stage failed) and Kind (error
// category). Every pipeline failure is fatal by policy: nothing here is
// retried or swallowed, the error propagates up and aborts the release.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhasePatch, errors.KindPatternNotFound).
//		Detail("bridge call shape changed upstream").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MissingFile(errors.PhaseLoad, "pkg/kinetix3d.js", cause)
//	err := errors.Instantiation(cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
