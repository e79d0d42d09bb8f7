package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which pipeline stage the error occurred in
type Phase string

const (
	PhaseLoad       Phase = "load"       // reading input artifacts
	PhaseParse      Phase = "parse"      // wasm binary parsing
	PhaseDecode     Phase = "decode"     // embedded payload decoding
	PhasePatch      Phase = "patch"      // bridge call replacement
	PhaseDescriptor Phase = "descriptor" // package descriptor fixes
	PhaseCompact    Phase = "compact"    // bundle compaction
	PhaseWrite      Phase = "write"      // artifact writes
	PhaseSmoke      Phase = "smoke"      // post-patch verification
)

// Kind categorizes the error
type Kind string

const (
	KindPatternNotFound   Kind = "pattern_not_found"
	KindNoopSubstitution  Kind = "noop_substitution"
	KindMissingFile       Kind = "missing_file"
	KindInvalidData       Kind = "invalid_data"
	KindInvalidInput      Kind = "invalid_input"
	KindMissingImport     Kind = "missing_import"
	KindMissingExport     Kind = "missing_export"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindInstantiation     Kind = "instantiation"
	KindUnsupported       Kind = "unsupported"
)

// Error is the structured error type used throughout the pipeline
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

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

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
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

// Path sets the location path (file, field, import name)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
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

// Convenience constructors for common error patterns

// MissingFile creates an error for an absent input artifact
func MissingFile(phase Phase, path string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMissingFile,
		Path:   []string{path},
		Detail: "expected file is absent",
		Cause:  cause,
	}
}

// PatternNotFound is returned when no known bridge-call shape matched
func PatternNotFound(shapes []string) *Error {
	return &Error{
		Phase:  PhasePatch,
		Kind:   KindPatternNotFound,
		Detail: fmt.Sprintf("no bridge instantiation call matched any known shape (tried %s)", strings.Join(shapes, ", ")),
	}
}

// NoopSubstitution is returned when a matched pattern replaced itself
func NoopSubstitution(shape string) *Error {
	return &Error{
		Phase:  PhasePatch,
		Kind:   KindNoopSubstitution,
		Detail: fmt.Sprintf("substitution for shape %s left the bundle unchanged", shape),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
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

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// MissingExport is returned when the smoke-test entity is not exported
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseSmoke,
		Kind:   KindMissingExport,
		Path:   []string{name},
		Detail: "export not found in engine module",
	}
}

// SignatureMismatch is returned when a declared import disagrees with the
// shim table by arity or type
func SignatureMismatch(module, name, declared, expected string) *Error {
	return &Error{
		Phase:  PhaseSmoke,
		Kind:   KindSignatureMismatch,
		Path:   []string{module, name},
		Detail: fmt.Sprintf("module declares %s, shim table provides %s", declared, expected),
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseSmoke,
		Kind:   KindInstantiation,
		Detail: "instantiate engine module",
		Cause:  cause,
	}
}

// ParseFailed creates a wasm parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingImport identifies a single import the shim table does not cover
type MissingImport struct {
	Module string // import module, e.g. "./kinetix3d_wasm_bg.js"
	Name   string // import name, e.g. "__wbindgen_throw"
}

// MissingImportsError is returned when the engine module declares imports
// the patch's import-function table does not provide. A missing entry makes
// instantiation fail atomically, so this is always fatal.
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError builds the error from "module#name" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		mod, name := parseImportKey(imp)
		result.Imports = append(result.Imports, MissingImport{
			Module: mod,
			Name:   name,
		})
	}
	return result
}

func parseImportKey(key string) (module, name string) {
	mod, fn, found := strings.Cut(key, "#")
	if found {
		return mod, fn
	}
	return key, ""
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[smoke] missing_import: no imports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("import table does not cover %d declared import(s):\n", len(e.Imports)))

	// Group by import module for cleaner output
	byModule := make(map[string][]string)
	var order []string
	for _, imp := range e.Imports {
		if _, exists := byModule[imp.Module]; !exists {
			order = append(order, imp.Module)
		}
		byModule[imp.Module] = append(byModule[imp.Module], imp.Name)
	}

	for _, mod := range order {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, fn := range byModule[mod] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}
