// Package bridge implements the generated-bridge patcher.
//
// The engine's build emits a JS bundle in which an auto-generated call,
// __wbg_set_wasm(wasm$1), hands the auto-instantiated wasm module to the
// bridge glue. That default path breaks under stricter execution
// environments, so the patcher replaces the call with an explicit routine
// that decodes the embedded binary, instantiates it against a manual
// import-function table, and registers the live exports itself.
//
// Matching is structural rather than literal where possible: the recognized
// call shapes are an enumerated set tried in fixed priority order, and the
// instantiation argument is captured so the replacement's failure path can
// fall back to the generator's original binding.
//
// The patch is a single substitution and is idempotent: output carrying the
// patch marker or the replacement's init function name is recognized and
// returned unchanged.
package bridge
