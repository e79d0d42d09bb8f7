// Package wasm provides WebAssembly binary decoding and encoding for the
// packaging pipeline.
//
// The decoder reads exactly what the pipeline needs from an engine binary:
// function signatures, import declarations, memory limits, exports and raw
// code bodies. All other sections are skipped. Malformed or truncated input
// is always rejected with an error, never accepted silently.
//
// Parse a module:
//
//	module, err := wasm.ParseModule(data)
//
// Inspect its import surface:
//
//	for _, imp := range module.FuncImports() {
//	    sig := module.Type(imp.Desc.TypeIdx)
//	    fmt.Println(imp.Module, imp.Name, sig)
//	}
//
// The encoder is the decoder's inverse over the carried sections and exists
// chiefly so tests can synthesize small engine modules:
//
//	data := module.Encode()
package wasm
