package bridge

import "github.com/kinetix3d/wasm-dist/wasm"

// DefaultImportModule is the import module name the engine binary declares,
// matching the generated bridge source's filename.
const DefaultImportModule = "./kinetix3d_wasm_bg.js"

// Shim is one entry of the manual import-function table. Name and the wasm
// signature must match the engine binary's import declaration exactly; Body
// is the JS implementation installed by the patch, which only forwards to
// helpers the generated bridge already defines (getObject, addHeapObject,
// takeObject, getStringFromWasm0) and adds no logic of its own.
type Shim struct {
	Name    string
	Params  []wasm.ValType
	Results []wasm.ValType
	Body    string
}

var i32 = wasm.ValI32
var f64 = wasm.ValF64

// shims is the fixed import-function table, in emission order. The set and
// the signatures must remain stable across re-patches or the engine module
// fails to instantiate.
var shims = []Shim{
	{
		Name:   "__wbindgen_object_drop_ref",
		Params: []wasm.ValType{i32},
		Body:   "(i) => { takeObject(i); }",
	},
	{
		Name:    "__wbindgen_object_clone_ref",
		Params:  []wasm.ValType{i32},
		Results: []wasm.ValType{i32},
		Body:    "(i) => addHeapObject(getObject(i))",
	},
	{
		Name:    "__wbindgen_string_new",
		Params:  []wasm.ValType{i32, i32},
		Results: []wasm.ValType{i32},
		Body:    "(p, l) => addHeapObject(getStringFromWasm0(p, l))",
	},
	{
		Name:    "__wbindgen_number_new",
		Params:  []wasm.ValType{f64},
		Results: []wasm.ValType{i32},
		Body:    "(x) => addHeapObject(x)",
	},
	{
		Name:    "__wbindgen_number_get",
		Params:  []wasm.ValType{i32},
		Results: []wasm.ValType{f64},
		Body:    "(i) => { const v = getObject(i); return typeof v === \"number\" ? v : 0; }",
	},
	{
		Name:    "__wbindgen_boolean_get",
		Params:  []wasm.ValType{i32},
		Results: []wasm.ValType{i32},
		Body:    "(i) => { const v = getObject(i); return typeof v === \"boolean\" ? (v ? 1 : 0) : 2; }",
	},
	{
		Name:    "__wbg_call0",
		Params:  []wasm.ValType{i32, i32},
		Results: []wasm.ValType{i32},
		Body:    "(f, t) => addHeapObject(getObject(f).call(getObject(t)))",
	},
	{
		Name:    "__wbg_call1",
		Params:  []wasm.ValType{i32, i32, i32},
		Results: []wasm.ValType{i32},
		Body:    "(f, t, a) => addHeapObject(getObject(f).call(getObject(t), getObject(a)))",
	},
	{
		Name:    "__wbg_call2",
		Params:  []wasm.ValType{i32, i32, i32, i32},
		Results: []wasm.ValType{i32},
		Body:    "(f, t, a, b) => addHeapObject(getObject(f).call(getObject(t), getObject(a), getObject(b)))",
	},
	{
		Name:    "__wbg_bind",
		Params:  []wasm.ValType{i32, i32},
		Results: []wasm.ValType{i32},
		Body:    "(f, t) => addHeapObject(getObject(f).bind(getObject(t)))",
	},
	{
		Name:    "__wbg_newf32array",
		Params:  []wasm.ValType{i32, i32, i32},
		Results: []wasm.ValType{i32},
		Body:    "(b, o, l) => addHeapObject(new Float32Array(getObject(b), o >>> 0, l >>> 0))",
	},
	{
		Name:    "__wbg_newf64array",
		Params:  []wasm.ValType{i32, i32, i32},
		Results: []wasm.ValType{i32},
		Body:    "(b, o, l) => addHeapObject(new Float64Array(getObject(b), o >>> 0, l >>> 0))",
	},
	{
		Name:   "__wbg_setf32array",
		Params: []wasm.ValType{i32, i32, i32},
		Body:   "(t, s, o) => { getObject(t).set(getObject(s), o >>> 0); }",
	},
	{
		Name:   "__wbg_setf64array",
		Params: []wasm.ValType{i32, i32, i32},
		Body:   "(t, s, o) => { getObject(t).set(getObject(s), o >>> 0); }",
	},
	{
		Name:    "__wbindgen_memory",
		Results: []wasm.ValType{i32},
		Body:    "() => addHeapObject(wasm.memory)",
	},
	{
		Name:   "__wbindgen_throw",
		Params: []wasm.ValType{i32, i32},
		Body:   "(p, l) => { throw new Error(getStringFromWasm0(p, l)); }",
	},
}

// Shims returns the import-function table in emission order.
func Shims() []Shim {
	out := make([]Shim, len(shims))
	copy(out, shims)
	return out
}

// ShimIndex returns the table keyed by import name.
func ShimIndex() map[string]Shim {
	idx := make(map[string]Shim, len(shims))
	for _, s := range shims {
		idx[s.Name] = s
	}
	return idx
}
