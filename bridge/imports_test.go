package bridge

import (
	"strings"
	"testing"

	"github.com/kinetix3d/wasm-dist/wasm"
)

func TestShimNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range Shims() {
		if seen[s.Name] {
			t.Errorf("duplicate shim name %q", s.Name)
		}
		seen[s.Name] = true
	}
}

func TestShimTableCoversRequiredSurface(t *testing.T) {
	idx := ShimIndex()
	required := []string{
		"__wbindgen_object_drop_ref",
		"__wbindgen_object_clone_ref",
		"__wbindgen_string_new",
		"__wbindgen_number_new",
		"__wbindgen_number_get",
		"__wbindgen_boolean_get",
		"__wbg_call0",
		"__wbg_call1",
		"__wbg_call2",
		"__wbg_bind",
		"__wbg_newf32array",
		"__wbg_newf64array",
		"__wbg_setf32array",
		"__wbg_setf64array",
		"__wbindgen_memory",
		"__wbindgen_throw",
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			t.Errorf("shim table missing %q", name)
		}
	}
}

func TestCallShimsForwardIncreasingArity(t *testing.T) {
	idx := ShimIndex()
	// call0 forwards zero args (function + this), call1 one, call2 two.
	for name, params := range map[string]int{
		"__wbg_call0": 2,
		"__wbg_call1": 3,
		"__wbg_call2": 4,
	} {
		s, ok := idx[name]
		if !ok {
			t.Fatalf("missing %q", name)
		}
		if len(s.Params) != params {
			t.Errorf("%s has %d params, want %d", name, len(s.Params), params)
		}
		if len(s.Results) != 1 || s.Results[0] != wasm.ValI32 {
			t.Errorf("%s should return one i32 handle", name)
		}
	}
}

func TestTypedArrayShimsTakeOffsetAndLength(t *testing.T) {
	idx := ShimIndex()
	for _, name := range []string{"__wbg_newf32array", "__wbg_newf64array"} {
		s := idx[name]
		if len(s.Params) != 3 {
			t.Errorf("%s should take buffer, byte offset and length", name)
		}
	}
	if !strings.Contains(idx["__wbg_newf32array"].Body, "Float32Array") {
		t.Error("f32 constructor should build a Float32Array")
	}
	if !strings.Contains(idx["__wbg_newf64array"].Body, "Float64Array") {
		t.Error("f64 constructor should build a Float64Array")
	}
}

func TestThrowShimRaisesHostError(t *testing.T) {
	s := ShimIndex()["__wbindgen_throw"]
	if len(s.Params) != 2 || len(s.Results) != 0 {
		t.Errorf("throw shim signature = %v -> %v", s.Params, s.Results)
	}
	if !strings.Contains(s.Body, "throw new Error(getStringFromWasm0(") {
		t.Error("throw shim should raise an Error with the decoded message")
	}
}

func TestAllShimsEmittedInInitBlock(t *testing.T) {
	p := &Patcher{PayloadName: "b64"}
	block := p.initBlock("wasm$1")
	for _, s := range Shims() {
		if !strings.Contains(block, s.Name+": ") {
			t.Errorf("init block missing shim %q", s.Name)
		}
	}
	if !strings.Contains(block, "b64") {
		t.Error("init block should read the payload binding")
	}
}

func TestShimsReturnsCopy(t *testing.T) {
	a := Shims()
	a[0].Name = "mutated"
	b := Shims()
	if b[0].Name == "mutated" {
		t.Error("Shims must not expose the internal table")
	}
}
