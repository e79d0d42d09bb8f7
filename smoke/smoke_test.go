package smoke_test

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kinetix3d/wasm-dist/bridge"
	"github.com/kinetix3d/wasm-dist/errors"
	"github.com/kinetix3d/wasm-dist/smoke"
	"github.com/kinetix3d/wasm-dist/wasm"
)

// engineModule builds a binary shaped like the real engine: bridge imports
// declared against the manual import table, one exported constructor that
// calls through an import, and a linear memory.
func engineModule(t *testing.T, importNames ...string) []byte {
	t.Helper()

	index := bridge.ShimIndex()
	m := &wasm.Module{}
	for _, name := range importNames {
		shim, ok := index[name]
		if !ok {
			t.Fatalf("no shim named %q", name)
		}
		typeIdx := m.AddType(wasm.FuncType{Params: shim.Params, Results: shim.Results})
		m.Imports = append(m.Imports, wasm.Import{
			Module: bridge.DefaultImportModule,
			Name:   name,
			Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: typeIdx},
		})
	}

	// () -> i32 constructor that forwards to __wbindgen_memory when that
	// import is present, otherwise returns a constant.
	ctorType := m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}})
	m.Funcs = append(m.Funcs, ctorType)
	body := []byte{0x00, 0x41, 0x2A, 0x0B} // no locals; i32.const 42; end
	for i, imp := range m.Imports {
		if imp.Name == "__wbindgen_memory" {
			body = []byte{0x00, 0x10, byte(i), 0x0B} // no locals; call import; end
			break
		}
	}
	m.Code = append(m.Code, wasm.FuncBody{Body: body})

	m.Memories = []wasm.MemoryType{{Min: 1}}
	m.Exports = []wasm.Export{
		{Name: "rawintegrationparameters_new", Kind: wasm.KindFunc, Idx: uint32(len(m.Imports))},
		{Name: "memory", Kind: wasm.KindMemory, Idx: 0},
	}
	return m.Encode()
}

func TestVerifyModule(t *testing.T) {
	engine := engineModule(t,
		"__wbindgen_memory",
		"__wbindgen_throw",
		"__wbindgen_number_get",
	)
	if err := smoke.VerifyModule(context.Background(), engine, smoke.Options{}); err != nil {
		t.Fatalf("VerifyModule: %v", err)
	}
}

func TestVerifyModuleNoImports(t *testing.T) {
	engine := engineModule(t)
	if err := smoke.VerifyModule(context.Background(), engine, smoke.Options{}); err != nil {
		t.Fatalf("VerifyModule: %v", err)
	}
}

func TestVerifyModuleMissingShim(t *testing.T) {
	index := bridge.ShimIndex()
	memShim := index["__wbindgen_memory"]

	m := &wasm.Module{}
	known := m.AddType(wasm.FuncType{Params: memShim.Params, Results: memShim.Results})
	unknown := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI64}})
	m.Imports = []wasm.Import{
		{Module: bridge.DefaultImportModule, Name: "__wbindgen_memory",
			Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: known}},
		{Module: bridge.DefaultImportModule, Name: "__wbg_nosuchhelper",
			Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: unknown}},
	}
	ctor := m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}})
	m.Funcs = []uint32{ctor}
	m.Code = []wasm.FuncBody{{Body: []byte{0x00, 0x41, 0x00, 0x0B}}}
	m.Exports = []wasm.Export{{Name: smoke.DefaultExport, Kind: wasm.KindFunc, Idx: 2}}

	err := smoke.VerifyModule(context.Background(), m.Encode(), smoke.Options{})
	var missing *errors.MissingImportsError
	if !stderrors.As(err, &missing) {
		t.Fatalf("want MissingImportsError, got %v", err)
	}
	if len(missing.Imports) != 1 || missing.Imports[0].Name != "__wbg_nosuchhelper" {
		t.Errorf("unexpected missing set: %+v", missing.Imports)
	}
}

func TestVerifyModuleForeignImportModule(t *testing.T) {
	m := &wasm.Module{}
	// The patched bundle keys its import object by a single module name, so
	// an import from anywhere else can never be satisfied.
	ti := m.AddType(wasm.FuncType{})
	m.Imports = []wasm.Import{
		{Module: "env", Name: "host_hook",
			Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: ti}},
	}
	ctor := m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}})
	m.Funcs = []uint32{ctor}
	m.Code = []wasm.FuncBody{{Body: []byte{0x00, 0x41, 0x00, 0x0B}}}
	m.Exports = []wasm.Export{{Name: smoke.DefaultExport, Kind: wasm.KindFunc, Idx: 1}}

	err := smoke.VerifyModule(context.Background(), m.Encode(), smoke.Options{})
	var missing *errors.MissingImportsError
	if !stderrors.As(err, &missing) {
		t.Fatalf("want MissingImportsError, got %v", err)
	}
	if len(missing.Imports) != 1 || missing.Imports[0].Module != "env" {
		t.Errorf("unexpected missing set: %+v", missing.Imports)
	}
}

func TestVerifyModuleSignatureMismatch(t *testing.T) {
	m := &wasm.Module{}
	// __wbindgen_memory must be () -> i32; declare it (i32) -> i32.
	bad := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}})
	m.Imports = []wasm.Import{
		{Module: bridge.DefaultImportModule, Name: "__wbindgen_memory",
			Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: bad}},
	}
	ctor := m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}})
	m.Funcs = []uint32{ctor}
	m.Code = []wasm.FuncBody{{Body: []byte{0x00, 0x41, 0x00, 0x0B}}}
	m.Exports = []wasm.Export{{Name: smoke.DefaultExport, Kind: wasm.KindFunc, Idx: 1}}

	err := smoke.VerifyModule(context.Background(), m.Encode(), smoke.Options{})
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindSignatureMismatch {
		t.Fatalf("want signature_mismatch, got %v", err)
	}
}

func TestVerifyModuleMissingExport(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{{Results: []wasm.ValType{wasm.ValI32}}},
		Funcs: []uint32{0},
		Code:  []wasm.FuncBody{{Body: []byte{0x00, 0x41, 0x00, 0x0B}}},
		Exports: []wasm.Export{
			{Name: "somethingelse_new", Kind: wasm.KindFunc, Idx: 0},
		},
	}
	err := smoke.VerifyModule(context.Background(), m.Encode(), smoke.Options{})
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindMissingExport {
		t.Fatalf("want missing_export, got %v", err)
	}
}

func TestVerifyModuleCustomExport(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{{Results: []wasm.ValType{wasm.ValI32}}},
		Funcs: []uint32{0},
		Code:  []wasm.FuncBody{{Body: []byte{0x00, 0x41, 0x07, 0x0B}}},
		Exports: []wasm.Export{
			{Name: "rawworld_new", Kind: wasm.KindFunc, Idx: 0},
		},
	}
	err := smoke.VerifyModule(context.Background(), m.Encode(), smoke.Options{Export: "rawworld_new"})
	if err != nil {
		t.Fatalf("VerifyModule: %v", err)
	}
}

func TestVerifyModuleGarbage(t *testing.T) {
	err := smoke.VerifyModule(context.Background(), []byte("not wasm"), smoke.Options{})
	if err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestVerifyReadsBundleFromDisk(t *testing.T) {
	engine := engineModule(t, "__wbindgen_throw")
	enc := base64.StdEncoding.EncodeToString(engine)

	dir := t.TempDir()
	path := filepath.Join(dir, "kinetix3d.js")
	text := "let wasm$1;\nvar kinetix3d_wasm_b64 = \"" + enc + "\";\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := smoke.Verify(context.Background(), smoke.Options{BundlePath: path}); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyMissingBundle(t *testing.T) {
	err := smoke.Verify(context.Background(), smoke.Options{BundlePath: filepath.Join(t.TempDir(), "gone.js")})
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindMissingFile {
		t.Fatalf("want missing_file, got %v", err)
	}
}
