package bundle_test

import (
	"encoding/base64"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kinetix3d/wasm-dist/bundle"
	"github.com/kinetix3d/wasm-dist/errors"
	"github.com/kinetix3d/wasm-dist/wasm"
)

func engineBase64(t *testing.T) string {
	t.Helper()
	m := &wasm.Module{
		Types: []wasm.FuncType{{Results: []wasm.ValType{wasm.ValI32}}},
		Funcs: []uint32{0},
		Exports: []wasm.Export{
			{Name: "rawintegrationparameters_new", Kind: wasm.KindFunc, Idx: 0},
		},
		Code: []wasm.FuncBody{{Body: []byte{0x00, 0x41, 0x00, 0x0B}}},
	}
	return base64.StdEncoding.EncodeToString(m.Encode())
}

func TestFindPayload(t *testing.T) {
	enc := engineBase64(t)
	text := "const version = \"1.0.0\";\nvar kinetix3d_wasm_b64 = \"" + enc + "\";\n"
	p, err := bundle.FindPayload(text)
	if err != nil {
		t.Fatalf("FindPayload: %v", err)
	}
	if p.Name != "kinetix3d_wasm_b64" {
		t.Errorf("payload name = %q", p.Name)
	}
	if p.Encoded != enc {
		t.Error("payload text does not match the embedded literal")
	}
}

func TestFindPayloadPrefersLongest(t *testing.T) {
	decoy := strings.Repeat("A", 64)
	long := strings.Repeat("Qm9k", 80)
	text := "const decoy = \"" + decoy + "\";\nconst engine = \"" + long + "\";\n"
	p, err := bundle.FindPayload(text)
	if err != nil {
		t.Fatalf("FindPayload: %v", err)
	}
	if p.Name != "engine" {
		t.Errorf("expected longest literal to win, got %q", p.Name)
	}
}

func TestFindPayloadAbsent(t *testing.T) {
	_, err := bundle.FindPayload("const x = 1;\n")
	if err == nil {
		t.Fatal("expected error when no payload present")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDecode, Kind: errors.KindInvalidData}) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDecodePayloadRoundTrip(t *testing.T) {
	m := &wasm.Module{Memories: []wasm.MemoryType{{Min: 1}}}
	raw := m.Encode()
	got, err := bundle.DecodePayload(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if string(got) != string(raw) {
		t.Error("decoded payload differs from original bytes")
	}
}

func TestDecodePayloadCorrupt(t *testing.T) {
	if _, err := bundle.DecodePayload("!!!not-base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestDecodePayloadNotWasm(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte("definitely not a wasm module"))
	if _, err := bundle.DecodePayload(enc); err == nil {
		t.Error("expected error for non-wasm payload")
	}
}

func TestDecodePayloadTruncated(t *testing.T) {
	raw := (&wasm.Module{}).Encode()
	enc := base64.StdEncoding.EncodeToString(raw[:5])
	if _, err := bundle.DecodePayload(enc); err == nil {
		t.Error("expected error for truncated module bytes")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := bundle.Load(filepath.Join(t.TempDir(), "nope.js"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindMissingFile}) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.js")
	if err := bundle.WriteAtomic(path, []byte("content")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "content" {
		t.Errorf("content = %q", got)
	}

	// Overwrite must also succeed and leave no temp files behind.
	if err := bundle.WriteAtomic(path, []byte("updated")); err != nil {
		t.Fatalf("WriteAtomic overwrite: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file in %s, found %d entries", dir, len(entries))
	}
}
