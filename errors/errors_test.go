package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(PhasePatch, KindPatternNotFound).
		Detail("bridge call not found").
		Build()

	got := err.Error()
	if !strings.Contains(got, "[patch]") {
		t.Errorf("missing phase in %q", got)
	}
	if !strings.Contains(got, "pattern_not_found") {
		t.Errorf("missing kind in %q", got)
	}
	if !strings.Contains(got, "bridge call not found") {
		t.Errorf("missing detail in %q", got)
	}
}

func TestErrorPathAndCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := New(PhaseSmoke, KindInstantiation).
		Path("./kinetix3d_wasm_bg.js", "__wbindgen_throw").
		Cause(cause).
		Build()

	got := err.Error()
	if !strings.Contains(got, "./kinetix3d_wasm_bg.js.__wbindgen_throw") {
		t.Errorf("missing path in %q", got)
	}
	if !strings.Contains(got, "boom") {
		t.Errorf("missing cause in %q", got)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to match cause")
	}
}

func TestErrorIsMatchesPhaseAndKind(t *testing.T) {
	err := MissingFile(PhaseLoad, "pkg/kinetix3d.js", nil)
	target := &Error{Phase: PhaseLoad, Kind: KindMissingFile}
	if !stderrors.Is(err, target) {
		t.Error("expected Is to match on phase and kind")
	}

	other := &Error{Phase: PhasePatch, Kind: KindMissingFile}
	if stderrors.Is(err, other) {
		t.Error("Is should not match a different phase")
	}
}

func TestDetailFormatting(t *testing.T) {
	err := New(PhaseDecode, KindInvalidData).
		Detail("payload is %d bytes, want at least %d", 3, 8).
		Build()
	if !strings.Contains(err.Error(), "payload is 3 bytes, want at least 8") {
		t.Errorf("unexpected detail: %q", err.Error())
	}
}

func TestMissingImportsError(t *testing.T) {
	err := NewMissingImportsError([]string{
		"./kinetix3d_wasm_bg.js#__wbindgen_bogus",
		"./kinetix3d_wasm_bg.js#__wbg_call9",
		"env#mystery",
	})

	if len(err.Imports) != 3 {
		t.Fatalf("expected 3 imports, got %d", len(err.Imports))
	}

	got := err.Error()
	for _, want := range []string{"3 declared import(s)", "__wbindgen_bogus", "__wbg_call9", "env", "mystery"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}

	var target *MissingImportsError
	if !stderrors.As(err, &target) {
		t.Error("expected errors.As to match *MissingImportsError")
	}
	if !stderrors.Is(err, &MissingImportsError{}) {
		t.Error("expected errors.Is to match MissingImportsError")
	}
}

func TestWrapPreservesChain(t *testing.T) {
	inner := fmt.Errorf("read failed")
	err := Wrap(PhaseWrite, KindInvalidData, inner, "flush bundle")
	if !stderrors.Is(err, inner) {
		t.Error("expected wrapped error to unwrap to inner")
	}
}
