package wasm_test

import (
	"bytes"
	"testing"

	"github.com/kinetix3d/wasm-dist/wasm"
)

func TestLEB128uRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 300, 16384, 0xFFFFFFFF}
	for _, v := range cases {
		enc := wasm.AppendLEB128u(nil, v)
		got, n, err := wasm.ReadLEB128u(enc)
		if err != nil {
			t.Fatalf("ReadLEB128u(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
		if n != len(enc) {
			t.Errorf("value %d: consumed %d of %d bytes", v, n, len(enc))
		}
	}
}

func TestLEB128uKnownEncodings(t *testing.T) {
	if enc := wasm.AppendLEB128u(nil, 624485); !bytes.Equal(enc, []byte{0xE5, 0x8E, 0x26}) {
		t.Errorf("624485 encoded as % x", enc)
	}
}

func TestLEB128uTruncated(t *testing.T) {
	_, _, err := wasm.ReadLEB128u([]byte{0x80})
	if err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestLEB128uOverflow(t *testing.T) {
	_, _, err := wasm.ReadLEB128u([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	if err == nil {
		t.Error("expected overflow error")
	}
}
