package wasm

import "errors"

// LEB128 encoding/decoding utilities for the WebAssembly binary format.

// ErrOverflow is returned when a LEB128 value exceeds the maximum bit width.
var ErrOverflow = errors.New("leb128: overflow")

// ErrUnexpectedEOF is returned when input ends mid-value.
var ErrUnexpectedEOF = errors.New("leb128: unexpected end of input")

// ReadLEB128u reads an unsigned 32-bit LEB128 value from data, returning the
// value and the number of bytes consumed.
func ReadLEB128u(data []byte) (uint32, int, error) {
	var result uint32
	var shift uint
	for i, b := range data {
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, 0, ErrOverflow
		}
	}
	return 0, 0, ErrUnexpectedEOF
}

// AppendLEB128u appends the unsigned LEB128 encoding of v to dst.
func AppendLEB128u(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}
