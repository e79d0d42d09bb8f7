// Package bundle handles the self-contained JS bundle artifact: reading it,
// locating the embedded base64-encoded wasm binary, decoding the payload,
// and writing the rewritten bundle back atomically.
package bundle

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"regexp"

	"github.com/kinetix3d/wasm-dist/errors"
	"github.com/kinetix3d/wasm-dist/wasm"
)

// Payload is the embedded text encoding of the engine binary: a long base64
// string literal bound to a bundle-scoped identifier.
type Payload struct {
	// Name is the binding the encoded text is assigned to.
	Name string
	// Encoded is the base64 text, without quotes.
	Encoded string
}

// payloadPattern matches `const NAME = "BASE64..."` (const/var/let). The
// length floor keeps ordinary short string constants from matching; any real
// engine binary encodes to tens of thousands of characters.
var payloadPattern = regexp.MustCompile(`(?m)(?:const|var|let)\s+([A-Za-z_$][0-9A-Za-z_$]*)\s*=\s*"([A-Za-z0-9+/]{64,}={0,2})"`)

// Load reads the bundle text. An absent file is a fatal pipeline error.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.MissingFile(errors.PhaseLoad, path, err)
		}
		return "", errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "read bundle")
	}
	return string(data), nil
}

// FindPayload locates the embedded text encoding in the bundle. When several
// candidates exist the longest literal wins, on the assumption that nothing
// else in a bundle approaches the inlined binary's size.
func FindPayload(text string) (Payload, error) {
	matches := payloadPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return Payload{}, errors.InvalidData(errors.PhaseDecode, "no embedded wasm payload found in bundle")
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if len(m[2]) > len(best[2]) {
			best = m
		}
	}
	return Payload{Name: best[1], Encoded: best[2]}, nil
}

// DecodePayload decodes the embedded text back to the engine's binary bytes.
// The decode must round-trip exactly: corrupt or truncated encodings fail
// here rather than surfacing as misbehavior downstream.
func DecodePayload(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "payload is not valid base64")
	}
	if !wasm.IsModule(data) {
		return nil, errors.InvalidData(errors.PhaseDecode, "decoded payload is not a wasm module")
	}
	return data, nil
}

// WriteAtomic writes data to path via a temp file and rename, so a crashed
// or failed run never leaves a partially-written artifact at the target.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pack-*")
	if err != nil {
		return errors.Wrap(errors.PhaseWrite, errors.KindInvalidData, err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(errors.PhaseWrite, errors.KindInvalidData, err, "write temp file")
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(errors.PhaseWrite, errors.KindInvalidData, err, "chmod temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.PhaseWrite, errors.KindInvalidData, err, "close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.PhaseWrite, errors.KindInvalidData, err, "rename into place")
	}
	return nil
}
