// Package descriptor applies the packaging fixes to the package descriptor
// (package.json). Edits are surgical: a present field is never overridden,
// and untouched fields keep their exact bytes.
package descriptor

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/kinetix3d/wasm-dist/errors"
)

// EnsureModuleType adds `"type": "module"` when the field is absent. When it
// is already present, whatever its value, the input is returned byte-for-byte
// unchanged. The second return reports whether a change was made.
func EnsureModuleType(data []byte) ([]byte, bool, error) {
	if !gjson.ValidBytes(data) {
		return nil, false, errors.InvalidData(errors.PhaseDescriptor, "descriptor is not valid JSON")
	}
	if gjson.GetBytes(data, "type").Exists() {
		return data, false, nil
	}
	out, err := sjson.SetBytes(data, "type", "module")
	if err != nil {
		return nil, false, errors.Wrap(errors.PhaseDescriptor, errors.KindInvalidData, err, "set module type")
	}
	return out, true, nil
}

// RenameDependency moves a dependencies entry from one package name to
// another, keeping its version constraint. Absent entries are a no-op. The
// second return reports whether a change was made.
func RenameDependency(data []byte, from, to string) ([]byte, bool, error) {
	if !gjson.ValidBytes(data) {
		return nil, false, errors.InvalidData(errors.PhaseDescriptor, "descriptor is not valid JSON")
	}
	if from == "" || to == "" || from == to {
		return data, false, nil
	}

	fromPath := "dependencies." + escapeKey(from)
	v := gjson.GetBytes(data, fromPath)
	if !v.Exists() {
		return data, false, nil
	}

	out, err := sjson.DeleteBytes(data, fromPath)
	if err != nil {
		return nil, false, errors.Wrap(errors.PhaseDescriptor, errors.KindInvalidData, err, "remove dependency entry")
	}
	out, err = sjson.SetBytes(out, "dependencies."+escapeKey(to), v.Value())
	if err != nil {
		return nil, false, errors.Wrap(errors.PhaseDescriptor, errors.KindInvalidData, err, "add renamed dependency entry")
	}
	return out, true, nil
}

// escapeKey protects path metacharacters in npm package names: dots appear
// in names like "lodash.merge", and scoped names start with "@", which gjson
// would otherwise read as a modifier pipe.
func escapeKey(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "@", `\@`)
	return r.Replace(key)
}
