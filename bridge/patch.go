package bridge

import (
	"strings"

	"github.com/kinetix3d/wasm-dist/errors"
)

// initFuncName is the replacement's distinguishing function name. Its
// presence in a bundle is evidence of a prior patch.
const initFuncName = "__initKinetix3dEngine"

// patchMarker tags patched bundles so a re-run can recognize its own output.
const patchMarker = "/* kinetix3d: manual wasm instantiation */"

// Patcher replaces the generated bridge's fragile auto-instantiation call
// with an explicit initialization block.
type Patcher struct {
	// ImportModule is the import module name the engine binary declares.
	// Defaults to DefaultImportModule.
	ImportModule string
	// PayloadName is the bundle-scoped binding holding the base64-encoded
	// engine binary. Required.
	PayloadName string
}

// Result reports what Apply did.
type Result struct {
	// AlreadyPatched is set when the input showed evidence of a prior patch
	// and Apply returned it unchanged.
	AlreadyPatched bool
	// Shape is the call shape that matched.
	Shape ShapeKind
	// Symbol is the captured instantiation argument, used as the fallback.
	Symbol string
}

// IsPatched reports whether the bundle text carries a prior patch. The
// init function name is checked as well as the marker comment since
// compaction strips comments.
func IsPatched(text string) bool {
	return strings.Contains(text, patchMarker) || strings.Contains(text, initFuncName)
}

// Apply performs the single substitution. It is idempotent: patched input is
// recognized and returned unchanged. An input with no recognizable call
// shape, or a substitution that changes nothing, is a fatal error.
func (p *Patcher) Apply(text string) (string, Result, error) {
	if p.PayloadName == "" {
		return "", Result{}, errors.InvalidInput(errors.PhasePatch, "patcher requires the payload binding name")
	}

	if IsPatched(text) {
		return text, Result{AlreadyPatched: true}, nil
	}

	m := MatchShape(text)
	if m == nil {
		return "", Result{}, errors.PatternNotFound(shapeNames())
	}

	out, err := p.substitute(text, m, p.initBlock(m.Symbol))
	if err != nil {
		return "", Result{}, err
	}
	return out, Result{Shape: m.Kind, Symbol: m.Symbol}, nil
}

// substitute splices block over the matched span and verifies the content
// actually changed; a silent no-op would indicate a broken patch rule.
func (p *Patcher) substitute(text string, m *Match, block string) (string, error) {
	out := text[:m.Start] + block + text[m.End:]
	if out == text {
		return "", errors.NoopSubstitution(m.Kind.String())
	}
	return out, nil
}

// initBlock emits the explicit initialization routine. At artifact load
// time it decodes the embedded payload (atob when the environment has it,
// Buffer otherwise; decided at load time since the same artifact runs in
// both), compiles and instantiates the module against the manual import
// table, and registers the live exports with the bridge. Any failure falls
// back to the generator's original binding so a broken load degrades to
// pre-patch behavior.
func (p *Patcher) initBlock(fallbackSymbol string) string {
	importModule := p.ImportModule
	if importModule == "" {
		importModule = DefaultImportModule
	}

	var b strings.Builder
	b.WriteString(patchMarker)
	b.WriteString("\nfunction ")
	b.WriteString(initFuncName)
	b.WriteString(`() {
    try {
        const encoded = `)
	b.WriteString(p.PayloadName)
	b.WriteString(`;
        let bytes;
        if (typeof atob === "function") {
            const raw = atob(encoded);
            bytes = new Uint8Array(raw.length);
            for (let i = 0; i < raw.length; i++) {
                bytes[i] = raw.charCodeAt(i);
            }
        } else {
            bytes = Buffer.from(encoded, "base64");
        }
        const module = new WebAssembly.Module(bytes);
        const imports = {};
        imports["`)
	b.WriteString(importModule)
	b.WriteString(`"] = {
`)
	for _, s := range shims {
		b.WriteString("            ")
		b.WriteString(s.Name)
		b.WriteString(": ")
		b.WriteString(s.Body)
		b.WriteString(",\n")
	}
	b.WriteString(`        };
        const instance = new WebAssembly.Instance(module, imports);
        return instance.exports;
    } catch (err) {
        console.error("kinetix3d: manual wasm instantiation failed, falling back to default bindings", err);
        return `)
	b.WriteString(fallbackSymbol)
	b.WriteString(`;
    }
}
`)
	b.WriteString(setWasmCall)
	b.WriteString("(")
	b.WriteString(initFuncName)
	b.WriteString("());")
	return b.String()
}
