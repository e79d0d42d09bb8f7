package bridge

import (
	"regexp"
	"strings"
)

// ShapeKind enumerates the recognized forms of the generated bridge's
// instantiation call. The upstream code generator emits
// `__wbg_set_wasm(wasm$1);` today; minifiers may drop the terminator or
// rename the argument, so a structural form backstops the verbatim ones.
type ShapeKind int

const (
	// ShapeStatement is the verbatim call with its statement terminator.
	ShapeStatement ShapeKind = iota
	// ShapeBare is the verbatim call without a terminator.
	ShapeBare
	// ShapePattern is the structural form: the call target matched by name
	// with an arbitrary argument symbol, tolerant of minified whitespace.
	ShapePattern
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeStatement:
		return "statement"
	case ShapeBare:
		return "bare"
	case ShapePattern:
		return "pattern"
	default:
		return "unknown"
	}
}

// setWasmCall is the call-target symbol the generator uses to hand the live
// module instance to the bridge.
const setWasmCall = "__wbg_set_wasm"

// defaultSymbol is the argument identifier the generator emits for the
// auto-instantiated module binding.
const defaultSymbol = "wasm$1"

// Match is one located occurrence of the instantiation call.
type Match struct {
	Kind ShapeKind
	// Start and End delimit the matched text in the bundle.
	Start, End int
	// Symbol is the instantiation argument, kept for the fallback path.
	Symbol string
}

var structuralPattern = regexp.MustCompile(
	regexp.QuoteMeta(setWasmCall) + `\s*\(\s*([A-Za-z_$][0-9A-Za-z_$]*)\s*\)\s*;?`)

// shapeNames lists the candidate shapes in priority order, for diagnostics.
func shapeNames() []string {
	return []string{ShapeStatement.String(), ShapeBare.String(), ShapePattern.String()}
}

// MatchShape tries each candidate shape in fixed priority order and returns
// the first match anywhere in text, or nil when no shape matches.
func MatchShape(text string) *Match {
	verbatim := setWasmCall + "(" + defaultSymbol + ")"

	if idx := strings.Index(text, verbatim+";"); idx >= 0 {
		return &Match{
			Kind:   ShapeStatement,
			Start:  idx,
			End:    idx + len(verbatim) + 1,
			Symbol: defaultSymbol,
		}
	}
	if idx := strings.Index(text, verbatim); idx >= 0 {
		return &Match{
			Kind:   ShapeBare,
			Start:  idx,
			End:    idx + len(verbatim),
			Symbol: defaultSymbol,
		}
	}
	for _, loc := range structuralPattern.FindAllStringSubmatchIndex(text, -1) {
		// The glue defines `function __wbg_set_wasm(val)`, which the
		// structural form would otherwise match before any call site.
		if isFunctionDefinition(text, loc[0]) {
			continue
		}
		return &Match{
			Kind:   ShapePattern,
			Start:  loc[0],
			End:    loc[1],
			Symbol: text[loc[2]:loc[3]],
		}
	}
	return nil
}

// isFunctionDefinition reports whether the text leading up to start ends
// with the `function` keyword.
func isFunctionDefinition(text string, start int) bool {
	head := strings.TrimRight(text[:start], " \t")
	if !strings.HasSuffix(head, "function") {
		return false
	}
	// Keyword boundary: "function" must not be the tail of an identifier.
	if i := len(head) - len("function") - 1; i >= 0 {
		c := head[i]
		if c == '_' || c == '$' ||
			c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			return false
		}
	}
	return true
}
