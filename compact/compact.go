// Package compact shrinks a patched bundle without changing its semantics.
// It strips comments, trims trailing whitespace and collapses runs of blank
// lines. String, template and regular
// expression literals are carried through byte-for-byte, so the embedded
// base64 payload and every user-visible string survive intact.
package compact

import (
	"strings"
)

// state tracks which lexical region the scanner is inside. Only Normal text
// is rewritten; every other region is copied verbatim.
type state int

const (
	stateNormal state = iota
	stateLineComment
	stateBlockComment
	stateString   // ' or " quoted
	stateTemplate // ` quoted, supports ${...} nesting back into Normal
	stateRegex
	stateRegexClass // inside [...] of a regex, where / is literal
)

// Compact returns a semantics-preserving, typically smaller rendition of the
// input. Compacting is idempotent: Compact(Compact(s)) == Compact(s).
func Compact(input string) string {
	s := &scanner{}
	stripped := s.strip(input)
	return tidyLines(stripped, s.lineEnds)
}

// scanner removes comments while tracking the lexical region, the last
// significant byte and the trailing word. Byte and word together decide
// whether a slash opens a regex literal or is a division operator; getting
// that wrong in the regex direction only costs a missed strip inside the
// literal, while the division direction would let a fake comment opener
// swallow real code, so keywords that can precede a regex are recognized
// explicitly.
type scanner struct {
	out strings.Builder
	st  state
	// quote is the active delimiter while st is stateString.
	quote byte
	// templateDepth records, per nested ${...} interpolation, how many open
	// braces it has, so the scanner knows when the interpolation closes.
	templateDepth []int
	// prev is the last significant byte seen in normal text.
	prev byte
	// word is the identifier or keyword prev belongs to.
	word []byte
	// sep marks that whitespace ended the current word.
	sep bool
	// lineEnds records, per emitted newline, whether that line ends inside
	// a template literal or one of its interpolations.
	lineEnds []bool
}

func (s *scanner) emit(c byte) {
	if c == '\n' {
		s.lineEnds = append(s.lineEnds, s.st == stateTemplate || len(s.templateDepth) > 0)
	}
	s.out.WriteByte(c)
}

// leaveLiteral returns to normal text after a closing delimiter.
func (s *scanner) leaveLiteral(delim byte) {
	s.st = stateNormal
	s.prev = delim
	s.word = s.word[:0]
	s.sep = false
}

func (s *scanner) strip(input string) string {
	s.out.Grow(len(input))

	for i := 0; i < len(input); i++ {
		c := input[i]

		switch s.st {
		case stateNormal:
			switch {
			case c == '/' && i+1 < len(input) && input[i+1] == '/':
				s.st = stateLineComment
				i++
				continue
			case c == '/' && i+1 < len(input) && input[i+1] == '*':
				s.st = stateBlockComment
				i++
				continue
			case c == '/' && regexCanStart(s.prev, s.word):
				s.st = stateRegex
				s.emit(c)
				continue
			case c == '\'' || c == '"':
				s.st = stateString
				s.quote = c
				s.emit(c)
				continue
			case c == '`':
				s.st = stateTemplate
				s.emit(c)
				continue
			case c == '}' && len(s.templateDepth) > 0:
				n := len(s.templateDepth) - 1
				if s.templateDepth[n] == 0 {
					s.templateDepth = s.templateDepth[:n]
					s.st = stateTemplate
					s.emit(c)
					continue
				}
				s.templateDepth[n]--
			case c == '{' && len(s.templateDepth) > 0:
				s.templateDepth[len(s.templateDepth)-1]++
			}
			s.emit(c)
			switch {
			case isIdentByte(c):
				if s.sep {
					s.word = s.word[:0]
					s.sep = false
				}
				s.word = append(s.word, c)
				s.prev = c
			case isSpace(c):
				s.sep = true
			default:
				s.word = s.word[:0]
				s.sep = false
				s.prev = c
			}

		case stateLineComment:
			if c == '\n' {
				s.st = stateNormal
				s.emit(c)
			}

		case stateBlockComment:
			if c == '*' && i+1 < len(input) && input[i+1] == '/' {
				s.st = stateNormal
				i++
				// A comment between tokens still separates them.
				s.emit(' ')
				s.prev = 0
				s.word = s.word[:0]
				s.sep = false
			} else if c == '\n' {
				// Keep line structure so diagnostics map back roughly.
				s.emit(c)
			}

		case stateString:
			s.emit(c)
			if c == '\\' && i+1 < len(input) {
				i++
				s.emit(input[i])
			} else if c == s.quote {
				s.leaveLiteral(c)
			}

		case stateTemplate:
			s.emit(c)
			if c == '\\' && i+1 < len(input) {
				i++
				s.emit(input[i])
			} else if c == '$' && i+1 < len(input) && input[i+1] == '{' {
				i++
				s.templateDepth = append(s.templateDepth, 0)
				s.st = stateNormal
				s.emit('{')
				s.prev = 0
				s.word = s.word[:0]
				s.sep = false
			} else if c == '`' {
				s.leaveLiteral(c)
			}

		case stateRegex:
			if c == '\n' {
				// Unterminated regex on this line; bail back to normal
				// rather than eat the rest of the file.
				s.st = stateNormal
				s.prev = 0
				s.word = s.word[:0]
				s.sep = false
				s.emit(c)
				continue
			}
			s.emit(c)
			if c == '\\' && i+1 < len(input) {
				i++
				s.emit(input[i])
			} else if c == '[' {
				s.st = stateRegexClass
			} else if c == '/' {
				s.leaveLiteral(c)
			}

		case stateRegexClass:
			s.emit(c)
			if c == '\\' && i+1 < len(input) {
				i++
				s.emit(input[i])
			} else if c == ']' {
				s.st = stateRegex
			}
		}
	}
	return s.out.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// regexKeywords are the keywords a regex literal can directly follow, as in
// `return/a/.test(s)`.
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true,
	"of": true, "new": true, "delete": true, "void": true, "throw": true,
	"case": true, "do": true, "else": true, "yield": true, "await": true,
}

// regexCanStart reports whether a slash begins a regex literal rather than
// division, given the last significant byte and the word it ends.
func regexCanStart(prev byte, word []byte) bool {
	if prev == 0 {
		return true
	}
	if isIdentByte(prev) {
		return regexKeywords[string(word)]
	}
	if prev == ')' || prev == ']' {
		return false
	}
	return true
}

// tidyLines trims trailing whitespace and collapses runs of blank lines to a
// single one. Lines that start or end inside a template literal, per the
// scanner's record, are passed through untouched since their whitespace is
// part of the string value. Both rewrites are fixpoints, which keeps Compact
// idempotent.
func tidyLines(input string, lineEnds []bool) string {
	lines := strings.Split(input, "\n")
	out := make([]string, 0, len(lines))

	blank := false
	for i, line := range lines {
		startsIn := i > 0 && i-1 < len(lineEnds) && lineEnds[i-1]
		endsIn := i < len(lineEnds) && lineEnds[i]
		if startsIn || endsIn {
			out = append(out, line)
			blank = false
			continue
		}

		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false

		out = append(out, trimmed)
	}

	// Drop trailing blank lines, keep exactly one final newline.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n") + "\n"
}
