package engine

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ============================================================
// Tokens
// ============================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokName
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

// ParseError reports where and why an input string could not be read.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
}

func errorAt(pos int, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// maxDecimalExponent bounds the exponent of a decimal literal such as 1e400.
const maxDecimalExponent = 1000

// ============================================================
// Lexer
// ============================================================

func isNameStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isNameRune(r rune) bool  { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }
func isDigit(b byte) bool     { return b >= '0' && b <= '9' }

func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			n, err := scanNumber(src, i)
			if err != nil {
				return nil, err
			}
			i = n
			toks = append(toks, token{kind: tokNumber, text: src[start:i], pos: start})
		case c == '*':
			if i+1 < len(src) && src[i+1] == '*' {
				toks = append(toks, token{kind: tokOp, text: "**", pos: i})
				i += 2
			} else {
				toks = append(toks, token{kind: tokOp, text: "*", pos: i})
				i++
			}
		case c == '+' || c == '-' || c == '/' || c == '^' || c == '=':
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		default:
			r, size := utf8.DecodeRuneInString(src[i:])
			if !isNameStart(r) {
				return nil, errorAt(i, "unexpected character %q", r)
			}
			start := i
			i += size
			for i < len(src) {
				r, size = utf8.DecodeRuneInString(src[i:])
				if !isNameRune(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokName, text: src[start:i], pos: start})
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

// scanNumber reads digits[.digits][(e|E)[+-]digits] starting at i.
func scanNumber(src string, i int) (int, error) {
	start := i
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			expStart := j
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			if j-expStart > 4 || atoiSmall(src[expStart:j]) > maxDecimalExponent {
				return 0, errorAt(start, "number %q is out of range", src[start:j])
			}
			i = j
		}
	}
	return i, nil
}

func atoiSmall(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// ============================================================
// Name splitting
// ============================================================

// splitName breaks an unknown multi-character name into single-letter
// symbols, digit runs and unsplittable codes (longest first).
func splitName(t token, unsplittable []string) []token {
	var out []token
	s := t.text
	i := 0
	for i < len(s) {
		matched := ""
		for _, u := range unsplittable {
			if len(u) > len(matched) && len(u) <= len(s)-i && s[i:i+len(u)] == u {
				matched = u
			}
		}
		if matched != "" {
			out = append(out, token{kind: tokName, text: matched, pos: t.pos + i})
			i += len(matched)
			continue
		}
		if isDigit(s[i]) {
			j := i
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			out = append(out, token{kind: tokNumber, text: s[i:j], pos: t.pos + i})
			i = j
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		out = append(out, token{kind: tokName, text: s[i : i+size], pos: t.pos + i})
		i += size
	}
	return out
}
