package symgrade

import (
	"strings"
	"unicode"
)

// ============================================================
// Symbol assumptions
// ============================================================

// SymbolAssumption constrains a symbol, e.g. {x, positive}.
type SymbolAssumption struct {
	Symbol     string
	Assumption string
}

const malformedAssumptions = "List of symbol assumptions not written correctly."

// ParseAssumptions reads the assumption list "(x,positive) (y,real)".
// Names may be quoted with ' or ". Text outside the parentheses is ignored.
func ParseAssumptions(text string) ([]SymbolAssumption, error) {
	var out []SymbolAssumption
	rs := []rune(text)
	for i := 0; i < len(rs); i++ {
		if rs[i] != '(' {
			continue
		}
		end := matchingParen(rs, i)
		if end < 0 {
			return nil, configError(TagAssumptions, ErrMalformedAssumptions, malformedAssumptions)
		}
		sa, ok := assumptionPair(string(rs[i+1 : end]))
		if !ok {
			return nil, configError(TagAssumptions, ErrMalformedAssumptions, malformedAssumptions)
		}
		out = append(out, sa)
		i = end
	}
	return out, nil
}

func matchingParen(rs []rune, start int) int {
	depth := 0
	for k := start; k < len(rs); k++ {
		switch rs[k] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return k
			}
		}
	}
	return -1
}

func assumptionPair(inner string) (SymbolAssumption, bool) {
	parts := strings.Split(inner, ",")
	if len(parts) != 2 {
		return SymbolAssumption{}, false
	}
	sym, ok := unquoteName(parts[0])
	if !ok {
		return SymbolAssumption{}, false
	}
	assumption, ok := unquoteName(parts[1])
	if !ok {
		return SymbolAssumption{}, false
	}
	return SymbolAssumption{Symbol: sym, Assumption: assumption}, true
}

func unquoteName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') {
		if s[len(s)-1] != s[0] {
			return "", false
		}
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", false
		}
	}
	return s, true
}

// checkAssumptions reports the first assumption eng does not support.
func checkAssumptions(eng Engine, list []SymbolAssumption) error {
	for _, sa := range list {
		if !eng.SupportsAssumption(sa.Assumption) {
			return configError(TagAssumptions, ErrUnknownAssumption,
				"Assumption %s for symbol %s caused a problem.", sa.Assumption, sa.Symbol)
		}
	}
	return nil
}
