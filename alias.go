package symgrade

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// ============================================================
// Alias substitution
// ============================================================

// Substitution replaces Pattern with Replacement.
type Substitution struct {
	Pattern     string
	Replacement string
}

// Substitute rewrites s in a single left-to-right pass. At each position the
// substitutions are tried in order and the first whose pattern starts there
// is applied; the scan then resumes after the matched pattern. Replacement
// text is never rescanned, so the order of subs matters:
//
//	Substitute("bc", {c→r, bc→q}) == "br"
//	Substitute("bc", {bc→q, c→r}) == "q"
func Substitute(s string, subs []Substitution) string {
	if len(subs) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	i := 0
scan:
	for i < len(s) {
		for _, sub := range subs {
			if sub.Pattern != "" && strings.HasPrefix(s[i:], sub.Pattern) {
				b.WriteString(sub.Replacement)
				i += len(sub.Pattern)
				continue scan
			}
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		b.WriteString(s[i : i+size])
		i += size
	}
	return b.String()
}

// AliasTable maps alternative spellings of input symbols onto their codes.
// Codes map to themselves so that a code containing an alias of another
// symbol is left intact.
type AliasTable struct {
	subs []Substitution
}

// NewAliasTable builds the table for symbols. Blank codes and aliases are
// dropped, and entries are ordered by descending pattern length with ties
// kept in declaration order.
func NewAliasTable(symbols []InputSymbol) AliasTable {
	var subs []Substitution
	for _, sym := range symbols {
		if strings.TrimSpace(sym.Code) == "" {
			continue
		}
		subs = append(subs, Substitution{Pattern: sym.Code, Replacement: sym.Code})
		for _, alias := range sym.Aliases {
			if strings.TrimSpace(alias) == "" {
				continue
			}
			subs = append(subs, Substitution{Pattern: alias, Replacement: sym.Code})
		}
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return utf8.RuneCountInString(subs[i].Pattern) > utf8.RuneCountInString(subs[j].Pattern)
	})
	return AliasTable{subs: subs}
}

// Substitutions returns a copy of the ordered table.
func (t AliasTable) Substitutions() []Substitution {
	return append([]Substitution(nil), t.subs...)
}

// Apply rewrites every alias in s to its code.
func (t AliasTable) Apply(s string) string { return Substitute(s, t.subs) }

// Codes returns the distinct symbol codes in the table.
func (t AliasTable) Codes() []string {
	seen := map[string]bool{}
	var codes []string
	for _, sub := range t.subs {
		if !seen[sub.Replacement] {
			seen[sub.Replacement] = true
			codes = append(codes, sub.Replacement)
		}
	}
	return codes
}

// PreprocessExpressions applies the alias table built from symbols to each
// of exprs and returns the rewritten strings.
func PreprocessExpressions(exprs []string, symbols []InputSymbol) []string {
	t := NewAliasTable(symbols)
	out := make([]string, len(exprs))
	for i, e := range exprs {
		out[i] = t.Apply(e)
	}
	return out
}
