package symgrade

import (
	"strings"
	"unicode"
)

// ============================================================
// Absolute value notation
// ============================================================

// AmbiguityRemark is attached to the feedback when the response uses pipe
// notation that could not be read unambiguously.
const AmbiguityRemark = "Notation in response might be ambiguous, use Abs(.) instead of |.|"

const answerAmbiguity = "Notation in answer might be ambiguous, use Abs(.) instead of |.|"

type pipeRole int

const (
	pipeStart pipeRole = iota
	pipeEnd
	pipeAmbiguous
)

// pipeScan is the classification of the pipes in one string.
type pipeScan struct {
	runes     []rune
	pipes     []int
	roles     map[int]pipeRole
	ambiguous []int
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func isBracketOrWord(r rune) bool { return isWordRune(r) || strings.ContainsRune("()[]{}", r) }

func scanPipes(s string) pipeScan {
	sc := pipeScan{runes: []rune(s), roles: map[int]pipeRole{}}
	rs := sc.runes
	for i, r := range rs {
		if r == '|' {
			sc.pipes = append(sc.pipes, i)
		}
	}
	if len(sc.pipes) == 0 || len(sc.pipes) == 2 {
		return sc
	}
	last := len(rs) - 1
	for _, i := range sc.pipes {
		if i == 0 || i == last {
			continue
		}
		before, after := isBracketOrWord(rs[i-1]), isBracketOrWord(rs[i+1])
		switch {
		case before && !after:
			sc.roles[i] = pipeEnd
		case after && !before:
			sc.roles[i] = pipeStart
		default:
			sc.roles[i] = pipeAmbiguous
			sc.ambiguous = append(sc.ambiguous, i)
		}
	}
	if rs[0] == '|' {
		sc.roles[0] = pipeStart
	}
	// A lone pipe is both first and last; the end role wins.
	if rs[last] == '|' {
		sc.roles[last] = pipeEnd
	}
	return sc
}

// render writes the scanned string with start and end markers replaced.
// Each ambiguous pipe is replaced by resolved[i] when present and kept
// otherwise.
func (sc pipeScan) render(resolved map[int]string) string {
	var b strings.Builder
	for i, r := range sc.runes {
		if r != '|' {
			b.WriteRune(r)
			continue
		}
		if len(sc.pipes) == 2 {
			if i == sc.pipes[0] {
				b.WriteString("Abs(")
			} else {
				b.WriteString(")")
			}
			continue
		}
		switch sc.roles[i] {
		case pipeStart:
			b.WriteString("Abs(")
		case pipeEnd:
			b.WriteString(")")
		default:
			if s, ok := resolved[i]; ok {
				b.WriteString(s)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// resolve decides each ambiguous pipe from the closest marker before it.
// After an end marker (or with nothing before it) the pipe opens a group;
// after a start marker it closes one; after another ambiguous pipe the
// choice alternates, starting with open.
func (sc pipeScan) resolve() map[int]string {
	out := map[int]string{}
	open := func(i int) string {
		if i > 0 && isWordRune(sc.runes[i-1]) {
			return "*Abs("
		}
		return "Abs("
	}
	parity := 0
	prevAmbiguous := -1
	for _, i := range sc.ambiguous {
		prevStart, prevEnd := -1, -1
		for _, j := range sc.pipes {
			if j >= i {
				break
			}
			switch sc.roles[j] {
			case pipeStart:
				prevStart = j
			case pipeEnd:
				prevEnd = j
			}
		}
		closest := max(prevStart, prevEnd, prevAmbiguous)
		switch closest {
		case prevEnd:
			out[i] = open(i)
		case prevAmbiguous:
			if parity%2 == 0 {
				out[i] = open(i)
			} else {
				out[i] = ")"
			}
			parity++
		default:
			out[i] = ")"
		}
		prevAmbiguous = i
	}
	return out
}

// NormalizeResponseAbsolute rewrites pipe notation in a response into Abs
// calls. ambiguous is true when more than two pipes were present and some
// of them had to be resolved heuristically.
func NormalizeResponseAbsolute(s string) (out string, ambiguous bool) {
	sc := scanPipes(s)
	if len(sc.pipes) == 0 {
		return s, false
	}
	out = sc.render(sc.resolve())
	return out, len(sc.pipes) > 2 && len(sc.ambiguous) > 0
}

// NormalizeAnswerAbsolute rewrites pipe notation in an answer. The answer is
// trusted to be unambiguous: more than two pipes with any ambiguous one is
// a ConfigurationError.
func NormalizeAnswerAbsolute(s string) (string, error) {
	sc := scanPipes(s)
	if len(sc.pipes) == 0 {
		return s, nil
	}
	if len(sc.pipes) > 2 && len(sc.ambiguous) > 0 {
		return "", configError(TagAmbiguity, ErrAmbiguousAnswer, answerAmbiguity)
	}
	return sc.render(nil), nil
}

// NormalizeAbsolute normalizes the response and the answer and returns the
// remark to show when the response notation was ambiguous.
func NormalizeAbsolute(response, answer string) (res, ans, remark string, err error) {
	ans, err = NormalizeAnswerAbsolute(answer)
	if err != nil {
		return "", "", "", err
	}
	res, ambiguous := NormalizeResponseAbsolute(response)
	if ambiguous {
		remark = AmbiguityRemark
	}
	return res, ans, remark, nil
}
