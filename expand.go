package symgrade

import (
	"context"
	"strings"
)

// ============================================================
// Multi-valued answers
// ============================================================

// Criteria decides how sign variants must match for a correct verdict.
type Criteria string

const (
	// CriteriaAll requires every response variant and every answer variant
	// to be matched.
	CriteriaAll          Criteria = "all"
	CriteriaAllResponses Criteria = "all_responses"
	CriteriaAllAnswers   Criteria = "all_answers"
)

func hasMarker(s string) bool {
	return strings.Contains(s, PlusMinusMarker) || strings.Contains(s, MinusPlusMarker)
}

// SignVariants expands the plus_minus and minus_plus markers of s into the
// two consistent sign choices. A string without markers is its own only
// variant; identical variants are collapsed.
func SignVariants(s string) []string {
	if !hasMarker(s) {
		return []string{s}
	}
	plus := strings.ReplaceAll(strings.ReplaceAll(s, PlusMinusMarker, "+"), MinusPlusMarker, "-")
	minus := strings.ReplaceAll(strings.ReplaceAll(s, PlusMinusMarker, "-"), MinusPlusMarker, "+")
	if plus == minus {
		return []string{plus}
	}
	return []string{plus, minus}
}

// MatchMatrix records which response variants matched some answer variant
// and which answer variants were matched by some response variant.
type MatchMatrix struct {
	Responses []bool
	Answers   []bool
}

func NewMatchMatrix(responses, answers int) MatchMatrix {
	return MatchMatrix{Responses: make([]bool, responses), Answers: make([]bool, answers)}
}

// Record notes the result of comparing response variant i with answer
// variant j.
func (m MatchMatrix) Record(i, j int, matched bool) {
	if matched {
		m.Responses[i] = true
		m.Answers[j] = true
	}
}

// Satisfies applies the criteria to the recorded matches.
func (m MatchMatrix) Satisfies(c Criteria) (bool, error) {
	switch c {
	case CriteriaAll:
		return allTrue(m.Responses) && allTrue(m.Answers), nil
	case CriteriaAllResponses:
		return allTrue(m.Responses), nil
	case CriteriaAllAnswers:
		return allTrue(m.Answers), nil
	}
	return false, configError(TagCriteria, ErrUnknownCriteria, "Unknown multiple_answers_criteria: %s", c)
}

func allTrue(bs []bool) bool {
	for _, b := range bs {
		if !b {
			return false
		}
	}
	return true
}

// replaceTokens rewrites custom marker tokens to the standard markers.
func (c *Checker) replaceTokens(s string) string {
	if c.cfg.PlusMinusToken != "" && c.cfg.PlusMinusToken != PlusMinusMarker {
		s = strings.ReplaceAll(s, c.cfg.PlusMinusToken, PlusMinusMarker)
	}
	if c.cfg.MinusPlusToken != "" && c.cfg.MinusPlusToken != MinusPlusMarker {
		s = strings.ReplaceAll(s, c.cfg.MinusPlusToken, MinusPlusMarker)
	}
	return s
}

// CheckVariants compares response with answer after expanding sign markers.
// Without markers it is Check. With markers every response variant is
// checked against every answer variant and the configured criteria decide.
// A ConfigurationError from any pair aborts the whole comparison.
func (c *Checker) CheckVariants(ctx context.Context, response, answer string) (Outcome, error) {
	response, answer = c.replaceTokens(response), c.replaceTokens(answer)
	if !hasMarker(response) && !hasMarker(answer) {
		return c.Check(ctx, response, answer)
	}
	responses, answers := SignVariants(response), SignVariants(answer)
	matches := NewMatchMatrix(len(responses), len(answers))
	var latex, simplified, feedback []string
	seenFeedback := map[string]bool{}
	for i, r := range responses {
		var last Outcome
		for j, a := range answers {
			out, err := c.Check(ctx, r, a)
			if err != nil {
				return Outcome{}, err
			}
			matches.Record(i, j, out.IsCorrect)
			last = out
		}
		if last.ResponseLatex != "" {
			latex = append(latex, last.ResponseLatex)
			simplified = append(simplified, last.ResponseSimplified)
		}
		if last.Feedback != "" && !seenFeedback[last.Feedback] {
			seenFeedback[last.Feedback] = true
			feedback = append(feedback, last.Feedback)
		}
	}
	ok, err := matches.Satisfies(c.cfg.MultipleAnswersCriteria)
	if err != nil {
		return Outcome{}, err
	}
	c.logger.Debug("sign variants compared",
		"responses", matches.Responses, "answers", matches.Answers,
		"criteria", c.cfg.MultipleAnswersCriteria, "correct", ok)
	return Outcome{
		IsCorrect:          ok,
		Feedback:           strings.Join(feedback, "\n"),
		ResponseLatex:      strings.Join(latex, ", "),
		ResponseSimplified: strings.Join(simplified, ", "),
	}, nil
}
