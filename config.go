package symgrade

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ============================================================
// Parameters
// ============================================================

// Marker tokens for multi-valued answers.
const (
	PlusMinusMarker = "plus_minus"
	MinusPlusMarker = "minus_plus"
)

// ResponseFormat selects how the response text is read.
type ResponseFormat string

const (
	FormatPlain ResponseFormat = "plain"
	FormatLaTeX ResponseFormat = "latex"
)

// InputSymbol declares a canonical symbol code and the alternative
// spellings that are rewritten to it. On the wire it is either the pair
// ["code", ["alias", ...]] or an object with code and aliases keys.
type InputSymbol struct {
	Code    string   `json:"code" yaml:"code"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

func (s InputSymbol) MarshalJSON() ([]byte, error) {
	aliases := s.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	return json.Marshal([]any{s.Code, aliases})
}

func (s *InputSymbol) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		type plain InputSymbol
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*s = InputSymbol(p)
		return nil
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("input symbol: %w", err)
	}
	if len(pair) == 0 || len(pair) > 2 {
		return fmt.Errorf("input symbol: expected [code, aliases], got %d elements", len(pair))
	}
	var out InputSymbol
	if err := json.Unmarshal(pair[0], &out.Code); err != nil {
		return fmt.Errorf("input symbol code: %w", err)
	}
	if len(pair) == 2 {
		if err := json.Unmarshal(pair[1], &out.Aliases); err != nil {
			return fmt.Errorf("input symbol aliases: %w", err)
		}
	}
	*s = out
	return nil
}

func (s *InputSymbol) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		type plain InputSymbol
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*s = InputSymbol(p)
		return nil
	case yaml.SequenceNode:
		if len(node.Content) == 0 || len(node.Content) > 2 {
			return fmt.Errorf("input symbol: expected [code, aliases], got %d elements", len(node.Content))
		}
		var out InputSymbol
		if err := node.Content[0].Decode(&out.Code); err != nil {
			return fmt.Errorf("input symbol code: %w", err)
		}
		if len(node.Content) == 2 {
			if err := node.Content[1].Decode(&out.Aliases); err != nil {
				return fmt.Errorf("input symbol aliases: %w", err)
			}
		}
		*s = out
		return nil
	}
	return fmt.Errorf("input symbol: unexpected YAML node at line %d", node.Line)
}

// Params is the parameter object sent with an evaluation request.
// Unrecognized keys are ignored; absent keys take the defaults applied by
// Resolve.
type Params struct {
	PlusMinus               string        `json:"plus_minus,omitempty" yaml:"plus_minus,omitempty"`
	MinusPlus               string        `json:"minus_plus,omitempty" yaml:"minus_plus,omitempty"`
	MultipleAnswersCriteria string        `json:"multiple_answers_criteria,omitempty" yaml:"multiple_answers_criteria,omitempty"`
	StrictSyntax            *bool         `json:"strict_syntax,omitempty" yaml:"strict_syntax,omitempty"`
	InputSymbols            []InputSymbol `json:"input_symbols,omitempty" yaml:"input_symbols,omitempty"`
	SymbolAssumptions       string        `json:"symbol_assumptions,omitempty" yaml:"symbol_assumptions,omitempty"`
	Numerical               bool          `json:"numerical,omitempty" yaml:"numerical,omitempty"`
	Atol                    *float64      `json:"atol,omitempty" yaml:"atol,omitempty" validate:"omitempty,gte=0"`
	Rtol                    *float64      `json:"rtol,omitempty" yaml:"rtol,omitempty" validate:"omitempty,gte=0"`
	ComplexNumbers          bool          `json:"complexNumbers,omitempty" yaml:"complexNumbers,omitempty"`
	SpecialFunctions        bool          `json:"specialFunctions,omitempty" yaml:"specialFunctions,omitempty"`
	ResponseFormat          string        `json:"response_format,omitempty" yaml:"response_format,omitempty" validate:"omitempty,oneof=plain latex"`
}

// EvaluationConfig is the configuration of one evaluation, resolved from
// Params with defaults applied. It is not modified after Resolve.
type EvaluationConfig struct {
	PlusMinusToken          string
	MinusPlusToken          string
	MultipleAnswersCriteria Criteria
	StrictSyntax            bool
	InputSymbols            []InputSymbol
	SymbolAssumptions       string
	Numerical               bool
	Atol                    *float64
	Rtol                    *float64
	ComplexNumbers          bool
	SpecialFunctions        bool
	ResponseFormat          ResponseFormat
}

var paramsValidate = validator.New()

// Bool returns a pointer to v, for the optional fields of Params.
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v, for the optional fields of Params.
func Float(v float64) *float64 { return &v }

// Resolve validates p and applies defaults.
func (p Params) Resolve() (EvaluationConfig, error) {
	if err := paramsValidate.Struct(p); err != nil {
		return EvaluationConfig{}, configError(TagParams, fmt.Errorf("%w: %v", ErrInvalidParams, err), "invalid parameters")
	}
	cfg := EvaluationConfig{
		PlusMinusToken:          PlusMinusMarker,
		MinusPlusToken:          MinusPlusMarker,
		MultipleAnswersCriteria: CriteriaAll,
		StrictSyntax:            true,
		InputSymbols:            p.InputSymbols,
		SymbolAssumptions:       p.SymbolAssumptions,
		Numerical:               p.Numerical,
		Atol:                    p.Atol,
		Rtol:                    p.Rtol,
		ComplexNumbers:          p.ComplexNumbers,
		SpecialFunctions:        p.SpecialFunctions,
		ResponseFormat:          FormatPlain,
	}
	if p.PlusMinus != "" {
		cfg.PlusMinusToken = p.PlusMinus
	}
	if p.MinusPlus != "" {
		cfg.MinusPlusToken = p.MinusPlus
	}
	if p.MultipleAnswersCriteria != "" {
		cfg.MultipleAnswersCriteria = Criteria(p.MultipleAnswersCriteria)
	}
	if p.StrictSyntax != nil {
		cfg.StrictSyntax = *p.StrictSyntax
	}
	if p.ResponseFormat != "" {
		cfg.ResponseFormat = ResponseFormat(p.ResponseFormat)
	}
	return cfg, nil
}

// tolerant reports whether the numerical tolerance path applies.
func (c EvaluationConfig) tolerant() bool {
	return c.Numerical || c.Atol != nil || c.Rtol != nil
}

// ============================================================
// Parameter files
// ============================================================

// DecodeParams reads params from JSON or YAML. The format is chosen by the
// first non-blank byte: '{' is JSON, anything else YAML.
func DecodeParams(data []byte) (Params, error) {
	var p Params
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return p, nil
	}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return Params{}, fmt.Errorf("decode params json: %w", err)
		}
		return p, nil
	}
	if err := yaml.Unmarshal(trimmed, &p); err != nil {
		return Params{}, fmt.Errorf("decode params yaml: %w", err)
	}
	return p, nil
}

// LoadParamsFile reads params from a .json, .yaml or .yml file.
func LoadParamsFile(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read params file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var p Params
		if err := json.Unmarshal(data, &p); err != nil {
			return Params{}, fmt.Errorf("decode params file %s: %w", path, err)
		}
		return p, nil
	case ".yaml", ".yml":
		var p Params
		if err := yaml.Unmarshal(data, &p); err != nil {
			return Params{}, fmt.Errorf("decode params file %s: %w", path, err)
		}
		return p, nil
	}
	return DecodeParams(data)
}
