package symgrade

import (
	"errors"
	"fmt"
)

// ============================================================
// Error taxonomy
// ============================================================

// Causes of a ConfigurationError. These are authoring defects: the
// evaluation is aborted and no result is produced.
var (
	ErrNoAnswer             = errors.New("no answer was given")
	ErrMalformedAssumptions = errors.New("malformed symbol assumptions")
	ErrUnknownAssumption    = errors.New("unknown symbol assumption")
	ErrAmbiguousAnswer      = errors.New("ambiguous absolute value notation in answer")
	ErrUnknownCriteria      = errors.New("unknown multiple answers criteria")
	ErrAnswerParse          = errors.New("answer could not be parsed")
	ErrInvalidParams        = errors.New("invalid parameters")
)

// ErrPreviewParse is returned by Preview when the input cannot be read.
var ErrPreviewParse = errors.New("preview could not be parsed")

// Tags attached to configuration errors.
const (
	TagNoAnswer    = "noAnswer"
	TagAssumptions = "assumptions"
	TagAmbiguity   = "ambiguityWith|"
	TagCriteria    = "criteria"
	TagAnswerParse = "answerParse"
	TagParams      = "params"
)

// ConfigurationError reports a fatal problem with the answer or the
// parameters supplied by the author. Problems with the response are never
// reported this way; they become a Result with IsCorrect false.
type ConfigurationError struct {
	Reason string
	Tag    string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configError(tag string, cause error, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...), Tag: tag, Err: cause}
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
