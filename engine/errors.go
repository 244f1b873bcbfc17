package engine

import "errors"

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrUndefined      = errors.New("undefined value")
	ErrUnsupported    = errors.New("unsupported operation")
	ErrTooComplex     = errors.New("expression too complex")
	ErrFreeSymbol     = errors.New("expression has free symbols")
)
