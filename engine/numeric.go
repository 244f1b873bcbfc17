package engine

import (
	"fmt"
	"math"
	"math/cmplx"
)

// ============================================================
// Numeric evaluation
// ============================================================

// Numeric evaluates e. The expression is canonicalized first, so exact
// identities are applied before any rounding and exact rational results
// are rounded once.
func Numeric(e Expr) (complex128, error) {
	f, err := canonicalize(e)
	if err != nil {
		return 0, err
	}
	if r, ok := f.constant(); ok {
		v, _ := r.Float64()
		return complex(v, 0), nil
	}
	if f.hasSymbols() {
		return 0, ErrFreeSymbol
	}
	return Evaluate(f.expr())
}

// Evaluate computes e in complex floating point as written.
func Evaluate(e Expr) (complex128, error) {
	switch v := e.(type) {
	case *Num:
		return complex(v.Float64(), 0), nil
	case *Float:
		f, _ := v.val.Float64()
		return complex(f, 0), nil
	case *Sym:
		return 0, fmt.Errorf("%w: %s", ErrFreeSymbol, v.name)
	case *Const:
		if v.name == "pi" {
			return complex(math.Pi, 0), nil
		}
		return 1i, nil
	case *Add:
		var sum complex128
		for _, t := range v.terms {
			x, err := Evaluate(t)
			if err != nil {
				return 0, err
			}
			sum += x
		}
		return sum, nil
	case *Mul:
		prod := complex(1, 0)
		for _, f := range v.factors {
			x, err := Evaluate(f)
			if err != nil {
				return 0, err
			}
			prod *= x
		}
		return prod, nil
	case *Pow:
		b, err := Evaluate(v.base)
		if err != nil {
			return 0, err
		}
		x, err := Evaluate(v.exp)
		if err != nil {
			return 0, err
		}
		return power(b, x), nil
	case *Func:
		args := make([]complex128, len(v.args))
		for i, a := range v.args {
			x, err := Evaluate(a)
			if err != nil {
				return 0, err
			}
			args[i] = x
		}
		return applyNumeric(v.name, args)
	}
	return 0, fmt.Errorf("%w: cannot evaluate %T", ErrUnsupported, e)
}

func isReal(z complex128) bool { return imag(z) == 0 }

func power(b, x complex128) complex128 {
	if isReal(b) && isReal(x) {
		rb, rx := real(b), real(x)
		if rb >= 0 || rx == math.Trunc(rx) {
			return complex(math.Pow(rb, rx), 0)
		}
	}
	if b == 0 {
		if real(x) > 0 {
			return 0
		}
		return cmplx.Inf()
	}
	return cmplx.Pow(b, x)
}

func applyNumeric(name string, args []complex128) (complex128, error) {
	z := args[0]
	r := real(z)
	real1 := isReal(z)
	switch name {
	case "sin":
		if real1 {
			return complex(math.Sin(r), 0), nil
		}
		return cmplx.Sin(z), nil
	case "cos":
		if real1 {
			return complex(math.Cos(r), 0), nil
		}
		return cmplx.Cos(z), nil
	case "tan":
		if real1 {
			return complex(math.Tan(r), 0), nil
		}
		return cmplx.Tan(z), nil
	case "sec":
		c, _ := applyNumeric("cos", args)
		return 1 / c, nil
	case "csc":
		s, _ := applyNumeric("sin", args)
		return 1 / s, nil
	case "cot":
		t, _ := applyNumeric("tan", args)
		return 1 / t, nil
	case "asin":
		if real1 && math.Abs(r) <= 1 {
			return complex(math.Asin(r), 0), nil
		}
		return cmplx.Asin(z), nil
	case "acos":
		if real1 && math.Abs(r) <= 1 {
			return complex(math.Acos(r), 0), nil
		}
		return cmplx.Acos(z), nil
	case "atan":
		if real1 {
			return complex(math.Atan(r), 0), nil
		}
		return cmplx.Atan(z), nil
	case "sinh":
		if real1 {
			return complex(math.Sinh(r), 0), nil
		}
		return cmplx.Sinh(z), nil
	case "cosh":
		if real1 {
			return complex(math.Cosh(r), 0), nil
		}
		return cmplx.Cosh(z), nil
	case "tanh":
		if real1 {
			return complex(math.Tanh(r), 0), nil
		}
		return cmplx.Tanh(z), nil
	case "exp":
		if real1 {
			return complex(math.Exp(r), 0), nil
		}
		return cmplx.Exp(z), nil
	case "log":
		l := logNumeric(z)
		if len(args) == 2 {
			return l / logNumeric(args[1]), nil
		}
		return l, nil
	case "sqrt":
		return power(z, 0.5), nil
	case "Abs":
		return complex(cmplx.Abs(z), 0), nil
	case "sign":
		if z == 0 {
			return 0, nil
		}
		return z / complex(cmplx.Abs(z), 0), nil
	case "floor", "ceiling":
		if !real1 {
			return 0, fmt.Errorf("%w: %s of a complex number", ErrUnsupported, name)
		}
		if name == "floor" {
			return complex(math.Floor(r), 0), nil
		}
		return complex(math.Ceil(r), 0), nil
	case "gamma":
		if !real1 {
			return 0, fmt.Errorf("%w: complex gamma", ErrUnsupported)
		}
		return complex(math.Gamma(r), 0), nil
	case "beta":
		a, b := args[0], args[1]
		if !isReal(a) || !isReal(b) {
			return 0, fmt.Errorf("%w: complex beta", ErrUnsupported)
		}
		return complex(math.Gamma(real(a))*math.Gamma(real(b))/math.Gamma(real(a)+real(b)), 0), nil
	case "zeta":
		if !real1 || r <= 0 || r == 1 {
			return 0, fmt.Errorf("%w: zeta(%v)", ErrUnsupported, z)
		}
		return complex(zetaReal(r), 0), nil
	}
	return 0, fmt.Errorf("%w: cannot evaluate %s", ErrUnsupported, name)
}

func logNumeric(z complex128) complex128 {
	if isReal(z) && real(z) > 0 {
		return complex(math.Log(real(z)), 0)
	}
	return cmplx.Log(z)
}

// zetaReal evaluates zeta(s) for real s > 0 through the alternating eta
// series accelerated with Borwein's algorithm.
func zetaReal(s float64) float64 {
	const n = 24
	d := make([]float64, n+1)
	var acc float64
	for k := 0; k <= n; k++ {
		term := float64(n) * math.Exp(lgamma(float64(n+k))-lgamma(float64(n-k+1))-lgamma(float64(2*k+1))) * math.Pow(4, float64(k))
		acc += term
		d[k] = acc
	}
	var sum float64
	for k := 0; k < n; k++ {
		t := (d[k] - d[n]) / math.Pow(float64(k+1), s)
		if k%2 == 1 {
			t = -t
		}
		sum += t
	}
	eta := -sum / d[n]
	return eta / (1 - math.Pow(2, 1-s))
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
