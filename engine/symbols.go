package engine

import (
	"sort"
	"strings"
)

// ============================================================
// Symbol assumptions
// ============================================================

// Assumptions is a bit set of properties attached to a symbol.
type Assumptions uint32

const (
	AssumePositive Assumptions = 1 << iota
	AssumeNegative
	AssumeNonNegative
	AssumeNonPositive
	AssumeNonZero
	AssumeReal
	AssumeInteger
	AssumeRational
	AssumeComplex
	AssumeFinite
	AssumeEven
	AssumeOdd
	AssumePrime
	AssumeCommutative
)

var assumptionNames = map[string]Assumptions{
	"positive":    AssumePositive,
	"negative":    AssumeNegative,
	"nonnegative": AssumeNonNegative,
	"nonpositive": AssumeNonPositive,
	"nonzero":     AssumeNonZero,
	"real":        AssumeReal,
	"integer":     AssumeInteger,
	"rational":    AssumeRational,
	"complex":     AssumeComplex,
	"finite":      AssumeFinite,
	"even":        AssumeEven,
	"odd":         AssumeOdd,
	"prime":       AssumePrime,
	"commutative": AssumeCommutative,
}

// ParseAssumption maps an assumption name such as "positive" to its flag.
func ParseAssumption(name string) (Assumptions, bool) {
	a, ok := assumptionNames[name]
	return a, ok
}

// AssumptionNames lists every recognised assumption name.
func AssumptionNames() []string {
	names := make([]string, 0, len(assumptionNames))
	for n := range assumptionNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (a Assumptions) nonNegative() bool {
	return a&(AssumePositive|AssumeNonNegative|AssumePrime) != 0
}

func (a Assumptions) nonPositive() bool {
	return a&(AssumeNegative|AssumeNonPositive) != 0
}

// ============================================================
// Names
// ============================================================

var greekNames = map[string]bool{
	"alpha": true, "beta": true, "gamma": true, "delta": true, "epsilon": true,
	"zeta": true, "eta": true, "theta": true, "iota": true, "kappa": true,
	"lambda": true, "mu": true, "nu": true, "xi": true, "omicron": true,
	"pi": true, "rho": true, "sigma": true, "tau": true, "upsilon": true,
	"phi": true, "chi": true, "psi": true, "omega": true,
}

func isGreekName(name string) bool {
	if greekNames[name] {
		return true
	}
	if name == "" {
		return false
	}
	return greekNames[strings.ToLower(name[:1])+name[1:]] && name != "Pi"
}

// knownFunctions maps accepted spellings to the canonical function name and
// the accepted argument counts (max < 0 means unbounded).
var knownFunctions = map[string]struct {
	name     string
	min, max int
}{
	"sin": {"sin", 1, 1}, "cos": {"cos", 1, 1}, "tan": {"tan", 1, 1},
	"sec": {"sec", 1, 1}, "csc": {"csc", 1, 1}, "cot": {"cot", 1, 1},
	"asin": {"asin", 1, 1}, "acos": {"acos", 1, 1}, "atan": {"atan", 1, 1},
	"sinh": {"sinh", 1, 1}, "cosh": {"cosh", 1, 1}, "tanh": {"tanh", 1, 1},
	"exp": {"exp", 1, 1}, "log": {"log", 1, 2}, "ln": {"log", 1, 1},
	"sqrt": {"sqrt", 1, 1}, "Abs": {"Abs", 1, 1}, "abs": {"Abs", 1, 1},
	"sign": {"sign", 1, 1}, "floor": {"floor", 1, 1}, "ceiling": {"ceiling", 1, 1},
	"Derivative": {"Derivative", 2, -1}, "diff": {"Derivative", 2, -1},
}

// specialFunctions are only recognised when special functions are enabled;
// otherwise the names are plain symbols.
var specialFunctions = map[string]struct {
	name     string
	min, max int
}{
	"gamma": {"gamma", 1, 1}, "beta": {"beta", 2, 2}, "zeta": {"zeta", 1, 1},
}

// alwaysSymbols are names that never refer to library objects.
var alwaysSymbols = map[string]bool{"E": true, "N": true, "O": true, "Q": true, "S": true, "e": true}
