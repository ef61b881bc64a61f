package expr

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type function struct {
	name    string
	minArgs int
	maxArgs int // -1 is variadic
	call    func(args []Value) (Value, error)
}

func (f *function) arity() string {
	switch {
	case f.maxArgs < 0:
		return fmt.Sprintf("takes at least %d arguments", f.minArgs)
	case f.minArgs == f.maxArgs:
		return fmt.Sprintf("takes %d arguments", f.minArgs)
	default:
		return fmt.Sprintf("takes %d to %d arguments", f.minArgs, f.maxArgs)
	}
}

// functions is the allowlist. Nothing outside it can be called.
var functions = map[string]*function{
	"abs":      {name: "abs", minArgs: 1, maxArgs: 1, call: fnAbs},
	"round":    {name: "round", minArgs: 1, maxArgs: 2, call: fnRound},
	"coalesce": {name: "coalesce", minArgs: 1, maxArgs: -1, call: fnCoalesce},
	"fillna":   {name: "fillna", minArgs: 2, maxArgs: 2, call: fnCoalesce},
	"min":      {name: "min", minArgs: 1, maxArgs: -1, call: extremum(-1)},
	"max":      {name: "max", minArgs: 1, maxArgs: -1, call: extremum(1)},
	"sqrt":     {name: "sqrt", minArgs: 1, maxArgs: 1, call: fnSqrt},
	"len":      {name: "len", minArgs: 1, maxArgs: 1, call: fnLen},
	"lower":    {name: "lower", minArgs: 1, maxArgs: 1, call: stringFn(strings.ToLower)},
	"upper":    {name: "upper", minArgs: 1, maxArgs: 1, call: stringFn(strings.ToUpper)},
	"concat":   {name: "concat", minArgs: 1, maxArgs: -1, call: fnConcat},
}

// Functions returns the allowlisted function names.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	return names
}

func numberArg(v Value) (Value, error) {
	if v.Type == TypeString {
		return Value{}, mismatch("expected a number, got string")
	}
	return v, nil
}

func fnAbs(args []Value) (Value, error) {
	v, err := numberArg(args[0])
	if err != nil || v.IsNull() {
		return v, err
	}
	if v.Int {
		if v.I >= 0 {
			return v, nil
		}
		if v.I != math.MinInt64 {
			return Integer(-v.I), nil
		}
	}
	return Float(math.Abs(v.Num)), nil
}

// fnRound rounds half away from zero to the given number of digits.
func fnRound(args []Value) (Value, error) {
	v, err := numberArg(args[0])
	if err != nil || v.IsNull() {
		return v, err
	}
	digits := int32(0)
	if len(args) == 2 {
		d, err := numberArg(args[1])
		if err != nil {
			return Value{}, err
		}
		if d.IsNull() || d.Num != math.Trunc(d.Num) {
			return Value{}, fmt.Errorf("digits must be an integer")
		}
		digits = int32(d.Num)
	}
	if v.Int {
		if digits >= 0 {
			return v, nil
		}
		rounded := decimal.NewFromInt(v.I).Round(digits)
		if rounded.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || rounded.LessThan(decimal.NewFromInt(math.MinInt64)) {
			return Float(rounded.InexactFloat64()), nil
		}
		return Integer(rounded.IntPart()), nil
	}
	if math.IsInf(v.Num, 0) || math.IsNaN(v.Num) {
		return v, nil
	}
	rounded, _ := decimal.NewFromFloat(v.Num).Round(digits).Float64()
	return Float(rounded), nil
}

func fnCoalesce(args []Value) (Value, error) {
	for _, a := range args {
		if !a.IsNull() {
			return a, nil
		}
	}
	return Null(), nil
}

// extremum ignores nulls; dir < 0 picks the minimum.
func extremum(dir int) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		best := Null()
		for _, a := range args {
			v, err := numberArg(a)
			if err != nil {
				return Value{}, err
			}
			if v.IsNull() {
				continue
			}
			if best.IsNull() || compareNum(v, best)*dir > 0 {
				best = v
			}
		}
		return best, nil
	}
}

// compareNum orders two numbers, exactly when both are integers.
func compareNum(a, b Value) int {
	if a.Int && b.Int {
		switch {
		case a.I < b.I:
			return -1
		case a.I > b.I:
			return 1
		}
		return 0
	}
	switch {
	case a.Num < b.Num:
		return -1
	case a.Num > b.Num:
		return 1
	}
	return 0
}

func fnSqrt(args []Value) (Value, error) {
	v, err := numberArg(args[0])
	if err != nil || v.IsNull() {
		return v, err
	}
	if v.Num < 0 {
		return Null(), nil
	}
	return Float(math.Sqrt(v.Num)), nil
}

func fnLen(args []Value) (Value, error) {
	v := args[0]
	switch v.Type {
	case TypeNull:
		return v, nil
	case TypeString:
		return Integer(int64(utf8.RuneCountInString(v.Str))), nil
	default:
		return Value{}, mismatch("expected a string, got number")
	}
}

func stringFn(f func(string) string) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		v := args[0]
		switch v.Type {
		case TypeNull:
			return v, nil
		case TypeString:
			return String(f(v.Str)), nil
		default:
			return Value{}, mismatch("expected a string, got number")
		}
	}
}

// fnConcat joins the text of its non-null arguments; all-null yields null.
func fnConcat(args []Value) (Value, error) {
	var b strings.Builder
	seen := false
	for _, a := range args {
		if a.IsNull() {
			continue
		}
		seen = true
		b.WriteString(a.Text())
	}
	if !seen {
		return Null(), nil
	}
	return String(b.String()), nil
}
