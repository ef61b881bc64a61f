package expr

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrTypeMismatch is wrapped by evaluation errors caused by operand types.
var ErrTypeMismatch = errors.New("type mismatch")

// Type is the dynamic type of a Value.
type Type int

const (
	TypeNull Type = iota
	TypeNumber
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	default:
		return "null"
	}
}

// Value is an evaluation result.
type Value struct {
	Type Type
	Num  float64
	// Int is set when the value came from integer operands only. I then
	// holds it exactly and Num is its nearest float.
	Int bool
	I   int64
	Str string
}

func Null() Value { return Value{} }
func Float(f float64) Value { return Value{Type: TypeNumber, Num: f} }
func Integer(i int64) Value { return Value{Type: TypeNumber, Num: float64(i), Int: true, I: i} }
func String(s string) Value { return Value{Type: TypeString, Str: s} }

func (v Value) IsNull() bool { return v.Type == TypeNull }

// Text renders the value for string functions.
func (v Value) Text() string {
	switch v.Type {
	case TypeNumber:
		if v.Int {
			return strconv.FormatInt(v.I, 10)
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case TypeString:
		return v.Str
	default:
		return ""
	}
}

// FromCell converts a table cell to a Value. Booleans count as 1 and 0;
// datetimes are not supported.
func FromCell(cell any) (Value, error) {
	switch x := cell.(type) {
	case nil:
		return Null(), nil
	case int64:
		return Integer(x), nil
	case int:
		return Integer(int64(x)), nil
	case float64:
		return Float(x), nil
	case bool:
		if x {
			return Integer(1), nil
		}
		return Integer(0), nil
	case string:
		return String(x), nil
	case time.Time:
		return Value{}, fmt.Errorf("%w: datetime values are not supported in expressions", ErrTypeMismatch)
	default:
		return Value{}, fmt.Errorf("%w: unsupported value %T", ErrTypeMismatch, cell)
	}
}

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTypeMismatch, fmt.Sprintf(format, args...))
}
