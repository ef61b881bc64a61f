package expr

import (
	"fmt"
	"math"
)

type node interface {
	eval(row []any) (Value, error)
}

type literal struct{ v Value }

func (l literal) eval([]any) (Value, error) { return l.v, nil }

type columnRef struct {
	name  string
	index int
}

func (c columnRef) eval(row []any) (Value, error) {
	if c.index < 0 || c.index >= len(row) {
		return Value{}, fmt.Errorf("column '%s' is not available", c.name)
	}
	v, err := FromCell(row[c.index])
	if err != nil {
		return Value{}, fmt.Errorf("column '%s': %w", c.name, err)
	}
	return v, nil
}

type negate struct{ x node }

func (n negate) eval(row []any) (Value, error) {
	v, err := n.x.eval(row)
	if err != nil {
		return Value{}, err
	}
	switch v.Type {
	case TypeNull:
		return v, nil
	case TypeNumber:
		if v.Int && v.I != math.MinInt64 {
			return Integer(-v.I), nil
		}
		return Float(-v.Num), nil
	default:
		return Value{}, mismatch("cannot negate a string")
	}
}

type binary struct {
	op          byte
	left, right node
}

func (b binary) eval(row []any) (Value, error) {
	l, err := b.left.eval(row)
	if err != nil {
		return Value{}, err
	}
	r, err := b.right.eval(row)
	if err != nil {
		return Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		return Null(), nil
	}

	if l.Type == TypeString && r.Type == TypeString {
		if b.op == '+' {
			return String(l.Str + r.Str), nil
		}
		return Value{}, mismatch("'%c' is not defined for strings", b.op)
	}
	if l.Type != TypeNumber || r.Type != TypeNumber {
		return Value{}, mismatch("cannot apply '%c' to %s and %s", b.op, l.Type, r.Type)
	}

	if l.Int && r.Int {
		return intArith(b.op, l.I, r.I)
	}
	switch b.op {
	case '+':
		return Float(l.Num + r.Num), nil
	case '-':
		return Float(l.Num - r.Num), nil
	case '*':
		return Float(l.Num * r.Num), nil
	case '/':
		if r.Num == 0 {
			return Null(), nil
		}
		return Float(l.Num / r.Num), nil
	case '%':
		if r.Num == 0 {
			return Null(), nil
		}
		m := math.Mod(l.Num, r.Num)
		if m != 0 && (m < 0) != (r.Num < 0) {
			m += r.Num
		}
		return Float(m), nil
	}
	return Value{}, fmt.Errorf("unknown operator '%c'", b.op)
}

// intArith applies op exactly. Results outside the int64 range fall back
// to float arithmetic, so they lose the integer flag.
func intArith(op byte, a, b int64) (Value, error) {
	switch op {
	case '+':
		if s := a + b; (s > a) == (b > 0) {
			return Integer(s), nil
		}
		return Float(float64(a) + float64(b)), nil
	case '-':
		if d := a - b; (d < a) == (b > 0) {
			return Integer(d), nil
		}
		return Float(float64(a) - float64(b)), nil
	case '*':
		if p, ok := mulInt(a, b); ok {
			return Integer(p), nil
		}
		return Float(float64(a) * float64(b)), nil
	case '/':
		if b == 0 {
			return Null(), nil
		}
		return Float(float64(a) / float64(b)), nil
	case '%':
		if b == 0 {
			return Null(), nil
		}
		if b == -1 {
			return Integer(0), nil
		}
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return Integer(m), nil
	}
	return Value{}, fmt.Errorf("unknown operator '%c'", op)
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || p/b != a {
		return 0, false
	}
	return p, true
}

type call struct {
	fn   *function
	args []node
}

func (c call) eval(row []any) (Value, error) {
	args := make([]Value, len(c.args))
	for i, a := range c.args {
		v, err := a.eval(row)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	v, err := c.fn.call(args)
	if err != nil {
		return Value{}, fmt.Errorf("%s(): %w", c.fn.name, err)
	}
	return v, nil
}

// Program is an expression compiled against a column list.
type Program struct {
	src  string
	root node
	refs []string
}

// Compile parses src. Identifiers resolve against columns; the row passed
// to Eval must be in the same order. Every unknown column is reported at
// once in an *UnknownColumnsError.
func Compile(src string, columns []string) (*Program, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return nil, &SyntaxError{Pos: 0, Msg: "empty expression"}
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	p := &parser{toks: toks, columns: index}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", describe(t))}
	}
	if len(p.unknown) > 0 {
		return nil, &UnknownColumnsError{Names: p.unknown}
	}
	return &Program{src: src, root: root, refs: p.refs}, nil
}

// Eval evaluates the program against one row.
func (p *Program) Eval(row []any) (Value, error) {
	return p.root.eval(row)
}

// References returns the referenced columns in first-use order.
func (p *Program) References() []string {
	out := make([]string, len(p.refs))
	copy(out, p.refs)
	return out
}

func (p *Program) String() string { return p.src }
