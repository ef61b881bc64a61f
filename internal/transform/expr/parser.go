package expr

import (
	"fmt"
	"strings"
)

// UnknownColumnsError lists every column an expression references that the
// table does not have.
type UnknownColumnsError struct {
	Names []string
}

func (e *UnknownColumnsError) Error() string {
	return fmt.Sprintf("unknown column reference: %s", strings.Join(e.Names, ", "))
}

type parser struct {
	toks    []token
	pos     int
	columns map[string]int
	unknown []string
	refs    []string
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("expected %s, found %s", what, describe(t))}
	}
	return t, nil
}

func describe(t token) string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return fmt.Sprintf("'%s'", t.text)
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binary{op: t.text[0], left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || strings.IndexByte("*/%", t.text[0]) < 0 {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binary{op: t.text[0], left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if t := p.peek(); t.kind == tokOp && t.text == "-" {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negate{x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		if t.isInt {
			return literal{v: Integer(t.inum)}, nil
		}
		return literal{v: Float(t.num)}, nil
	case tokString:
		return literal{v: String(t.text)}, nil
	case tokColumn:
		return p.column(t.text), nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(t)
		}
		if strings.EqualFold(t.text, "null") {
			if _, ok := p.columns[t.text]; !ok {
				return literal{v: Null()}, nil
			}
		}
		return p.column(t.text), nil
	case tokLParen:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return x, nil
	default:
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", describe(t))}
	}
}

func (p *parser) parseCall(name token) (node, error) {
	fn, ok := functions[strings.ToLower(name.text)]
	if !ok {
		return nil, &SyntaxError{Pos: name.pos, Msg: fmt.Sprintf("unknown function '%s'", name.text)}
	}
	p.next() // (

	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, &SyntaxError{Pos: name.pos, Msg: fmt.Sprintf("%s() %s", fn.name, fn.arity())}
	}
	return call{fn: fn, args: args}, nil
}

func (p *parser) column(name string) node {
	idx, ok := p.columns[name]
	if !ok {
		for _, u := range p.unknown {
			if u == name {
				return columnRef{name: name, index: -1}
			}
		}
		p.unknown = append(p.unknown, name)
		return columnRef{name: name, index: -1}
	}
	found := false
	for _, r := range p.refs {
		if r == name {
			found = true
			break
		}
	}
	if !found {
		p.refs = append(p.refs, name)
	}
	return columnRef{name: name, index: idx}
}
