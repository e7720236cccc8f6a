package badge

import (
	"fmt"
)

// Limits on accepted conditions.
const (
	MaxConditionLen = 4096
	MaxDepth        = 64
)

// ─── Syntax tree ─────────────────────────────────────────────────────────────

type node interface {
	eval(env *env) (Value, error)
}

type (
	literalNode struct{ v Value }

	identNode struct {
		name string
		pos  int
	}

	unaryNode struct {
		op string
		x  node
	}

	binaryNode struct {
		op   string
		l, r node
	}

	logicalNode struct {
		and  bool
		l, r node
	}

	condNode struct{ test, yes, no node }

	memberNode struct {
		x    node
		name string
		pos  int
	}

	indexNode struct {
		x, idx node
		pos    int
	}

	callNode struct {
		recv   node
		method string
		args   []node
		pos    int
	}
)

// ─── Parser ──────────────────────────────────────────────────────────────────

type parser struct {
	toks  []token
	i     int
	depth int
	refs  []identNode
}

func parse(src string) (node, []identNode, error) {
	if len(src) > MaxConditionLen {
		return nil, nil, &SyntaxError{Pos: MaxConditionLen, Msg: fmt.Sprintf("condition longer than %d bytes", MaxConditionLen)}
	}
	toks, err := lex(src)
	if err != nil {
		return nil, nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return literalNode{v: undefined}, nil, nil
	}
	n, err := p.expr()
	if err != nil {
		return nil, nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, nil, p.errorf(t, "unexpected %s", t)
	}
	return n, p.refs, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) isPunct(text string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == text
}

func (p *parser) accept(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokPunct {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.i++
			return op, true
		}
	}
	return "", false
}

func (p *parser) expect(text string) error {
	if _, ok := p.accept(text); !ok {
		t := p.peek()
		return p.errorf(t, "expected %q, found %s", text, t)
	}
	return nil
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > MaxDepth {
		return p.errorf(p.peek(), "expression nested deeper than %d", MaxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

// expr := or ( "?" expr ":" expr )?
func (p *parser) expr() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	test, err := p.or()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept("?"); !ok {
		return test, nil
	}
	yes, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	no, err := p.expr()
	if err != nil {
		return nil, err
	}
	return condNode{test: test, yes: yes, no: no}, nil
}

func (p *parser) or() (node, error) {
	l, err := p.and()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept("||"); !ok {
			return l, nil
		}
		r, err := p.and()
		if err != nil {
			return nil, err
		}
		l = logicalNode{and: false, l: l, r: r}
	}
}

func (p *parser) and() (node, error) {
	l, err := p.equality()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept("&&"); !ok {
			return l, nil
		}
		r, err := p.equality()
		if err != nil {
			return nil, err
		}
		l = logicalNode{and: true, l: l, r: r}
	}
}

func (p *parser) equality() (node, error) {
	l, err := p.relational()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept("===", "!==", "==", "!=")
		if !ok {
			return l, nil
		}
		r, err := p.relational()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) relational() (node, error) {
	l, err := p.additive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept("<=", ">=", "<", ">")
		if !ok {
			return l, nil
		}
		r, err := p.additive()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) additive() (node, error) {
	l, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept("+", "-")
		if !ok {
			return l, nil
		}
		r, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) multiplicative() (node, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept("*", "/", "%")
		if !ok {
			return l, nil
		}
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) unary() (node, error) {
	op, ok := p.accept("!", "-", "+")
	if !ok {
		return p.postfix()
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	x, err := p.unary()
	if err != nil {
		return nil, err
	}
	return unaryNode{op: op, x: x}, nil
}

func (p *parser) postfix() (node, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isPunct("."):
			dot := p.next()
			name := p.next()
			if name.kind != tokIdent {
				return nil, p.errorf(name, "expected property name after '.', found %s", name)
			}
			if p.isPunct("(") {
				args, err := p.arguments()
				if err != nil {
					return nil, err
				}
				x = callNode{recv: x, method: name.text, args: args, pos: dot.pos}
				continue
			}
			x = memberNode{x: x, name: name.text, pos: dot.pos}

		case p.isPunct("["):
			open := p.next()
			idx, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			x = indexNode{x: x, idx: idx, pos: open.pos}

		default:
			return x, nil
		}
	}
}

func (p *parser) arguments() ([]node, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var args []node
	if _, ok := p.accept(")"); ok {
		return args, nil
	}
	for {
		a, err := p.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if _, ok := p.accept(")"); ok {
			return args, nil
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
}

func (p *parser) primary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return literalNode{v: Number(t.num)}, nil
	case tokString:
		return literalNode{v: String(t.text)}, nil
	case tokIdent:
		switch t.text {
		case "true":
			return literalNode{v: Bool(true)}, nil
		case "false":
			return literalNode{v: Bool(false)}, nil
		case "null":
			return literalNode{v: null}, nil
		case "undefined":
			return literalNode{v: undefined}, nil
		}
		id := identNode{name: t.text, pos: t.pos}
		p.refs = append(p.refs, id)
		return id, nil
	case tokPunct:
		if t.text == "(" {
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
	}
	return nil, p.errorf(t, "unexpected %s", t)
}
