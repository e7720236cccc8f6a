package badge

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrUnknownField is returned when a condition names a field that the
	// character does not have.
	ErrUnknownField = errors.New("badge: unknown field")

	// ErrType is returned when an operation is applied to a value that does
	// not support it, such as reading a property of undefined.
	ErrType = errors.New("badge: type error")
)

type env struct {
	scope map[string]Value
}

func (n literalNode) eval(*env) (Value, error) { return n.v, nil }

func (n identNode) eval(e *env) (Value, error) {
	v, ok := e.scope[n.name]
	if !ok {
		return undefined, fmt.Errorf("%w %q at offset %d", ErrUnknownField, n.name, n.pos)
	}
	return v, nil
}

func (n unaryNode) eval(e *env) (Value, error) {
	x, err := n.x.eval(e)
	if err != nil {
		return undefined, err
	}
	switch n.op {
	case "!":
		return Bool(!x.Truthy()), nil
	case "-":
		return Number(-x.toNumber()), nil
	}
	return Number(x.toNumber()), nil
}

func (n logicalNode) eval(e *env) (Value, error) {
	l, err := n.l.eval(e)
	if err != nil {
		return undefined, err
	}
	// Both operators yield an operand, not a boolean.
	if n.and != l.Truthy() {
		return l, nil
	}
	return n.r.eval(e)
}

func (n condNode) eval(e *env) (Value, error) {
	t, err := n.test.eval(e)
	if err != nil {
		return undefined, err
	}
	if t.Truthy() {
		return n.yes.eval(e)
	}
	return n.no.eval(e)
}

func (n binaryNode) eval(e *env) (Value, error) {
	l, err := n.l.eval(e)
	if err != nil {
		return undefined, err
	}
	r, err := n.r.eval(e)
	if err != nil {
		return undefined, err
	}

	switch n.op {
	case "===":
		return Bool(strictEqual(l, r)), nil
	case "!==":
		return Bool(!strictEqual(l, r)), nil
	case "==":
		return Bool(looseEqual(l, r)), nil
	case "!=":
		return Bool(!looseEqual(l, r)), nil
	case "<", "<=", ">", ">=":
		c, ok := compare(l, r)
		if !ok {
			return Bool(false), nil
		}
		switch n.op {
		case "<":
			return Bool(c < 0), nil
		case "<=":
			return Bool(c <= 0), nil
		case ">":
			return Bool(c > 0), nil
		}
		return Bool(c >= 0), nil
	case "+":
		lp, rp := l.toPrimitive(), r.toPrimitive()
		if lp.kind == KindString || rp.kind == KindString {
			return String(lp.toString() + rp.toString()), nil
		}
		return Number(lp.toNumber() + rp.toNumber()), nil
	case "-":
		return Number(l.toNumber() - r.toNumber()), nil
	case "*":
		return Number(l.toNumber() * r.toNumber()), nil
	case "/":
		return Number(l.toNumber() / r.toNumber()), nil
	case "%":
		return Number(math.Mod(l.toNumber(), r.toNumber())), nil
	}
	return undefined, fmt.Errorf("badge: unknown operator %q", n.op)
}

func (n memberNode) eval(e *env) (Value, error) {
	x, err := n.x.eval(e)
	if err != nil {
		return undefined, err
	}
	return property(x, n.name, n.pos)
}

func (n indexNode) eval(e *env) (Value, error) {
	x, err := n.x.eval(e)
	if err != nil {
		return undefined, err
	}
	idx, err := n.idx.eval(e)
	if err != nil {
		return undefined, err
	}
	if x.kind == KindList || x.kind == KindString {
		if idx.kind == KindNumber {
			return element(x, idx.n), nil
		}
	}
	return property(x, idx.toString(), n.pos)
}

func element(x Value, f float64) Value {
	if f != math.Trunc(f) || f < 0 {
		return undefined
	}
	i := int(f)
	switch x.kind {
	case KindList:
		if i < len(x.ref.list) {
			return x.ref.list[i]
		}
	case KindString:
		// Strings index and measure by rune, never by byte.
		if r := []rune(x.s); i < len(r) {
			return String(string(r[i]))
		}
	}
	return undefined
}

func property(x Value, name string, pos int) (Value, error) {
	switch x.kind {
	case KindUndefined, KindNull:
		return undefined, fmt.Errorf("%w: cannot read %q of %s at offset %d", ErrType, name, x.kind, pos)
	case KindList:
		if name == "length" {
			return Int(len(x.ref.list)), nil
		}
	case KindString:
		if name == "length" {
			return Int(len([]rune(x.s))), nil
		}
	case KindObject:
		if v, ok := x.ref.obj[name]; ok {
			return v, nil
		}
	}
	return undefined, nil
}

func (n callNode) eval(e *env) (Value, error) {
	recv, err := n.recv.eval(e)
	if err != nil {
		return undefined, err
	}
	args := make([]Value, len(n.args))
	for i, a := range n.args {
		if args[i], err = a.eval(e); err != nil {
			return undefined, err
		}
	}
	arg := func(i int) Value {
		if i < len(args) {
			return args[i]
		}
		return undefined
	}

	switch recv.kind {
	case KindString:
		switch n.method {
		case "includes":
			return Bool(strings.Contains(recv.s, arg(0).toString())), nil
		case "startsWith":
			return Bool(strings.HasPrefix(recv.s, arg(0).toString())), nil
		case "endsWith":
			return Bool(strings.HasSuffix(recv.s, arg(0).toString())), nil
		case "toLowerCase":
			return String(strings.ToLower(recv.s)), nil
		case "toUpperCase":
			return String(strings.ToUpper(recv.s)), nil
		case "trim":
			return String(strings.TrimSpace(recv.s)), nil
		}
	case KindList:
		switch n.method {
		case "includes":
			want := arg(0)
			for _, v := range recv.ref.list {
				if strictEqual(v, want) || (v.kind == KindNumber && want.kind == KindNumber && math.IsNaN(v.n) && math.IsNaN(want.n)) {
					return Bool(true), nil
				}
			}
			return Bool(false), nil
		case "join":
			sep := ","
			if a := arg(0); a.kind != KindUndefined {
				sep = a.toString()
			}
			parts := make([]string, len(recv.ref.list))
			for i, v := range recv.ref.list {
				if v.kind != KindUndefined && v.kind != KindNull {
					parts[i] = v.toString()
				}
			}
			return String(strings.Join(parts, sep)), nil
		}
	case KindUndefined, KindNull:
		return undefined, fmt.Errorf("%w: cannot call %q on %s at offset %d", ErrType, n.method, recv.kind, n.pos)
	}
	return undefined, fmt.Errorf("%w: %s has no method %q (offset %d)", ErrType, recv.kind, n.method, n.pos)
}
