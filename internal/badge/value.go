package badge

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a [Value].
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	}
	return "undefined"
}

// Value is a dynamically typed expression value with script-style coercion
// rules. The zero Value is undefined.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	ref  *compound
}

// compound backs lists and objects. Identity comparisons use the pointer.
type compound struct {
	list []Value
	obj  map[string]Value
}

var (
	undefined = Value{}
	null      = Value{kind: KindNull}
)

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int returns a numeric Value.
func Int(n int) Value { return Number(float64(n)) }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List returns a list Value holding vs.
func List(vs ...Value) Value { return Value{kind: KindList, ref: &compound{list: vs}} }

// Object returns an object Value holding fields.
func Object(fields map[string]Value) Value {
	return Value{kind: KindObject, ref: &compound{obj: fields}}
}

// Kind returns the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// Truthy reports whether v counts as true in a condition: everything except
// false, 0, NaN, "", null and undefined.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case KindString:
		return v.s != ""
	case KindList, KindObject:
		return true
	}
	return false
}

// toPrimitive flattens lists to their comma-joined form and objects to a
// fixed tag; primitives are returned unchanged.
func (v Value) toPrimitive() Value {
	switch v.kind {
	case KindList:
		parts := make([]string, len(v.ref.list))
		for i, e := range v.ref.list {
			if e.kind != KindUndefined && e.kind != KindNull {
				parts[i] = e.toString()
			}
		}
		return String(strings.Join(parts, ","))
	case KindObject:
		return String("[object Object]")
	}
	return v
}

func (v Value) toNumber() float64 {
	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindNumber:
		return v.n
	case KindString:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return 0
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			switch s {
			case "Infinity", "+Infinity":
				return math.Inf(1)
			case "-Infinity":
				return math.Inf(-1)
			}
			return math.NaN()
		}
		return n
	case KindList, KindObject:
		return v.toPrimitive().toNumber()
	}
	return math.NaN()
}

func (v Value) toString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return v.s
	case KindList, KindObject:
		return v.toPrimitive().s
	}
	return "undefined"
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// String renders v for diagnostics.
func (v Value) String() string {
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	return v.toString()
}

// strictEqual implements ===.
func strictEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	}
	return a.ref == b.ref
}

// looseEqual implements ==.
func looseEqual(a, b Value) bool {
	if a.kind == b.kind {
		return strictEqual(a, b)
	}
	aNullish := a.kind == KindUndefined || a.kind == KindNull
	bNullish := b.kind == KindUndefined || b.kind == KindNull
	if aNullish || bNullish {
		return aNullish && bNullish
	}
	if a.kind == KindBool {
		return looseEqual(Number(a.toNumber()), b)
	}
	if b.kind == KindBool {
		return looseEqual(a, Number(b.toNumber()))
	}
	if a.isCompound() && !b.isCompound() {
		return looseEqual(a.toPrimitive(), b)
	}
	if b.isCompound() && !a.isCompound() {
		return looseEqual(a, b.toPrimitive())
	}
	// Remaining mixed case is number against string.
	return a.toNumber() == b.toNumber()
}

func (v Value) isCompound() bool { return v.kind == KindList || v.kind == KindObject }

// compare implements the relational operators. ok is false when either side
// is NaN after coercion, which makes every relation false.
func compare(a, b Value) (cmp int, ok bool) {
	a, b = a.toPrimitive(), b.toPrimitive()
	if a.kind == KindString && b.kind == KindString {
		return strings.Compare(a.s, b.s), true
	}
	x, y := a.toNumber(), b.toNumber()
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}
