// Package badge evaluates badge conditions against characters.
//
// A condition is a small expression language with script-style semantics:
//
//	hunger < 20 && items.length > 3
//	custom.blessed.value === true || name.startsWith("Sir ")
//	items[0].amount >= 10 ? true : thirsty > 90
//
// Conditions are parsed into a syntax tree and interpreted against a
// read-only field map; no user code is ever executed. Any failure (syntax,
// unknown field, type error) means "no match" and never reaches the caller
// of [Evaluator.Evaluate].
package badge

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/roster/internal/roster"
)

// maxCached bounds the number of distinct conditions held by an Evaluator.
const maxCached = 1024

// Program is a compiled condition. It is immutable and safe for concurrent
// use.
type Program struct {
	src  string
	root node
	refs []identNode
}

// Compile parses cond into a [Program]. Errors are of type [*SyntaxError].
func Compile(cond string) (*Program, error) {
	root, refs, err := parse(cond)
	if err != nil {
		return nil, err
	}
	return &Program{src: cond, root: root, refs: refs}, nil
}

// Source returns the condition text.
func (p *Program) Source() string { return p.src }

// Eval runs the program against scope.
func (p *Program) Eval(scope map[string]Value) (v Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = undefined, fmt.Errorf("badge: evaluate %q: %v", p.src, r)
		}
	}()
	return p.root.eval(&env{scope: scope})
}

// Match reports whether the program is truthy for c. Evaluation errors are
// returned alongside false.
func (p *Program) Match(c roster.Character) (bool, error) {
	v, err := p.Eval(Scope(c))
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

type compiled struct {
	prog *Program
	err  error
}

// Evaluator caches compiled conditions by source text, including conditions
// that fail to compile. The zero value is ready to use.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]compiled
}

// NewEvaluator returns an empty [Evaluator].
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]compiled)}
}

func (e *Evaluator) compile(cond string) (*Program, error) {
	e.mu.RLock()
	c, ok := e.cache[cond]
	e.mu.RUnlock()
	if ok {
		return c.prog, c.err
	}

	prog, err := Compile(cond)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache == nil || len(e.cache) >= maxCached {
		e.cache = make(map[string]compiled)
	}
	e.cache[cond] = compiled{prog: prog, err: err}
	return prog, err
}

// Evaluate reports whether rule matches c. It never fails: every error is
// a non-match.
func (e *Evaluator) Evaluate(rule roster.BadgeRule, c roster.Character) bool {
	ok, _ := e.Check(rule, c)
	return ok
}

// Check is Evaluate with the reason for a non-match exposed, for logging.
func (e *Evaluator) Check(rule roster.BadgeRule, c roster.Character) (bool, error) {
	prog, err := e.compile(rule.Cond)
	if err != nil {
		return false, err
	}
	return prog.Match(c)
}

// MatchAll returns the rules that match c in declaration order. The scope is
// built once and shared across rules.
func (e *Evaluator) MatchAll(rules []roster.BadgeRule, c roster.Character) []roster.BadgeRule {
	matched := []roster.BadgeRule{}
	scope := Scope(c)
	for _, r := range rules {
		prog, err := e.compile(r.Cond)
		if err != nil {
			continue
		}
		v, err := prog.Eval(scope)
		if err != nil || !v.Truthy() {
			continue
		}
		matched = append(matched, r)
	}
	return matched
}

// Len reports the number of cached conditions.
func (e *Evaluator) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// Explain validates cond for the badge editor. It reports syntax errors and
// references to identifiers that are never bound. A nil result does not
// guarantee a match, only that the condition can be evaluated.
func Explain(cond string) error {
	prog, err := Compile(cond)
	if err != nil {
		return err
	}
	var errs []error
	seen := map[string]bool{}
	for _, id := range prog.refs {
		if slices.Contains(Fields, id.name) || seen[id.name] {
			continue
		}
		seen[id.name] = true
		errs = append(errs, fmt.Errorf("%w %q at offset %d", ErrUnknownField, id.name, id.pos))
	}
	return errors.Join(errs...)
}
