package unify

import (
	"fmt"

	"github.com/cognicore/paracosm/pkg/paracosm/internalerr"
	"github.com/cognicore/paracosm/pkg/paracosm/term"
)

// DefaultMaxDepth bounds recursive rule resolution.
const DefaultMaxDepth = 100

// Env is the binding environment for one top-level resolution: the
// variable bindings, the choice-point stack used for backtracking, and
// the recursion depth guard. It is rebuilt fresh for every query, so
// no state leaks between independent calls.
type Env struct {
	bindings    map[string]*term.Term
	constraints map[string][]term.Constraint
	choices     []choicePoint
	depth       int
	maxDepth    int
}

// choicePoint is a snapshot of the bindings at creation time plus the
// untried alternatives (fact keys or rule identifiers) at that branch.
type choicePoint struct {
	snapshot map[string]*term.Term
	untried  []string
}

// NewEnv creates an empty environment. maxDepth <= 0 selects
// DefaultMaxDepth.
func NewEnv(maxDepth int) *Env {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Env{
		bindings:    make(map[string]*term.Term),
		constraints: make(map[string][]term.Constraint),
		maxDepth:    maxDepth,
	}
}

// Lookup returns the binding for a variable name, if any.
func (e *Env) Lookup(name string) (*term.Term, bool) {
	t, ok := e.bindings[name]
	return t, ok
}

// Constrain registers constraints a variable's binding must satisfy.
func (e *Env) Constrain(name string, cs ...term.Constraint) {
	e.constraints[name] = append(e.constraints[name], cs...)
}

// Bind commits a binding after checking the variable's constraints
// against the resolved value. Returns false (logical failure) if a
// constraint rejects the value.
func (e *Env) Bind(name string, t *term.Term) bool {
	resolved := e.Resolve(t)
	for _, c := range e.constraints[name] {
		if !c(resolved) {
			return false
		}
	}
	e.bindings[name] = t
	return true
}

// Resolve follows the binding chain from a term one hop at a time until
// it reaches an unbound variable or a concrete value. Read-only.
func (e *Env) Resolve(t *term.Term) *term.Term {
	for t.Kind == term.Variable {
		next, ok := e.bindings[t.Name]
		if !ok {
			return t
		}
		t = next
	}
	return t
}

// ResolveDeep resolves a term and substitutes bindings inside lists,
// producing the fully grounded structure for result reporting.
func (e *Env) ResolveDeep(t *term.Term) *term.Term {
	t = e.Resolve(t)
	if t.Kind != term.List {
		return t
	}
	items := make([]*term.Term, len(t.Items))
	for i, it := range t.Items {
		items[i] = e.ResolveDeep(it)
	}
	return term.NewList(items...)
}

// Snapshot copies the current bindings map.
func (e *Env) Snapshot() map[string]*term.Term {
	snap := make(map[string]*term.Term, len(e.bindings))
	for k, v := range e.bindings {
		snap[k] = v
	}
	return snap
}

// Restore replaces the bindings with a previously taken snapshot.
func (e *Env) Restore(snap map[string]*term.Term) {
	e.bindings = make(map[string]*term.Term, len(snap))
	for k, v := range snap {
		e.bindings[k] = v
	}
}

// PushChoice opens a choice point holding the untried alternatives for
// the current branch, snapshotting the bindings for backtracking.
func (e *Env) PushChoice(untried []string) {
	e.choices = append(e.choices, choicePoint{
		snapshot: e.Snapshot(),
		untried:  untried,
	})
}

// NextAlternative backtracks: it restores the bindings of the most
// recent choice point and returns its next untried alternative. When a
// choice point is exhausted it is popped and the caller gets ok=false.
func (e *Env) NextAlternative() (alt string, ok bool) {
	for len(e.choices) > 0 {
		top := &e.choices[len(e.choices)-1]
		if len(top.untried) == 0 {
			e.choices = e.choices[:len(e.choices)-1]
			return "", false
		}
		e.Restore(top.snapshot)
		alt = top.untried[0]
		top.untried = top.untried[1:]
		return alt, true
	}
	return "", false
}

// DropChoice discards the most recent choice point without restoring.
func (e *Env) DropChoice() {
	if len(e.choices) > 0 {
		e.choices = e.choices[:len(e.choices)-1]
	}
}

// EnterCall increments the recursion depth, failing fatally once the
// configured ceiling is crossed.
func (e *Env) EnterCall() error {
	e.depth++
	if e.depth > e.maxDepth {
		return fmt.Errorf("%w: depth %d", internalerr.ErrRecursionLimit, e.maxDepth)
	}
	return nil
}

// ExitCall decrements the recursion depth.
func (e *Env) ExitCall() {
	if e.depth > 0 {
		e.depth--
	}
}

// Depth reports the current recursion depth.
func (e *Env) Depth() int { return e.depth }
