package resolve

import (
	"fmt"
	"math"

	"github.com/cognicore/paracosm/pkg/paracosm/internalerr"
	"github.com/cognicore/paracosm/pkg/paracosm/term"
	"github.com/cognicore/paracosm/pkg/paracosm/unify"
)

// Predicate is a native builtin: given the call's argument terms and an
// environment, it produces zero or more solutions (binding maps for the
// variables among the arguments). Empty means logical failure; an error
// is fatal for the call.
type Predicate func(args []*term.Term, env *unify.Env) ([]map[string]any, error)

// registerBuiltins installs the standard predicate set on an engine.
func (e *Engine) registerBuiltins() {
	e.Register("add", arith("add"))
	e.Register("sub", arith("sub"))
	e.Register("mul", arith("mul"))
	e.Register("gt", compare(func(a, b float64) bool { return a > b }))
	e.Register("lt", compare(func(a, b float64) bool { return a < b }))
	e.Register("gte", compare(func(a, b float64) bool { return a >= b }))
	e.Register("lte", compare(func(a, b float64) bool { return a <= b }))
	e.Register("eq", eqPredicate)
	e.Register("cons", consPredicate)
	e.Register("head", headPredicate)
	e.Register("tail", tailPredicate)
	e.Register("append", appendPredicate)
	e.Register("member", memberPredicate)
}

// varNames collects the distinct variable names among argument terms,
// in order of first appearance.
func varNames(args []*term.Term) []string {
	var out []string
	seen := map[string]struct{}{}
	var walk func(t *term.Term)
	walk = func(t *term.Term) {
		switch t.Kind {
		case term.Variable:
			if _, ok := seen[t.Name]; !ok {
				seen[t.Name] = struct{}{}
				out = append(out, t.Name)
			}
		case term.List:
			for _, it := range t.Items {
				walk(it)
			}
		}
	}
	for _, a := range args {
		walk(a)
	}
	return out
}

// capture reads the current binding of each named variable out of the
// environment. Variables still unbound after success are omitted.
func capture(env *unify.Env, names []string) map[string]any {
	sol := make(map[string]any)
	for _, n := range names {
		t := env.ResolveDeep(term.NewVar(n))
		if t.IsGround() {
			sol[n] = t.Value()
		}
	}
	return sol
}

// arith implements the bidirectional arithmetic predicates over three
// arguments: with all ground it verifies, with one variable it solves,
// and add with two variables and a ground non-negative integer sum
// enumerates the splits.
func arith(op string) Predicate {
	return func(args []*term.Term, env *unify.Env) ([]map[string]any, error) {
		if len(args) != 3 {
			return nil, fmt.Errorf("%w: %s wants 3 arguments, got %d", internalerr.ErrInvalidInput, op, len(args))
		}
		names := varNames(args)
		r := make([]*term.Term, 3)
		unbound := 0
		for i, a := range args {
			r[i] = env.Resolve(a)
			if r[i].Kind == term.Variable {
				unbound++
			} else if r[i].Kind != term.Number {
				return nil, nil
			}
		}

		try := func(values [3]float64) ([]map[string]any, bool) {
			snap := env.Snapshot()
			ok := true
			for i := 0; i < 3; i++ {
				if !unify.Unify(args[i], term.NewNumber(values[i]), env) {
					ok = false
					break
				}
			}
			if !ok {
				env.Restore(snap)
				return nil, false
			}
			sol := capture(env, names)
			env.Restore(snap)
			return []map[string]any{sol}, true
		}

		switch unbound {
		case 0:
			a, b, c := r[0].Num, r[1].Num, r[2].Num
			if apply(op, a, b) == c {
				return []map[string]any{{}}, nil
			}
			return nil, nil
		case 1:
			vals, ok := solveOne(op, r)
			if !ok {
				return nil, nil
			}
			if sols, ok := try(vals); ok {
				return sols, nil
			}
			return nil, nil
		case 2:
			if op != "add" || r[2].Kind != term.Number {
				return nil, nil
			}
			sum := r[2].Num
			if sum < 0 || sum != math.Trunc(sum) {
				return nil, nil
			}
			var out []map[string]any
			for i := 0.0; i <= sum; i++ {
				if sols, ok := try([3]float64{i, sum - i, sum}); ok {
					out = append(out, sols...)
				}
			}
			return out, nil
		}
		return nil, nil
	}
}

func apply(op string, a, b float64) float64 {
	switch op {
	case "add":
		return a + b
	case "sub":
		return a - b
	case "mul":
		return a * b
	}
	return math.NaN()
}

// solveOne fills the single unbound slot of an arithmetic triple.
func solveOne(op string, r []*term.Term) ([3]float64, bool) {
	var v [3]float64
	missing := -1
	for i, t := range r {
		if t.Kind == term.Variable {
			missing = i
		} else {
			v[i] = t.Num
		}
	}
	switch op {
	case "add":
		switch missing {
		case 0:
			v[0] = v[2] - v[1]
		case 1:
			v[1] = v[2] - v[0]
		case 2:
			v[2] = v[0] + v[1]
		}
	case "sub":
		switch missing {
		case 0:
			v[0] = v[2] + v[1]
		case 1:
			v[1] = v[0] - v[2]
		case 2:
			v[2] = v[0] - v[1]
		}
	case "mul":
		switch missing {
		case 0:
			if v[1] == 0 {
				return v, false
			}
			v[0] = v[2] / v[1]
		case 1:
			if v[0] == 0 {
				return v, false
			}
			v[1] = v[2] / v[0]
		case 2:
			v[2] = v[0] * v[1]
		}
	}
	return v, true
}

func compare(cmp func(a, b float64) bool) Predicate {
	return func(args []*term.Term, env *unify.Env) ([]map[string]any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: comparison wants 2 arguments", internalerr.ErrInvalidInput)
		}
		a := env.Resolve(args[0])
		b := env.Resolve(args[1])
		if a.Kind != term.Number || b.Kind != term.Number {
			return nil, nil
		}
		if cmp(a.Num, b.Num) {
			return []map[string]any{{}}, nil
		}
		return nil, nil
	}
}

func eqPredicate(args []*term.Term, env *unify.Env) ([]map[string]any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: eq wants 2 arguments", internalerr.ErrInvalidInput)
	}
	names := varNames(args)
	snap := env.Snapshot()
	if !unify.Unify(args[0], args[1], env) {
		env.Restore(snap)
		return nil, nil
	}
	sol := capture(env, names)
	env.Restore(snap)
	return []map[string]any{sol}, nil
}

func consPredicate(args []*term.Term, env *unify.Env) ([]map[string]any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("%w: cons wants 3 arguments", internalerr.ErrInvalidInput)
	}
	names := varNames(args)
	item := env.ResolveDeep(args[0])
	list := env.ResolveDeep(args[1])
	result := env.ResolveDeep(args[2])

	snap := env.Snapshot()
	defer env.Restore(snap)

	switch {
	case item.IsGround() && list.Kind == term.List:
		built := term.NewList(append([]*term.Term{item}, list.Items...)...)
		if !unify.Unify(args[2], built, env) {
			return nil, nil
		}
	case result.Kind == term.List && len(result.Items) > 0:
		rest := term.NewList(result.Items[1:]...)
		if !unify.Unify(args[0], result.Items[0], env) || !unify.Unify(args[1], rest, env) {
			return nil, nil
		}
	default:
		return nil, nil
	}
	return []map[string]any{capture(env, names)}, nil
}

func headPredicate(args []*term.Term, env *unify.Env) ([]map[string]any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: head wants 2 arguments", internalerr.ErrInvalidInput)
	}
	list := env.ResolveDeep(args[0])
	if list.Kind != term.List || len(list.Items) == 0 {
		return nil, nil
	}
	names := varNames(args)
	snap := env.Snapshot()
	defer env.Restore(snap)
	if !unify.Unify(args[1], list.Items[0], env) {
		return nil, nil
	}
	return []map[string]any{capture(env, names)}, nil
}

func tailPredicate(args []*term.Term, env *unify.Env) ([]map[string]any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: tail wants 2 arguments", internalerr.ErrInvalidInput)
	}
	list := env.ResolveDeep(args[0])
	if list.Kind != term.List || len(list.Items) == 0 {
		return nil, nil
	}
	names := varNames(args)
	snap := env.Snapshot()
	defer env.Restore(snap)
	if !unify.Unify(args[1], term.NewList(list.Items[1:]...), env) {
		return nil, nil
	}
	return []map[string]any{capture(env, names)}, nil
}

func appendPredicate(args []*term.Term, env *unify.Env) ([]map[string]any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("%w: append wants 3 arguments", internalerr.ErrInvalidInput)
	}
	names := varNames(args)
	a := env.ResolveDeep(args[0])
	b := env.ResolveDeep(args[1])
	c := env.ResolveDeep(args[2])

	if a.Kind == term.List && b.Kind == term.List && a.IsGround() && b.IsGround() {
		snap := env.Snapshot()
		defer env.Restore(snap)
		built := term.NewList(append(append([]*term.Term{}, a.Items...), b.Items...)...)
		if !unify.Unify(args[2], built, env) {
			return nil, nil
		}
		return []map[string]any{capture(env, names)}, nil
	}

	if c.Kind == term.List && c.IsGround() {
		var out []map[string]any
		for i := 0; i <= len(c.Items); i++ {
			snap := env.Snapshot()
			left := term.NewList(c.Items[:i]...)
			right := term.NewList(c.Items[i:]...)
			if unify.Unify(args[0], left, env) && unify.Unify(args[1], right, env) {
				out = append(out, capture(env, names))
			}
			env.Restore(snap)
		}
		return out, nil
	}
	return nil, nil
}

func memberPredicate(args []*term.Term, env *unify.Env) ([]map[string]any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: member wants 2 arguments", internalerr.ErrInvalidInput)
	}
	list := env.ResolveDeep(args[1])
	if list.Kind != term.List {
		return nil, nil
	}
	names := varNames(args)
	var out []map[string]any
	for _, it := range list.Items {
		snap := env.Snapshot()
		if unify.Unify(args[0], it, env) {
			out = append(out, capture(env, names))
		}
		env.Restore(snap)
	}
	return out, nil
}
