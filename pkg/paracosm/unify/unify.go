// Package unify implements structural unification with occurs-check
// over terms, and the binding environment with choice points that the
// resolution engine backtracks through.
package unify

import "github.com/cognicore/paracosm/pkg/paracosm/term"

// Unify attempts to make two terms structurally equal by binding
// variables in the environment. Returns false on logical failure.
// Bindings committed before a failure are not rolled back here; callers
// needing atomicity checkpoint the environment first (the resolution
// engine does this through choice points).
func Unify(a, b *term.Term, env *Env) bool {
	a = env.Resolve(a)
	b = env.Resolve(b)

	// Identical unbound variable, or equal concrete values.
	if a.Kind == term.Variable && b.Kind == term.Variable && a.Name == b.Name {
		return true
	}

	if a.Kind == term.Variable {
		if occurs(a.Name, b, env) {
			return false
		}
		return env.Bind(a.Name, b)
	}
	if b.Kind == term.Variable {
		if occurs(b.Name, a, env) {
			return false
		}
		return env.Bind(b.Name, a)
	}

	if a.Kind == term.List && b.Kind == term.List {
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Unify(a.Items[i], b.Items[i], env) {
				return false
			}
		}
		return true
	}

	return term.Equal(a, b)
}

// occurs reports whether the variable appears inside the term, directly
// or through existing bindings. Binding in that case would create a
// cyclic, infinite structure.
func occurs(name string, t *term.Term, env *Env) bool {
	t = env.Resolve(t)
	switch t.Kind {
	case term.Variable:
		return t.Name == name
	case term.List:
		for _, it := range t.Items {
			if occurs(name, it, env) {
				return true
			}
		}
	}
	return false
}
