package causal

import (
	"fmt"
	"strings"

	"github.com/cognicore/paracosm/pkg/paracosm/internalerr"
)

// Registry maps mechanism names to functions so edges can round-trip
// through knowledge files and the store, where only the name survives.
type Registry struct {
	fns map[string]func(any) any
}

// NewRegistry creates a registry preloaded with the builtin mechanisms:
// identity, negate, increment, decrement.
func NewRegistry() *Registry {
	r := &Registry{fns: make(map[string]func(any) any)}
	r.Register("identity", func(v any) any { return v })
	r.Register("negate", negate)
	r.Register("increment", func(v any) any { return shift(v, 1) })
	r.Register("decrement", func(v any) any { return shift(v, -1) })
	return r
}

// Register adds or replaces a named mechanism function.
func (r *Registry) Register(name string, fn func(any) any) {
	r.fns[name] = fn
}

// Mechanism resolves a name to a runnable mechanism. Names of the form
// "const:<value>" build a constant mechanism on the fly.
func (r *Registry) Mechanism(name string) (Mechanism, error) {
	if v, ok := strings.CutPrefix(name, "const:"); ok {
		m := Const(parseScalar(v))
		m.Name = name
		return m, nil
	}
	fn, ok := r.fns[name]
	if !ok {
		return Mechanism{}, fmt.Errorf("%w: mechanism %q", internalerr.ErrNotFound, name)
	}
	return Mechanism{Name: name, Fn: fn}, nil
}

func negate(v any) any {
	switch x := v.(type) {
	case bool:
		return !x
	case string:
		switch x {
		case "true":
			return "false"
		case "false":
			return "true"
		}
	}
	if f, ok := toFloat(v); ok {
		return -f
	}
	return v
}

func shift(v any, delta float64) any {
	if f, ok := toFloat(v); ok {
		return f + delta
	}
	return v
}

func parseScalar(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err == nil && fmt.Sprintf("%g", f) == s {
		return f
	}
	return s
}
