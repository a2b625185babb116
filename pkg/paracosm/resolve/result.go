package resolve

// Kind tags the shape of a query result. One query call can prove a
// ground goal, bind one solution, or enumerate many; the tag makes the
// caller spell out which case it is handling.
type Kind int

const (
	// NoSolution means the goal is simply false. Not an error.
	NoSolution Kind = iota
	// Verified means a ground call (no variables) succeeded.
	Verified
	// OneBinding means exactly one solution exists, in Binding.
	OneBinding
	// ManyBindings means several solutions exist, ordered, in Bindings.
	ManyBindings
)

func (k Kind) String() string {
	switch k {
	case NoSolution:
		return "no-solution"
	case Verified:
		return "verified"
	case OneBinding:
		return "binding"
	case ManyBindings:
		return "bindings"
	}
	return "unknown"
}

// Result is the outcome of one resolution. Binding maps go from
// variable name (without sigil) to the resolved Go value.
type Result struct {
	Kind     Kind
	Binding  map[string]any
	Bindings []map[string]any
	Steps    []Step
}

// Truthy reports whether the goal was established at all.
func (r Result) Truthy() bool { return r.Kind != NoSolution }

// Solutions returns all binding maps regardless of shape.
func (r Result) Solutions() []map[string]any {
	switch r.Kind {
	case OneBinding:
		return []map[string]any{r.Binding}
	case ManyBindings:
		return r.Bindings
	}
	return nil
}

// Step records one piece of provenance: the fact key, rule head, or
// builtin that contributed to a solution, and at what depth.
type Step struct {
	Kind   string // "fact", "rule", "builtin"
	Source string
	Depth  int
}

// shape folds raw solutions into the result contract: ground call plus
// any solution is Verified; otherwise zero, one, or many binding maps.
func shape(ground bool, sols []map[string]any, steps []Step) Result {
	if len(sols) == 0 {
		return Result{Kind: NoSolution, Steps: steps}
	}
	if ground {
		return Result{Kind: Verified, Steps: steps}
	}
	if len(sols) == 1 {
		return Result{Kind: OneBinding, Binding: sols[0], Steps: steps}
	}
	return Result{Kind: ManyBindings, Bindings: sols, Steps: steps}
}

// sameBindings reports whether two solutions have identical keys and
// values, used for duplicate suppression.
func sameBindings(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !valueEqual(av, bv) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	al, aok := a.([]any)
	bl, bok := b.([]any)
	if aok && bok {
		if len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !valueEqual(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	return normalize(a) == normalize(b)
}

// normalize collapses numeric representations so values compare cleanly
// after round-trips through YAML, JSON, and fact keys.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	}
	return v
}
