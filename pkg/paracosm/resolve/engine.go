// Package resolve is the resolution engine: it answers a goal against
// a reality by dispatching to builtin predicates, pattern-matching the
// fact store, and applying rules with recursive sub-goal evaluation and
// backtracking through the environment's choice points.
package resolve

import (
	"fmt"
	"strings"

	"github.com/cognicore/paracosm/pkg/paracosm/internalerr"
	"github.com/cognicore/paracosm/pkg/paracosm/reality"
	"github.com/cognicore/paracosm/pkg/paracosm/term"
	"github.com/cognicore/paracosm/pkg/paracosm/unify"
)

// DefaultMaxSolutions bounds the total solutions accepted in one query.
const DefaultMaxSolutions = 100

// Options configures an engine.
type Options struct {
	MaxDepth     int // recursion ceiling, DefaultMaxDepth when <= 0
	MaxSolutions int // solution ceiling, DefaultMaxSolutions when <= 0
}

// Engine resolves goals. It holds the builtin predicate registry and
// the termination ceilings; all per-query state lives in a session, so
// one engine serves any number of sequential queries.
type Engine struct {
	builtins     map[string]Predicate
	maxDepth     int
	maxSolutions int
}

// New creates an engine with the standard builtins registered.
func New(opts Options) *Engine {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = unify.DefaultMaxDepth
	}
	if opts.MaxSolutions <= 0 {
		opts.MaxSolutions = DefaultMaxSolutions
	}
	e := &Engine{
		builtins:     make(map[string]Predicate),
		maxDepth:     opts.MaxDepth,
		maxSolutions: opts.MaxSolutions,
	}
	e.registerBuiltins()
	return e
}

// Register installs or replaces a builtin predicate. Builtins are
// checked before facts and rules.
func (e *Engine) Register(name string, p Predicate) {
	e.builtins[name] = p
}

// Builtin reports whether a predicate name is registered.
func (e *Engine) Builtin(name string) bool {
	_, ok := e.builtins[name]
	return ok
}

// Query resolves a goal with positional arguments against one reality.
// Arguments are raw Go values; strings beginning with "$" are
// variables. The session (environment, depth, trace) is rebuilt per
// call, so nothing leaks between queries.
func (e *Engine) Query(r *reality.Reality, goal string, args ...any) (Result, error) {
	return e.QueryWhere(r, goal, nil, args...)
}

// QueryWhere is Query with binding constraints on named variables. A
// constrained variable rejects values the constraint refuses: during
// unification on the fact and builtin paths, and as a filter over
// rule-derived solutions, which bind through head projection rather
// than the environment.
func (e *Engine) QueryWhere(r *reality.Reality, goal string, where map[string]term.Constraint, args ...any) (Result, error) {
	if r == nil {
		return Result{}, internalerr.ErrNoActiveReality
	}
	terms := make([]*term.Term, len(args))
	ground := true
	for i, a := range args {
		terms[i] = term.FromValue(a)
		if !terms[i].IsGround() {
			ground = false
		}
	}

	s := &session{eng: e, r: r, env: unify.NewEnv(e.maxDepth)}
	for name, c := range where {
		s.env.Constrain(name, c)
	}
	sols, err := s.resolve(goal, terms)
	if err != nil {
		return Result{}, err
	}
	return shape(ground, filterWhere(sols, where), s.steps), nil
}

// filterWhere drops solutions whose bindings violate a constraint.
func filterWhere(sols []map[string]any, where map[string]term.Constraint) []map[string]any {
	if len(where) == 0 {
		return sols
	}
	var out []map[string]any
	for _, sol := range sols {
		ok := true
		for name, c := range where {
			if v, bound := sol[name]; bound && !c(term.FromValue(v)) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, sol)
		}
	}
	return out
}

// session is the per-query state: one shared environment carrying the
// recursion depth guard and choice points, the running solution count
// against the ceiling, and the provenance trace.
type session struct {
	eng      *Engine
	r        *reality.Reality
	env      *unify.Env
	accepted int
	steps    []Step
}

// resolve answers one goal, dispatching in order: builtin predicate,
// direct facts, then rules. Fact and rule solutions accumulate and are
// deduplicated; an identical binding set reached through two search
// paths is reported once.
func (s *session) resolve(goal string, args []*term.Term) ([]map[string]any, error) {
	if err := s.env.EnterCall(); err != nil {
		return nil, err
	}
	defer s.env.ExitCall()

	if p, ok := s.eng.builtins[goal]; ok {
		sols, err := p(args, s.env)
		if err != nil {
			return nil, err
		}
		if len(sols) > 0 {
			s.steps = append(s.steps, Step{Kind: "builtin", Source: goal, Depth: s.env.Depth()})
		}
		out, err := s.accept(nil, sols)
		return out, err
	}

	var out []map[string]any
	factSols := s.solveFacts(goal, args)
	out, err := s.accept(out, factSols)
	if err != nil {
		return nil, err
	}

	for _, rl := range s.r.RulesFor(goal) {
		ruleSols, err := s.applyRule(rl, args)
		if err != nil {
			return nil, err
		}
		if len(ruleSols) > 0 {
			s.steps = append(s.steps, Step{Kind: "rule", Source: rl.Head, Depth: s.env.Depth()})
		}
		out, err = s.accept(out, ruleSols)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// accept merges new solutions into the running set with duplicate
// suppression, charging only genuinely new solutions against the
// solution ceiling.
func (s *session) accept(out []map[string]any, sols []map[string]any) ([]map[string]any, error) {
next:
	for _, sol := range sols {
		for _, ex := range out {
			if sameBindings(ex, sol) {
				continue next
			}
		}
		out = append(out, sol)
		s.accepted++
		if s.accepted > s.eng.maxSolutions {
			return nil, fmt.Errorf("%w: max %d", internalerr.ErrSolutionLimit, s.eng.maxSolutions)
		}
	}
	return out, nil
}

// solveFacts enumerates the fact keys that could match the goal through
// a choice point: each alternative restores the bindings snapshot
// before the next candidate is tried.
func (s *session) solveFacts(goal string, args []*term.Term) []map[string]any {
	var candidates []string
	for _, k := range s.r.FactKeys() {
		if k == goal || strings.HasPrefix(k, goal+reality.KeySep) {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	names := varNames(args)
	var sols []map[string]any
	s.env.PushChoice(candidates)
	for {
		key, ok := s.env.NextAlternative()
		if !ok {
			break
		}
		if s.tryFact(goal, args, key) {
			sols = append(sols, capture(s.env, names))
			s.steps = append(s.steps, Step{Kind: "fact", Source: key, Depth: s.env.Depth()})
		}
	}
	return sols
}

// tryFact unifies the call pattern against one stored key. Two forms
// match: every segment pairwise ("isA:alice:person" against
// isA(alice, person)), or the key one segment short with the trailing
// argument taken from the stored fact's value ("temperature" holding 72
// against temperature($T)). Calls whose arguments all fit key syntax go
// through reality.MatchKey; list or partially bound arguments fall back
// to per-segment unification.
func (s *session) tryFact(goal string, args []*term.Term, key string) bool {
	kseg := strings.Split(key, reality.KeySep)
	if kseg[0] != goal {
		return false
	}
	switch {
	case len(kseg) == len(args)+1:
		if pattern, ok := callPattern(goal, args); ok {
			m, ok := reality.MatchKey(pattern, key)
			if !ok {
				return false
			}
			for name, raw := range m {
				if !unify.Unify(term.NewVar(name), term.Parse(raw), s.env) {
					return false
				}
			}
			return true
		}
		for i, a := range args {
			if !unify.Unify(a, term.Parse(kseg[i+1]), s.env) {
				return false
			}
		}
		return true
	case len(kseg) == len(args) && len(args) > 0:
		for i := 0; i < len(args)-1; i++ {
			if !unify.Unify(args[i], term.Parse(kseg[i+1]), s.env) {
				return false
			}
		}
		v, _ := s.r.Fact(key)
		return unify.Unify(args[len(args)-1], term.FromValue(v), s.env)
	}
	return false
}

// callPattern renders a call as a fact-key pattern: variables keep
// their sigil, atoms and numbers their segment text. Lists, partially
// bound terms, and atoms containing the key separator do not fit key
// syntax.
func callPattern(goal string, args []*term.Term) (string, bool) {
	seg := make([]string, 0, len(args)+1)
	seg = append(seg, goal)
	for _, a := range args {
		switch a.Kind {
		case term.Variable:
			seg = append(seg, term.Sigil+a.Name)
		case term.Atom:
			if strings.Contains(a.Str, reality.KeySep) {
				return "", false
			}
			seg = append(seg, a.Str)
		case term.Number:
			seg = append(seg, a.String())
		default:
			return "", false
		}
	}
	return strings.Join(seg, reality.KeySep), true
}

// projection says where a call variable's value comes from once a rule
// body succeeds: the bindings of the head variables it was substituted
// into, a head constant, or both. A call variable repeated across head
// slots projects onto several sources, which must agree on one value.
type projection struct {
	headVars []string
	constant any
	isConst  bool
}

// applyRule substitutes the call's arguments into the rule head to form
// the initial binding set, evaluates the body as a conjunction (native
// closures and recursive sub-goals), and projects the surviving
// candidate bindings back onto the call's variables.
func (s *session) applyRule(rl *reality.Rule, args []*term.Term) ([]map[string]any, error) {
	hseg := strings.Split(rl.Head, reality.KeySep)
	if len(hseg)-1 != len(args) {
		return nil, nil
	}

	local := make(map[string]any)
	projections := make(map[string]projection)
	for i, a := range args {
		slot := hseg[i+1]
		if term.IsVarName(slot) {
			hname := strings.TrimPrefix(slot, term.Sigil)
			switch {
			case a.IsGround():
				v := normalize(a.Value())
				if prev, bound := local[hname]; bound && !valueEqual(prev, v) {
					return nil, nil
				}
				local[hname] = v
			case a.Kind == term.Variable:
				p := projections[a.Name]
				p.headVars = append(p.headVars, hname)
				projections[a.Name] = p
			default:
				return nil, nil
			}
			continue
		}
		st := term.Parse(slot)
		switch {
		case a.IsGround():
			if !valueEqual(normalize(a.Value()), normalize(st.Value())) {
				return nil, nil
			}
		case a.Kind == term.Variable:
			p := projections[a.Name]
			v := normalize(st.Value())
			if p.isConst && !valueEqual(p.constant, v) {
				return nil, nil
			}
			p.isConst = true
			p.constant = v
			projections[a.Name] = p
		default:
			return nil, nil
		}
	}

	candidates := []map[string]any{local}
	for _, cond := range rl.Body {
		var next []map[string]any
		for _, cand := range candidates {
			if cond.Native != nil {
				if cond.Native(copyBindings(cand)) {
					next = append(next, cand)
				}
				continue
			}
			pred, subArgs := substituteGoal(cond.Goal, cand)
			subSols, err := s.resolve(pred, subArgs)
			if err != nil {
				return nil, err
			}
			for _, ss := range subSols {
				if merged, ok := mergeBindings(cand, ss); ok {
					next = append(next, merged)
				}
			}
		}
		candidates = next
		if len(candidates) == 0 {
			return nil, nil
		}
	}

	var out []map[string]any
	for _, cand := range candidates {
		sol := make(map[string]any, len(projections))
		complete := true
		for cv, p := range projections {
			v, have := project(p, cand)
			if !have {
				complete = false
				break
			}
			sol[cv] = v
		}
		if complete {
			out = append(out, sol)
		}
	}
	return out, nil
}

// project resolves one call variable's value from a surviving
// candidate, requiring every source the variable was substituted into
// to agree.
func project(p projection, cand map[string]any) (any, bool) {
	var v any
	have := p.isConst
	if have {
		v = p.constant
	}
	for _, hv := range p.headVars {
		bv, bound := cand[hv]
		if !bound {
			return nil, false
		}
		if !have {
			v, have = bv, true
			continue
		}
		if !valueEqual(v, bv) {
			return nil, false
		}
	}
	return v, have
}

// substituteGoal rewrites a sub-goal string with the candidate's
// current bindings: bound variables become their values, unbound ones
// stay variables for the recursive resolution to fill.
func substituteGoal(goal string, bindings map[string]any) (pred string, args []*term.Term) {
	seg := strings.Split(goal, reality.KeySep)
	pred = seg[0]
	args = make([]*term.Term, len(seg)-1)
	for i, sg := range seg[1:] {
		if term.IsVarName(sg) {
			name := strings.TrimPrefix(sg, term.Sigil)
			if v, bound := bindings[name]; bound {
				args[i] = term.FromValue(v)
			} else {
				args[i] = term.NewVar(name)
			}
			continue
		}
		args[i] = term.Parse(sg)
	}
	return pred, args
}

func copyBindings(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// mergeBindings extends a candidate with a sub-goal's solution,
// failing when the two disagree on a shared variable.
func mergeBindings(cand, sol map[string]any) (map[string]any, bool) {
	out := copyBindings(cand)
	for k, v := range sol {
		if prev, bound := out[k]; bound {
			if !valueEqual(prev, v) {
				return nil, false
			}
			continue
		}
		out[k] = normalize(v)
	}
	return out, true
}
