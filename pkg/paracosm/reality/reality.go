// Package reality holds the isolated knowledge containers: each
// Reality owns its own facts, rules, and causal model, and two
// realities never share mutable state.
package reality

import (
	"strings"

	"github.com/cognicore/paracosm/pkg/paracosm/causal"
	"github.com/cognicore/paracosm/pkg/paracosm/term"
)

// KeySep joins the segments of a compound fact key:
// "predicate:arg1:arg2".
const KeySep = ":"

// Condition is one clause of a rule body: either a structured sub-goal
// in fact-key syntax (with $Var slots) or a native predicate invoked
// with the current bindings.
type Condition struct {
	Goal   string
	Native func(bindings map[string]any) bool
}

// Goal wraps a sub-goal string as a condition.
func Goal(g string) Condition { return Condition{Goal: g} }

// Native wraps a predicate closure as a condition.
func Native(fn func(bindings map[string]any) bool) Condition {
	return Condition{Native: fn}
}

// Rule is a head pattern ("ancestor:$X:$Y") with an ordered conjunction
// of body conditions.
type Rule struct {
	Head string
	Body []Condition
}

// Predicate returns the head's predicate name.
func (r *Rule) Predicate() string {
	return strings.SplitN(r.Head, KeySep, 2)[0]
}

// Arity returns the number of argument slots in the head.
func (r *Rule) Arity() int {
	return len(strings.Split(r.Head, KeySep)) - 1
}

// Reality is one named, isolated fact/rule/causal space. Clock is the
// current simulation time, advanced by an external driver; the engine
// itself never steps it.
type Reality struct {
	Name  string
	Clock int

	facts     map[string]any
	factOrder []string
	rules     map[string]*Rule
	ruleOrder []string
	causal    *causal.Model
}

// New creates an empty reality with its own causal model.
func New(name string) *Reality {
	return &Reality{
		Name:   name,
		facts:  make(map[string]any),
		rules:  make(map[string]*Rule),
		causal: causal.NewModel(),
	}
}

// Causal returns the reality's owned causal model.
func (r *Reality) Causal() *causal.Model { return r.causal }

// AssertFact writes a fact. Pure write, no inference triggered.
// Asserting an existing key overwrites its value in place.
func (r *Reality) AssertFact(key string, value any) {
	if _, exists := r.facts[key]; !exists {
		r.factOrder = append(r.factOrder, key)
	}
	r.facts[key] = value
}

// Fact reads a fact by exact key.
func (r *Reality) Fact(key string) (any, bool) {
	v, ok := r.facts[key]
	return v, ok
}

// RetractFact removes a fact by exact key.
func (r *Reality) RetractFact(key string) {
	if _, ok := r.facts[key]; !ok {
		return
	}
	delete(r.facts, key)
	for i, k := range r.factOrder {
		if k == key {
			r.factOrder = append(r.factOrder[:i], r.factOrder[i+1:]...)
			break
		}
	}
}

// FactKeys returns all fact keys in assertion order.
func (r *Reality) FactKeys() []string {
	out := make([]string, len(r.factOrder))
	copy(out, r.factOrder)
	return out
}

// AddRule registers a rule under its head key, returning true when an
// existing rule was overwritten.
func (r *Reality) AddRule(head string, body ...Condition) (replaced bool) {
	_, replaced = r.rules[head]
	if !replaced {
		r.ruleOrder = append(r.ruleOrder, head)
	}
	r.rules[head] = &Rule{Head: head, Body: body}
	return replaced
}

// Rule looks a rule up by exact head key.
func (r *Reality) Rule(head string) (*Rule, bool) {
	rl, ok := r.rules[head]
	return rl, ok
}

// RulesFor returns, in registration order, every rule whose head
// predicate matches the goal name.
func (r *Reality) RulesFor(goal string) []*Rule {
	var out []*Rule
	for _, head := range r.ruleOrder {
		rl := r.rules[head]
		if rl.Predicate() == goal {
			out = append(out, rl)
		}
	}
	return out
}

// RuleHeads returns all rule head keys in registration order.
func (r *Reality) RuleHeads() []string {
	out := make([]string, len(r.ruleOrder))
	copy(out, r.ruleOrder)
	return out
}

// MatchKey pattern-matches a query key against a stored key: equal
// segment counts, each position either an exact match or a variable
// bound by position. Two occurrences of the same variable in one
// pattern must agree on the matched value.
func MatchKey(pattern, key string) (map[string]string, bool) {
	pseg := strings.Split(pattern, KeySep)
	kseg := strings.Split(key, KeySep)
	if len(pseg) != len(kseg) {
		return nil, false
	}
	bindings := make(map[string]string)
	for i, p := range pseg {
		if term.IsVarName(p) {
			name := strings.TrimPrefix(p, term.Sigil)
			if prev, ok := bindings[name]; ok {
				if prev != kseg[i] {
					return nil, false
				}
				continue
			}
			bindings[name] = kseg[i]
			continue
		}
		if p != kseg[i] {
			return nil, false
		}
	}
	return bindings, true
}
