// Package causal implements the directed graph of mechanisms owned by
// each reality: node states with optional state-space domains,
// interventions with read priority, cycle-safe effect propagation, and
// transactional counterfactual evaluation.
package causal

import (
	"fmt"
	"reflect"

	"github.com/cognicore/paracosm/pkg/paracosm/internalerr"
)

// Mechanism is a deterministic edge function from the cause's current
// state to the effect's new state. The name is what persists; the
// function is what runs.
type Mechanism struct {
	Name string
	Fn   func(any) any
}

// Func wraps a named mechanism function.
func Func(name string, fn func(any) any) Mechanism {
	return Mechanism{Name: name, Fn: fn}
}

// Const builds a mechanism that always produces the given value.
func Const(v any) Mechanism {
	return Mechanism{
		Name: fmt.Sprintf("const:%v", v),
		Fn:   func(any) any { return v },
	}
}

// Node is one causal variable: its stored state, its declared domain
// (nil means unconstrained), and its adjacency.
type Node struct {
	State    any
	Domain   []any
	parents  map[string]struct{}
	children map[string]struct{}
}

// Parents returns the node's parent names.
func (n *Node) Parents() []string { return keys(n.parents) }

// Children returns the node's child names.
func (n *Node) Children() []string { return keys(n.children) }

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Model is a causal graph. Not safe for concurrent use; each reality
// owns exactly one model and all mutation goes through its owner.
type Model struct {
	nodes         map[string]*Node
	edges         map[string]map[string]Mechanism
	interventions map[string]any
}

// NewModel creates an empty causal model.
func NewModel() *Model {
	return &Model{
		nodes:         make(map[string]*Node),
		edges:         make(map[string]map[string]Mechanism),
		interventions: make(map[string]any),
	}
}

// node returns the named node, creating it if absent. Every edge
// endpoint exists as a node; there are no dangling edges.
func (m *Model) node(name string) *Node {
	n, ok := m.nodes[name]
	if !ok {
		n = &Node{
			parents:  make(map[string]struct{}),
			children: make(map[string]struct{}),
		}
		m.nodes[name] = n
	}
	return n
}

// Node returns the named node, if it exists.
func (m *Model) Node(name string) (*Node, bool) {
	n, ok := m.nodes[name]
	return n, ok
}

// Nodes returns the names of all nodes.
func (m *Model) Nodes() []string {
	out := make([]string, 0, len(m.nodes))
	for name := range m.nodes {
		out = append(out, name)
	}
	return out
}

// Edges calls fn for every edge in the graph.
func (m *Model) Edges(fn func(cause, effect string, mech Mechanism)) {
	for cause, outs := range m.edges {
		for effect, mech := range outs {
			fn(cause, effect, mech)
		}
	}
}

// AddCause inserts or overwrites the edge cause→effect with the given
// mechanism, auto-creating missing nodes and recording the parent/child
// relationship on both.
func (m *Model) AddCause(cause, effect string, mech Mechanism) {
	c := m.node(cause)
	e := m.node(effect)
	if m.edges[cause] == nil {
		m.edges[cause] = make(map[string]Mechanism)
	}
	m.edges[cause][effect] = mech
	c.children[effect] = struct{}{}
	e.parents[cause] = struct{}{}
}

// StateSpace declares the allowed value set for a node, auto-creating
// it. A node whose current state already violates the new domain is
// rejected.
func (m *Model) StateSpace(name string, domain []any) error {
	n := m.node(name)
	if n.State != nil && !inDomain(n.State, domain) {
		return fmt.Errorf("%w: %s=%v not in %v", internalerr.ErrDomainViolation, name, n.State, domain)
	}
	n.Domain = domain
	return nil
}

// SetState writes a node's stored state after domain validation,
// auto-creating the node.
func (m *Model) SetState(name string, v any) error {
	n := m.node(name)
	if n.Domain != nil && !inDomain(v, n.Domain) {
		return fmt.Errorf("%w: %s=%v not in %v", internalerr.ErrDomainViolation, name, v, n.Domain)
	}
	n.State = v
	return nil
}

// State returns a node's effective state: an active intervention takes
// priority over the stored state.
func (m *Model) State(name string) (any, bool) {
	if v, ok := m.interventions[name]; ok {
		return v, true
	}
	n, ok := m.nodes[name]
	if !ok {
		return nil, false
	}
	return n.State, true
}

// Intervene forces a node's value (the do-operator) and propagates the
// downstream effects. The forced value is recorded in the interventions
// map, not written into the node's stored state.
func (m *Model) Intervene(name string, v any) error {
	n := m.node(name)
	if n.Domain != nil && !inDomain(v, n.Domain) {
		return fmt.Errorf("%w: %s=%v not in %v", internalerr.ErrDomainViolation, name, v, n.Domain)
	}
	m.interventions[name] = v
	return m.propagate(name)
}

// Intervention reports the forced value on a node, if any.
func (m *Model) Intervention(name string) (any, bool) {
	v, ok := m.interventions[name]
	return v, ok
}

// Interventions returns a copy of the live interventions map.
func (m *Model) Interventions() map[string]any {
	out := make(map[string]any, len(m.interventions))
	for k, v := range m.interventions {
		out[k] = v
	}
	return out
}

// SetIntervention records a forced value without propagating, used
// when rehydrating a model from a snapshot.
func (m *Model) SetIntervention(name string, v any) {
	m.node(name)
	m.interventions[name] = v
}

// propagate walks the graph breadth-first from start, recomputing each
// downstream node through its incoming mechanism. Iterative with an
// explicit visited set: mechanisms may legitimately form feedback
// cycles, and each node is visited at most once per call, so the walk
// always terminates.
func (m *Model) propagate(start string) error {
	visited := map[string]struct{}{start: {}}
	queue := []string{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		state, _ := m.State(cur)
		for effect, mech := range m.edges[cur] {
			// A node under an active intervention holds its forced
			// value; mechanisms do not overwrite it.
			if _, held := m.interventions[effect]; held {
				continue
			}
			next := mech.Fn(state)
			if err := m.SetState(effect, next); err != nil {
				return err
			}
			if _, seen := visited[effect]; !seen {
				visited[effect] = struct{}{}
				queue = append(queue, effect)
			}
		}
	}
	return nil
}

// snapshot captures every node's stored state and the live
// interventions map.
func (m *Model) snapshot() (states map[string]any, interventions map[string]any) {
	states = make(map[string]any, len(m.nodes))
	for name, n := range m.nodes {
		states[name] = n.State
	}
	interventions = make(map[string]any, len(m.interventions))
	for k, v := range m.interventions {
		interventions[k] = v
	}
	return states, interventions
}

// restore reinstates a snapshot taken by snapshot. Nodes created after
// the snapshot are removed, so a speculative computation cannot grow
// the live graph.
func (m *Model) restore(states map[string]any, interventions map[string]any) {
	for name, n := range m.nodes {
		if s, ok := states[name]; ok {
			n.State = s
		} else {
			delete(m.nodes, name)
		}
	}
	m.interventions = make(map[string]any, len(interventions))
	for k, v := range interventions {
		m.interventions[k] = v
	}
}

func inDomain(v any, domain []any) bool {
	for _, d := range domain {
		if reflect.DeepEqual(v, d) || looseEqual(v, d) {
			return true
		}
	}
	return false
}

// looseEqual treats numerically equal values as members regardless of
// integer/float representation, since states round-trip through YAML
// and JSON.
func looseEqual(a, b any) bool {
	fa, oka := toFloat(a)
	fb, okb := toFloat(b)
	return oka && okb && fa == fb
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
