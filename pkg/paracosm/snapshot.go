package paracosm

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cognicore/paracosm/pkg/paracosm/causal"
	"github.com/cognicore/paracosm/pkg/paracosm/internalerr"
	"github.com/cognicore/paracosm/pkg/paracosm/reality"
	"github.com/cognicore/paracosm/pkg/paracosm/store"
)

// SnapshotReality captures a registered reality as a serializable
// snapshot. Native rule conditions cannot be serialized; a rule
// containing one is skipped with a warning.
func (e *Engine) SnapshotReality(name string) (store.Snapshot, error) {
	r, ok := e.realities[name]
	if !ok {
		return store.Snapshot{}, fmt.Errorf("%w: %q", internalerr.ErrRealityNotFound, name)
	}

	snap := store.Snapshot{Name: r.Name, Clock: r.Clock}

	for _, key := range r.FactKeys() {
		v, _ := r.Fact(key)
		snap.Facts = append(snap.Facts, store.Fact{Key: key, Value: v})
	}

	for _, head := range r.RuleHeads() {
		rl, _ := r.Rule(head)
		body := make([]string, 0, len(rl.Body))
		serializable := true
		for _, c := range rl.Body {
			if c.Native != nil {
				serializable = false
				break
			}
			body = append(body, c.Goal)
		}
		if !serializable {
			e.logger.Warn("skipping rule with native condition in snapshot",
				zap.String("reality", name),
				zap.String("head", head))
			continue
		}
		snap.Rules = append(snap.Rules, store.Rule{Head: head, Body: body})
	}

	m := r.Causal()
	names := m.Nodes()
	sort.Strings(names)
	for _, n := range names {
		node, _ := m.Node(n)
		snap.Nodes = append(snap.Nodes, store.Node{
			Name:   n,
			State:  node.State,
			Domain: node.Domain,
		})
	}
	m.Edges(func(cause, effect string, mech causal.Mechanism) {
		snap.Edges = append(snap.Edges, store.Edge{
			Cause:     cause,
			Effect:    effect,
			Mechanism: mech.Name,
		})
	})
	for node, v := range m.Interventions() {
		snap.Interventions = append(snap.Interventions, store.Intervention{Node: node, Value: v})
	}
	sort.Slice(snap.Edges, func(i, j int) bool {
		if snap.Edges[i].Cause != snap.Edges[j].Cause {
			return snap.Edges[i].Cause < snap.Edges[j].Cause
		}
		return snap.Edges[i].Effect < snap.Edges[j].Effect
	})
	sort.Slice(snap.Interventions, func(i, j int) bool {
		return snap.Interventions[i].Node < snap.Interventions[j].Node
	})

	return snap, nil
}

// RestoreReality rebuilds a reality from a snapshot, replacing any
// registered reality of the same name. Mechanisms rehydrate through
// the engine's registry; an unknown mechanism name is an error.
func (e *Engine) RestoreReality(snap store.Snapshot) error {
	if snap.Name == "" {
		return fmt.Errorf("%w: snapshot without a name", internalerr.ErrInvalidInput)
	}

	r := reality.New(snap.Name)
	r.Clock = snap.Clock

	for _, f := range snap.Facts {
		r.AssertFact(f.Key, f.Value)
	}
	for _, rl := range snap.Rules {
		body := make([]reality.Condition, len(rl.Body))
		for i, g := range rl.Body {
			body[i] = reality.Goal(g)
		}
		r.AddRule(rl.Head, body...)
	}

	m := r.Causal()
	for _, n := range snap.Nodes {
		if n.Domain != nil {
			if err := m.StateSpace(n.Name, n.Domain); err != nil {
				return err
			}
		}
		if n.State != nil {
			if err := m.SetState(n.Name, n.State); err != nil {
				return err
			}
		}
	}
	for _, edge := range snap.Edges {
		mech, err := e.mechanisms.Mechanism(edge.Mechanism)
		if err != nil {
			return err
		}
		m.AddCause(edge.Cause, edge.Effect, mech)
	}
	for _, iv := range snap.Interventions {
		m.SetIntervention(iv.Node, iv.Value)
	}

	if _, exists := e.realities[snap.Name]; !exists {
		e.order = append(e.order, snap.Name)
	}
	e.realities[snap.Name] = r
	if e.active == "" {
		e.active = snap.Name
	}
	e.cache.Purge()
	return nil
}
