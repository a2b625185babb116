package causal

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// Counterfactual evaluates "what would the effects be if these
// interventions held" against one model, as a complete transaction:
// snapshot, mutate, observe, restore. It is created transiently per
// call and never persisted into the owning reality.
type Counterfactual struct {
	ID    string
	Name  string
	model *Model

	pending      map[string]any
	pendingOrder []string
	effects      map[string]any
}

// NewCounterfactual binds a builder to a model.
func NewCounterfactual(name string, m *Model) *Counterfactual {
	return &Counterfactual{
		ID:      ulid.MustNew(ulid.Now(), rand.Reader).String(),
		Name:    name,
		model:   m,
		pending: make(map[string]any),
	}
}

// Intervene accumulates a pending intervention. Chainable; nothing
// touches the model until Compute.
func (c *Counterfactual) Intervene(name string, v any) *Counterfactual {
	if _, ok := c.pending[name]; !ok {
		c.pendingOrder = append(c.pendingOrder, name)
	}
	c.pending[name] = v
	return c
}

// Compute runs the transaction: snapshot the model, clear the live
// interventions (the counterfactual world starts from the structural
// baseline), apply the pending interventions with normal propagation,
// capture every node's resulting state, then restore. The restore is
// deferred so it runs on every exit path, including a domain-violation
// error mid-propagation. Re-invocation re-applies the same
// interventions from the restored baseline.
func (c *Counterfactual) Compute() error {
	states, live := c.model.snapshot()
	defer c.model.restore(states, live)

	c.model.interventions = make(map[string]any)

	for _, name := range c.pendingOrder {
		if err := c.model.Intervene(name, c.pending[name]); err != nil {
			return err
		}
	}

	c.effects = make(map[string]any, len(c.model.nodes))
	for name := range c.model.nodes {
		v, _ := c.model.State(name)
		c.effects[name] = v
	}
	return nil
}

// Effect reads a captured node state. Undefined (ok=false) until
// Compute has run.
func (c *Counterfactual) Effect(name string) (any, bool) {
	if c.effects == nil {
		return nil, false
	}
	v, ok := c.effects[name]
	return v, ok
}

// Effects returns the full captured effects map, nil before Compute.
func (c *Counterfactual) Effects() map[string]any {
	return c.effects
}
