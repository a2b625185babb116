// Package paracosm is the engine facade: it owns the reality table,
// routes queries into the resolution engine, and exposes the causal
// operations of the active reality.
package paracosm

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/cognicore/paracosm/pkg/paracosm/causal"
	"github.com/cognicore/paracosm/pkg/paracosm/config"
	"github.com/cognicore/paracosm/pkg/paracosm/internalerr"
	"github.com/cognicore/paracosm/pkg/paracosm/reality"
	"github.com/cognicore/paracosm/pkg/paracosm/resolve"
	"github.com/cognicore/paracosm/pkg/paracosm/term"
)

// Engine is an explicit, caller-owned session: no package-level
// singleton. Not safe for concurrent use; serialize all access through
// one owner.
type Engine struct {
	realities  map[string]*reality.Reality
	order      []string
	active     string
	resolver   *resolve.Engine
	mechanisms *causal.Registry
	cache      *lru.Cache[string, resolve.Result]
	logger     *zap.Logger
	limits     config.Limits
}

// Options configures an engine.
type Options struct {
	Limits     config.Limits
	Logger     *zap.Logger      // nil means no logging
	Mechanisms *causal.Registry // nil means the builtin registry
}

// New creates an engine with no realities.
func New(opts Options) *Engine {
	if opts.Limits == (config.Limits{}) {
		opts.Limits = config.DefaultLimits()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Mechanisms == nil {
		opts.Mechanisms = causal.NewRegistry()
	}
	size := opts.Limits.CacheSize
	if size <= 0 {
		size = config.DefaultLimits().CacheSize
	}
	cache, _ := lru.New[string, resolve.Result](size)
	return &Engine{
		realities: make(map[string]*reality.Reality),
		resolver: resolve.New(resolve.Options{
			MaxDepth:     opts.Limits.MaxDepth,
			MaxSolutions: opts.Limits.MaxSolutions,
		}),
		mechanisms: opts.Mechanisms,
		cache:      cache,
		logger:     opts.Logger,
		limits:     opts.Limits,
	}
}

// Mechanisms returns the engine's mechanism registry.
func (e *Engine) Mechanisms() *causal.Registry { return e.mechanisms }

// CreateReality allocates a new isolated reality and registers it. The
// first reality created also becomes active.
func (e *Engine) CreateReality(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty reality name", internalerr.ErrInvalidInput)
	}
	if _, exists := e.realities[name]; exists {
		return fmt.Errorf("%w: reality %q", internalerr.ErrDuplicate, name)
	}
	e.realities[name] = reality.New(name)
	e.order = append(e.order, name)
	if e.active == "" {
		e.active = name
	}
	e.cache.Purge()
	return nil
}

// SwitchReality activates a reality by name, returning true, or
// returns false without side effects when the name is unknown. Never
// errors.
func (e *Engine) SwitchReality(name string) bool {
	if _, ok := e.realities[name]; !ok {
		return false
	}
	e.active = name
	e.cache.Purge()
	return true
}

// ActiveReality returns the currently active reality, if any.
func (e *Engine) ActiveReality() (*reality.Reality, bool) {
	r, ok := e.realities[e.active]
	return r, ok
}

// Realities lists the registered reality names in creation order.
func (e *Engine) Realities() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

func (e *Engine) activeOrErr() (*reality.Reality, error) {
	r, ok := e.realities[e.active]
	if !ok {
		return nil, internalerr.ErrNoActiveReality
	}
	return r, nil
}

// Assert writes a fact into the active reality. A simple (single
// segment) fact name is also mirrored as the state of the causal node
// of the same name, so assertions and interventions read consistently.
func (e *Engine) Assert(fact string, value any) error {
	r, err := e.activeOrErr()
	if err != nil {
		return err
	}
	if !containsSep(fact) {
		if err := r.Causal().SetState(fact, value); err != nil {
			return err
		}
	}
	r.AssertFact(fact, value)
	e.cache.Purge()
	return nil
}

// Retract removes a fact from the active reality by exact key.
func (e *Engine) Retract(fact string) error {
	r, err := e.activeOrErr()
	if err != nil {
		return err
	}
	r.RetractFact(fact)
	e.cache.Purge()
	return nil
}

// IsA asserts class membership: IsA("alice", "person") writes the fact
// isA:alice:person.
func (e *Engine) IsA(entity, class string) error {
	return e.Assert("isA"+reality.KeySep+entity+reality.KeySep+class, true)
}

// HasA asserts an attribute: HasA("alice", "parent", "bob") writes the
// fact hasA:alice:parent:bob.
func (e *Engine) HasA(entity, attribute, value string) error {
	return e.Assert("hasA"+reality.KeySep+entity+reality.KeySep+attribute+reality.KeySep+value, true)
}

// Causes adds a causal edge in the active reality.
func (e *Engine) Causes(cause, effect string, mech causal.Mechanism) error {
	r, err := e.activeOrErr()
	if err != nil {
		return err
	}
	r.Causal().AddCause(cause, effect, mech)
	e.cache.Purge()
	return nil
}

// StateSpace declares the allowed value set for a causal node in the
// active reality.
func (e *Engine) StateSpace(name string, domain []any) error {
	r, err := e.activeOrErr()
	if err != nil {
		return err
	}
	if err := r.Causal().StateSpace(name, domain); err != nil {
		return err
	}
	e.cache.Purge()
	return nil
}

// Intervene forces a causal node's value in the active reality and
// propagates the downstream effects.
func (e *Engine) Intervene(name string, value any) error {
	r, err := e.activeOrErr()
	if err != nil {
		return err
	}
	if err := r.Causal().Intervene(name, value); err != nil {
		return err
	}
	e.cache.Purge()
	return nil
}

// State reads a causal node's effective state from the active reality;
// an active intervention takes priority over the stored state.
func (e *Engine) State(name string) (any, bool, error) {
	r, err := e.activeOrErr()
	if err != nil {
		return nil, false, err
	}
	v, ok := r.Causal().State(name)
	return v, ok, nil
}

// CreateCounterfactual returns a counterfactual builder bound to the
// active reality's causal model.
func (e *Engine) CreateCounterfactual(name string) (*causal.Counterfactual, error) {
	r, err := e.activeOrErr()
	if err != nil {
		return nil, err
	}
	return causal.NewCounterfactual(name, r.Causal()), nil
}

// AddRule registers a rule in the active reality. Overwriting an
// existing rule is allowed and warned about, not an error.
func (e *Engine) AddRule(head string, body ...reality.Condition) error {
	r, err := e.activeOrErr()
	if err != nil {
		return err
	}
	if head == "" || len(body) == 0 {
		return fmt.Errorf("%w: rule needs a head and at least one condition", internalerr.ErrInvalidInput)
	}
	if replaced := r.AddRule(head, body...); replaced {
		e.logger.Warn("rule overwritten",
			zap.String("reality", r.Name),
			zap.String("head", head))
	}
	e.cache.Purge()
	return nil
}

// Query resolves a goal against the active reality. Result shapes:
// NoSolution when the goal is false, Verified for a successful ground
// call, otherwise one binding map or the ordered list of them.
func (e *Engine) Query(goal string, args ...any) (resolve.Result, error) {
	r, err := e.activeOrErr()
	if err != nil {
		return resolve.Result{}, err
	}

	key := cacheKey(r.Name, goal, args)
	if res, ok := e.cache.Get(key); ok {
		return res, nil
	}
	res, err := e.resolver.Query(r, goal, args...)
	if err != nil {
		return resolve.Result{}, err
	}
	e.cache.Add(key, res)
	return res, nil
}

// QueryWhere is Query with binding constraints on named variables: a
// solution binding a constrained variable to a refused value is
// dropped. Constraints are opaque functions, so constrained queries
// bypass the result cache.
func (e *Engine) QueryWhere(goal string, where map[string]term.Constraint, args ...any) (resolve.Result, error) {
	r, err := e.activeOrErr()
	if err != nil {
		return resolve.Result{}, err
	}
	return e.resolver.QueryWhere(r, goal, where, args...)
}

// RegisterPredicate installs a native predicate on the resolver,
// dispatched ahead of facts and rules.
func (e *Engine) RegisterPredicate(name string, p resolve.Predicate) {
	e.resolver.Register(name, p)
	e.cache.Purge()
}

// Infer is Query with a weaker fallback: when resolution fails, it
// scans the active reality's rules for any whose head could still
// derive the goal (matching predicate, arity, and ground argument
// slots), reporting that the goal is derivable in principle.
func (e *Engine) Infer(goal string, args ...any) (bool, error) {
	res, err := e.Query(goal, args...)
	if err != nil {
		return false, err
	}
	if res.Truthy() {
		return true, nil
	}

	r, _ := e.activeOrErr()
	for _, rl := range r.RulesFor(goal) {
		if rl.Arity() == len(args) && headAdmits(rl.Head, args) {
			return true, nil
		}
	}
	return false, nil
}

// headAdmits checks ground call arguments against the head's constant
// slots; variable slots admit anything.
func headAdmits(head string, args []any) bool {
	seg := splitKey(head)
	for i, a := range args {
		slot := seg[i+1]
		if term.IsVarName(slot) {
			continue
		}
		at := term.FromValue(a)
		if at.Kind == term.Variable {
			continue
		}
		if !term.Equal(term.Parse(slot), at) {
			return false
		}
	}
	return true
}

// ApplyKnowledge loads a declarative knowledge base into the engine:
// it creates (or switches to) the named reality and applies state
// spaces, facts, causal edges, and rules, resolving mechanisms through
// the engine's registry.
func (e *Engine) ApplyKnowledge(k *config.Knowledge) error {
	if k.Reality != "" {
		if !e.SwitchReality(k.Reality) {
			if err := e.CreateReality(k.Reality); err != nil {
				return err
			}
			e.SwitchReality(k.Reality)
		}
	}
	if _, err := e.activeOrErr(); err != nil {
		return err
	}

	for name, domain := range k.StateSpaces {
		if err := e.StateSpace(name, domain); err != nil {
			return err
		}
	}
	for key, value := range k.Facts {
		if err := e.Assert(key, value); err != nil {
			return err
		}
	}
	for _, c := range k.Causes {
		mech, err := e.mechanisms.Mechanism(c.Mechanism)
		if err != nil {
			return err
		}
		if err := e.Causes(c.Cause, c.Effect, mech); err != nil {
			return err
		}
	}
	for _, rl := range k.Rules {
		body := make([]reality.Condition, len(rl.Body))
		for i, g := range rl.Body {
			body[i] = reality.Goal(g)
		}
		if err := e.AddRule(rl.Head, body...); err != nil {
			return err
		}
	}
	return nil
}

func cacheKey(realityName, goal string, args []any) string {
	return fmt.Sprintf("%s|%s|%v", realityName, goal, args)
}

func containsSep(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == reality.KeySep[0] {
			return true
		}
	}
	return false
}

func splitKey(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == reality.KeySep[0] {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}
