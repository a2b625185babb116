// Package explain builds structured, explainable cards out of query
// results: what was asked, what came back, and which facts and rules
// grounded each solution.
package explain

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/paracosm/pkg/paracosm/resolve"
)

// Builder constructs explainable result cards
type Builder struct {
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New creates a new card builder
func New() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Card represents one explained query result
type Card struct {
	ID        string
	Goal      string
	Args      []string
	Outcome   string
	Bindings  []map[string]any
	Facts     []string // fact keys that matched
	Rules     []string // rule heads that fired
	Builtins  []string
	MaxDepth  int
	CreatedAt time.Time
}

// Build folds a result and its provenance trace into a card.
func (b *Builder) Build(goal string, args []any, res resolve.Result) Card {
	id := ulid.MustNew(ulid.Timestamp(b.now()), b.entropy)

	card := Card{
		ID:        id.String(),
		Goal:      goal,
		Outcome:   res.Kind.String(),
		Bindings:  res.Solutions(),
		CreatedAt: b.now(),
	}
	for _, a := range args {
		card.Args = append(card.Args, fmt.Sprint(a))
	}

	facts := map[string]struct{}{}
	rules := map[string]struct{}{}
	builtins := map[string]struct{}{}
	for _, s := range res.Steps {
		switch s.Kind {
		case "fact":
			facts[s.Source] = struct{}{}
		case "rule":
			rules[s.Source] = struct{}{}
		case "builtin":
			builtins[s.Source] = struct{}{}
		}
		if s.Depth > card.MaxDepth {
			card.MaxDepth = s.Depth
		}
	}
	card.Facts = sorted(facts)
	card.Rules = sorted(rules)
	card.Builtins = sorted(builtins)
	return card
}

// Render produces a short human-readable summary of a card.
func (c Card) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s(%s) => %s", c.Goal, strings.Join(c.Args, ", "), c.Outcome)
	for _, binding := range c.Bindings {
		keys := make([]string, 0, len(binding))
		for k := range binding {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, binding[k])
		}
		fmt.Fprintf(&sb, "\n  %s", strings.Join(parts, ", "))
	}
	if len(c.Rules) > 0 {
		fmt.Fprintf(&sb, "\n  via rules: %s", strings.Join(c.Rules, "; "))
	}
	if len(c.Facts) > 0 {
		fmt.Fprintf(&sb, "\n  via facts: %s", strings.Join(c.Facts, "; "))
	}
	return sb.String()
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
