package explain

import (
	"strings"
	"testing"

	"github.com/cognicore/paracosm/pkg/paracosm/resolve"
)

func TestBuild(t *testing.T) {
	b := New()
	res := resolve.Result{
		Kind:     resolve.ManyBindings,
		Bindings: []map[string]any{{"Who": "bob"}, {"Who": "carol"}},
		Steps: []resolve.Step{
			{Kind: "rule", Source: "ancestor:$A:$D", Depth: 1},
			{Kind: "fact", Source: "hasA:bob:parent:alice", Depth: 2},
			{Kind: "fact", Source: "hasA:carol:parent:bob", Depth: 2},
			{Kind: "rule", Source: "ancestor:$X:$Z", Depth: 1},
			{Kind: "fact", Source: "hasA:bob:parent:alice", Depth: 3},
		},
	}

	card := b.Build("ancestor", []any{"alice", "$Who"}, res)

	if card.ID == "" {
		t.Error("card should carry an id")
	}
	if card.Goal != "ancestor" || len(card.Args) != 2 || card.Args[1] != "$Who" {
		t.Errorf("unexpected goal/args: %s %v", card.Goal, card.Args)
	}
	if card.Outcome != "bindings" {
		t.Errorf("unexpected outcome: %q", card.Outcome)
	}
	if len(card.Bindings) != 2 {
		t.Errorf("expected 2 bindings, got %v", card.Bindings)
	}
	// Provenance is deduplicated and sorted.
	if len(card.Facts) != 2 || card.Facts[0] != "hasA:bob:parent:alice" {
		t.Errorf("unexpected facts: %v", card.Facts)
	}
	if len(card.Rules) != 2 {
		t.Errorf("unexpected rules: %v", card.Rules)
	}
	if card.MaxDepth != 3 {
		t.Errorf("expected max depth 3, got %d", card.MaxDepth)
	}
	if card.CreatedAt.IsZero() {
		t.Error("card should be timestamped")
	}
}

func TestBuildIDsAreUnique(t *testing.T) {
	b := New()
	res := resolve.Result{Kind: resolve.Verified}

	a := b.Build("isA", []any{"alice", "person"}, res)
	c := b.Build("isA", []any{"alice", "person"}, res)
	if a.ID == c.ID {
		t.Error("consecutive cards should get distinct ids")
	}
}

func TestRender(t *testing.T) {
	b := New()
	res := resolve.Result{
		Kind:    resolve.OneBinding,
		Binding: map[string]any{"Who": "bob", "Age": 40.0},
		Steps: []resolve.Step{
			{Kind: "fact", Source: "age:bob", Depth: 1},
		},
	}
	card := b.Build("age", []any{"$Who", "$Age"}, res)
	out := card.Render()

	if !strings.HasPrefix(out, "age($Who, $Age) => binding") {
		t.Errorf("unexpected header: %q", out)
	}
	// Binding keys render sorted.
	if !strings.Contains(out, "Age=40, Who=bob") {
		t.Errorf("expected sorted binding line, got %q", out)
	}
	if !strings.Contains(out, "via facts: age:bob") {
		t.Errorf("expected fact provenance, got %q", out)
	}
}
