package resolve

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/paracosm/pkg/paracosm/internalerr"
	"github.com/cognicore/paracosm/pkg/paracosm/reality"
	"github.com/cognicore/paracosm/pkg/paracosm/term"
)

func family() *reality.Reality {
	r := reality.New("family")
	r.AssertFact("isA:alice:person", true)
	r.AssertFact("hasA:alice:parent:bob", true)
	r.AssertFact("hasA:bob:parent:carol", true)
	r.AddRule("ancestor:$A:$D", reality.Goal("hasA:$D:parent:$A"))
	r.AddRule("ancestor:$X:$Z",
		reality.Goal("hasA:$Z:parent:$P"),
		reality.Goal("ancestor:$X:$P"))
	return r
}

func TestNilRealityIsAnError(t *testing.T) {
	e := New(Options{})
	_, err := e.Query(nil, "isA", "alice", "person")
	if !errors.Is(err, internalerr.ErrNoActiveReality) {
		t.Errorf("expected ErrNoActiveReality, got %v", err)
	}
}

func TestGroundFactVerification(t *testing.T) {
	e := New(Options{})
	r := family()

	res, err := e.Query(r, "isA", "alice", "person")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != Verified {
		t.Errorf("expected Verified, got %v", res.Kind)
	}

	res, err = e.Query(r, "isA", "bob", "person")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != NoSolution {
		t.Errorf("expected NoSolution, got %v", res.Kind)
	}
}

func TestFactPatternBinding(t *testing.T) {
	e := New(Options{})
	r := family()

	res, err := e.Query(r, "hasA", "alice", "parent", "$P")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != OneBinding {
		t.Fatalf("expected OneBinding, got %v", res.Kind)
	}
	if diff := cmp.Diff(map[string]any{"P": "bob"}, res.Binding); diff != "" {
		t.Errorf("binding mismatch (-want +got):\n%s", diff)
	}
}

func TestFactValueBinding(t *testing.T) {
	e := New(Options{})
	r := reality.New("weather")
	r.AssertFact("temperature", 72)

	res, err := e.Query(r, "temperature", "$T")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != OneBinding {
		t.Fatalf("expected OneBinding, got %v", res.Kind)
	}
	if diff := cmp.Diff(map[string]any{"T": 72.0}, res.Binding); diff != "" {
		t.Errorf("binding mismatch (-want +got):\n%s", diff)
	}
}

func TestRepeatedVariableMustAgree(t *testing.T) {
	e := New(Options{})
	r := reality.New("likes")
	r.AssertFact("likes:echo:narcissus", true)
	r.AssertFact("likes:narcissus:narcissus", true)

	res, err := e.Query(r, "likes", "$X", "$X")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != OneBinding {
		t.Fatalf("expected exactly one solution, got %v", res.Kind)
	}
	if res.Binding["X"] != "narcissus" {
		t.Errorf("expected X=narcissus, got %v", res.Binding["X"])
	}
}

func TestTransitiveAncestorRule(t *testing.T) {
	e := New(Options{})
	r := family()

	res, err := e.Query(r, "ancestor", "carol", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != Verified {
		t.Errorf("carol should be a transitive ancestor of alice, got %v", res.Kind)
	}

	res, err = e.Query(r, "ancestor", "alice", "carol")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != NoSolution {
		t.Errorf("alice is not an ancestor of carol, got %v", res.Kind)
	}
}

func TestRuleEnumeratesAllGroundings(t *testing.T) {
	e := New(Options{})
	r := family()

	res, err := e.Query(r, "ancestor", "$Who", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != ManyBindings {
		t.Fatalf("expected ManyBindings, got %v", res.Kind)
	}

	var got []string
	for _, b := range res.Bindings {
		got = append(got, b["Who"].(string))
	}
	sort.Strings(got)
	want := []string{"bob", "carol"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ancestors mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateSolutionsSuppressed(t *testing.T) {
	e := New(Options{})
	r := reality.New("dup")
	r.AssertFact("hasA:alice:parent:bob", true)
	// Two rules that derive the same grounding through different paths.
	r.AddRule("parentOf:$P:$C", reality.Goal("hasA:$C:parent:$P"))
	r.AddRule("parentOf:$A:$B", reality.Goal("hasA:$B:parent:$A"))

	res, err := e.Query(r, "parentOf", "$P", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != OneBinding {
		t.Fatalf("identical binding sets should collapse to one, got %v", res.Kind)
	}
	if res.Binding["P"] != "bob" {
		t.Errorf("expected P=bob, got %v", res.Binding["P"])
	}
}

func TestBidirectionalAdd(t *testing.T) {
	e := New(Options{})
	r := reality.New("math")

	res, err := e.Query(r, "add", 5, 3, "$Result")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != OneBinding || res.Binding["Result"] != 8.0 {
		t.Errorf("add(5,3,$Result): expected Result=8, got %v", res)
	}

	res, err = e.Query(r, "add", "$X", 3, 8)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != OneBinding || res.Binding["X"] != 5.0 {
		t.Errorf("add($X,3,8): expected X=5, got %v", res)
	}

	res, err = e.Query(r, "add", "$X", "$Y", 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != ManyBindings {
		t.Fatalf("add($X,$Y,10): expected ManyBindings, got %v", res.Kind)
	}
	if len(res.Bindings) != 11 {
		t.Fatalf("expected 11 splits of 10, got %d", len(res.Bindings))
	}
	for _, b := range res.Bindings {
		if b["X"].(float64)+b["Y"].(float64) != 10 {
			t.Errorf("split does not sum to 10: %v", b)
		}
	}

	res, err = e.Query(r, "add", 2, 2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != NoSolution {
		t.Errorf("add(2,2,5) should fail, got %v", res.Kind)
	}
}

func TestSubAndMulSolveOneUnknown(t *testing.T) {
	e := New(Options{})
	r := reality.New("math")

	res, err := e.Query(r, "sub", 10, "$Y", 4)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != OneBinding || res.Binding["Y"] != 6.0 {
		t.Errorf("sub(10,$Y,4): expected Y=6, got %v", res)
	}

	res, err = e.Query(r, "mul", "$X", 4, 20)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != OneBinding || res.Binding["X"] != 5.0 {
		t.Errorf("mul($X,4,20): expected X=5, got %v", res)
	}

	// Division by zero has no solution, not an error.
	res, err = e.Query(r, "mul", "$X", 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != NoSolution {
		t.Errorf("mul($X,0,20) should fail, got %v", res.Kind)
	}
}

func TestListBuiltins(t *testing.T) {
	e := New(Options{})
	r := reality.New("lists")

	res, err := e.Query(r, "cons", 1, []any{2, 3}, "$Result")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{1.0, 2.0, 3.0}, res.Binding["Result"]); diff != "" {
		t.Errorf("cons mismatch (-want +got):\n%s", diff)
	}

	res, err = e.Query(r, "head", []any{1, 2, 3}, "$First")
	if err != nil {
		t.Fatal(err)
	}
	if res.Binding["First"] != 1.0 {
		t.Errorf("head: expected 1, got %v", res.Binding["First"])
	}

	res, err = e.Query(r, "tail", []any{1, 2, 3}, "$Rest")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{2.0, 3.0}, res.Binding["Rest"]); diff != "" {
		t.Errorf("tail mismatch (-want +got):\n%s", diff)
	}

	res, err = e.Query(r, "append", []any{1, 2}, []any{3, 4}, "$Result")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{1.0, 2.0, 3.0, 4.0}, res.Binding["Result"]); diff != "" {
		t.Errorf("append mismatch (-want +got):\n%s", diff)
	}

	res, err = e.Query(r, "head", []any{}, "$First")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != NoSolution {
		t.Errorf("head of empty list should fail, got %v", res.Kind)
	}
}

func TestAppendEnumeratesSplits(t *testing.T) {
	e := New(Options{})
	r := reality.New("lists")

	res, err := e.Query(r, "append", "$A", "$B", []any{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != ManyBindings || len(res.Bindings) != 3 {
		t.Fatalf("expected 3 splits, got %v", res)
	}
	first := res.Bindings[0]
	if diff := cmp.Diff([]any{}, first["A"]); diff != "" {
		t.Errorf("first split A mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{1.0, 2.0}, first["B"]); diff != "" {
		t.Errorf("first split B mismatch (-want +got):\n%s", diff)
	}
}

func TestMember(t *testing.T) {
	e := New(Options{})
	r := reality.New("lists")

	res, err := e.Query(r, "member", 2, []any{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != Verified {
		t.Errorf("member(2,[1,2,3]) should verify, got %v", res.Kind)
	}

	res, err = e.Query(r, "member", "$X", []any{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != ManyBindings || len(res.Bindings) != 2 {
		t.Errorf("member($X,[1,2]) should enumerate both, got %v", res)
	}
}

func TestNativeRuleCondition(t *testing.T) {
	e := New(Options{})
	r := reality.New("native")
	r.AssertFact("age:alice", 30)
	r.AssertFact("age:bob", 12)
	r.AddRule("adult:$Who",
		reality.Goal("age:$Who:$Years"),
		reality.Native(func(b map[string]any) bool {
			years, ok := b["Years"].(float64)
			return ok && years >= 18
		}))

	res, err := e.Query(r, "adult", "$Who")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != OneBinding || res.Binding["Who"] != "alice" {
		t.Errorf("expected only alice to be adult, got %v", res)
	}
}

func TestRuleRepeatedCallVariableMustAgree(t *testing.T) {
	e := New(Options{})
	r := reality.New("selfparent")
	r.AssertFact("hasA:alice:parent:bob", true)
	r.AddRule("parentOf:$P:$C", reality.Goal("hasA:$C:parent:$P"))

	// alice's parent is bob, so no one is their own parent yet.
	res, err := e.Query(r, "parentOf", "$X", "$X")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != NoSolution {
		t.Fatalf("parentOf($X,$X) over distinct parent/child should fail, got %v with %v", res.Kind, res.Binding)
	}

	r.AssertFact("hasA:ouroboros:parent:ouroboros", true)
	res, err = e.Query(r, "parentOf", "$X", "$X")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != OneBinding || res.Binding["X"] != "ouroboros" {
		t.Errorf("expected only the self-parent to match, got %v", res)
	}
}

func TestRuleConstantSlotAgainstRepeatedVariable(t *testing.T) {
	e := New(Options{})
	r := reality.New("pin")
	r.AssertFact("hasA:alice:parent:bob", true)
	r.AddRule("bobChild:bob:$C", reality.Goal("hasA:$C:parent:bob"))

	// The same call variable covers a constant slot and a head variable:
	// both sources must resolve to one value.
	res, err := e.Query(r, "bobChild", "$X", "$X")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != NoSolution {
		t.Errorf("bob is not his own child, got %v", res.Kind)
	}
}

func TestRecursionLimit(t *testing.T) {
	e := New(Options{MaxDepth: 10})
	r := reality.New("loop")
	r.AddRule("loop:$X", reality.Goal("loop:$X"))

	_, err := e.Query(r, "loop", "anything")
	if !errors.Is(err, internalerr.ErrRecursionLimit) {
		t.Errorf("expected ErrRecursionLimit, got %v", err)
	}
}

func TestSolutionLimit(t *testing.T) {
	e := New(Options{MaxSolutions: 5})
	r := reality.New("math")

	_, err := e.Query(r, "add", "$X", "$Y", 10)
	if !errors.Is(err, internalerr.ErrSolutionLimit) {
		t.Errorf("expected ErrSolutionLimit, got %v", err)
	}
}

func TestQueryWhereFiltersFactBindings(t *testing.T) {
	e := New(Options{})
	r := reality.New("census")
	r.AssertFact("age:alice", 30)
	r.AssertFact("age:bob", 12)

	res, err := e.QueryWhere(r, "age",
		map[string]term.Constraint{"Years": term.Range(18, 120)},
		"$Who", "$Years")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != OneBinding {
		t.Fatalf("expected one constrained solution, got %v", res)
	}
	if res.Binding["Who"] != "alice" || res.Binding["Years"] != 30.0 {
		t.Errorf("expected Who=alice Years=30, got %v", res.Binding)
	}
}

func TestQueryWhereFiltersRuleProjections(t *testing.T) {
	e := New(Options{})
	r := reality.New("census")
	r.AssertFact("age:alice", 30)
	r.AssertFact("age:bob", 41)
	// Rules bind the call variable through head projection, so the
	// constraint must still apply to the projected solution.
	r.AddRule("elder:$Who",
		reality.Goal("age:$Who:$Years"),
		reality.Native(func(b map[string]any) bool {
			years, ok := b["Years"].(float64)
			return ok && years >= 18
		}))

	res, err := e.QueryWhere(r, "elder",
		map[string]term.Constraint{"X": term.OneOf("alice")},
		"$X")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != OneBinding || res.Binding["X"] != "alice" {
		t.Errorf("expected the constraint to keep only alice, got %v", res)
	}
}

func TestProvenanceSteps(t *testing.T) {
	e := New(Options{})
	r := family()

	res, err := e.Query(r, "ancestor", "carol", "alice")
	if err != nil {
		t.Fatal(err)
	}
	var sawFact, sawRule bool
	for _, s := range res.Steps {
		switch s.Kind {
		case "fact":
			sawFact = true
		case "rule":
			sawRule = true
		}
	}
	if !sawFact || !sawRule {
		t.Errorf("expected fact and rule steps in trace, got %v", res.Steps)
	}
}
