package unify

import (
	"errors"
	"testing"

	"github.com/cognicore/paracosm/pkg/paracosm/internalerr"
	"github.com/cognicore/paracosm/pkg/paracosm/term"
)

func TestUnifyConstants(t *testing.T) {
	env := NewEnv(0)

	if !Unify(term.NewAtom("a"), term.NewAtom("a"), env) {
		t.Error("equal atoms should unify")
	}
	if Unify(term.NewAtom("a"), term.NewAtom("b"), env) {
		t.Error("different atoms should not unify")
	}
	if !Unify(term.NewNumber(3), term.NewNumber(3), env) {
		t.Error("equal numbers should unify")
	}
	if Unify(term.NewNumber(3), term.NewAtom("3x"), env) {
		t.Error("number and atom should not unify")
	}
}

func TestUnifyBindsVariable(t *testing.T) {
	env := NewEnv(0)

	if !Unify(term.NewVar("X"), term.NewAtom("alice"), env) {
		t.Fatal("variable should unify with atom")
	}
	got := env.Resolve(term.NewVar("X"))
	if got.Kind != term.Atom || got.Str != "alice" {
		t.Errorf("expected X bound to alice, got %v", got)
	}

	// Bound variable now only unifies with the same value.
	if Unify(term.NewVar("X"), term.NewAtom("bob"), env) {
		t.Error("bound variable should not rebind to a different value")
	}
	if !Unify(term.NewVar("X"), term.NewAtom("alice"), env) {
		t.Error("bound variable should unify with its own value")
	}
}

func TestUnifyVariableChain(t *testing.T) {
	env := NewEnv(0)

	if !Unify(term.NewVar("X"), term.NewVar("Y"), env) {
		t.Fatal("two unbound variables should unify")
	}
	if !Unify(term.NewVar("Y"), term.NewNumber(7), env) {
		t.Fatal("Y should bind to 7")
	}
	got := env.Resolve(term.NewVar("X"))
	if got.Kind != term.Number || got.Num != 7 {
		t.Errorf("X should resolve through Y to 7, got %v", got)
	}
}

func TestUnifyLists(t *testing.T) {
	env := NewEnv(0)

	a := term.NewList(term.NewNumber(1), term.NewVar("X"))
	b := term.NewList(term.NewNumber(1), term.NewAtom("two"))
	if !Unify(a, b, env) {
		t.Fatal("lists should unify elementwise")
	}
	if got := env.Resolve(term.NewVar("X")); got.Str != "two" {
		t.Errorf("X should be bound to two, got %v", got)
	}

	if Unify(term.NewList(term.NewNumber(1)), term.NewList(term.NewNumber(1), term.NewNumber(2)), NewEnv(0)) {
		t.Error("lists of different length should not unify")
	}
}

func TestOccursCheck(t *testing.T) {
	env := NewEnv(0)

	// X against [X] would build an infinite structure.
	if Unify(term.NewVar("X"), term.NewList(term.NewVar("X")), env) {
		t.Error("occurs-check should reject X = [X]")
	}

	// Indirect: X = Y, then Y against [X].
	env = NewEnv(0)
	if !Unify(term.NewVar("X"), term.NewVar("Y"), env) {
		t.Fatal("setup failed")
	}
	if Unify(term.NewVar("Y"), term.NewList(term.NewVar("X")), env) {
		t.Error("occurs-check should follow binding chains")
	}
}

func TestSameVariableUnifiesTrivially(t *testing.T) {
	env := NewEnv(0)
	if !Unify(term.NewVar("X"), term.NewVar("X"), env) {
		t.Error("a variable should unify with itself")
	}
	if _, bound := env.Lookup("X"); bound {
		t.Error("self-unification should not create a binding")
	}
}

func TestConstraintsGateBinding(t *testing.T) {
	env := NewEnv(0)
	env.Constrain("X", term.Range(0, 5))

	if Unify(term.NewVar("X"), term.NewNumber(10), env) {
		t.Error("constraint should reject 10")
	}
	if _, bound := env.Lookup("X"); bound {
		t.Error("rejected binding should not be recorded")
	}
	if !Unify(term.NewVar("X"), term.NewNumber(3), env) {
		t.Error("constraint should accept 3")
	}
}

func TestChoicePointBacktracking(t *testing.T) {
	env := NewEnv(0)
	if !Unify(term.NewVar("Base"), term.NewAtom("kept"), env) {
		t.Fatal("setup failed")
	}

	env.PushChoice([]string{"a", "b"})

	alt, ok := env.NextAlternative()
	if !ok || alt != "a" {
		t.Fatalf("expected first alternative a, got %q ok=%v", alt, ok)
	}
	if !Unify(term.NewVar("X"), term.NewAtom("bound-in-a"), env) {
		t.Fatal("binding under alternative failed")
	}

	alt, ok = env.NextAlternative()
	if !ok || alt != "b" {
		t.Fatalf("expected second alternative b, got %q ok=%v", alt, ok)
	}
	// Bindings made under the first alternative are rolled back.
	if _, bound := env.Lookup("X"); bound {
		t.Error("binding from previous alternative should be undone")
	}
	// Bindings from before the choice point survive.
	if got := env.Resolve(term.NewVar("Base")); got.Str != "kept" {
		t.Errorf("pre-choice binding lost, got %v", got)
	}

	if _, ok := env.NextAlternative(); ok {
		t.Error("exhausted choice point should report no alternative")
	}
}

func TestDepthGuard(t *testing.T) {
	env := NewEnv(3)
	for i := 0; i < 3; i++ {
		if err := env.EnterCall(); err != nil {
			t.Fatalf("unexpected error at depth %d: %v", i, err)
		}
	}
	err := env.EnterCall()
	if !errors.Is(err, internalerr.ErrRecursionLimit) {
		t.Errorf("expected ErrRecursionLimit, got %v", err)
	}
}
