// Package prolog renders a reality's facts and rules as ISO Prolog
// clauses and can consult them into an embedded interpreter, so ground
// goals can be cross-checked against an independent resolution engine.
package prolog

import (
	"fmt"
	"strings"

	ichiban "github.com/ichiban/prolog"

	"github.com/cognicore/paracosm/pkg/paracosm/reality"
	"github.com/cognicore/paracosm/pkg/paracosm/term"
)

// Render produces a Prolog program from a reality: one clause per
// relational fact, one clause per rule whose body holds only sub-goal
// conditions. Facts with non-true values render as binary value/2-style
// clauses: key segments become arguments, the value the last argument.
// Rules with native conditions are omitted.
func Render(r *reality.Reality) string {
	var sb strings.Builder

	for _, key := range r.FactKeys() {
		v, _ := r.Fact(key)
		seg := strings.Split(key, reality.KeySep)
		if b, ok := v.(bool); ok && b {
			sb.WriteString(clause(seg[0], seg[1:], ""))
			continue
		}
		args := append(append([]string{}, seg[1:]...), fmt.Sprint(v))
		sb.WriteString(clause(seg[0], args, ""))
	}

	for _, head := range r.RuleHeads() {
		rl, _ := r.Rule(head)
		goals := make([]string, 0, len(rl.Body))
		renderable := true
		for _, c := range rl.Body {
			if c.Native != nil {
				renderable = false
				break
			}
			gseg := strings.Split(c.Goal, reality.KeySep)
			goals = append(goals, callTerm(gseg[0], gseg[1:]))
		}
		if !renderable {
			continue
		}
		hseg := strings.Split(head, reality.KeySep)
		sb.WriteString(clause(hseg[0], hseg[1:], strings.Join(goals, ", ")))
	}

	return sb.String()
}

// clause renders "pred(args)." or "pred(args) :- body.".
func clause(pred string, args []string, body string) string {
	head := callTerm(pred, args)
	if body == "" {
		return head + ".\n"
	}
	return head + " :- " + body + ".\n"
}

// callTerm renders one goal, mapping $Var segments to Prolog variables
// and quoting atoms that need it.
func callTerm(pred string, args []string) string {
	if len(args) == 0 {
		return atom(pred)
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = operand(a)
	}
	return atom(pred) + "(" + strings.Join(parts, ", ") + ")"
}

func operand(s string) string {
	if term.IsVarName(s) {
		name := strings.TrimPrefix(s, term.Sigil)
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return atom(s)
}

// atom quotes anything that is not a plain lowercase Prolog atom.
func atom(s string) string {
	if s == "" {
		return "''"
	}
	plain := s[0] >= 'a' && s[0] <= 'z'
	if plain {
		for _, r := range s {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
				plain = false
				break
			}
		}
	}
	if n := strings.TrimLeft(s, "0123456789."); len(n) == 0 && len(s) > 0 {
		return s // numeric literal
	}
	if plain {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}

// Interp wraps an embedded ichiban interpreter consulted with a
// rendered program.
type Interp struct {
	p *ichiban.Interpreter
}

// NewInterp creates an interpreter and consults the given program.
func NewInterp(program string) (*Interp, error) {
	p := ichiban.New(nil, nil)
	if err := p.Exec(program); err != nil {
		return nil, fmt.Errorf("consult: %w", err)
	}
	return &Interp{p: p}, nil
}

// FromReality renders a reality and consults it.
func FromReality(r *reality.Reality) (*Interp, error) {
	return NewInterp(Render(r))
}

// Prove runs a ground goal, e.g. `ancestor(carol, alice)`, reporting
// whether at least one solution exists.
func (i *Interp) Prove(goal string) (bool, error) {
	sols, err := i.p.Query(goal + ".")
	if err != nil {
		return false, err
	}
	defer sols.Close()

	if sols.Next() {
		return true, nil
	}
	return false, sols.Err()
}
