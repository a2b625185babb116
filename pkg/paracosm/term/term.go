package term

import (
	"fmt"
	"strconv"
	"strings"
)

// Sigil marks a segment or argument as a logic variable ("$Name").
const Sigil = "$"

// Kind discriminates the shapes a Term can take.
type Kind int

const (
	Atom Kind = iota
	Number
	List
	Variable
)

func (k Kind) String() string {
	switch k {
	case Atom:
		return "atom"
	case Number:
		return "number"
	case List:
		return "list"
	case Variable:
		return "variable"
	}
	return "unknown"
}

// Term is the tagged value the unifier and resolver operate on.
// Exactly one of the payload fields is meaningful, selected by Kind.
type Term struct {
	Kind  Kind
	Str   string  // Atom payload
	Num   float64 // Number payload
	Items []*Term // List payload
	Name  string  // Variable name, without the sigil
}

// NewAtom wraps a string constant.
func NewAtom(s string) *Term { return &Term{Kind: Atom, Str: s} }

// NewNumber wraps a numeric constant.
func NewNumber(n float64) *Term { return &Term{Kind: Number, Num: n} }

// NewList wraps an ordered sequence of terms.
func NewList(items ...*Term) *Term { return &Term{Kind: List, Items: items} }

// NewVar creates an unbound variable. The name is stored without the sigil.
func NewVar(name string) *Term {
	return &Term{Kind: Variable, Name: strings.TrimPrefix(name, Sigil)}
}

// IsVarName reports whether a raw string spells a variable ("$Name").
func IsVarName(s string) bool {
	return len(s) > len(Sigil) && strings.HasPrefix(s, Sigil)
}

// FromValue wraps a raw Go value as a Term. Strings beginning with the
// sigil become variables; slices become lists, recursively.
func FromValue(v any) *Term {
	switch x := v.(type) {
	case nil:
		return NewAtom("")
	case *Term:
		return x
	case Term:
		return &x
	case string:
		if IsVarName(x) {
			return NewVar(x)
		}
		return NewAtom(x)
	case bool:
		if x {
			return NewAtom("true")
		}
		return NewAtom("false")
	case int:
		return NewNumber(float64(x))
	case int64:
		return NewNumber(float64(x))
	case float64:
		return NewNumber(x)
	case []any:
		items := make([]*Term, len(x))
		for i, e := range x {
			items[i] = FromValue(e)
		}
		return NewList(items...)
	case []*Term:
		return NewList(x...)
	default:
		return NewAtom(fmt.Sprint(x))
	}
}

// Value converts a ground term back to a plain Go value
// (string, float64, or []any). Variables convert to their sigiled name.
func (t *Term) Value() any {
	switch t.Kind {
	case Atom:
		return t.Str
	case Number:
		return t.Num
	case List:
		out := make([]any, len(t.Items))
		for i, e := range t.Items {
			out[i] = e.Value()
		}
		return out
	case Variable:
		return Sigil + t.Name
	}
	return nil
}

// IsGround reports whether the term contains no variables.
func (t *Term) IsGround() bool {
	switch t.Kind {
	case Variable:
		return false
	case List:
		for _, e := range t.Items {
			if !e.IsGround() {
				return false
			}
		}
	}
	return true
}

// Equal reports structural equality of two terms. Variables are equal
// only to themselves (same name).
func Equal(a, b *Term) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Atom:
		return a.Str == b.Str
	case Number:
		return a.Num == b.Num
	case Variable:
		return a.Name == b.Name
	case List:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the term in fact-key syntax: atoms and numbers plain,
// variables sigiled, lists bracketed.
func (t *Term) String() string {
	switch t.Kind {
	case Atom:
		return t.Str
	case Number:
		return strconv.FormatFloat(t.Num, 'f', -1, 64)
	case Variable:
		return Sigil + t.Name
	case List:
		parts := make([]string, len(t.Items))
		for i, e := range t.Items {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return ""
}

// Parse reads a single fact-key segment back into a term: numbers,
// sigiled variables, [a,b,c] lists, everything else an atom.
func Parse(s string) *Term {
	s = strings.TrimSpace(s)
	if IsVarName(s) {
		return NewVar(s)
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return NewNumber(n)
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner := strings.TrimSpace(s[1 : len(s)-1])
		if inner == "" {
			return NewList()
		}
		parts := splitTop(inner)
		items := make([]*Term, len(parts))
		for i, p := range parts {
			items[i] = Parse(p)
		}
		return NewList(items...)
	}
	return NewAtom(s)
}

// splitTop splits on commas not nested inside brackets.
func splitTop(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
