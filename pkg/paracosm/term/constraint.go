package term

// Constraint restricts which values a variable will accept. All
// constraints registered for a variable must hold before a binding
// is committed; a failing constraint is a logical failure, not an error.
type Constraint func(*Term) bool

// Range accepts numbers within [min, max].
func Range(min, max float64) Constraint {
	return func(t *Term) bool {
		return t.Kind == Number && t.Num >= min && t.Num <= max
	}
}

// OfKind accepts only terms of the given kind.
func OfKind(k Kind) Constraint {
	return func(t *Term) bool { return t.Kind == k }
}

// OneOf accepts only values from the given set.
func OneOf(values ...any) Constraint {
	allowed := make([]*Term, len(values))
	for i, v := range values {
		allowed[i] = FromValue(v)
	}
	return func(t *Term) bool {
		for _, a := range allowed {
			if Equal(a, t) {
				return true
			}
		}
		return false
	}
}
