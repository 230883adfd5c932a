package domain

// MatchOp selects how a filter condition compares against a field.
type MatchOp int

const (
	// MatchEq is exact equality against the stored value.
	MatchEq MatchOp = iota
	// MatchSubstringCI is a case-insensitive literal substring match;
	// the value is matched as text, never as a pattern language.
	MatchSubstringCI
)

// Condition is one field constraint inside a Filter.
type Condition struct {
	Op    MatchOp
	Value interface{}
}

// Filter is a conjunction of per-field conditions. An empty filter
// matches every record.
type Filter map[string]Condition

// Eq adds an exact-match condition and returns the filter for chaining.
func (f Filter) Eq(field string, value interface{}) Filter {
	f[field] = Condition{Op: MatchEq, Value: value}
	return f
}

// SubstringCI adds a case-insensitive substring condition.
func (f Filter) SubstringCI(field, value string) Filter {
	f[field] = Condition{Op: MatchSubstringCI, Value: value}
	return f
}
