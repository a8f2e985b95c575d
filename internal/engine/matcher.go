package engine

import "github.com/jptmoore/beingdb/internal/fact"

// Matcher is one position of a concrete pattern handed to QueryPredicate: a
// literal textual value to match, or a wildcard that matches anything.
type Matcher struct {
	Wildcard bool
	Value    string
}

// Lit builds a literal matcher.
func Lit(v string) Matcher { return Matcher{Value: v} }

// Wild builds a wildcard matcher.
func Wild() Matcher { return Matcher{Wildcard: true} }

// matches reports whether a stored fact's arguments satisfy pattern: arity
// must agree, and then pairwise either the matcher is a wildcard or its text
// equals the argument's textual content — atom/string distinction ignored.
func matches(args []fact.Arg, pattern []Matcher) bool {
	if len(args) != len(pattern) {
		return false
	}
	for i, m := range pattern {
		if m.Wildcard {
			continue
		}
		if args[i].Text != m.Value {
			return false
		}
	}
	return true
}
