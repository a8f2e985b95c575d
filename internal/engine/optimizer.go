package engine

import (
	"sort"

	"github.com/jptmoore/beingdb/internal/query"
)

// Optimize stable-sorts q.Patterns descending by number of non-wildcard,
// non-variable terms (the more selective patterns run first) and recomputes
// Variables in the resulting first-occurrence order. It never mutates q.
func Optimize(q *query.Query) *query.Query {
	patterns := make([]query.Pattern, len(q.Patterns))
	copy(patterns, q.Patterns)

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].NonWildcardConstants() > patterns[j].NonWildcardConstants()
	})

	return &query.Query{
		Patterns:  patterns,
		Variables: firstOccurrenceVariables(patterns),
	}
}

func firstOccurrenceVariables(patterns []query.Pattern) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		for _, t := range p.Terms {
			if t.Kind == query.TermVar && !seen[t.Text] {
				seen[t.Text] = true
				out = append(out, t.Text)
			}
		}
	}
	return out
}
