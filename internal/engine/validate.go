package engine

import (
	"regexp"

	"github.com/jptmoore/beingdb/internal/query"
)

// predicateNamePattern is a predicate pattern's name grammar.
var predicateNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidateQuery runs the safety budget's checks in order: offset, then
// limit, then each predicate name, then the Cartesian-product check.
func ValidateQuery(q *query.Query, offset, limit *int) error {
	if offset != nil && *offset < 0 {
		return newQueryError(CodeInvalidOffset, "offset must be >= 0, got %d", *offset)
	}
	if limit != nil && *limit <= 0 {
		return newQueryError(CodeInvalidLimit, "limit must be > 0, got %d", *limit)
	}

	seen := make(map[string]bool, len(q.Patterns))
	for _, p := range q.Patterns {
		if !predicateNamePattern.MatchString(p.Name) {
			return newQueryError(CodeInvalidPredicateName, "invalid predicate name %q", p.Name)
		}
		if seen[p.Name] {
			return newQueryError(CodeCartesianProduct, "predicate %q appears more than once in query", p.Name)
		}
		seen[p.Name] = true
	}

	return nil
}
