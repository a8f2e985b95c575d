// Package engine implements the query engine and safety layer: pattern
// reordering, the streaming nested-loop join, the safety budget (deadline,
// intermediate-result cap, cooperative yield), and the result envelope.
//
// The join algorithm itself is hand-written rather than delegated to a
// Datalog library (see DESIGN.md on why google/mangle was not wired in
// here), but the atom-pattern matching and budget-threaded hot-loop shape
// follow mangle.Engine.Query/Evaluate.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/jptmoore/beingdb/internal/fact"
	"github.com/jptmoore/beingdb/internal/pack"
	"github.com/jptmoore/beingdb/internal/query"
)

// Safety holds the three configured execution guards.
type Safety struct {
	QueryTimeout           time.Duration
	MaxIntermediateResults int
}

// Engine binds a pack snapshot to a safety budget. One Engine is built at
// server startup and shared read-only across every concurrent request.
type Engine struct {
	store  pack.Store
	safety Safety
}

// New builds an Engine over an already-open pack.
func New(store pack.Store, safety Safety) *Engine {
	return &Engine{store: store, safety: safety}
}

// ListPredicates returns every predicate name in the pack.
func (e *Engine) ListPredicates() []string {
	return e.store.ListPredicates()
}

// ListPredicatesWithArity returns every predicate paired with its arity.
func (e *Engine) ListPredicatesWithArity() []pack.PredicateInfo {
	return e.store.ListPredicatesWithArity()
}

// QueryAll enumerates every fact stored under name.
func (e *Engine) QueryAll(ctx context.Context, name string) ([][]fact.Arg, error) {
	var out [][]fact.Arg
	err := e.store.Scan(ctx, name, func(f pack.Fact) (bool, error) {
		out = append(out, f.Args)
		return true, nil
	})
	return out, err
}

// QueryPredicate scans facts under name whose decoded arguments match
// pattern, applying native offset/limit during the scan — the
// single-pattern "scan-and-filter" fast path, bypassing the join machinery
// entirely.
func (e *Engine) QueryPredicate(ctx context.Context, name string, pattern []Matcher, offset, limit *int) ([][]fact.Arg, error) {
	var out [][]fact.Arg
	seen := 0
	off := 0
	if offset != nil {
		off = *offset
	}
	lim := math.MaxInt
	if limit != nil {
		lim = *limit
	}

	err := e.store.Scan(ctx, name, func(f pack.Fact) (bool, error) {
		if !matches(f.Args, pattern) {
			return true, nil
		}
		seen++
		if seen <= off {
			return true, nil
		}
		out = append(out, f.Args)
		return len(out) < lim, nil
	})
	return out, err
}

// Execute fully materializes q's bindings: no offset/limit window, every
// matching assignment is returned.
func (e *Engine) Execute(ctx context.Context, q *query.Query) (*Result, error) {
	return e.run(ctx, q, nil, nil)
}

// ExecuteStreaming runs q and keeps at most limit bindings, starting after
// the first offset complete bindings, while using
// only O(depth + |binding|) memory beyond the pack scan itself. It always
// completes a counting pass so Total is never omitted from the response
// envelope.
func (e *Engine) ExecuteStreaming(ctx context.Context, q *query.Query, offset, limit *int) (*Result, error) {
	return e.run(ctx, q, offset, limit)
}

func (e *Engine) run(ctx context.Context, q *query.Query, offset, limit *int) (*Result, error) {
	timeout := e.safety.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	off := 0
	if offset != nil {
		off = *offset
	}
	lim := math.MaxInt
	if limit != nil {
		lim = *limit
	}

	maxIntermediate := e.safety.MaxIntermediateResults
	if maxIntermediate <= 0 {
		maxIntermediate = 10_000
	}
	bud := &budget{max: maxIntermediate}

	result := &Result{Variables: q.Variables}
	seen := 0

	err := runJoin(runCtx, e.store, q.Patterns, bud, func(b Binding) (bool, error) {
		seen++
		if seen > off && len(result.Bindings) < lim {
			result.Bindings = append(result.Bindings, b)
		}
		return true, nil // keep counting even past the window, for Total
	})
	if err != nil {
		return nil, err
	}

	result.Total = seen
	return result, nil
}

// runJoin seeds the recursive join with an empty binding. A query with zero
// patterns (which query.Parse never produces, but defend anyway) yields no
// bindings.
func runJoin(ctx context.Context, store pack.Store, patterns []query.Pattern, bud *budget, visit visitFunc) error {
	if len(patterns) == 0 {
		return nil
	}
	_, err := join(ctx, store, patterns, 0, Binding{}, bud, visit)
	return err
}
