package engine

import (
	"context"
	"errors"
	"runtime"

	"github.com/jptmoore/beingdb/internal/pack"
	"github.com/jptmoore/beingdb/internal/query"
)

// visitFunc receives one complete binding. Returning keepGoing=false stops
// all further recursion — the streaming join's early cutoff.
type visitFunc func(Binding) (keepGoing bool, err error)

// budget tracks the candidate-binding counter against the configured
// intermediate-result cap. It is shared by reference across an entire join
// so every recursion depth contributes to the same count.
type budget struct {
	count int
	max   int
}

func (b *budget) tick() error {
	b.count++
	if b.count > b.max {
		return errIntermediateCap
	}
	return nil
}

// resolvePattern substitutes a partial binding into pat's terms, producing
// the concrete matcher list query_predicate expects: Atom/String map to
// their content, Wildcard maps to "_", a bound Var maps to β[v], and an
// unbound Var maps to "_".
func resolvePattern(pat query.Pattern, b Binding) []Matcher {
	out := make([]Matcher, len(pat.Terms))
	for i, t := range pat.Terms {
		switch t.Kind {
		case query.TermWildcard:
			out[i] = Wild()
		case query.TermVar:
			if v, ok := b[t.Text]; ok {
				out[i] = Lit(v)
			} else {
				out[i] = Wild()
			}
		default: // TermAtom, TermString
			out[i] = Lit(t.Text)
		}
	}
	return out
}

// extend resolves fact f's arguments against pat's terms and b, returning
// the extended binding. A bound variable that would be rebound to a
// different value is a conflict; such branches are pruned (ok=false).
func extend(f pack.Fact, pat query.Pattern, b Binding) (Binding, bool) {
	if len(f.Args) != len(pat.Terms) {
		return nil, false
	}

	ext := make(Binding, len(b)+len(pat.Terms))
	for k, v := range b {
		ext[k] = v
	}

	for i, t := range pat.Terms {
		switch t.Kind {
		case query.TermWildcard:
			continue
		case query.TermVar:
			if existing, bound := ext[t.Text]; bound {
				if existing != f.Args[i].Text {
					return nil, false
				}
			} else {
				ext[t.Text] = f.Args[i].Text
			}
		default: // TermAtom, TermString: resolvePattern always turns these
			// into literal matchers, so facts reaching here through join have
			// already passed this check in the scan; it is repeated here.
			if f.Args[i].Text != t.Text {
				return nil, false
			}
		}
	}

	return ext, true
}

// join is the streaming nested-loop join at the heart of execute/
// execute_streaming: for pattern patterns[idx], scan the pack for facts
// matching the binding-resolved pattern, extend the binding per match, and
// recurse. A yield happens at the top of every recursion step (here) and at
// every fact visited during the scan (pack.Store.Scan) — the cooperative
// suspension points needed so a deadline or intermediate-cap breach can
// actually interrupt a runaway join.
func join(ctx context.Context, store pack.Store, patterns []query.Pattern, idx int, b Binding, bud *budget, visit visitFunc) (bool, error) {
	runtime.Gosched()
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if idx == len(patterns) {
		return visit(b)
	}

	pat := patterns[idx]
	pattern := resolvePattern(pat, b)

	keepGoing := true
	scanErr := store.Scan(ctx, pat.Name, func(f pack.Fact) (bool, error) {
		if !matches(f.Args, pattern) {
			return true, nil
		}
		if err := bud.tick(); err != nil {
			return false, err
		}

		ext, ok := extend(f, pat, b)
		if !ok {
			return true, nil
		}

		kg, err := join(ctx, store, patterns, idx+1, ext, bud, visit)
		if err != nil {
			return false, err
		}
		keepGoing = kg
		return kg, nil
	})
	if scanErr != nil {
		if errors.Is(scanErr, context.DeadlineExceeded) {
			return false, newQueryError(CodeTimeout, "query exceeded its deadline")
		}
		return false, scanErr
	}

	return keepGoing, nil
}
