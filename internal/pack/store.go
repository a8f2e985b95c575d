// Package pack implements the "pack contract": an immutable,
// content-addressed snapshot with path->value semantics, read by the query
// engine and written exactly once by the compile pipeline.
//
// The underlying KV is treated as an external collaborator, with no such
// service available to import here, so this package supplies a concrete
// filesystem-backed adapter exposing the same shape: a two-level path
// (predicate name, encoded args), a fresh-mode writer, and a read-only,
// concurrency-safe reader.
package pack

import (
	"context"
	"errors"

	"github.com/jptmoore/beingdb/internal/fact"
)

// ErrNoSuchPredicate names the condition of a predicate absent from the
// pack. Store.Scan does not return it: scanning an absent predicate visits
// zero facts and returns nil.
var ErrNoSuchPredicate = errors.New("pack: no such predicate")

// Fact is one decoded stored tuple, read back through internal/encoding.
type Fact struct {
	Args []fact.Arg
}

// PredicateInfo pairs a predicate name with its fixed arity
// (list_predicates_with_arity).
type PredicateInfo struct {
	Name  string
	Arity int
}

// VisitFunc is called once per fact while scanning a predicate. Returning
// keepGoing=false stops the scan early — the streaming join's cutoff.
// Returning a non-nil error aborts the scan and propagates.
type VisitFunc func(f Fact) (keepGoing bool, err error)

// Store is the read side of the pack contract: everything the query engine
// needs from a compiled snapshot. Expressed as an interface so tests can
// substitute an in-memory fake instead of touching the filesystem.
type Store interface {
	// Generation is the compile-stamped UUID identifying this snapshot.
	Generation() string

	// ListPredicates returns every predicate name in the pack, in no
	// particular order.
	ListPredicates() []string

	// ListPredicatesWithArity returns every predicate paired with its
	// arity (0 for an empty predicate).
	ListPredicatesWithArity() []PredicateInfo

	// Arity reports a predicate's fixed arity. ok is false if the
	// predicate is absent from the pack.
	Arity(name string) (arity int, ok bool)

	// Scan visits every fact stored under name, in a stable, deterministic
	// order, until visit returns keepGoing=false, an error, or the facts
	// are exhausted. ctx is checked between facts as the scan's
	// suspension/cooperative-yield point. Scanning an absent predicate
	// visits zero facts and returns nil, not an error.
	Scan(ctx context.Context, name string, visit VisitFunc) error

	// Close releases any resources held by the store.
	Close() error
}
