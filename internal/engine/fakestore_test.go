package engine

import (
	"context"

	"github.com/jptmoore/beingdb/internal/fact"
	"github.com/jptmoore/beingdb/internal/pack"
)

// fakeStore is a minimal in-memory pack.Store for engine tests, avoiding any
// filesystem dependency: pack.Store is an interface precisely so tests can
// substitute a fake like this one.
type fakeStore struct {
	generation string
	facts      map[string][][]fact.Arg
}

func newFakeStore() *fakeStore {
	return &fakeStore{generation: "test-generation", facts: map[string][][]fact.Arg{}}
}

func (f *fakeStore) add(predicate string, args ...string) {
	argVals := make([]fact.Arg, len(args))
	for i, a := range args {
		argVals[i] = fact.Arg{Kind: fact.Atom, Text: a}
	}
	f.facts[predicate] = append(f.facts[predicate], argVals)
}

func (f *fakeStore) addString(predicate string, atom, str string) {
	f.facts[predicate] = append(f.facts[predicate], []fact.Arg{
		{Kind: fact.Atom, Text: atom},
		{Kind: fact.String, Text: str},
	})
}

func (f *fakeStore) Generation() string { return f.generation }

func (f *fakeStore) ListPredicates() []string {
	var out []string
	for name := range f.facts {
		out = append(out, name)
	}
	return out
}

func (f *fakeStore) ListPredicatesWithArity() []pack.PredicateInfo {
	var out []pack.PredicateInfo
	for name, facts := range f.facts {
		arity := 0
		if len(facts) > 0 {
			arity = len(facts[0])
		}
		out = append(out, pack.PredicateInfo{Name: name, Arity: arity})
	}
	return out
}

func (f *fakeStore) Arity(name string) (int, bool) {
	facts, ok := f.facts[name]
	if !ok {
		return 0, false
	}
	if len(facts) == 0 {
		return 0, true
	}
	return len(facts[0]), true
}

func (f *fakeStore) Scan(ctx context.Context, name string, visit pack.VisitFunc) error {
	for _, args := range f.facts[name] {
		if err := ctx.Err(); err != nil {
			return err
		}
		keepGoing, err := visit(pack.Fact{Args: args})
		if err != nil {
			return err
		}
		if !keepGoing {
			return nil
		}
	}
	return nil
}

func (f *fakeStore) Close() error { return nil }
