package pack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/jptmoore/beingdb/internal/encoding"
)

// fsStore is the filesystem-backed Store implementation: one subdirectory
// per predicate, one file per encoded fact, and a manifest.json carrying
// the generation id and per-predicate metadata.
type fsStore struct {
	dir      string
	manifest *Manifest
}

// Open opens an existing pack directory for reading. The returned Store is
// safe for concurrent use by many query handlers: shared, read-only,
// thread/task safe under reads — nothing about a compiled pack is ever
// mutated after Open.
func Open(dir string) (Store, error) {
	m, err := readManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("pack: open %s: %w", dir, err)
	}
	return &fsStore{dir: dir, manifest: m}, nil
}

func (s *fsStore) Generation() string {
	return s.manifest.ID
}

func (s *fsStore) ListPredicates() []string {
	names := make([]string, 0, len(s.manifest.Predicates))
	for name := range s.manifest.Predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *fsStore) ListPredicatesWithArity() []PredicateInfo {
	out := make([]PredicateInfo, 0, len(s.manifest.Predicates))
	for name, entry := range s.manifest.Predicates {
		out = append(out, PredicateInfo{Name: name, Arity: entry.Arity})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *fsStore) Arity(name string) (int, bool) {
	entry, ok := s.manifest.Predicates[name]
	if !ok {
		return 0, false
	}
	return entry.Arity, true
}

// Scan enumerates a predicate's fact files in sorted-filename order, which
// is deterministic across repeated scans of the same snapshot: result order
// is deterministic given the pack's key order. Each iteration checks ctx
// before reading the next file — the suspension point the join engine
// relies on to make its deadline and cap guards effective.
func (s *fsStore) Scan(ctx context.Context, name string, visit VisitFunc) error {
	if _, ok := s.manifest.Predicates[name]; !ok {
		return nil
	}

	predDir := filepath.Join(s.dir, name)
	entries, err := os.ReadDir(predDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("pack: scan %s: %w", name, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, fname := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()

		data, err := os.ReadFile(filepath.Join(predDir, fname))
		if err != nil {
			return fmt.Errorf("pack: read fact file %s/%s: %w", name, fname, err)
		}
		pathSegment, blob, err := decodeFactFile(data)
		if err != nil {
			// A corrupted fact file degrades to "no fact here", matching the
			// decoder's own silent-degradation posture.
			continue
		}
		args := encoding.Decode(pathSegment, blob)

		keepGoing, err := visit(Fact{Args: args})
		if err != nil {
			return err
		}
		if !keepGoing {
			return nil
		}
	}

	return nil
}

func (s *fsStore) Close() error {
	return nil
}
