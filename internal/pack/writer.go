package pack

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jptmoore/beingdb/internal/encoding"
	"github.com/jptmoore/beingdb/internal/fact"
)

// Writer builds a fresh pack snapshot in a temporary directory beside the
// target pack directory, committing it into place only once the whole
// compile succeeds. The pack is built fresh: every write goes to a new,
// empty staging directory, and any prior contents at pack_dir are replaced
// only when Commit renames the staging directory into place. The compile
// pipeline owns a distinct, freshly-created handle in write mode and
// releases it before the serving process opens the directory — a Writer is
// never shared with a Store.
//
// A Writer is single-writer by construction: nothing in this package
// defends against two Writers targeting the same finalDir concurrently:
// that is a programmer error the caller (internal/compiler) is expected to
// guard against with a filesystem lock if needed.
type Writer struct {
	finalDir string
	tmpDir   string
	manifest *Manifest
	dirsMade map[string]bool
}

// NewWriter creates the temporary staging directory for a new pack
// generation. Nothing at finalDir is touched until Commit.
func NewWriter(finalDir string) (*Writer, error) {
	parent := filepath.Dir(finalDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("pack: create parent of %s: %w", finalDir, err)
	}
	tmpDir, err := os.MkdirTemp(parent, filepath.Base(finalDir)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("pack: create staging dir: %w", err)
	}
	return &Writer{
		finalDir: finalDir,
		tmpDir:   tmpDir,
		manifest: &Manifest{ID: uuid.NewString(), Predicates: map[string]PredicateEntry{}},
		dirsMade: map[string]bool{},
	}, nil
}

// Generation returns this pack's UUID generation id.
func (w *Writer) Generation() string {
	return w.manifest.ID
}

// EnsurePredicate registers name in the manifest with arity 0 and zero facts
// if it has no entry yet. Called once per source file so that a predicate
// file with no valid lines still appears in list_predicates.
func (w *Writer) EnsurePredicate(name string) {
	if _, ok := w.manifest.Predicates[name]; !ok {
		w.manifest.Predicates[name] = PredicateEntry{}
	}
}

// WriteFact encodes args and stores it under predicate. Arity uniformity is
// the caller's (internal/compiler's) responsibility; WriteFact trusts its
// caller and records whatever arity it is given.
func (w *Writer) WriteFact(predicate string, args []fact.Arg) error {
	if !w.dirsMade[predicate] {
		if err := os.MkdirAll(filepath.Join(w.tmpDir, predicate), 0o755); err != nil {
			return fmt.Errorf("pack: create predicate dir %s: %w", predicate, err)
		}
		w.dirsMade[predicate] = true
	}

	pathSegment, blob := encoding.Encode(args)
	fname := factFileName(pathSegment)
	data := encodeFactFile(pathSegment, blob)
	if err := os.WriteFile(filepath.Join(w.tmpDir, predicate, fname), data, 0o644); err != nil {
		return fmt.Errorf("pack: write fact in %s: %w", predicate, err)
	}

	entry := w.manifest.Predicates[predicate]
	entry.Arity = len(args)
	entry.Count++
	w.manifest.Predicates[predicate] = entry

	return nil
}

// DiscardPredicate removes any facts already staged for a predicate and
// leaves it registered at arity 0, count 0 — used when a predicate file
// turns out to mix arities and the caller decides to write zero facts for
// that predicate.
func (w *Writer) DiscardPredicate(name string) error {
	if w.dirsMade[name] {
		if err := os.RemoveAll(filepath.Join(w.tmpDir, name)); err != nil {
			return fmt.Errorf("pack: discard predicate %s: %w", name, err)
		}
		delete(w.dirsMade, name)
	}
	w.manifest.Predicates[name] = PredicateEntry{}
	return nil
}

// Commit writes the manifest and atomically (best-effort, same filesystem)
// renames the staging directory into place, replacing any prior pack at
// finalDir. Call this only once the whole compile has succeeded: a
// compile with any arity violation must call Abort instead, so that partial
// packs from failed compiles are never served — this holds by construction
// since a failed compile never reaches Commit, leaving the previously
// served pack (if any) untouched.
func (w *Writer) Commit() error {
	if err := writeManifest(w.tmpDir, w.manifest); err != nil {
		return fmt.Errorf("pack: write manifest: %w", err)
	}

	if err := os.RemoveAll(w.finalDir); err != nil {
		return fmt.Errorf("pack: remove previous pack at %s: %w", w.finalDir, err)
	}
	if err := os.Rename(w.tmpDir, w.finalDir); err != nil {
		return fmt.Errorf("pack: commit %s: %w", w.finalDir, err)
	}
	return nil
}

// Abort discards the staging directory without touching finalDir.
func (w *Writer) Abort() error {
	return os.RemoveAll(w.tmpDir)
}
