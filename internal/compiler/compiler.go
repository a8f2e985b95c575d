// Package compiler implements the compile pipeline: turning a directory of
// predicate source files into a fresh pack snapshot.
//
// Follows mangle.Engine.LoadSchema's read file -> parse -> validate ->
// commit pipeline shape and its error-collection style around AddFacts.
// Predicate files are read and parsed concurrently, bounded by
// golang.org/x/sync/errgroup; the pack.Writer itself is written to
// sequentially afterward since it is not safe for concurrent use.
package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jptmoore/beingdb/internal/fact"
	"github.com/jptmoore/beingdb/internal/pack"
)

const maxSampleLines = 5

// maxConcurrentFileReads bounds how many predicate files are parsed at
// once; writing them into the pack remains single-threaded regardless.
const maxConcurrentFileReads = 8

// PredicateResult reports one predicate file's compile outcome.
type PredicateResult struct {
	Predicate    string
	FactsWritten int
	InvalidLines int
	Failed       bool
	FailureLines []string // up to maxSampleLines representative lines, when Failed is true
}

// Summary is the compile pipeline's end-of-run report.
type Summary struct {
	Predicates       []PredicateResult
	TotalFactsWritten int
	FailedPredicates []string
}

// Compile reads every predicate file directly under sourceDir — a flat
// directory importer; subdirectories are not recursed into — parses and
// arity-checks each, and writes the valid ones into a freshly created pack
// at packDir.
//
// The new pack is committed only if every predicate compiled cleanly: any
// arity violation aborts the whole commit rather than serving a pack with
// some predicates missing, so a partial pack from a failed compile is never
// served. Compile still returns a full Summary describing what succeeded
// and what failed; the caller decides the process exit code from
// len(Summary.FailedPredicates) > 0.
func Compile(ctx context.Context, sourceDir, packDir string, logger *zap.Logger) (*Summary, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("compiler: read source dir %s: %w", sourceDir, err)
	}

	var fileNames []string
	for _, e := range entries {
		if !e.IsDir() {
			fileNames = append(fileNames, e.Name())
		}
	}
	sort.Strings(fileNames)

	parsed := make([]*parsedFile, len(fileNames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFileReads)

	for i, name := range fileNames {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pf, err := parsePredicateFile(filepath.Join(sourceDir, name), predicateName(name))
			if err != nil {
				return fmt.Errorf("compiler: %s: %w", name, err)
			}
			parsed[i] = pf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w, err := pack.NewWriter(packDir)
	if err != nil {
		return nil, fmt.Errorf("compiler: create pack writer: %w", err)
	}

	summary := &Summary{}

	for _, pf := range parsed {
		w.EnsurePredicate(pf.predicate)

		if logger != nil {
			for _, line := range pf.invalidLines {
				logger.Warn("malformed fact line skipped",
					zap.String("predicate", pf.predicate), zap.String("line", line))
			}
		}

		result := PredicateResult{
			Predicate:    pf.predicate,
			InvalidLines: len(pf.invalidLines),
		}

		if len(pf.aritiesSeen) > 1 {
			result.Failed = true
			result.FailureLines = pf.sampleLines(maxSampleLines)
			if err := w.DiscardPredicate(pf.predicate); err != nil {
				_ = w.Abort()
				return nil, fmt.Errorf("compiler: discard %s: %w", pf.predicate, err)
			}
			summary.FailedPredicates = append(summary.FailedPredicates, pf.predicate)
			if logger != nil {
				logger.Error("predicate has mixed arities, writing zero facts",
					zap.String("predicate", pf.predicate),
					zap.Int("arities", len(pf.aritiesSeen)),
					zap.Strings("samples", result.FailureLines))
			}
		} else {
			for _, args := range pf.validFacts {
				if err := w.WriteFact(pf.predicate, args); err != nil {
					_ = w.Abort()
					return nil, fmt.Errorf("compiler: write fact in %s: %w", pf.predicate, err)
				}
			}
			result.FactsWritten = len(pf.validFacts)
			summary.TotalFactsWritten += result.FactsWritten
		}

		summary.Predicates = append(summary.Predicates, result)
	}

	if len(summary.FailedPredicates) > 0 {
		if err := w.Abort(); err != nil {
			return nil, fmt.Errorf("compiler: abort after failures: %w", err)
		}
		return summary, nil
	}

	if err := w.Commit(); err != nil {
		return nil, fmt.Errorf("compiler: commit pack: %w", err)
	}

	return summary, nil
}

// predicateName derives a predicate name from a source file name: its
// basename with a trailing ".pl" suffix stripped.
func predicateName(fileName string) string {
	return strings.TrimSuffix(fileName, ".pl")
}

type parsedFile struct {
	predicate    string
	validFacts   [][]fact.Arg
	invalidLines []string
	aritiesSeen  map[int][]string // arity -> sample raw lines sharing it
}

func (pf *parsedFile) sampleLines(max int) []string {
	var out []string
	for _, lines := range pf.aritiesSeen {
		out = append(out, lines...)
		if len(out) >= max {
			break
		}
	}
	sort.Strings(out)
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func parsePredicateFile(path, predicate string) (*parsedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	pf := &parsedFile{
		predicate:   predicate,
		aritiesSeen: map[int][]string{},
	}

	for _, line := range strings.Split(string(data), "\n") {
		f, ok := fact.ParseLine(line)
		if !ok {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "%") || strings.HasPrefix(trimmed, "#") {
				continue
			}
			pf.invalidLines = append(pf.invalidLines, trimmed)
			continue
		}

		arity := len(f.Args)
		if len(pf.aritiesSeen[arity]) < maxSampleLines {
			pf.aritiesSeen[arity] = append(pf.aritiesSeen[arity], strings.TrimSpace(line))
		}
		pf.validFacts = append(pf.validFacts, f.Args)
	}

	return pf, nil
}
