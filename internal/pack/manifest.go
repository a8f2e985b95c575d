package pack

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const manifestFile = "manifest.json"

// PredicateEntry is one predicate's manifest metadata: its fixed arity and
// how many facts it holds. Keeping these in the manifest makes
// list_predicates/list_predicates_with_arity O(1) metadata reads instead of
// directory scans.
type PredicateEntry struct {
	Arity int `json:"arity"`
	Count int `json:"count"`
}

// Manifest is the pack root's metadata file: the generation id stamped by
// compile (a github.com/google/uuid string) plus the per-predicate table.
type Manifest struct {
	ID         string                    `json:"id"`
	Predicates map[string]PredicateEntry `json:"predicates"`
}

func readManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Predicates == nil {
		m.Predicates = map[string]PredicateEntry{}
	}
	return &m, nil
}

func writeManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, manifestFile), data, 0o644)
}
