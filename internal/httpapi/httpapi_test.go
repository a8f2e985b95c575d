package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jptmoore/beingdb/internal/engine"
	"github.com/jptmoore/beingdb/internal/fact"
	"github.com/jptmoore/beingdb/internal/pack"
)

// fakeStore is a minimal in-memory pack.Store, local to this package's
// tests for the same reason internal/engine keeps its own fake: pack.Store
// is an interface precisely so callers can substitute one.
type fakeStore struct {
	facts map[string][][]fact.Arg
}

func newFakeStore() *fakeStore {
	return &fakeStore{facts: map[string][][]fact.Arg{}}
}

func (f *fakeStore) add(predicate string, args ...string) {
	vals := make([]fact.Arg, len(args))
	for i, a := range args {
		vals[i] = fact.Arg{Kind: fact.Atom, Text: a}
	}
	f.facts[predicate] = append(f.facts[predicate], vals)
}

func (f *fakeStore) Generation() string { return "test-generation" }

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

func newTestServer(store pack.Store, maxResults, maxConcurrent int) *Server {
	logger := zap.NewNop()
	eng := engine.New(store, engine.Safety{QueryTimeout: time.Second, MaxIntermediateResults: 1000})
	return New(eng, Info{Name: "beingdb", Version: "test"}, maxResults, maxConcurrent, logger)
}

func TestHandleRoot(t *testing.T) {
	srv := newTestServer(newFakeStore(), 100, 10)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("body = %q, want %q", w.Body.String(), "OK")
	}
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServer(newFakeStore(), 100, 10)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["name"] != "beingdb" || body["version"] != "test" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandlePredicates(t *testing.T) {
	store := newFakeStore()
	store.add("created", "tina_keane", "she")
	srv := newTestServer(store, 100, 10)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/predicates", nil))

	var body struct {
		Predicates []struct {
			Name  string
			Arity int
		}
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Predicates) != 1 || body.Predicates[0].Name != "created" || body.Predicates[0].Arity != 2 {
		t.Errorf("predicates = %+v", body.Predicates)
	}
}

func TestHandleQueryPredicateReturnsAllFactsUnpaginated(t *testing.T) {
	store := newFakeStore()
	store.add("created", "tina_keane", "she")
	store.add("created", "tina_keane", "faded_wallpaper")
	srv := newTestServer(store, 100, 10)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/query/created", nil))

	var body struct {
		Predicate string
		Facts     [][]string
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Predicate != "created" || len(body.Facts) != 2 {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleQueryExecutesJoinAndReturnsEnvelope(t *testing.T) {
	store := newFakeStore()
	store.add("created", "tina_keane", "she")
	store.add("shown_in", "she", "rewind_1995")
	srv := newTestServer(store, 100, 10)

	reqBody := `{"query": "created(tina_keane, Work), shown_in(Work, E)"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(reqBody))
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var env engine.Envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Total != 1 || env.Count != 1 {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Results[0]["Work"] != "she" || env.Results[0]["E"] != "rewind_1995" {
		t.Errorf("results[0] = %v", env.Results[0])
	}
}

func TestHandleQueryRejectsCartesianProductWith400(t *testing.T) {
	srv := newTestServer(newFakeStore(), 100, 10)

	reqBody := `{"query": "created(A, W), created(A, W)"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(reqBody))
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestHandleQueryRejectsMalformedBodyWith400(t *testing.T) {
	srv := newTestServer(newFakeStore(), 100, 10)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("not json"))
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAdmissionGateReturns503WhenFull(t *testing.T) {
	srv := newTestServer(newFakeStore(), 100, 1)

	// Hold the single admission slot open across the handler call by
	// acquiring it directly, simulating a saturated gate.
	if !srv.gate.TryAcquire(1) {
		t.Fatal("expected to acquire the gate directly")
	}
	defer srv.gate.Release(1)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/predicates", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestEffectiveLimitCapsAtMaxResults(t *testing.T) {
	srv := newTestServer(newFakeStore(), 10, 10)

	requested := 1000
	if got := srv.effectiveLimit(&requested); got != 10 {
		t.Errorf("effectiveLimit(1000) = %d, want 10 (server ceiling)", got)
	}

	small := 3
	if got := srv.effectiveLimit(&small); got != 3 {
		t.Errorf("effectiveLimit(3) = %d, want 3", got)
	}

	if got := srv.effectiveLimit(nil); got != 10 {
		t.Errorf("effectiveLimit(nil) = %d, want 10", got)
	}
}
