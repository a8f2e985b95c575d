package engine

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/jptmoore/beingdb/internal/query"
)

func mustParse(t *testing.T, q string) *query.Query {
	t.Helper()
	parsed, ok := query.Parse(q)
	if !ok {
		t.Fatalf("query.Parse(%q) failed", q)
	}
	return Optimize(parsed)
}

// S1: single-pattern query with one free variable.
func TestExecuteSinglePatternBindsFreeVariable(t *testing.T) {
	store := newFakeStore()
	store.add("created", "tina_keane", "she")
	store.add("created", "tina_keane", "faded_wallpaper")

	eng := New(store, Safety{QueryTimeout: time.Second, MaxIntermediateResults: 1000})
	q := mustParse(t, `created(tina_keane, Work)`)

	result, err := eng.Execute(context.Background(), q)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("Total = %d, want 2", result.Total)
	}
	got := make([]string, len(result.Bindings))
	for i, b := range result.Bindings {
		got[i] = b["Work"]
	}
	want := []string{"she", "faded_wallpaper"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Bindings[%d][Work] = %q, want %q", i, got[i], want[i])
		}
	}
}

// S2: two-pattern join sharing a variable.
func TestExecuteTwoPatternJoin(t *testing.T) {
	store := newFakeStore()
	store.add("created", "tina_keane", "she")
	store.add("created", "tina_keane", "faded_wallpaper")
	store.add("shown_in", "she", "rewind_1995")
	store.add("shown_in", "faded_wallpaper", "ica_2010")

	eng := New(store, Safety{QueryTimeout: time.Second, MaxIntermediateResults: 1000})
	q := mustParse(t, `created(tina_keane, Work), shown_in(Work, E)`)

	result, err := eng.Execute(context.Background(), q)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("Total = %d, want 2", result.Total)
	}
	wantWork := []string{"she", "faded_wallpaper"}
	wantE := []string{"rewind_1995", "ica_2010"}
	for i, b := range result.Bindings {
		if b["Work"] != wantWork[i] || b["E"] != wantE[i] {
			t.Errorf("Bindings[%d] = %v, want Work=%q E=%q", i, b, wantWork[i], wantE[i])
		}
	}
}

// S3: a query over a string-typed argument.
func TestExecuteMatchesStringArgument(t *testing.T) {
	store := newFakeStore()
	store.addString("keyword", "doc_456", "neural networks")

	eng := New(store, Safety{QueryTimeout: time.Second, MaxIntermediateResults: 1000})
	q := mustParse(t, `keyword(Doc, "neural networks")`)

	result, err := eng.Execute(context.Background(), q)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Total != 1 || result.Bindings[0]["Doc"] != "doc_456" {
		t.Fatalf("result = %+v, want one binding Doc=doc_456", result)
	}
}

// S4: Cartesian-product rejection.
func TestValidateQueryRejectsCartesianProduct(t *testing.T) {
	q, ok := query.Parse(`created(A, W), created(A, W)`)
	if !ok {
		t.Fatal("parse failed")
	}
	err := ValidateQuery(q, nil, nil)
	if err == nil {
		t.Fatal("expected CartesianProduct error")
	}
	qe, ok := err.(*QueryError)
	if !ok || qe.Code != CodeCartesianProduct {
		t.Errorf("err = %v, want *QueryError{Code: CodeCartesianProduct}", err)
	}
}

// S5: pagination window with a populated Total.
func TestExecuteStreamingPaginatesAndCountsTotal(t *testing.T) {
	store := newFakeStore()
	for i := 1; i <= 10; i++ {
		store.add("data", strconv.Itoa(i))
	}

	eng := New(store, Safety{QueryTimeout: time.Second, MaxIntermediateResults: 1000})
	q := mustParse(t, `data(X)`)

	offset, limit := 5, 100
	result, err := eng.ExecuteStreaming(context.Background(), q, &offset, &limit)
	if err != nil {
		t.Fatalf("ExecuteStreaming: %v", err)
	}
	if result.Total != 10 {
		t.Errorf("Total = %d, want 10", result.Total)
	}
	if len(result.Bindings) != 5 {
		t.Fatalf("len(Bindings) = %d, want 5", len(result.Bindings))
	}
	for i, b := range result.Bindings {
		want := strconv.Itoa(i + 6)
		if b["X"] != want {
			t.Errorf("Bindings[%d][X] = %q, want %q", i, b["X"], want)
		}
	}
}

func TestValidateQueryRejectsBadPredicateName(t *testing.T) {
	q := &query.Query{Patterns: []query.Pattern{{Name: "Bad-Name"}}}
	err := ValidateQuery(q, nil, nil)
	qe, ok := err.(*QueryError)
	if !ok || qe.Code != CodeInvalidPredicateName {
		t.Errorf("err = %v, want *QueryError{Code: CodeInvalidPredicateName}", err)
	}
}

func TestValidateQueryRejectsNegativeOffsetAndNonPositiveLimit(t *testing.T) {
	q := &query.Query{Patterns: []query.Pattern{{Name: "ok"}}}

	badOffset := -1
	if err := ValidateQuery(q, &badOffset, nil); err == nil {
		t.Error("expected InvalidOffset error")
	}

	badLimit := 0
	if err := ValidateQuery(q, nil, &badLimit); err == nil {
		t.Error("expected InvalidLimit error")
	}
}

func TestIntermediateCapAbortsRunawayJoin(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 50; i++ {
		store.add("a", strconv.Itoa(i))
	}
	for i := 0; i < 50; i++ {
		store.add("b", strconv.Itoa(i))
	}

	eng := New(store, Safety{QueryTimeout: time.Second, MaxIntermediateResults: 10})
	q := mustParse(t, `a(X), b(Y)`)

	_, err := eng.Execute(context.Background(), q)
	if err == nil {
		t.Fatal("expected intermediate cap error")
	}
	qe, ok := err.(*QueryError)
	if !ok || qe.Code != CodeIntermediateCap {
		t.Errorf("err = %v, want *QueryError{Code: CodeIntermediateCap}", err)
	}
}

func TestOptimizeReordersBySelectivityAndRecomputesVariables(t *testing.T) {
	q, ok := query.Parse(`edge(A, B), point(A, "origin")`)
	if !ok {
		t.Fatal("parse failed")
	}
	opt := Optimize(q)

	if opt.Patterns[0].Name != "point" {
		t.Errorf("Patterns[0].Name = %q, want %q (more constants first)", opt.Patterns[0].Name, "point")
	}
	if len(opt.Variables) != 2 || opt.Variables[0] != "A" || opt.Variables[1] != "B" {
		t.Errorf("Variables = %v, want [A B] in post-reorder first-occurrence order", opt.Variables)
	}
}

func TestQueryPredicateNativeOffsetLimit(t *testing.T) {
	store := newFakeStore()
	for i := 1; i <= 5; i++ {
		store.add("data", strconv.Itoa(i))
	}

	eng := New(store, Safety{QueryTimeout: time.Second, MaxIntermediateResults: 1000})
	offset, limit := 1, 2
	got, err := eng.QueryPredicate(context.Background(), "data", []Matcher{Wild()}, &offset, &limit)
	if err != nil {
		t.Fatalf("QueryPredicate: %v", err)
	}
	if len(got) != 2 || got[0][0].Text != "2" || got[1][0].Text != "3" {
		t.Errorf("QueryPredicate = %+v, want [[2] [3]]", got)
	}
}

