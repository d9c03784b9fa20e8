package parser

import (
	"testing"

	"github.com/ardnew/shale/lang"
)

func TestCacheValidate(t *testing.T) {
	engine := newTestEngine(t)
	cache := NewCache(0)

	src := []byte("nope 1")

	errs := cache.Validate(engine, src)
	if len(errs) == 0 {
		t.Fatal("unknown command validated clean")
	}

	// The second lookup is a hit.
	cached, ok := cache.Diagnostics(engine, src)
	if !ok {
		t.Fatal("diagnostics were not cached")
	}

	if len(cached) != len(errs) {
		t.Errorf("cached %d diagnostics, want %d", len(cached), len(errs))
	}

	if clean := cache.Validate(engine, []byte("echo hi")); len(clean) != 0 {
		t.Errorf("valid source produced diagnostics: %v", clean)
	}
}

func TestCacheInvalidatedByMerge(t *testing.T) {
	engine := newTestEngine(t)
	cache := NewCache(0)

	src := []byte("nope 1")

	if errs := cache.Validate(engine, src); len(errs) == 0 {
		t.Fatal("undeclared command validated clean")
	}

	ws := lang.NewWorkingSet(engine)
	Parse(ws, []byte("def nope [n: int] { echo $n }"))

	if len(ws.Errors) > 0 {
		t.Fatalf("definition failed to parse: %v", ws.Errors)
	}

	if err := engine.Merge(ws.Delta()); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}

	// The merge changed the visible scope, so the stale entry no longer
	// keys; revalidation sees the new declaration.
	if _, ok := cache.Diagnostics(engine, src); ok {
		t.Error("pre-merge diagnostics survived the scope change")
	}

	if errs := cache.Validate(engine, src); len(errs) != 0 {
		t.Errorf("declared command still fails validation: %v", errs)
	}
}

func TestCacheValidateDoesNotCommit(t *testing.T) {
	engine := newTestEngine(t)
	cache := NewCache(0)

	before := engine.NumDecls()

	if errs := cache.Validate(engine, []byte("def f [] { echo hi }")); len(errs) != 0 {
		t.Fatalf("definition failed to validate: %v", errs)
	}

	// Validation parses against a throwaway working set.
	if _, ok := engine.FindDecl("f"); ok {
		t.Error("validation committed a declaration")
	}

	if engine.NumDecls() != before {
		t.Errorf("engine grew from %d to %d decls", before, engine.NumDecls())
	}
}
