package lang

import (
	"strings"
	"testing"
)

// stubCommand is a minimal Command for scope and merge tests.
type stubCommand struct {
	sig *Signature
}

func (c *stubCommand) Name() string          { return c.sig.Name }
func (c *stubCommand) Signature() *Signature { return c.sig }

func (c *stubCommand) Run(
	_ *EngineState, _ *Stack, _ *Call, _ PipelineData,
) (PipelineData, error) {
	return Empty(), nil
}

func stub(name string) Command {
	return &stubCommand{sig: NewSignature(name)}
}

func TestWorkingSetDeltaVisibility(t *testing.T) {
	engine := NewEngineState()
	ws := NewWorkingSet(engine)

	id := ws.AddDecl(stub("greet"))

	// Visible inside the parse before any merge.
	got, ok := ws.FindDecl("greet")
	if !ok || got != id {
		t.Fatalf("FindDecl(greet) = %v, %v; want %v, true", got, ok, id)
	}

	// Invisible to the engine until merged.
	if _, ok := engine.FindDecl("greet"); ok {
		t.Fatal("unmerged declaration leaked into the engine")
	}
}

func TestWorkingSetRollbackByNotMerging(t *testing.T) {
	engine := NewEngineState()

	ws := NewWorkingSet(engine)
	ws.AddDecl(stub("doomed"))
	ws.AddVariable("x", TypeInt, false)
	// The working set goes out of scope without Merge; nothing commits.

	if engine.NumDecls() != 0 || engine.NumVars() != 0 {
		t.Fatalf("engine has %d decls and %d vars, want 0 and 0",
			engine.NumDecls(), engine.NumVars())
	}

	// A fresh parse allocates the same ids the discarded one did.
	next := NewWorkingSet(engine)
	if id := next.AddDecl(stub("kept")); id != 0 {
		t.Errorf("first decl id after rollback = %v, want 0", id)
	}
}

func TestMergeCommitsTopLevelNames(t *testing.T) {
	engine := NewEngineState()

	ws := NewWorkingSet(engine)
	declID := ws.AddDecl(stub("greet"))
	varID := ws.AddVariable("x", TypeInt, false)
	ws.SetConstant(varID, intVal(7))

	if err := engine.Merge(ws.Delta()); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}

	if got, ok := engine.FindDecl("greet"); !ok || got != declID {
		t.Errorf("FindDecl(greet) = %v, %v; want %v, true", got, ok, declID)
	}

	if v := engine.GetVar(varID); v == nil || v.Const == nil || v.Const.Int != 7 {
		t.Error("merged constant did not survive")
	}
}

func TestMergeConflictOnStaleDelta(t *testing.T) {
	engine := NewEngineState()

	stale := NewWorkingSet(engine)
	stale.AddDecl(stub("first"))

	fresh := NewWorkingSet(engine)
	fresh.AddDecl(stub("second"))

	if err := engine.Merge(fresh.Delta()); err != nil {
		t.Fatalf("Merge(fresh) error: %v", err)
	}

	// The stale delta was built against the pre-merge arena sizes; its baked
	// ids would dangle, so the merge must refuse.
	err := engine.Merge(stale.Delta())
	if err == nil {
		t.Fatal("Merge() accepted a stale delta")
	}

	if !strings.Contains(err.Error(), "conflicting declaration") {
		t.Errorf("Merge() error = %q, want a merge conflict", err)
	}

	// The refused merge committed nothing.
	if engine.NumDecls() != 1 {
		t.Errorf("engine has %d decls after refused merge, want 1", engine.NumDecls())
	}
}

func TestWorkingSetScopes(t *testing.T) {
	engine := NewEngineState()
	ws := NewWorkingSet(engine)

	outer := ws.AddVariable("x", TypeInt, false)

	ws.EnterScope()

	inner := ws.AddVariable("x", TypeString, false)
	if got, _ := ws.FindVariable("x"); got != inner {
		t.Errorf("inner FindVariable(x) = %v, want %v", got, inner)
	}

	ws.ExitScope()

	if got, _ := ws.FindVariable("x"); got != outer {
		t.Errorf("outer FindVariable(x) = %v, want %v", got, outer)
	}

	// Arena entries survive scope exit so ids baked into expressions stay
	// valid; only name resolution is scoped.
	if v := ws.GetVar(inner); v == nil || v.Type != TypeString {
		t.Error("inner variable's arena entry vanished on scope exit")
	}
}

func TestWorkingSetScopedDeclsStayLocal(t *testing.T) {
	engine := NewEngineState()
	ws := NewWorkingSet(engine)

	ws.EnterScope()
	ws.AddDecl(stub("inner"))
	ws.ExitScope()

	ws.AddDecl(stub("outer"))

	if err := engine.Merge(ws.Delta()); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}

	// Only the top-level frame's names commit; the scoped name is gone even
	// though its arena entry merged.
	if _, ok := engine.FindDecl("inner"); ok {
		t.Error("scoped declaration leaked into the permanent name table")
	}

	if _, ok := engine.FindDecl("outer"); !ok {
		t.Error("top-level declaration did not commit")
	}
}

func TestWorkingSetIDsContinueEngineNumbering(t *testing.T) {
	engine := NewEngineState()

	first := NewWorkingSet(engine)
	first.AddDecl(stub("a"))

	if err := engine.Merge(first.Delta()); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}

	second := NewWorkingSet(engine)
	if id := second.AddDecl(stub("b")); id != 1 {
		t.Errorf("second parse's first decl id = %v, want 1", id)
	}

	// Lookup through the working set reaches both layers.
	if _, ok := second.FindDecl("a"); !ok {
		t.Error("engine declaration invisible through the working set")
	}

	if _, ok := second.FindDecl("b"); !ok {
		t.Error("delta declaration invisible through the working set")
	}
}

func TestWorkingSetDeclNames(t *testing.T) {
	engine := NewEngineState()

	setup := NewWorkingSet(engine)
	setup.AddDecl(stub("shared"))

	if err := engine.Merge(setup.Delta()); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}

	ws := NewWorkingSet(engine)
	ws.AddDecl(stub("shared")) // shadows the engine's entry
	ws.AddDecl(stub("fresh"))

	names := ws.DeclNames()

	seen := make(map[string]int)
	for _, name := range names {
		seen[name]++
	}

	if seen["shared"] != 1 {
		t.Errorf("DeclNames() lists shared %d times, want 1", seen["shared"])
	}

	if seen["fresh"] != 1 {
		t.Errorf("DeclNames() lists fresh %d times, want 1", seen["fresh"])
	}
}
