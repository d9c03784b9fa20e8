package lang

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Variable is one declared variable: its name, inferred type, mutability,
// and, for parse-time constants, the folded value.
type Variable struct {
	Name    string
	Type    Type
	Mutable bool
	Const   *Value
}

// EngineState owns the permanent arenas of declarations, blocks, and
// variables, plus the top-level name tables resolving into them. It is
// shared read-mostly across a session; mutation happens only by merging a
// WorkingSet delta in an exclusive window.
type EngineState struct {
	mu sync.RWMutex

	decls  []Command
	blocks []*Block
	vars   []Variable

	declNames map[string]DeclID
	varNames  map[string]VarID
	aliases   map[string]*Call

	env map[string]Value

	// Evaluator runs blocks on behalf of user-defined commands. It is set
	// once at startup before any evaluation.
	Evaluator BlockEvaluator

	// Cancel is the session-wide cooperative cancellation flag, polled
	// between stream-pull steps.
	Cancel *atomic.Bool
}

// NewEngineState creates an empty engine.
func NewEngineState() *EngineState {
	return &EngineState{
		declNames: make(map[string]DeclID),
		varNames:  make(map[string]VarID),
		aliases:   make(map[string]*Call),
		env:       make(map[string]Value),
		Cancel:    new(atomic.Bool),
	}
}

// NumDecls returns the number of committed declarations.
func (e *EngineState) NumDecls() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.decls)
}

// NumBlocks returns the number of committed blocks.
func (e *EngineState) NumBlocks() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.blocks)
}

// NumVars returns the number of committed variables.
func (e *EngineState) NumVars() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.vars)
}

// GetDecl retrieves a committed declaration by id, or nil.
func (e *EngineState) GetDecl(id DeclID) Command {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if int(id) < 0 || int(id) >= len(e.decls) {
		return nil
	}

	return e.decls[id]
}

// GetBlock retrieves a committed block by id, or nil.
func (e *EngineState) GetBlock(id BlockID) *Block {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if int(id) < 0 || int(id) >= len(e.blocks) {
		return nil
	}

	return e.blocks[id]
}

// GetVar retrieves a committed variable by id, or nil.
func (e *EngineState) GetVar(id VarID) *Variable {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if int(id) < 0 || int(id) >= len(e.vars) {
		return nil
	}

	return &e.vars[id]
}

// FindDecl resolves a command name in the permanent scope.
func (e *EngineState) FindDecl(name string) (DeclID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	id, ok := e.declNames[name]

	return id, ok
}

// FindVariable resolves a variable name in the permanent scope.
func (e *EngineState) FindVariable(name string) (VarID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	id, ok := e.varNames[name]

	return id, ok
}

// FindAlias resolves an alias to the call it expands into.
func (e *EngineState) FindAlias(name string) (*Call, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	call, ok := e.aliases[name]

	return call, ok
}

// DeclNames returns every visible command name, for completion and
// "did you mean" ranking.
func (e *EngineState) DeclNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.declNames))
	for name := range e.declNames {
		names = append(names, name)
	}

	return names
}

// GetEnv retrieves a default environment value.
func (e *EngineState) GetEnv(name string) (Value, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	val, ok := e.env[name]

	return val, ok
}

// SetEnv stores a default environment value.
func (e *EngineState) SetEnv(name string, val Value) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.env[name] = val
}

// EnvMap returns a copy of the default environment.
func (e *EngineState) EnvMap() map[string]Value {
	e.mu.RLock()
	defer e.mu.RUnlock()

	env := make(map[string]Value, len(e.env))
	for k, v := range e.env {
		env[k] = v
	}

	return env
}

// Merge commits a parse's delta atomically. The delta must have been built
// against the engine's current arena sizes: if another merge landed first,
// the ids baked into the delta's blocks would dangle, so the merge is
// refused and the caller re-parses.
//
// On any error nothing is committed; a failed parse simply never calls
// Merge, which is what makes rollback free.
func (e *EngineState) Merge(delta *StateDelta) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if delta.baseDecls != len(e.decls) ||
		delta.baseBlocks != len(e.blocks) ||
		delta.baseVars != len(e.vars) {
		return ErrMergeConflict.
			With(slog.Int("expected_decls", delta.baseDecls)).
			With(slog.Int("actual_decls", len(e.decls)))
	}

	e.decls = append(e.decls, delta.decls...)
	e.blocks = append(e.blocks, delta.blocks...)
	e.vars = append(e.vars, delta.vars...)

	for name, id := range delta.topDecls() {
		e.declNames[name] = id
	}

	for name, id := range delta.topVars() {
		e.varNames[name] = id
	}

	for name, call := range delta.topAliases() {
		e.aliases[name] = call
	}

	return nil
}
