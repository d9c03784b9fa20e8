package lang

// scopeFrame is one lexical frame of parse-time name resolution. Frames are
// pushed and popped with stack discipline around blocks and closures.
type scopeFrame struct {
	decls   map[string]DeclID
	vars    map[string]VarID
	aliases map[string]*Call
}

func newScopeFrame() scopeFrame {
	return scopeFrame{
		decls:   make(map[string]DeclID),
		vars:    make(map[string]VarID),
		aliases: make(map[string]*Call),
	}
}

// StateDelta is the mutable overlay a single parse accumulates on top of
// the read-only EngineState. Ids allocated here continue the permanent
// numbering, so expressions built during the parse remain valid after the
// delta is merged.
type StateDelta struct {
	baseDecls  int
	baseBlocks int
	baseVars   int

	decls  []Command
	blocks []*Block
	vars   []Variable

	scope []scopeFrame
}

// topDecls returns the declaration names visible at the delta's top level.
func (d *StateDelta) topDecls() map[string]DeclID {
	return d.scope[0].decls
}

// topVars returns the variable names visible at the delta's top level.
func (d *StateDelta) topVars() map[string]VarID {
	return d.scope[0].vars
}

// topAliases returns the aliases visible at the delta's top level.
func (d *StateDelta) topAliases() map[string]*Call {
	return d.scope[0].aliases
}

// WorkingSet wraps a read-only view of the permanent EngineState plus the
// mutable delta of one parse. It is exclusively borrowed for the duration
// of that parse. Declarations made mid-parse become visible to later
// statements of the same parse as soon as their header is parsed, enabling
// single-pass, no-lookahead parsing.
//
// A WorkingSet's delta is invisible outside the parse until explicitly
// merged via EngineState.Merge; a failed parse discards it entirely.
type WorkingSet struct {
	Engine *EngineState

	// Errors accumulates every recoverable diagnostic from this parse.
	Errors ParseErrors

	delta StateDelta
}

// NewWorkingSet creates a working set over the engine with one open
// top-level frame.
func NewWorkingSet(engine *EngineState) *WorkingSet {
	return &WorkingSet{
		Engine: engine,
		delta: StateDelta{
			baseDecls:  engine.NumDecls(),
			baseBlocks: engine.NumBlocks(),
			baseVars:   engine.NumVars(),
			scope:      []scopeFrame{newScopeFrame()},
		},
	}
}

// Delta surrenders the accumulated overlay for merging into the engine.
func (ws *WorkingSet) Delta() *StateDelta {
	return &ws.delta
}

// Error records a recoverable diagnostic and continues the parse.
func (ws *WorkingSet) Error(err *ParseError) {
	ws.Errors = append(ws.Errors, err)
}

// EnterScope pushes a lexical frame for a block or closure body.
func (ws *WorkingSet) EnterScope() {
	ws.delta.scope = append(ws.delta.scope, newScopeFrame())
}

// ExitScope pops the innermost lexical frame. Names declared inside it stop
// resolving; the arena entries remain so ids stay valid.
func (ws *WorkingSet) ExitScope() {
	if len(ws.delta.scope) > 1 {
		ws.delta.scope = ws.delta.scope[:len(ws.delta.scope)-1]
	}
}

// AddDecl registers a command declaration in the innermost frame and
// returns its id.
func (ws *WorkingSet) AddDecl(cmd Command) DeclID {
	id := DeclID(ws.delta.baseDecls + len(ws.delta.decls))
	ws.delta.decls = append(ws.delta.decls, cmd)

	frame := &ws.delta.scope[len(ws.delta.scope)-1]
	frame.decls[cmd.Name()] = id

	return id
}

// AddBlock stores a parsed block and returns its id.
func (ws *WorkingSet) AddBlock(block *Block) BlockID {
	id := BlockID(ws.delta.baseBlocks + len(ws.delta.blocks))
	ws.delta.blocks = append(ws.delta.blocks, block)

	return id
}

// NextVarID returns the id the next declared variable will receive. Closure
// parsing marks this boundary: variables referenced below the mark were
// declared outside the closure and must be captured.
func (ws *WorkingSet) NextVarID() VarID {
	return VarID(ws.delta.baseVars + len(ws.delta.vars))
}

// AddVariable declares a variable in the innermost frame and returns its id.
func (ws *WorkingSet) AddVariable(name string, ty Type, mutable bool) VarID {
	id := VarID(ws.delta.baseVars + len(ws.delta.vars))
	ws.delta.vars = append(ws.delta.vars, Variable{
		Name:    name,
		Type:    ty,
		Mutable: mutable,
	})

	frame := &ws.delta.scope[len(ws.delta.scope)-1]
	frame.vars[name] = id

	return id
}

// AddAlias records an alias in the innermost frame. The call was parsed at
// the definition site; expansion copies it and continues parsing arguments
// against the same signature.
func (ws *WorkingSet) AddAlias(name string, call *Call) {
	frame := &ws.delta.scope[len(ws.delta.scope)-1]
	frame.aliases[name] = call
}

// SetConstant attaches a parse-time constant value to a variable.
func (ws *WorkingSet) SetConstant(id VarID, val Value) {
	if v := ws.getDeltaVar(id); v != nil {
		v.Const = &val
	}
}

// FindDecl resolves a command name, walking innermost frame to outermost,
// then the permanent engine scope.
func (ws *WorkingSet) FindDecl(name string) (DeclID, bool) {
	for i := len(ws.delta.scope) - 1; i >= 0; i-- {
		if id, ok := ws.delta.scope[i].decls[name]; ok {
			return id, true
		}
	}

	return ws.Engine.FindDecl(name)
}

// FindVariable resolves a variable name, innermost to outermost, then the
// permanent engine scope.
func (ws *WorkingSet) FindVariable(name string) (VarID, bool) {
	for i := len(ws.delta.scope) - 1; i >= 0; i-- {
		if id, ok := ws.delta.scope[i].vars[name]; ok {
			return id, true
		}
	}

	return ws.Engine.FindVariable(name)
}

// FindAlias resolves an alias name, innermost to outermost, then the
// permanent engine scope.
func (ws *WorkingSet) FindAlias(name string) (*Call, bool) {
	for i := len(ws.delta.scope) - 1; i >= 0; i-- {
		if call, ok := ws.delta.scope[i].aliases[name]; ok {
			return call, true
		}
	}

	return ws.Engine.FindAlias(name)
}

// GetDecl retrieves a declaration from the delta or the engine.
func (ws *WorkingSet) GetDecl(id DeclID) Command {
	if int(id) >= ws.delta.baseDecls {
		return ws.delta.decls[int(id)-ws.delta.baseDecls]
	}

	return ws.Engine.GetDecl(id)
}

// GetBlock retrieves a block from the delta or the engine.
func (ws *WorkingSet) GetBlock(id BlockID) *Block {
	if int(id) >= ws.delta.baseBlocks {
		return ws.delta.blocks[int(id)-ws.delta.baseBlocks]
	}

	return ws.Engine.GetBlock(id)
}

// GetVar retrieves a variable from the delta or the engine.
func (ws *WorkingSet) GetVar(id VarID) *Variable {
	if v := ws.getDeltaVar(id); v != nil {
		return v
	}

	return ws.Engine.GetVar(id)
}

func (ws *WorkingSet) getDeltaVar(id VarID) *Variable {
	if int(id) >= ws.delta.baseVars &&
		int(id)-ws.delta.baseVars < len(ws.delta.vars) {
		return &ws.delta.vars[int(id)-ws.delta.baseVars]
	}

	return nil
}

// DeclNames returns every command name visible to this parse, delta frames
// and permanent scope combined.
func (ws *WorkingSet) DeclNames() []string {
	seen := make(map[string]bool)
	names := make([]string, 0)

	for i := len(ws.delta.scope) - 1; i >= 0; i-- {
		for name := range ws.delta.scope[i].decls {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	for _, name := range ws.Engine.DeclNames() {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	return names
}
