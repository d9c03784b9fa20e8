package parser

import (
	"strings"
	"testing"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/lang/builtin"
)

func newTestEngine(t *testing.T) *lang.EngineState {
	t.Helper()

	engine := lang.NewEngineState()
	if err := builtin.AddShellDecls(engine); err != nil {
		t.Fatalf("AddShellDecls() error: %v", err)
	}

	return engine
}

func parseOne(
	t *testing.T,
	engine *lang.EngineState,
	src string,
) (*lang.WorkingSet, *lang.Block) {
	t.Helper()

	ws := lang.NewWorkingSet(engine)
	block := Parse(ws, []byte(src))

	return ws, block
}

func noErrors(t *testing.T, ws *lang.WorkingSet, src string) {
	t.Helper()

	if len(ws.Errors) > 0 {
		t.Fatalf("parse %q:\n%s", src, ws.Errors.Render(src))
	}
}

func element(t *testing.T, block *lang.Block, pipeline, elem int) *lang.Expression {
	t.Helper()

	if pipeline >= len(block.Pipelines) ||
		elem >= len(block.Pipelines[pipeline].Elements) {
		t.Fatalf("block has no element %d.%d", pipeline, elem)
	}

	return &block.Pipelines[pipeline].Elements[elem].Expr
}

func hasError(t *testing.T, ws *lang.WorkingSet, want string) {
	t.Helper()

	for _, err := range ws.Errors {
		if strings.Contains(err.Error(), want) {
			return
		}
	}

	t.Errorf("no diagnostic contains %q in %v", want, ws.Errors)
}

func TestParseCall(t *testing.T) {
	engine := newTestEngine(t)

	src := "echo hi there"
	ws, block := parseOne(t, engine, src)
	noErrors(t, ws, src)

	expr := element(t, block, 0, 0)
	if expr.Kind != lang.ExprCall {
		t.Fatalf("kind = %v, want call", expr.Kind)
	}

	echo, _ := engine.FindDecl("echo")
	if expr.Call.Decl != echo {
		t.Errorf("resolved decl %v, want echo's %v", expr.Call.Decl, echo)
	}

	if len(expr.Call.Positional) != 2 {
		t.Fatalf("%d positionals, want 2", len(expr.Call.Positional))
	}

	// Bare words in argument position parse as strings.
	for i, want := range []string{"hi", "there"} {
		arg := expr.Call.Positional[i]
		if arg.Kind != lang.ExprString || arg.Str != want {
			t.Errorf("positional %d = %+v, want string %q", i, arg, want)
		}
	}
}

func TestParseCallFlags(t *testing.T) {
	engine := newTestEngine(t)

	for _, src := range []string{
		"get name --ignore-errors",
		"get name -i",
		"get --ignore-errors name",
	} {
		t.Run(src, func(t *testing.T) {
			ws, block := parseOne(t, engine, src)
			noErrors(t, ws, src)

			call := element(t, block, 0, 0).Call

			arg := call.GetNamed("ignore-errors")
			if arg == nil {
				t.Fatal("flag not recorded on the call")
			}

			if arg.Value != nil {
				t.Error("switch carries a value")
			}

			if len(call.Positional) != 1 {
				t.Errorf("%d positionals, want 1", len(call.Positional))
			}
		})
	}
}

func TestParseCallTypedPositional(t *testing.T) {
	engine := newTestEngine(t)

	src := "first 3"
	ws, block := parseOne(t, engine, src)
	noErrors(t, ws, src)

	call := element(t, block, 0, 0).Call
	if len(call.Positional) != 1 || call.Positional[0].Kind != lang.ExprInt {
		t.Fatalf("positionals = %+v, want one int", call.Positional)
	}

	if call.Positional[0].Int != 3 {
		t.Errorf("argument = %d, want 3", call.Positional[0].Int)
	}
}

func TestShapeMismatchedPositional(t *testing.T) {
	engine := newTestEngine(t)

	// A bare word where an int is declared fails at parse time; the call
	// survives with a garbage placeholder in the argument's slot.
	ws, block := parseOne(t, engine, "first foo")
	hasError(t, ws, "expected shape")

	call := element(t, block, 0, 0).Call
	if len(call.Positional) != 1 || !call.Positional[0].IsGarbage() {
		t.Errorf("positionals = %+v, want one garbage placeholder",
			call.Positional)
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	engine := newTestEngine(t)

	ws, block := parseOne(t, engine, "ech hi")

	if len(ws.Errors) == 0 {
		t.Fatal("unknown command parsed without diagnostics")
	}

	hasError(t, ws, "unknown command")
	hasError(t, ws, "did you mean 'echo'?")

	// Recovery substitutes garbage; the block stays structurally valid.
	if expr := element(t, block, 0, 0); !expr.IsGarbage() {
		t.Errorf("recovered element kind = %v, want garbage", expr.Kind)
	}
}

func TestMultiWordCommand(t *testing.T) {
	engine := newTestEngine(t)

	src := "path add /opt/bin"
	ws, block := parseOne(t, engine, src)
	noErrors(t, ws, src)

	call := element(t, block, 0, 0).Call

	want, _ := engine.FindDecl("path add")
	if call.Decl != want {
		t.Errorf("resolved decl %v, want path add's %v", call.Decl, want)
	}

	if len(call.Positional) != 1 {
		t.Errorf("%d positionals, want 1", len(call.Positional))
	}
}

func TestLetMutConst(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("let is immutable", func(t *testing.T) {
		src := "let x = 1"
		ws, block := parseOne(t, engine, src)
		noErrors(t, ws, src)

		expr := element(t, block, 0, 0)
		if expr.Kind != lang.ExprVarDecl || expr.Inner.Kind != lang.ExprInt {
			t.Fatalf("expr = %+v, want a declaration of an int", expr)
		}

		v := ws.GetVar(expr.Var)
		if v == nil || v.Mutable {
			t.Error("let produced a mutable variable")
		}

		if v.Type != lang.TypeInt {
			t.Errorf("inferred type %v, want int", v.Type)
		}
	})

	t.Run("mut is mutable", func(t *testing.T) {
		src := "mut x = 1"
		ws, block := parseOne(t, engine, src)
		noErrors(t, ws, src)

		expr := element(t, block, 0, 0)
		if v := ws.GetVar(expr.Var); v == nil || !v.Mutable {
			t.Error("mut produced an immutable variable")
		}
	})

	t.Run("const folds literals", func(t *testing.T) {
		src := "const r = {a: 1, b: [2, 3]}"
		ws, block := parseOne(t, engine, src)
		noErrors(t, ws, src)

		expr := element(t, block, 0, 0)
		if v := ws.GetVar(expr.Var); v == nil || v.Const == nil {
			t.Error("record literal did not fold to a constant")
		}
	})

	t.Run("const refuses runtime expressions", func(t *testing.T) {
		ws, _ := parseOne(t, engine, "const n = 1 + 2")
		hasError(t, ws, "not a constant expression")
	})
}

func TestAssignment(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("mutable target", func(t *testing.T) {
		src := "mut x = 1\n$x = 2"
		ws, _ := parseOne(t, engine, src)
		noErrors(t, ws, src)
	})

	t.Run("immutable target", func(t *testing.T) {
		ws, _ := parseOne(t, engine, "let x = 1\n$x = 2")
		hasError(t, ws, "cannot assign to immutable variable")
	})

	t.Run("undeclared target", func(t *testing.T) {
		ws, _ := parseOne(t, engine, "$nope = 2")
		hasError(t, ws, "unknown variable")
	})
}

func TestLetBodyCannotSeeItself(t *testing.T) {
	engine := newTestEngine(t)

	// The variable becomes visible after its declaration, never to its own
	// right-hand side.
	ws, _ := parseOne(t, engine, "let x = $x")
	hasError(t, ws, "unknown variable")
}

func TestDefRegistersBeforeBody(t *testing.T) {
	engine := newTestEngine(t)

	src := "def fact [n: int] { if $n < 2 { echo 1 } else { fact ($n - 1) } }\n" +
		"fact 3"

	ws, block := parseOne(t, engine, src)
	noErrors(t, ws, src)

	id, ok := ws.FindDecl("fact")
	if !ok {
		t.Fatal("def did not register the declaration")
	}

	if call := element(t, block, 1, 0).Call; call.Decl != id {
		t.Errorf("later call resolved %v, want %v", call.Decl, id)
	}
}

func TestDefSignatureLiteral(t *testing.T) {
	engine := newTestEngine(t)

	src := "def f [a: int, b?, ...rest, --verbose(-v), --level: int] { echo ok }"
	ws, _ := parseOne(t, engine, src)
	noErrors(t, ws, src)

	id, ok := ws.FindDecl("f")
	if !ok {
		t.Fatal("declaration missing")
	}

	sig := ws.GetDecl(id).Signature()

	if len(sig.RequiredPositional) != 1 ||
		sig.RequiredPositional[0].Name != "a" ||
		sig.RequiredPositional[0].Shape.Kind != lang.ShapeInt {
		t.Errorf("required = %+v, want a: int", sig.RequiredPositional)
	}

	if len(sig.OptionalPositional) != 1 || sig.OptionalPositional[0].Name != "b" {
		t.Errorf("optional = %+v, want b", sig.OptionalPositional)
	}

	if sig.Rest == nil || sig.Rest.Name != "rest" {
		t.Errorf("rest = %+v, want rest", sig.Rest)
	}

	verbose := sig.GetLongFlag("verbose")
	if verbose == nil || verbose.Short != 'v' || verbose.Arg != nil {
		t.Errorf("verbose = %+v, want switch with short v", verbose)
	}

	level := sig.GetLongFlag("level")
	if level == nil || level.Arg == nil || level.Arg.Kind != lang.ShapeInt {
		t.Errorf("level = %+v, want int-valued flag", level)
	}
}

func TestAliasExpandsToCall(t *testing.T) {
	engine := newTestEngine(t)

	src := "alias hi = echo hello\nhi world"
	ws, block := parseOne(t, engine, src)
	noErrors(t, ws, src)

	call := element(t, block, 1, 0).Call

	echo, _ := engine.FindDecl("echo")
	if call.Decl != echo {
		t.Fatalf("alias resolved decl %v, want echo's %v", call.Decl, echo)
	}

	// Stored arguments come first, then the expansion site's own.
	if len(call.Positional) != 2 ||
		call.Positional[0].Str != "hello" ||
		call.Positional[1].Str != "world" {
		t.Errorf("positionals = %+v, want hello world", call.Positional)
	}
}

func TestIfKeywordArgument(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("with else", func(t *testing.T) {
		src := "if true { echo a } else { echo b }"
		ws, block := parseOne(t, engine, src)
		noErrors(t, ws, src)

		call := element(t, block, 0, 0).Call
		if len(call.Positional) != 3 {
			t.Fatalf("%d positionals, want 3", len(call.Positional))
		}

		kw := call.Positional[2]
		if kw.Kind != lang.ExprKeyword || kw.Keyword != "else" {
			t.Errorf("third positional = %+v, want else keyword", kw)
		}
	})

	t.Run("without else", func(t *testing.T) {
		src := "if true { echo a }"
		ws, block := parseOne(t, engine, src)
		noErrors(t, ws, src)

		if call := element(t, block, 0, 0).Call; len(call.Positional) != 2 {
			t.Errorf("%d positionals, want 2", len(call.Positional))
		}
	})
}

func TestListAndRecordLiterals(t *testing.T) {
	engine := newTestEngine(t)

	src := "[1, two, 3.5]"
	ws, block := parseOne(t, engine, src)
	noErrors(t, ws, src)

	list := element(t, block, 0, 0)
	if list.Kind != lang.ExprList || len(list.List) != 3 {
		t.Fatalf("expr = %+v, want a 3-item list", list)
	}

	kinds := []lang.ExprKind{lang.ExprInt, lang.ExprString, lang.ExprFloat}
	for i, want := range kinds {
		if list.List[i].Kind != want {
			t.Errorf("item %d kind = %v, want %v", i, list.List[i].Kind, want)
		}
	}

	src = "{a: 1, b: two}"
	ws, block = parseOne(t, engine, src)
	noErrors(t, ws, src)

	rec := element(t, block, 0, 0)
	if rec.Kind != lang.ExprRecord || len(rec.Record) != 2 {
		t.Fatalf("expr = %+v, want a 2-field record", rec)
	}

	if rec.Record[0].Key.Str != "a" || rec.Record[1].Key.Str != "b" {
		t.Errorf("keys = %q, %q; want a, b",
			rec.Record[0].Key.Str, rec.Record[1].Key.Str)
	}
}

func TestTableLiteral(t *testing.T) {
	engine := newTestEngine(t)

	src := "[[name, n]; [a, 1], [b, 2]]"
	ws, block := parseOne(t, engine, src)
	noErrors(t, ws, src)

	table := element(t, block, 0, 0)
	if table.Kind != lang.ExprTable {
		t.Fatalf("expr kind = %v, want table", table.Kind)
	}

	if len(table.Table.Columns) != 2 || len(table.Table.Rows) != 2 {
		t.Errorf("table = %d columns, %d rows; want 2 and 2",
			len(table.Table.Columns), len(table.Table.Rows))
	}
}

func TestTableRowLengthMismatch(t *testing.T) {
	engine := newTestEngine(t)

	ws, _ := parseOne(t, engine, "[[a, b]; [1]]")
	hasError(t, ws, "row length must match the header")
}

func TestRangeLiterals(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("exclusive", func(t *testing.T) {
		src := "1..<5"
		ws, block := parseOne(t, engine, src)
		noErrors(t, ws, src)

		expr := element(t, block, 0, 0)
		if expr.Kind != lang.ExprRange {
			t.Fatalf("kind = %v, want range", expr.Kind)
		}

		lit := expr.Range
		if lit.Inclusive {
			t.Error("..< parsed as inclusive")
		}

		if lit.From.Int != 1 || lit.To.Int != 5 || lit.Second != nil {
			t.Errorf("bounds = %+v, want 1 to 5 without a second", lit)
		}
	})

	t.Run("stepped", func(t *testing.T) {
		src := "1..3..9"
		ws, block := parseOne(t, engine, src)
		noErrors(t, ws, src)

		lit := element(t, block, 0, 0).Range
		if lit.Second == nil || lit.Second.Int != 3 {
			t.Errorf("second = %+v, want 3", lit.Second)
		}
	})

	t.Run("unbounded", func(t *testing.T) {
		src := "1.."
		ws, block := parseOne(t, engine, src)
		noErrors(t, ws, src)

		lit := element(t, block, 0, 0).Range
		if lit.From == nil || lit.To != nil {
			t.Errorf("bounds = %+v, want from only", lit)
		}
	})
}

func TestClosureCaptures(t *testing.T) {
	engine := newTestEngine(t)

	src := "let x = 1\nlet f = {|y| $x + $y }"
	ws, block := parseOne(t, engine, src)
	noErrors(t, ws, src)

	decl := element(t, block, 1, 0)
	if decl.Inner.Kind != lang.ExprClosure {
		t.Fatalf("rhs kind = %v, want closure", decl.Inner.Kind)
	}

	closure := ws.GetBlock(decl.Inner.Block)
	if closure == nil {
		t.Fatal("closure block missing from the working set")
	}

	xID, ok := ws.FindVariable("x")
	if !ok {
		t.Fatal("outer variable missing")
	}

	// Captures hold the enclosing x, never the parameter y.
	if len(closure.Captures) != 1 || closure.Captures[0] != xID {
		t.Errorf("captures = %v, want [%v]", closure.Captures, xID)
	}

	if len(closure.Signature.RequiredPositional) != 1 ||
		closure.Signature.RequiredPositional[0].Name != "y" {
		t.Errorf("params = %+v, want y",
			closure.Signature.RequiredPositional)
	}

	// The parameter's scope ended with the closure.
	if _, ok := ws.FindVariable("y"); ok {
		t.Error("closure parameter leaked into the outer scope")
	}
}

func TestExtraPositional(t *testing.T) {
	engine := newTestEngine(t)

	ws, _ := parseOne(t, engine, "length 5")
	hasError(t, ws, "extra positional argument")
}

func TestMissingPositional(t *testing.T) {
	engine := newTestEngine(t)

	ws, block := parseOne(t, engine, "get")
	hasError(t, ws, "missing required positional argument")

	// The placeholder keeps the call index-aligned for later passes.
	call := element(t, block, 0, 0).Call
	if len(call.Positional) != 1 || !call.Positional[0].IsGarbage() {
		t.Errorf("positionals = %+v, want one garbage placeholder", call.Positional)
	}
}

func TestUnclosedBlockRecovers(t *testing.T) {
	engine := newTestEngine(t)

	ws, block := parseOne(t, engine, "def f [] { echo")

	if len(ws.Errors) == 0 {
		t.Error("unclosed block produced no diagnostics")
	}

	if block == nil {
		t.Fatal("recovery returned no block")
	}
}

func TestSubexpression(t *testing.T) {
	engine := newTestEngine(t)

	src := "(1 + 2)"
	ws, block := parseOne(t, engine, src)
	noErrors(t, ws, src)

	expr := element(t, block, 0, 0)
	if expr.Kind != lang.ExprSubexpression {
		t.Fatalf("kind = %v, want subexpression", expr.Kind)
	}

	if inner := ws.GetBlock(expr.Block); inner == nil {
		t.Error("subexpression block missing from the working set")
	}
}

func TestCellPathArgument(t *testing.T) {
	engine := newTestEngine(t)

	src := "get user.0.name?"
	ws, block := parseOne(t, engine, src)
	noErrors(t, ws, src)

	arg := element(t, block, 0, 0).Call.Positional[0]
	if arg.Kind != lang.ExprCellPath {
		t.Fatalf("argument kind = %v, want cell path", arg.Kind)
	}

	members := arg.Path.Members
	if len(members) != 3 {
		t.Fatalf("%d members, want 3", len(members))
	}

	if members[0].Name != "user" || members[0].IsIndex {
		t.Errorf("member 0 = %+v, want column user", members[0])
	}

	if !members[1].IsIndex || members[1].Index != 0 {
		t.Errorf("member 1 = %+v, want index 0", members[1])
	}

	if members[2].Name != "name" || !members[2].Optional {
		t.Errorf("member 2 = %+v, want optional column name", members[2])
	}
}

func TestVariablePathArgument(t *testing.T) {
	engine := newTestEngine(t)

	src := "let user = {name: sam}\n$user.name"
	ws, block := parseOne(t, engine, src)
	noErrors(t, ws, src)

	expr := element(t, block, 1, 0)
	if expr.Kind != lang.ExprFullCellPath {
		t.Fatalf("kind = %v, want full cell path", expr.Kind)
	}

	path := expr.FullCellPath
	if path.Head.Kind != lang.ExprVar {
		t.Errorf("head kind = %v, want variable", path.Head.Kind)
	}

	if len(path.Tail) != 1 || path.Tail[0].Name != "name" {
		t.Errorf("tail = %+v, want name", path.Tail)
	}
}
