package eval_test

import (
	"strings"
	"testing"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/lang/builtin"
	"github.com/ardnew/shale/lang/eval"
	"github.com/ardnew/shale/lang/parser"
)

// session is one engine plus one stack, shared across run calls the way an
// interactive loop shares them across lines.
type session struct {
	engine *lang.EngineState
	stack  *lang.Stack
}

func newSession(t *testing.T) *session {
	t.Helper()

	engine := lang.NewEngineState()
	eval.Setup(engine)

	if err := builtin.AddShellDecls(engine); err != nil {
		t.Fatalf("AddShellDecls() error: %v", err)
	}

	return &session{engine: engine, stack: lang.NewStack(engine)}
}

// run parses, merges, and evaluates one source unit, materializing the
// result. Parse failures are fatal; evaluation errors return to the caller.
func (s *session) run(t *testing.T, src string) (lang.Value, error) {
	t.Helper()

	ws := lang.NewWorkingSet(s.engine)
	block := parser.Parse(ws, []byte(src))

	if len(ws.Errors) > 0 {
		t.Fatalf("parse %q: %v", src, ws.Errors)
	}

	if err := s.engine.Merge(ws.Delta()); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}

	out, err := eval.Block(s.engine, s.stack, block, lang.Empty())
	if err != nil {
		return lang.Value{}, err
	}

	return out.IntoValue(lang.UnknownSpan())
}

func (s *session) eval(t *testing.T, src string) lang.Value {
	t.Helper()

	val, err := s.run(t, src)
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}

	return val
}

func TestArithmetic(t *testing.T) {
	for _, test := range []struct {
		src  string
		want string
	}{
		{"1 + 2", "3"},
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"10 - 4 - 3", "3"},
		{"7 / 2", "3.5"},
		{"6 / 3", "2.0"}, // division always widens to float
		{"7 // 2", "3"},
		{"-7 // 2", "-4"}, // floor, not truncation
		{"7 mod 3", "1"},
		{"2 ** 10", "1024"},
		{"2 ** 3 ** 2", "512"}, // ** groups right-to-left
		{"1.5 + 1", "2.5"},
		{`"ab" + "cd"`, "abcd"},
		{"[1, 2] + [3]", "[1, 2, 3]"},
	} {
		t.Run(test.src, func(t *testing.T) {
			got := newSession(t).eval(t, test.src)
			if got.Format() != test.want {
				t.Errorf("eval(%q) = %s, want %s", test.src, got.Format(), test.want)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	// Evaluating a value's canonical rendering yields a structurally equal
	// value that renders the same way again.
	for _, src := range []string{
		"42",
		"-3",
		"2.5",
		"6 / 3", // renders as 2.0, not 2
		"true",
		"null",
		`"a b"`,
		"[1, two, [3.5, false]]",
		"{name: sam, tags: [a, b], meta: {n: 1}}",
		"1..3..9",
		"1..<5",
		"5..1",
	} {
		t.Run(src, func(t *testing.T) {
			s := newSession(t)

			first := s.eval(t, src)
			second := s.eval(t, first.Format())

			if !first.Equal(second) {
				t.Errorf("eval(%q) = %s, reparsed as %s",
					src, first.Format(), second.Format())
			}

			if first.Format() != second.Format() {
				t.Errorf("renderings differ: %q then %q",
					first.Format(), second.Format())
			}
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	for _, src := range []string{"1 / 0", "1 // 0", "1 mod 0"} {
		t.Run(src, func(t *testing.T) {
			if _, err := newSession(t).run(t, src); err == nil {
				t.Errorf("eval(%q) did not fail", src)
			}
		})
	}
}

func TestComparisonsAndMembership(t *testing.T) {
	for _, test := range []struct {
		src  string
		want bool
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 4", false},
		{"1 == 1.0", true},
		{"1 != 2", true},
		{`"abc" < "abd"`, true},
		{"2 in [1, 2, 3]", true},
		{"5 not-in [1, 2, 3]", true},
		{"5 in 1..9", true},
		{"10 in 1..<10", false},
		{`"ell" in "hello"`, true},
		{`"a" in {a: 1}`, true},
		{`"hello" =~ "^h.*o$"`, true},
		{`"hello" !~ "^x"`, true},
		{"not false", true},
	} {
		t.Run(test.src, func(t *testing.T) {
			got := newSession(t).eval(t, test.src)
			if got.Kind != lang.KindBool || got.Bool != test.want {
				t.Errorf("eval(%q) = %s, want %v", test.src, got.Format(), test.want)
			}
		})
	}
}

func TestBooleanShortCircuit(t *testing.T) {
	// The right operand would divide by zero; short-circuiting must never
	// evaluate it.
	s := newSession(t)

	got := s.eval(t, "false and (1 / 0) > 0")
	if got.Bool {
		t.Error("false and _ = true")
	}

	got = s.eval(t, "true or (1 / 0) > 0")
	if !got.Bool {
		t.Error("true or _ = false")
	}
}

func TestVariables(t *testing.T) {
	s := newSession(t)

	s.eval(t, "let x = 2")

	if got := s.eval(t, "$x * 10"); got.Int != 20 {
		t.Errorf("$x * 10 = %s, want 20", got.Format())
	}

	s.eval(t, "mut count = 0")
	s.eval(t, "$count = $count + 1")

	if got := s.eval(t, "$count"); got.Int != 1 {
		t.Errorf("$count = %s after assignment, want 1", got.Format())
	}
}

func TestClosureCapturesByValue(t *testing.T) {
	s := newSession(t)

	s.eval(t, "mut x = 1")
	s.eval(t, "let c = {|| $x }")
	s.eval(t, "$x = 2")

	val := s.eval(t, "$c")
	if val.Kind != lang.KindClosure {
		t.Fatalf("$c = %s, want a closure", val.Format())
	}

	out, err := eval.RunClosure(s.engine, s.stack, val.Closure, nil, lang.Empty())
	if err != nil {
		t.Fatalf("RunClosure() error: %v", err)
	}

	got, err := out.IntoValue(lang.UnknownSpan())
	if err != nil {
		t.Fatalf("IntoValue() error: %v", err)
	}

	// The closure saw x at literal-evaluation time, not at invocation time.
	if got.Int != 1 {
		t.Errorf("closure result = %s, want the captured 1", got.Format())
	}
}

func TestUserDefinedCommands(t *testing.T) {
	s := newSession(t)

	s.eval(t, "def add [a, b] { $a + $b }")

	if got := s.eval(t, "add 2 3"); got.Int != 5 {
		t.Errorf("add 2 3 = %s, want 5", got.Format())
	}

	s.eval(t, "def count [...xs] { $xs | length }")

	if got := s.eval(t, "count a b c"); got.Int != 3 {
		t.Errorf("count a b c = %s, want 3", got.Format())
	}

	s.eval(t, "def greet [name, --loud] { if $loud { echo LOUD } else $name }")

	if got := s.eval(t, "greet sam --loud"); got.Str != "LOUD" {
		t.Errorf("greet sam --loud = %s, want LOUD", got.Format())
	}

	if got := s.eval(t, "greet sam"); got.Str != "sam" {
		t.Errorf("greet sam = %s, want sam", got.Format())
	}
}

func TestAliasExpansion(t *testing.T) {
	s := newSession(t)

	s.eval(t, "alias hi = echo hello")

	got := s.eval(t, "hi world")
	if got.Format() != "[hello, world]" {
		t.Errorf("hi world = %s, want [hello, world]", got.Format())
	}
}

func TestIfElse(t *testing.T) {
	for _, test := range []struct {
		src  string
		want string
	}{
		{"if 2 > 1 { echo yes } else { echo no }", "yes"},
		{"if 1 > 2 { echo yes } else { echo no }", "no"},
		{"if false { echo a } else 42", "42"},
		{"if false { echo a }", "null"},
	} {
		t.Run(test.src, func(t *testing.T) {
			got := newSession(t).eval(t, test.src)
			if got.Format() != test.want {
				t.Errorf("eval(%q) = %s, want %s", test.src, got.Format(), test.want)
			}
		})
	}
}

func TestForLoop(t *testing.T) {
	s := newSession(t)

	src := "mut total = 0\nfor i in 1..4 { $total = $total + $i }\n$total"
	if got := s.eval(t, src); got.Int != 10 {
		t.Errorf("loop total = %s, want 10", got.Format())
	}

	src = "mut names = []\nfor n in [a, b] { $names = $names + [$n] }\n$names"
	if got := s.eval(t, src); got.Format() != "[a, b]" {
		t.Errorf("loop names = %s, want [a, b]", got.Format())
	}
}

func TestMatch(t *testing.T) {
	for _, test := range []struct {
		name string
		src  string
		want string
	}{
		{
			"value pattern",
			"match 3 { 1 => one, 3 => three, _ => other }",
			"three",
		},
		{
			"discard arm",
			"match 99 { 1 => one, _ => other }",
			"other",
		},
		{
			"no arm matches",
			"match 99 { 1 => one }",
			"null",
		},
		{
			"list destructuring with rest",
			"match [1, 2, 3] { [1, ..$rest] => $rest, _ => nope }",
			"[2, 3]",
		},
		{
			"record destructuring",
			"match {name: sam, age: 3} { {name: $n} => $n, _ => nope }",
			"sam",
		},
		{
			"record field shorthand",
			"match {name: sam} { {$name} => $name, _ => nope }",
			"sam",
		},
		{
			"range pattern",
			"match 42 { 0..9 => small, 10..99 => medium, _ => large }",
			"medium",
		},
		{
			"failed arm bindings do not leak",
			"match [1, 2] { [3, $x] => $x, [1, $y] => $y }",
			"2",
		},
		{
			"variable pattern binds",
			"match 7 { $n => $n * 2 }",
			"14",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := newSession(t).eval(t, test.src)
			if got.Format() != test.want {
				t.Errorf("eval(%q) = %s, want %s", test.src, got.Format(), test.want)
			}
		})
	}
}

func TestEachStreamsAndDivertsElementErrors(t *testing.T) {
	s := newSession(t)

	got := s.eval(t, "[1, 2, 0, 4] | each {|x| 10 / $x }")
	if got.Kind != lang.KindList || len(got.List) != 4 {
		t.Fatalf("each = %s, want 4 elements", got.Format())
	}

	// The failing element became an error value; its neighbors still flowed.
	wantKinds := []lang.ValueKind{
		lang.KindFloat, lang.KindFloat, lang.KindError, lang.KindFloat,
	}

	for i, want := range wantKinds {
		if got.List[i].Kind != want {
			t.Errorf("element %d kind = %v, want %v", i, got.List[i].Kind, want)
		}
	}

	if got.List[3].Float != 2.5 {
		t.Errorf("element 3 = %s, want 2.5", got.List[3].Format())
	}
}

func TestPipelineLaziness(t *testing.T) {
	// The producer is unbounded; the pipeline terminates only because each
	// stage pulls no more than its consumer demands.
	got := newSession(t).eval(t, "1.. | first 3")
	if got.Format() != "[1, 2, 3]" {
		t.Errorf("1.. | first 3 = %s, want [1, 2, 3]", got.Format())
	}
}

func TestSubexpression(t *testing.T) {
	s := newSession(t)

	if got := s.eval(t, "echo (2 + 3)"); got.Int != 5 {
		t.Errorf("echo (2 + 3) = %s, want 5", got.Format())
	}

	// A subexpression runs a full pipeline and yields its final value.
	if got := s.eval(t, "(1.. | first 2) + [9]"); got.Format() != "[1, 2, 9]" {
		t.Errorf("got %s, want [1, 2, 9]", got.Format())
	}
}

func TestTryCatch(t *testing.T) {
	for _, test := range []struct {
		name string
		src  string
		want string
	}{
		{"success passes through", "try { 42 }", "42"},
		{"failure without handler yields nothing", "try { 1 / 0 }", "null"},
		{"failure runs the handler", "try { 1 / 0 } catch {|e| caught }", "caught"},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := newSession(t).eval(t, test.src)
			if got.Format() != test.want {
				t.Errorf("eval(%q) = %s, want %s", test.src, got.Format(), test.want)
			}
		})
	}

	t.Run("handler receives the error value", func(t *testing.T) {
		got := newSession(t).eval(t, "try { 1 / 0 } catch {|e| $e }")
		if got.Kind != lang.KindError {
			t.Fatalf("handler argument = %s, want an error value", got.Format())
		}

		if !strings.Contains(got.Err.Error(), "division by zero") {
			t.Errorf("error = %q, want the division failure", got.Err.Error())
		}
	})
}

func TestStructuralErrorAbortsPipeline(t *testing.T) {
	s := newSession(t)

	_, err := s.run(t, "{a: 1} | get b")
	if err == nil {
		t.Fatal("missing column did not abort the pipeline")
	}

	if !strings.Contains(err.Error(), "cell path member not found") {
		t.Errorf("error = %q, want a cell path failure", err)
	}
}

func TestCancellationAbortsEvaluation(t *testing.T) {
	s := newSession(t)
	s.engine.Cancel.Store(true)

	if _, err := s.run(t, "echo hi"); err == nil {
		t.Error("cancelled session still evaluated")
	}
}

func TestCellPathAccess(t *testing.T) {
	s := newSession(t)

	s.eval(t, "let user = {name: sam, tags: [a, b, c]}")

	if got := s.eval(t, "$user.name"); got.Str != "sam" {
		t.Errorf("$user.name = %s, want sam", got.Format())
	}

	if got := s.eval(t, "$user.tags.1"); got.Str != "b" {
		t.Errorf("$user.tags.1 = %s, want b", got.Format())
	}

	if got := s.eval(t, "$user.missing?"); !got.IsNothing() {
		t.Errorf("$user.missing? = %s, want nothing", got.Format())
	}
}

func TestTableLiteral(t *testing.T) {
	s := newSession(t)

	got := s.eval(t, "[[name, n]; [a, 1], [b, 2]] | get n")
	if got.Format() != "[1, 2]" {
		t.Errorf("column access = %s, want [1, 2]", got.Format())
	}
}
