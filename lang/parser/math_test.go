package parser

import (
	"strconv"
	"testing"

	"github.com/expr-lang/expr"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/lang/eval"
)

// evalMath parses and evaluates one math expression.
func evalMath(t *testing.T, src string) lang.Value {
	t.Helper()

	engine := newTestEngine(t)
	eval.Setup(engine)

	ws, block := parseOne(t, engine, src)
	noErrors(t, ws, src)

	if err := engine.Merge(ws.Delta()); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}

	val, err := eval.Expr(engine, lang.NewStack(engine), element(t, block, 0, 0))
	if err != nil {
		t.Fatalf("eval %q: %v", src, err)
	}

	return val
}

// canon reduces a result to a comparable string: booleans verbatim, every
// numeric kind through float64 so int and float encodings of the same number
// agree.
func canon(t *testing.T, v any) string {
	t.Helper()

	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case int64:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		t.Fatalf("unexpected result type %T", v)

		return ""
	}
}

func canonValue(t *testing.T, v lang.Value) string {
	t.Helper()

	switch v.Kind {
	case lang.KindBool:
		return strconv.FormatBool(v.Bool)
	case lang.KindInt:
		return canon(t, v.Int)
	case lang.KindFloat:
		return canon(t, v.Float)
	default:
		t.Fatalf("unexpected value kind %v", v.Kind)

		return ""
	}
}

// TestMathAgainstReference characterizes operator precedence and
// associativity against expr-lang's evaluator. Where the two grammars spell
// an operator differently, the pair carries both spellings of the same
// expression.
func TestMathAgainstReference(t *testing.T) {
	for _, test := range []struct {
		ours   string
		oracle string
	}{
		{"1 + 2 * 3", ""},
		{"(1 + 2) * 3", ""},
		{"10 - 4 - 3", ""},
		{"10 / 4", ""},
		{"2 ** 3 ** 2", ""},
		{"2 + 3 * 4 ** 2", ""},
		{"7 * 2 mod 3", "7 * 2 % 3"},
		{"1 + 2 < 2 * 2", ""},
		{"1 < 2 and 3 < 2", "1 < 2 && 3 < 2"},
		{"true or false and false", "true || false && false"},
		{"1 + 1 == 2 and 2 + 2 == 4", "1 + 1 == 2 && 2 + 2 == 4"},
	} {
		t.Run(test.ours, func(t *testing.T) {
			oracle := test.oracle
			if oracle == "" {
				oracle = test.ours
			}

			want, err := expr.Eval(oracle, map[string]any{})
			if err != nil {
				t.Fatalf("reference eval %q: %v", oracle, err)
			}

			got := evalMath(t, test.ours)

			if canonValue(t, got) != canon(t, want) {
				t.Errorf("eval(%q) = %s, reference says %v",
					test.ours, got.Format(), want)
			}
		})
	}
}

func TestMathTreeShape(t *testing.T) {
	engine := newTestEngine(t)

	parse := func(src string) *lang.Expression {
		t.Helper()

		ws, block := parseOne(t, engine, src)
		noErrors(t, ws, src)

		return element(t, block, 0, 0)
	}

	t.Run("multiplication binds tighter", func(t *testing.T) {
		expr := parse("1 + 2 * 3")
		if expr.Op != lang.OpAdd || expr.Right.Op != lang.OpMul {
			t.Errorf("tree = %v over %v, want + over *", expr.Op, expr.Right.Op)
		}
	})

	t.Run("subtraction groups left", func(t *testing.T) {
		expr := parse("10 - 4 - 3")
		if expr.Op != lang.OpSub || expr.Left.Kind != lang.ExprBinaryOp ||
			expr.Left.Op != lang.OpSub {
			t.Error("left operand is not the first subtraction")
		}
	})

	t.Run("exponentiation groups right", func(t *testing.T) {
		expr := parse("2 ** 3 ** 2")
		if expr.Op != lang.OpPow || expr.Right.Kind != lang.ExprBinaryOp ||
			expr.Right.Op != lang.OpPow {
			t.Error("right operand is not the nested exponentiation")
		}
	})

	t.Run("comparison over arithmetic", func(t *testing.T) {
		expr := parse("1 + 2 < 2 * 2")
		if expr.Op != lang.OpLt ||
			expr.Left.Op != lang.OpAdd || expr.Right.Op != lang.OpMul {
			t.Error("comparison did not bind loosest")
		}
	})
}
