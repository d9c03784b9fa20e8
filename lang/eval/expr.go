package eval

import (
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/ardnew/shale/lang"
)

// EvalExpression implements lang.ExpressionEvaluator: it reduces one
// expression to a single value in the given frame. Calls and
// subexpressions that produce streams are materialized.
func (ev Evaluator) EvalExpression(
	engine *lang.EngineState,
	stack *lang.Stack,
	expr *lang.Expression,
) (lang.Value, error) {
	switch expr.Kind {
	case lang.ExprNothing:
		return lang.Nothing(expr.Span), nil

	case lang.ExprBool:
		return lang.BoolValue(expr.Bool, expr.Span), nil

	case lang.ExprInt:
		return lang.IntValue(expr.Int, expr.Span), nil

	case lang.ExprFloat:
		return lang.FloatValue(expr.Float, expr.Span), nil

	case lang.ExprString:
		return lang.StringValue(expr.Str, expr.Span), nil

	case lang.ExprVar:
		return ev.evalVar(engine, stack, expr)

	case lang.ExprVarDecl:
		val := lang.Nothing(expr.Span)

		if expr.Inner != nil {
			inner, err := ev.EvalExpression(engine, stack, expr.Inner)
			if err != nil {
				return lang.Value{}, err
			}

			val = inner
		}

		stack.SetVar(expr.Var, val)

		return lang.Nothing(expr.Span), nil

	case lang.ExprCall:
		out, err := ev.RunExpression(engine, stack, expr, lang.Empty())
		if err != nil {
			return lang.Value{}, err
		}

		return out.IntoValue(expr.Span)

	case lang.ExprUnaryNot:
		operand, err := ev.EvalExpression(engine, stack, expr.Inner)
		if err != nil {
			return lang.Value{}, err
		}

		b, err := operand.AsBool()
		if err != nil {
			return lang.Value{}, err
		}

		return lang.BoolValue(!b, expr.Span), nil

	case lang.ExprBinaryOp:
		return ev.evalBinary(engine, stack, expr)

	case lang.ExprRange:
		return ev.evalRange(engine, stack, expr)

	case lang.ExprList:
		items := make([]lang.Value, 0, len(expr.List))

		for i := range expr.List {
			val, err := ev.EvalExpression(engine, stack, &expr.List[i])
			if err != nil {
				return lang.Value{}, err
			}

			items = append(items, val)
		}

		return lang.ListValue(items, expr.Span), nil

	case lang.ExprRecord:
		rec := lang.NewRecord()

		for i := range expr.Record {
			key, err := ev.EvalExpression(engine, stack, &expr.Record[i].Key)
			if err != nil {
				return lang.Value{}, err
			}

			keyStr, err := key.AsString()
			if err != nil {
				return lang.Value{}, err
			}

			val, err := ev.EvalExpression(engine, stack, &expr.Record[i].Value)
			if err != nil {
				return lang.Value{}, err
			}

			rec.Set(keyStr, val)
		}

		return lang.RecordValue(rec, expr.Span), nil

	case lang.ExprTable:
		return ev.evalTable(engine, stack, expr)

	case lang.ExprBlock, lang.ExprClosure:
		return ev.evalClosure(engine, stack, expr)

	case lang.ExprSubexpression:
		block := engine.GetBlock(expr.Block)
		if block == nil {
			return lang.Value{}, lang.NewShellError(
				lang.ErrUnknownCommand.
					With(slog.Int("block", int(expr.Block))),
				expr.Span,
			)
		}

		out, err := ev.RunBlock(engine, stack, block, lang.Empty())
		if err != nil {
			return lang.Value{}, err
		}

		return out.IntoValue(expr.Span)

	case lang.ExprFullCellPath:
		head, err := ev.EvalExpression(engine, stack, &expr.FullCellPath.Head)
		if err != nil {
			return lang.Value{}, err
		}

		return followPath(head, expr.FullCellPath.Tail)

	case lang.ExprCellPath:
		return lang.CellPathValue(expr.Path, expr.Span), nil

	case lang.ExprKeyword:
		return ev.EvalExpression(engine, stack, expr.Inner)

	default:
		// Garbage and match blocks are not evaluable; reaching one means a
		// failed parse was merged anyway.
		return lang.Value{}, lang.NewShellError(
			lang.ErrPipelineAborted.
				With(slog.Int("kind", int(expr.Kind))),
			expr.Span,
		)
	}
}

func (ev Evaluator) evalVar(
	engine *lang.EngineState,
	stack *lang.Stack,
	expr *lang.Expression,
) (lang.Value, error) {
	if expr.Var == lang.EnvVarID {
		return stack.EnvRecord(expr.Span), nil
	}

	if val, ok := stack.GetVar(expr.Var); ok {
		return val, nil
	}

	if v := engine.GetVar(expr.Var); v != nil && v.Const != nil {
		return *v.Const, nil
	}

	return lang.Value{}, lang.NewShellError(
		lang.ErrUnknownVariable.
			With(slog.Int("id", int(expr.Var))),
		expr.Span,
	)
}

// followPath resolves each member in turn. An optional member swallows the
// failure of its own step, yielding nothing.
func followPath(val lang.Value, members []lang.PathMember) (lang.Value, error) {
	for _, member := range members {
		next, err := val.FollowCellPath(member)
		if err != nil {
			if member.Optional {
				return lang.Nothing(member.Span), nil
			}

			return lang.Value{}, err
		}

		val = next
	}

	return val, nil
}

func (ev Evaluator) evalTable(
	engine *lang.EngineState,
	stack *lang.Stack,
	expr *lang.Expression,
) (lang.Value, error) {
	columns := make([]string, 0, len(expr.Table.Columns))

	for i := range expr.Table.Columns {
		col, err := ev.EvalExpression(engine, stack, &expr.Table.Columns[i])
		if err != nil {
			return lang.Value{}, err
		}

		name, err := col.AsString()
		if err != nil {
			return lang.Value{}, err
		}

		columns = append(columns, name)
	}

	rows := make([]lang.Value, 0, len(expr.Table.Rows))

	for i := range expr.Table.Rows {
		rec := lang.NewRecord()

		for j := range expr.Table.Rows[i] {
			if j >= len(columns) {
				break
			}

			cell, err := ev.EvalExpression(engine, stack, &expr.Table.Rows[i][j])
			if err != nil {
				return lang.Value{}, err
			}

			rec.Set(columns[j], cell)
		}

		rows = append(rows, lang.RecordValue(rec, expr.Span))
	}

	return lang.ListValue(rows, expr.Span), nil
}

// evalClosure snapshots the block's captures from the current frame. Blocks
// and closures share the representation; a block simply has no captures.
func (ev Evaluator) evalClosure(
	engine *lang.EngineState,
	stack *lang.Stack,
	expr *lang.Expression,
) (lang.Value, error) {
	block := engine.GetBlock(expr.Block)
	if block == nil {
		return lang.Value{}, lang.NewShellError(
			lang.ErrUnknownCommand.
				With(slog.Int("block", int(expr.Block))),
			expr.Span,
		)
	}

	closure := &lang.Closure{
		Block:    expr.Block,
		Captures: stack.Capture(engine, block.Captures),
	}

	return lang.ClosureValue(closure, expr.Span), nil
}

func (ev Evaluator) evalRange(
	engine *lang.EngineState,
	stack *lang.Stack,
	expr *lang.Expression,
) (lang.Value, error) {
	part := func(e *lang.Expression, def lang.Value) (lang.Value, error) {
		if e == nil {
			return def, nil
		}

		return ev.EvalExpression(engine, stack, e)
	}

	from, err := part(expr.Range.From, lang.IntValue(0, expr.Span))
	if err != nil {
		return lang.Value{}, err
	}

	second, err := part(expr.Range.Second, lang.Nothing(expr.Span))
	if err != nil {
		return lang.Value{}, err
	}

	to, err := part(expr.Range.To, lang.Nothing(expr.Span))
	if err != nil {
		return lang.Value{}, err
	}

	r, err := lang.NewRange(from, second, to, expr.Range.Inclusive)
	if err != nil {
		return lang.Value{}, err
	}

	return lang.RangeValue(r, expr.Span), nil
}

// evalBinary applies one operator. The boolean connectives short-circuit:
// the right operand does not evaluate when the left decides.
func (ev Evaluator) evalBinary(
	engine *lang.EngineState,
	stack *lang.Stack,
	expr *lang.Expression,
) (lang.Value, error) {
	left, err := ev.EvalExpression(engine, stack, expr.Left)
	if err != nil {
		return lang.Value{}, err
	}

	switch expr.Op {
	case lang.OpAnd, lang.OpOr:
		b, err := left.AsBool()
		if err != nil {
			return lang.Value{}, err
		}

		if (expr.Op == lang.OpAnd && !b) || (expr.Op == lang.OpOr && b) {
			return lang.BoolValue(b, expr.Span), nil
		}

		right, err := ev.EvalExpression(engine, stack, expr.Right)
		if err != nil {
			return lang.Value{}, err
		}

		rb, err := right.AsBool()
		if err != nil {
			return lang.Value{}, err
		}

		return lang.BoolValue(rb, expr.Span), nil
	}

	right, err := ev.EvalExpression(engine, stack, expr.Right)
	if err != nil {
		return lang.Value{}, err
	}

	return applyOperator(expr.Op, left, right, expr.Span)
}

func applyOperator(
	op lang.Operator,
	left, right lang.Value,
	span lang.Span,
) (lang.Value, error) {
	switch op {
	case lang.OpAdd:
		return applyAdd(left, right, span)

	case lang.OpSub, lang.OpMul, lang.OpDiv, lang.OpFloorDiv,
		lang.OpMod, lang.OpPow:
		return applyArithmetic(op, left, right, span)

	case lang.OpEq:
		return lang.BoolValue(left.Equal(right), span), nil

	case lang.OpNe:
		return lang.BoolValue(!left.Equal(right), span), nil

	case lang.OpLt, lang.OpGt, lang.OpLe, lang.OpGe:
		cmp, err := left.Compare(right)
		if err != nil {
			return lang.Value{}, err
		}

		var ok bool

		switch op {
		case lang.OpLt:
			ok = cmp < 0
		case lang.OpGt:
			ok = cmp > 0
		case lang.OpLe:
			ok = cmp <= 0
		default:
			ok = cmp >= 0
		}

		return lang.BoolValue(ok, span), nil

	case lang.OpRegexMatch, lang.OpNotRegexMatch:
		s, err := left.AsString()
		if err != nil {
			return lang.Value{}, err
		}

		pattern, err := right.AsString()
		if err != nil {
			return lang.Value{}, err
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			return lang.Value{}, lang.NewShellError(
				lang.ErrTypeMismatch.Wrap(err).
					With(slog.String("pattern", pattern)),
				right.Span,
			)
		}

		matched := re.MatchString(s)
		if op == lang.OpNotRegexMatch {
			matched = !matched
		}

		return lang.BoolValue(matched, span), nil

	case lang.OpIn, lang.OpNotIn:
		ok, err := contains(right, left)
		if err != nil {
			return lang.Value{}, err
		}

		if op == lang.OpNotIn {
			ok = !ok
		}

		return lang.BoolValue(ok, span), nil

	default:
		return lang.Value{}, lang.NewShellError(
			lang.ErrTypeMismatch.
				With(slog.String("operator", op.String())),
			span,
		)
	}
}

// applyAdd handles +: numeric addition, string concatenation, and list
// concatenation.
func applyAdd(left, right lang.Value, span lang.Span) (lang.Value, error) {
	switch {
	case left.Kind == lang.KindString && right.Kind == lang.KindString:
		return lang.StringValue(left.Str+right.Str, span), nil

	case left.Kind == lang.KindList && right.Kind == lang.KindList:
		items := make([]lang.Value, 0, len(left.List)+len(right.List))
		items = append(items, left.List...)
		items = append(items, right.List...)

		return lang.ListValue(items, span), nil
	}

	return applyArithmetic(lang.OpAdd, left, right, span)
}

func applyArithmetic(
	op lang.Operator,
	left, right lang.Value,
	span lang.Span,
) (lang.Value, error) {
	bothInt := left.Kind == lang.KindInt && right.Kind == lang.KindInt

	a, err := left.AsFloat()
	if err != nil {
		return lang.Value{}, err
	}

	b, err := right.AsFloat()
	if err != nil {
		return lang.Value{}, err
	}

	zeroDivisor := func() error {
		return lang.NewShellError(
			lang.ErrDivisionByZero, right.Span,
		)
	}

	switch op {
	case lang.OpAdd:
		if bothInt {
			return lang.IntValue(left.Int+right.Int, span), nil
		}

		return lang.FloatValue(a+b, span), nil

	case lang.OpSub:
		if bothInt {
			return lang.IntValue(left.Int-right.Int, span), nil
		}

		return lang.FloatValue(a-b, span), nil

	case lang.OpMul:
		if bothInt {
			return lang.IntValue(left.Int*right.Int, span), nil
		}

		return lang.FloatValue(a*b, span), nil

	case lang.OpDiv:
		// Division always produces a float; // keeps integers.
		if b == 0 {
			return lang.Value{}, zeroDivisor()
		}

		return lang.FloatValue(a/b, span), nil

	case lang.OpFloorDiv:
		if b == 0 {
			return lang.Value{}, zeroDivisor()
		}

		if bothInt {
			q := left.Int / right.Int
			if (left.Int%right.Int != 0) && ((left.Int < 0) != (right.Int < 0)) {
				q--
			}

			return lang.IntValue(q, span), nil
		}

		return lang.FloatValue(math.Floor(a/b), span), nil

	case lang.OpMod:
		if b == 0 {
			return lang.Value{}, zeroDivisor()
		}

		if bothInt {
			return lang.IntValue(left.Int%right.Int, span), nil
		}

		return lang.FloatValue(math.Mod(a, b), span), nil

	case lang.OpPow:
		if bothInt && right.Int >= 0 {
			return lang.IntValue(int64(math.Pow(a, b)), span), nil
		}

		return lang.FloatValue(math.Pow(a, b), span), nil

	default:
		return lang.Value{}, lang.NewShellError(
			lang.ErrTypeMismatch.
				With(slog.String("operator", op.String())),
			span,
		)
	}
}

// contains implements the in operator: element of a list, substring of a
// string, key of a record, or number within a range's bounds.
func contains(container, item lang.Value) (bool, error) {
	switch container.Kind {
	case lang.KindList:
		for _, member := range container.List {
			if member.Equal(item) {
				return true, nil
			}
		}

		return false, nil

	case lang.KindString:
		sub, err := item.AsString()
		if err != nil {
			return false, err
		}

		return strings.Contains(container.Str, sub), nil

	case lang.KindRecord:
		key, err := item.AsString()
		if err != nil {
			return false, err
		}

		_, ok := container.Record.Get(key)

		return ok, nil

	case lang.KindRange:
		n, err := item.AsFloat()
		if err != nil {
			return false, err
		}

		return container.Range.Contains(n), nil

	default:
		return false, lang.NewShellError(
			lang.ErrTypeMismatch.
				With(slog.String("container", container.Type().String())),
			container.Span,
		)
	}
}
