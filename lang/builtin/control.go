package builtin

import (
	"errors"
	"log/slog"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/lang/eval"
)

func controlCommands() []*builtin {
	ifSig := lang.NewSignature("if").
		WithDesc("Run a block when a condition holds.").
		WithCategory("control").
		Required("condition", lang.Shape(lang.ShapeMath), "the condition").
		Required("then", lang.Shape(lang.ShapeBlock), "block to run").
		Optional("else", lang.KeywordShape("else", lang.OneOfShape(
			lang.Shape(lang.ShapeBlock),
			lang.Shape(lang.ShapeExpression),
		)), "block or expression otherwise")

	forSig := lang.NewSignature("for").
		WithDesc("Run a block once per element of an iterable.").
		WithCategory("control").
		Required("var", lang.Shape(lang.ShapeVarName), "the loop variable").
		Required("in", lang.KeywordShape("in", lang.Shape(lang.ShapeAny)),
			"range, list, or stream to iterate").
		Required("body", lang.Shape(lang.ShapeBlock), "block to run")
	forSig.CreatesScope = true

	matchSig := lang.NewSignature("match").
		WithDesc("Select the first arm whose pattern matches a value.").
		WithCategory("control").
		Required("value", lang.Shape(lang.ShapeAny), "value to match").
		Required("arms", lang.Shape(lang.ShapeMatchBlock), "pattern arms")

	return []*builtin{
		{sig: ifSig, run: runIf},
		{sig: forSig, run: runFor},
		{sig: matchSig, run: runMatch},
		{
			sig: lang.NewSignature("each").
				WithDesc("Run a closure once per input element, streaming results.").
				WithCategory("control").
				Required("closure", lang.Shape(lang.ShapeClosure),
					"closure receiving each element"),
			run: runEach,
		},
		{
			sig: lang.NewSignature("do").
				WithDesc("Invoke a closure with arguments.").
				WithCategory("control").
				Required("closure", lang.Shape(lang.ShapeClosure), "closure to run").
				WithRest("args", lang.Shape(lang.ShapeAny), "closure arguments"),
			run: runDo,
		},
		{
			sig: lang.NewSignature("try").
				WithDesc("Run a block, diverting failures to a catch closure.").
				WithCategory("control").
				Required("block", lang.Shape(lang.ShapeBlock), "block to attempt").
				Optional("catch", lang.KeywordShape(
					"catch", lang.Shape(lang.ShapeClosure),
				), "closure receiving the error"),
			run: runTry,
		},
	}
}

func runIf(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	cond, err := eval.Arg(engine, stack, call, 0)
	if err != nil {
		return lang.Empty(), err
	}

	holds, err := cond.AsBool()
	if err != nil {
		return lang.Empty(), err
	}

	if holds {
		return eval.Run(engine, stack, eval.ArgExpr(call, 1), input)
	}

	alt := eval.ArgExpr(call, 2)
	if alt == nil || alt.Kind == lang.ExprNothing {
		return lang.Empty(), nil
	}

	return eval.Run(engine, stack, alt, input)
}

func runFor(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	_ lang.PipelineData,
) (lang.PipelineData, error) {
	varExpr := eval.ArgExpr(call, 0)
	if varExpr == nil || varExpr.Kind != lang.ExprVarDecl {
		return lang.Empty(), lang.NewShellError(
			lang.ErrExpectedShape.
				With(slog.String("expected", "variable name")),
			call.Head,
		)
	}

	iterable, err := eval.Arg(engine, stack, call, 1)
	if err != nil {
		return lang.Empty(), err
	}

	body := eval.ArgExpr(call, 2)

	for v := range lang.FromValue(iterable).Values(stack.Cancel) {
		stack.SetVar(varExpr.Var, v)

		out, err := eval.Run(engine, stack, body, lang.Empty())
		if err != nil {
			return lang.Empty(), err
		}

		for range out.Values(stack.Cancel) {
		}
	}

	if stack.Cancelled() {
		return lang.Empty(), lang.NewShellError(
			lang.ErrPipelineAborted, call.Head,
		)
	}

	return lang.Empty(), nil
}

func runMatch(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	value, err := eval.Arg(engine, stack, call, 0)
	if err != nil {
		return lang.Empty(), err
	}

	arms := eval.ArgExpr(call, 1)
	if arms == nil || arms.Kind != lang.ExprMatchBlock {
		return lang.Empty(), lang.NewShellError(
			lang.ErrExpectedShape.
				With(slog.String("expected", "match arms")),
			call.Head,
		)
	}

	// Each arm tries against a fresh frame so a failed arm's partial
	// bindings never leak into the next.
	for i := range arms.Arms {
		frame := stack.Clone()

		ok, err := eval.Match(engine, stack, frame, &arms.Arms[i].Pattern, value)
		if err != nil {
			return lang.Empty(), err
		}

		if ok {
			return eval.Run(engine, frame, &arms.Arms[i].Expr, input)
		}
	}

	return lang.Empty(), nil
}

func runEach(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	closure, err := eval.ClosureArg(engine, stack, call, 0)
	if err != nil {
		return lang.Empty(), err
	}

	elements := input.Values(stack.Cancel)

	// Lazy map: the closure runs only as elements are pulled downstream.
	// A failing element becomes an error value in the stream; the
	// remaining elements still flow.
	return lang.FromStream(lang.NewListStream(
		call.Head, stack.Cancel,
		func(yield func(lang.Value) bool) {
			for v := range elements {
				out, err := eval.RunClosure(
					engine, stack, closure, []lang.Value{v}, lang.Empty(),
				)
				if err != nil {
					if !yield(errValue(err, v.Span)) {
						return
					}

					continue
				}

				for ov := range out.Values(stack.Cancel) {
					if !yield(ov) {
						return
					}
				}
			}
		},
	)), nil
}

func errValue(err error, span lang.Span) lang.Value {
	var se *lang.ShellError
	if !errors.As(err, &se) {
		se = lang.NewShellError(lang.WrapError(err), span)
	}

	return lang.ErrorValue(se, span)
}

func runDo(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	closure, err := eval.ClosureArg(engine, stack, call, 0)
	if err != nil {
		return lang.Empty(), err
	}

	args, err := eval.RestArgs(engine, stack, call, 1)
	if err != nil {
		return lang.Empty(), err
	}

	return eval.RunClosure(engine, stack, closure, args, input)
}

func runTry(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	out, err := eval.Run(engine, stack, eval.ArgExpr(call, 0), input)
	if err == nil {
		// Materialize now so failures inside a lazy stream divert too.
		val, verr := out.IntoValue(call.Head)
		if verr == nil {
			return lang.FromValue(val), nil
		}

		err = verr
	}

	handler := eval.ArgExpr(call, 1)
	if handler == nil || handler.Kind == lang.ExprNothing {
		return lang.Empty(), nil
	}

	handlerVal, herr := eval.Expr(engine, stack, handler)
	if herr != nil {
		return lang.Empty(), herr
	}

	closure, herr := handlerVal.AsClosure()
	if herr != nil {
		return lang.Empty(), herr
	}

	errVal := errValue(err, call.Head)

	return eval.RunClosure(
		engine, stack, closure, []lang.Value{errVal}, lang.Empty(),
	)
}
