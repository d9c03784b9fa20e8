// Package eval executes parsed blocks. Pipelines are lazy: each element
// produces PipelineData whose values are pulled by the next element, so an
// unbounded producer ahead of a bounded consumer completes. Structural
// failures abort a pipeline as ordinary Go errors; per-element failures may
// instead flow downstream as first-class error values.
package eval

import (
	"log/slog"

	"github.com/ardnew/shale/lang"
)

// Evaluator implements lang.BlockEvaluator and lang.ExpressionEvaluator.
// It carries no state of its own; everything lives in the engine and the
// stack frames threaded through each call.
type Evaluator struct{}

// std is the evaluator behind the package-level helpers.
var std Evaluator

// Setup registers the evaluator with the engine. User-defined commands run
// their bodies through this registration.
func Setup(engine *lang.EngineState) {
	engine.Evaluator = std
}

// Block evaluates a block against the stack.
func Block(
	engine *lang.EngineState,
	stack *lang.Stack,
	block *lang.Block,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	return std.RunBlock(engine, stack, block, input)
}

// Run evaluates one pipeline element against its input.
func Run(
	engine *lang.EngineState,
	stack *lang.Stack,
	expr *lang.Expression,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	return std.RunExpression(engine, stack, expr, input)
}

// Expr evaluates a single expression to a value.
func Expr(
	engine *lang.EngineState,
	stack *lang.Stack,
	expr *lang.Expression,
) (lang.Value, error) {
	return std.EvalExpression(engine, stack, expr)
}

// RunBlock implements lang.BlockEvaluator. Every pipeline but the last is
// run and drained for its effects; the block's input threads into the final
// pipeline, whose output is the block's output.
func (ev Evaluator) RunBlock(
	engine *lang.EngineState,
	stack *lang.Stack,
	block *lang.Block,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	if len(block.Pipelines) == 0 {
		return lang.Empty(), nil
	}

	for i := range block.Pipelines {
		if stack.Cancelled() {
			return lang.Empty(), lang.NewShellError(
				lang.ErrPipelineAborted, block.Span,
			)
		}

		last := i == len(block.Pipelines)-1

		in := lang.Empty()
		if last {
			in = input
		}

		out, err := ev.runPipeline(engine, stack, &block.Pipelines[i], in)
		if err != nil {
			return lang.Empty(), err
		}

		if last {
			return out, nil
		}

		drain(out, stack)
	}

	return lang.Empty(), nil
}

// drain consumes a pipeline's output so its effects happen, discarding the
// values.
func drain(data lang.PipelineData, stack *lang.Stack) {
	for range data.Values(stack.Cancel) {
	}
}

// runPipeline threads data through the pipeline's elements in order.
func (ev Evaluator) runPipeline(
	engine *lang.EngineState,
	stack *lang.Stack,
	pipeline *lang.Pipeline,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	data := input

	for i := range pipeline.Elements {
		if stack.Cancelled() {
			return lang.Empty(), lang.NewShellError(
				lang.ErrPipelineAborted, pipeline.Span(),
			)
		}

		var err error

		data, err = ev.RunExpression(
			engine, stack, &pipeline.Elements[i].Expr, data,
		)
		if err != nil {
			return lang.Empty(), err
		}
	}

	return data, nil
}

// RunExpression evaluates one pipeline element against its input. Calls
// receive the input as their pipeline data; blocks run in the current frame;
// any other expression evaluates to a single value and ignores the input.
func (ev Evaluator) RunExpression(
	engine *lang.EngineState,
	stack *lang.Stack,
	expr *lang.Expression,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	switch expr.Kind {
	case lang.ExprCall:
		cmd := engine.GetDecl(expr.Call.Decl)
		if cmd == nil {
			return lang.Empty(), lang.NewShellError(
				lang.ErrUnknownCommand.
					With(slog.Int("decl", int(expr.Call.Decl))),
				expr.Span,
			)
		}

		return cmd.Run(engine, stack, expr.Call, input)

	case lang.ExprBlock:
		block := engine.GetBlock(expr.Block)
		if block == nil {
			return lang.Empty(), lang.NewShellError(
				lang.ErrUnknownCommand.
					With(slog.Int("block", int(expr.Block))),
				expr.Span,
			)
		}

		return ev.RunBlock(engine, stack, block, input)

	case lang.ExprKeyword:
		return ev.RunExpression(engine, stack, expr.Inner, input)

	default:
		val, err := ev.EvalExpression(engine, stack, expr)
		if err != nil {
			return lang.Empty(), err
		}

		return lang.FromValue(val), nil
	}
}
