package eval

import (
	"log/slog"

	"github.com/ardnew/shale/lang"
)

// Arg evaluates the call's positional argument at index i. A missing
// optional argument yields nothing.
func Arg(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	i int,
) (lang.Value, error) {
	if i >= len(call.Positional) {
		return lang.Nothing(call.Head), nil
	}

	return std.EvalExpression(engine, stack, &call.Positional[i])
}

// ArgExpr returns the unevaluated positional argument at index i, for
// commands that need the expression itself (match arms, declared blocks).
func ArgExpr(call *lang.Call, i int) *lang.Expression {
	if i >= len(call.Positional) {
		return nil
	}

	return &call.Positional[i]
}

// RestArgs evaluates every positional argument from index from onward.
func RestArgs(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	from int,
) ([]lang.Value, error) {
	var rest []lang.Value

	for i := from; i < len(call.Positional); i++ {
		val, err := std.EvalExpression(engine, stack, &call.Positional[i])
		if err != nil {
			return nil, err
		}

		rest = append(rest, val)
	}

	return rest, nil
}

// FlagValue evaluates the value of a named flag, reporting whether the flag
// occurred on the call.
func FlagValue(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	long string,
) (lang.Value, bool, error) {
	named := call.GetNamed(long)
	if named == nil {
		return lang.Nothing(call.Head), false, nil
	}

	if named.Value == nil {
		return lang.BoolValue(true, named.Span), true, nil
	}

	val, err := std.EvalExpression(engine, stack, named.Value)

	return val, true, err
}

// HasFlag reports whether a switch occurred on the call.
func HasFlag(call *lang.Call, long string) bool {
	return call.HasNamed(long)
}

// RunClosure evaluates a closure's body in a frame holding its captured
// bindings plus args bound to its declared parameters, in order.
func RunClosure(
	engine *lang.EngineState,
	stack *lang.Stack,
	closure *lang.Closure,
	args []lang.Value,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	block := engine.GetBlock(closure.Block)
	if block == nil {
		return lang.Empty(), lang.NewShellError(
			lang.ErrUnknownCommand.
				With(slog.Int("block", int(closure.Block))),
			lang.UnknownSpan(),
		)
	}

	frame := stack.FrameFor(closure)

	if block.Signature != nil {
		params := block.Signature

		for i := 0; i < params.NumPositional(); i++ {
			param := params.Positional(i)
			if !param.Bound {
				continue
			}

			if i < len(args) {
				frame.SetVar(param.VarID, args[i])
			} else {
				frame.SetVar(param.VarID, lang.Nothing(block.Span))
			}
		}
	}

	return std.RunBlock(engine, frame, block, input)
}

// ClosureArg evaluates positional argument i and asserts it is a closure.
func ClosureArg(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	i int,
) (*lang.Closure, error) {
	val, err := Arg(engine, stack, call, i)
	if err != nil {
		return nil, err
	}

	return val.AsClosure()
}
