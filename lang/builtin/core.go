package builtin

import (
	"log/slog"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/lang/eval"
)

func coreCommands() []*builtin {
	return []*builtin{
		{
			sig: lang.NewSignature("echo").
				WithDesc("Return its arguments as pipeline output.").
				WithCategory("core").
				WithRest("values", lang.Shape(lang.ShapeAny), "values to emit"),
			run: runEcho,
		},
		{
			sig: lang.NewSignature("seq").
				WithDesc("Produce a lazy sequence of numbers.").
				WithCategory("core").
				WithRest("numbers", lang.Shape(lang.ShapeNumber),
					"end | start end | start step end"),
			run: runSeq,
		},
		{
			sig: lang.NewSignature("collect").
				WithDesc("Materialize the input stream into a single value.").
				WithCategory("core"),
			run: runCollect,
		},
		{
			sig: lang.NewSignature("ignore").
				WithDesc("Consume the input and produce nothing.").
				WithCategory("core"),
			run: runIgnore,
		},
		{
			sig: lang.NewSignature("length").
				WithDesc("Count the elements of the input.").
				WithCategory("core"),
			run: runLength,
		},
		{
			sig: lang.NewSignature("first").
				WithDesc("Take the first element, or the first n.").
				WithCategory("core").
				Optional("n", lang.Shape(lang.ShapeInt), "how many to take"),
			run: runFirst,
		},
		{
			sig: lang.NewSignature("get").
				WithDesc("Follow a cell path into the input value.").
				WithCategory("core").
				Required("path", lang.Shape(lang.ShapeCellPath), "path to follow").
				Switch("ignore-errors", 'i', "missing members yield nothing"),
			run: runGet,
		},
	}
}

func runEcho(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	_ lang.PipelineData,
) (lang.PipelineData, error) {
	values, err := eval.RestArgs(engine, stack, call, 0)
	if err != nil {
		return lang.Empty(), err
	}

	switch len(values) {
	case 0:
		return lang.Empty(), nil
	case 1:
		return lang.FromValue(values[0]), nil
	default:
		return lang.FromStream(
			lang.StreamFromValues(call.Head, stack.Cancel, values),
		), nil
	}
}

func runSeq(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	_ lang.PipelineData,
) (lang.PipelineData, error) {
	args, err := eval.RestArgs(engine, stack, call, 0)
	if err != nil {
		return lang.Empty(), err
	}

	var from, step, to lang.Value

	switch len(args) {
	case 1:
		from = lang.IntValue(1, call.Head)
		step = lang.Nothing(call.Head)
		to = args[0]
	case 2:
		from = args[0]
		step = lang.Nothing(call.Head)
		to = args[1]
	case 3:
		from = args[0]
		to = args[2]

		// The range model takes the second element, not the increment.
		a, err := args[0].AsFloat()
		if err != nil {
			return lang.Empty(), err
		}

		b, err := args[1].AsFloat()
		if err != nil {
			return lang.Empty(), err
		}

		if args[0].Kind == lang.KindInt && args[1].Kind == lang.KindInt {
			step = lang.IntValue(int64(a+b), call.Head)
		} else {
			step = lang.FloatValue(a+b, call.Head)
		}
	default:
		return lang.Empty(), lang.NewShellError(
			lang.ErrExtraPositional.
				With(slog.Int("arguments", len(args))).
				With(slog.String("command", "seq")),
			call.Head,
		)
	}

	r, err := lang.NewRange(from, step, to, true)
	if err != nil {
		return lang.Empty(), err
	}

	return lang.FromStream(lang.NewListStream(
		call.Head, stack.Cancel, r.Values(call.Head, stack.Cancel),
	)), nil
}

func runCollect(
	_ *lang.EngineState,
	_ *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	val, err := input.IntoValue(call.Head)
	if err != nil {
		return lang.Empty(), err
	}

	return lang.FromValue(val), nil
}

func runIgnore(
	_ *lang.EngineState,
	stack *lang.Stack,
	_ *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	for range input.Values(stack.Cancel) {
	}

	return lang.Empty(), nil
}

func runLength(
	_ *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	var n int64

	for range input.Values(stack.Cancel) {
		n++
	}

	return lang.FromValue(lang.IntValue(n, call.Head)), nil
}

func runFirst(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	count, err := eval.Arg(engine, stack, call, 0)
	if err != nil {
		return lang.Empty(), err
	}

	// Bare `first` yields the first element itself; `first n` yields a
	// stream of at most n. The producer is pulled no further than needed.
	if count.IsNothing() {
		for v := range input.Values(stack.Cancel) {
			return lang.FromValue(v), nil
		}

		return lang.FromValue(lang.Nothing(call.Head)), nil
	}

	n, err := count.AsInt()
	if err != nil {
		return lang.Empty(), err
	}

	seq := input.Values(stack.Cancel)

	return lang.FromStream(lang.NewListStream(
		call.Head, stack.Cancel,
		func(yield func(lang.Value) bool) {
			taken := int64(0)

			for v := range seq {
				if taken >= n {
					return
				}

				taken++

				if !yield(v) {
					return
				}
			}
		},
	)), nil
}

func runGet(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	pathVal, err := eval.Arg(engine, stack, call, 0)
	if err != nil {
		return lang.Empty(), err
	}

	if pathVal.Kind != lang.KindCellPath {
		return lang.Empty(), lang.NewShellError(
			lang.ErrTypeMismatch.
				With(slog.String("expected", lang.TypeCellPath.String())).
				With(slog.String("got", pathVal.Type().String())),
			pathVal.Span,
		)
	}

	val, err := input.IntoValue(call.Head)
	if err != nil {
		return lang.Empty(), err
	}

	ignoreErrors := eval.HasFlag(call, "ignore-errors")

	for _, member := range pathVal.Path.Members {
		next, err := val.FollowCellPath(member)
		if err != nil {
			if ignoreErrors || member.Optional {
				return lang.FromValue(lang.Nothing(member.Span)), nil
			}

			return lang.Empty(), err
		}

		val = next
	}

	return lang.FromValue(val), nil
}
