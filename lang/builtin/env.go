package builtin

import (
	"os"

	"github.com/ardnew/mung"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/lang/eval"
)

func envCommands() []*builtin {
	return []*builtin{
		{
			sig: lang.NewSignature("load-env").
				WithDesc("Merge a record into the current environment.").
				WithCategory("env").
				Required("record", lang.Shape(lang.ShapeRecord),
					"environment entries to set"),
			run: runLoadEnv,
		},
		{
			sig: lang.NewSignature("with-env").
				WithDesc("Run a closure with a temporarily extended environment.").
				WithCategory("env").
				Required("record", lang.Shape(lang.ShapeRecord),
					"environment entries visible inside the closure").
				Required("closure", lang.Shape(lang.ShapeClosure),
					"closure to run"),
			run: runWithEnv,
		},
		{
			sig: lang.NewSignature("path add").
				WithDesc("Prepend directories to the PATH environment variable.").
				WithCategory("env").
				WithRest("paths", lang.Shape(lang.ShapeString),
					"directories to prepend"),
			run: runPathAdd,
		},
	}
}

func runLoadEnv(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	_ lang.PipelineData,
) (lang.PipelineData, error) {
	entries, err := envRecordArg(engine, stack, call)
	if err != nil {
		return lang.Empty(), err
	}

	for _, key := range entries.Keys() {
		val, _ := entries.Get(key)
		stack.SetEnv(key, val)
	}

	return lang.Empty(), nil
}

func runWithEnv(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	entries, err := envRecordArg(engine, stack, call)
	if err != nil {
		return lang.Empty(), err
	}

	closure, err := eval.ClosureArg(engine, stack, call, 1)
	if err != nil {
		return lang.Empty(), err
	}

	// The overrides live in a throwaway frame; the caller's environment is
	// untouched once the closure returns.
	scoped := stack.Clone()
	for _, key := range entries.Keys() {
		val, _ := entries.Get(key)
		scoped.SetEnv(key, val)
	}

	return eval.RunClosure(engine, scoped, closure, nil, input)
}

func envRecordArg(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
) (*lang.Record, error) {
	val, err := eval.Arg(engine, stack, call, 0)
	if err != nil {
		return nil, err
	}

	return val.AsRecord()
}

// pathKey is the environment variable `path add` manipulates.
const pathKey = "PATH"

func runPathAdd(
	engine *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	_ lang.PipelineData,
) (lang.PipelineData, error) {
	args, err := eval.RestArgs(engine, stack, call, 0)
	if err != nil {
		return lang.Empty(), err
	}

	prefix := make([]string, 0, len(args))

	for _, arg := range args {
		dir, err := arg.AsString()
		if err != nil {
			return lang.Empty(), err
		}

		prefix = append(prefix, dir)
	}

	current := ""
	if val, ok := stack.GetEnv(pathKey); ok {
		if s, err := val.AsString(); err == nil {
			current = s
		}
	}

	merged := mung.Make(
		mung.WithSubjectItems(current),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()

	stack.SetEnv(pathKey, lang.StringValue(merged, call.Head))

	return lang.Empty(), nil
}
