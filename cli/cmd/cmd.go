package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/lang/builtin"
	"github.com/ardnew/shale/lang/eval"
	"github.com/ardnew/shale/lang/parser"
)

// CacheIdentifier is the kong variable holding the cache directory path.
const CacheIdentifier = "cacheDir"

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given
// kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

// NewEngine creates an engine with all built-in commands registered, the
// standard evaluator installed, and the process environment seeded as
// default environment values.
func NewEngine() (*lang.EngineState, error) {
	engine := lang.NewEngineState()
	eval.Setup(engine)

	if err := builtin.AddShellDecls(engine); err != nil {
		return nil, err
	}

	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}

		engine.SetEnv(key, lang.StringValue(value, lang.UnknownSpan()))
	}

	return engine, nil
}

// ExecuteSource parses src against the engine, merges its declarations, and
// evaluates the resulting block on the stack. Parse diagnostics abort before
// anything is merged, so a failed parse leaves the engine untouched.
func ExecuteSource(
	engine *lang.EngineState,
	stack *lang.Stack,
	src []byte,
) (lang.PipelineData, error) {
	ws := lang.NewWorkingSet(engine)

	block := parser.Parse(ws, src)
	if len(ws.Errors) > 0 {
		return lang.Empty(), ws.Errors
	}

	if err := engine.Merge(ws.Delta()); err != nil {
		return lang.Empty(), err
	}

	return eval.Block(engine, stack, block, lang.Empty())
}

// printOutput writes every value of the pipeline output to stdout, one
// formatted value per line. Nothing values produced by definition-only
// statements are suppressed.
func printOutput(stack *lang.Stack, out lang.PipelineData) {
	for v := range out.Values(stack.Cancel) {
		if v.IsNothing() {
			continue
		}

		fmt.Println(v.Format())
	}
}
