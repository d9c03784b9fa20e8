package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/log"
)

// Eval evaluates an inline source string.
type Eval struct {
	Source string `arg:"" help:"Source to evaluate" name:"source"`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) (err error) {
	_, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	log.DebugContext(ctx, "eval source",
		slog.Int("bytes", len(e.Source)),
	)

	engine, err := NewEngine()
	if err != nil {
		return err
	}

	stack := lang.NewStack(engine)

	out, err := ExecuteSource(engine, stack, []byte(e.Source))
	if err != nil {
		if perrs, ok := err.(lang.ParseErrors); ok {
			fmt.Fprint(os.Stderr, perrs.Render(e.Source))

			return lang.ErrParseFailed.
				With(slog.Int("diagnostics", len(perrs)))
		}

		return err
	}

	printOutput(stack, out)

	return nil
}
