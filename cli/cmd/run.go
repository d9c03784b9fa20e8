package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/readahead"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/log"
)

// Run executes a script file.
type Run struct {
	Script string `arg:"" help:"Script file or '-' for stdin" name:"script"`
}

// Run executes the run command.
func (r *Run) Run(ctx context.Context) (err error) {
	_, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	var file *os.File
	if r.Script == "-" {
		file = os.Stdin
	} else {
		var err error

		file, err = os.Open(r.Script)
		if err != nil {
			return err
		}
		defer file.Close()
	}

	// Read ahead of the parser so large scripts stream from disk while
	// earlier chunks are being consumed.
	ra := readahead.NewReader(file)
	defer ra.Close()

	src, err := io.ReadAll(ra)
	if err != nil {
		return lang.WrapError(err).
			With(slog.String("command", "run")).
			With(slog.String("script", r.Script))
	}

	log.DebugContext(ctx, "run script",
		slog.String("script", r.Script),
		slog.Int("bytes", len(src)),
	)

	engine, err := NewEngine()
	if err != nil {
		return err
	}

	stack := lang.NewStack(engine)

	out, err := ExecuteSource(engine, stack, src)
	if err != nil {
		if perrs, ok := err.(lang.ParseErrors); ok {
			fmt.Fprint(os.Stderr, perrs.Render(string(src)))

			return lang.ErrParseFailed.
				With(slog.Int("diagnostics", len(perrs)))
		}

		return err
	}

	printOutput(stack, out)

	return nil
}
