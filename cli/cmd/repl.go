package cmd

import (
	"context"

	"github.com/ardnew/shale/cli/cmd/repl"
)

// Repl starts an interactive session.
type Repl struct {
	HistoryDir string `default:"${cacheDir}" help:"Directory holding session history" type:"path"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	_, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	engine, err := NewEngine()
	if err != nil {
		return err
	}

	return repl.Run(ctx, engine, r.HistoryDir)
}
