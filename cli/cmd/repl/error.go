package repl

import "github.com/ardnew/shale/lang"

// Predefined errors (sentinel values).
var (
	ErrOutOfBounds = lang.NewError("history index out of bounds")
)
