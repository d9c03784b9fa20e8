package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
var (
	ErrUnknownCommand    = NewError("unknown command")
	ErrUnknownVariable   = NewError("unknown variable")
	ErrUnknownFlag       = NewError("unknown flag")
	ErrUnclosedDelimiter = NewError("unclosed delimiter")
	ErrUnexpectedToken   = NewError("unexpected token")
	ErrExpectedShape     = NewError("expected shape")
	ErrMissingPositional = NewError("missing required positional argument")
	ErrMissingFlagValue  = NewError("flag requires a value")
	ErrExtraPositional   = NewError("extra positional argument")
	ErrTypeMismatch      = NewError("type mismatch")
	ErrZeroRangeStep     = NewError("range increment cannot be zero")
	ErrNotAConstant      = NewError("not a constant expression")
	ErrAssignReadOnly    = NewError("cannot assign to immutable variable")
	ErrCellPathMissing   = NewError("cell path member not found")
	ErrPipelineAborted   = NewError("pipeline aborted")
	ErrDivisionByZero    = NewError("division by zero")
	ErrReadInput         = NewError("failed to read input")
	ErrMergeConflict     = NewError("conflicting declaration during merge")
	ErrParseFailed       = NewError("source failed to parse")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// ParseError is one recoverable diagnostic produced during a single parse
// pass. The parser never stops at a ParseError: it substitutes a garbage
// node and keeps going, so one pass accumulates every diagnostic.
type ParseError struct {
	Err  *Error // sentinel describing the diagnostic class
	Span Span   // offending source range
	Help string // optional hint, e.g. "did you mean" suggestions
}

// NewParseError creates a diagnostic from a sentinel error and a span.
func NewParseError(err *Error, span Span) *ParseError {
	return &ParseError{Err: err, Span: span}
}

// WithHelp attaches a hint to the diagnostic and returns it.
func (e *ParseError) WithHelp(help string) *ParseError {
	e.Help = help

	return e
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := e.Err.Error()
	if e.Help != "" {
		msg += " (" + e.Help + ")"
	}

	return msg
}

// Unwrap exposes the sentinel for errors.Is.
func (e *ParseError) Unwrap() error { return e.Err }

// Render formats the diagnostic as a caret snippet against src:
//
//	parse error at 3:12: unexpected token
//	   3 | let x = (1 +
//	     |            ^
func (e *ParseError) Render(src string) string {
	line, col := LineColumn(src, e.Span.Start)

	var buf strings.Builder

	buf.WriteString("parse error at ")
	buf.WriteString(strconv.Itoa(line))
	buf.WriteString(":")
	buf.WriteString(strconv.Itoa(col))
	buf.WriteString(": ")
	buf.WriteString(e.Error())
	buf.WriteRune('\n')

	lines := strings.Split(src, "\n")
	if line > 0 && line <= len(lines) {
		num := strconv.Itoa(line)

		buf.WriteString("  ")
		buf.WriteString(num)
		buf.WriteString(" | ")
		buf.WriteString(lines[line-1])
		buf.WriteRune('\n')

		// Align the caret under the 1-based column.
		buf.WriteString("  ")
		buf.WriteString(strings.Repeat(" ", len(num)))
		buf.WriteString(" | ")
		buf.WriteString(strings.Repeat(" ", col-1))
		buf.WriteString("^\n")
	}

	return buf.String()
}

// ParseErrors aggregates every diagnostic from one parse pass.
type ParseErrors []*ParseError

// Error implements the error interface.
func (e ParseErrors) Error() string {
	switch len(e) {
	case 0:
		return "parse error"
	case 1:
		return e[0].Error()
	}

	part := make([]string, len(e))
	for i, pe := range e {
		part[i] = pe.Error()
	}

	return strconv.Itoa(len(e)) + " parse errors: " + strings.Join(part, "; ")
}

// Render formats all diagnostics as caret snippets against src.
func (e ParseErrors) Render(src string) string {
	var buf strings.Builder

	for _, pe := range e {
		buf.WriteString(pe.Render(src))
	}

	return buf.String()
}

// ShellError is an evaluation-time failure. It either aborts the current
// pipeline as an ordinary error return, or flows downstream as a first-class
// error Value so partially-failed tables remain inspectable.
type ShellError struct {
	Err  error // underlying cause, usually an *Error chain
	Span Span  // source range responsible, if known
}

// NewShellError creates a shell error from a cause and a span.
func NewShellError(err error, span Span) *ShellError {
	return &ShellError{Err: err, Span: span}
}

// Error implements the error interface.
func (e *ShellError) Error() string {
	if e.Err == nil {
		return "shell error"
	}

	return e.Err.Error()
}

// Unwrap exposes the cause for errors.Is/As.
func (e *ShellError) Unwrap() error { return e.Err }

// LogValue implements slog.LogValuer.
func (e *ShellError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", e.Error()),
		slog.Int("span_start", e.Span.Start),
		slog.Int("span_end", e.Span.End),
	)
}
