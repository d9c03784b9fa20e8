// Package cli implements the shale command-line interface.
//
// The interface is declared as a [kong] command tree: a run command for
// executing script files, an eval command for one-shot source strings, and
// a repl command for interactive sessions. Logging and optional pprof
// profiling are configured through embedded flag groups shared by every
// command.
//
// [kong]: https://github.com/alecthomas/kong
package cli
