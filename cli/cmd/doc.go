// Package cmd implements the subcommands of the shale CLI: run for script
// files, eval for inline source strings, and repl for interactive sessions.
// Every command builds the same engine: built-in declarations merged into a
// fresh EngineState with the standard evaluator installed.
package cmd
