// Package profile provides optional runtime profiling for the shale
// application.
//
// The package integrates [github.com/pkg/profile] behind the "pprof" build
// tag. When built without the tag (default), all operations are no-ops with
// zero runtime overhead.
//
// Use [Modes] to retrieve the list of supported profiling modes; the list is
// empty without the tag. Profile files are written to the configured output
// directory with names matching the profiling mode (e.g. cpu.pprof).
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
