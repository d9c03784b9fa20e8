package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/shale/lang"
	"github.com/ardnew/shale/lang/builtin"
	"github.com/ardnew/shale/lang/eval"
	"github.com/ardnew/shale/lang/parser"
)

// resolve returns a [kong.ConfigurationLoader] that parses config files
// written in the shale language.
//
// The config file is an ordinary script whose final pipeline produces a
// record; each field maps to a flag of the same name. Flag names with
// hyphens (e.g. "log-level") may use underscores in the config file
// (e.g. "log_level"), since hyphens parse as subtraction in record keys
// unless quoted.
//
// Example config file:
//
//	{
//	  log_level: "debug",
//	  log_format: "json"
//	}
//
// Command-line flags override config file values.
func resolve() func(r io.Reader) (kong.Resolver, error) {
	return func(r io.Reader) (kong.Resolver, error) {
		src, err := io.ReadAll(r)
		if err != nil {
			return config{}, nil
		}

		rec, ok := evalConfigRecord(src)
		if !ok {
			return config{}, nil
		}

		return config(recordToMap(rec)), nil
	}
}

// evalConfigRecord parses and evaluates config source in a throwaway engine,
// expecting a record result. Any parse or evaluation failure yields no
// config rather than an error, so a broken config file never blocks startup.
func evalConfigRecord(src []byte) (*lang.Record, bool) {
	engine := lang.NewEngineState()
	eval.Setup(engine)

	if err := builtin.AddShellDecls(engine); err != nil {
		return nil, false
	}

	ws := lang.NewWorkingSet(engine)

	block := parser.Parse(ws, src)
	if len(ws.Errors) > 0 {
		return nil, false
	}

	if err := engine.Merge(ws.Delta()); err != nil {
		return nil, false
	}

	stack := lang.NewStack(engine)

	out, err := eval.Block(engine, stack, block, lang.Empty())
	if err != nil {
		return nil, false
	}

	val, err := out.IntoValue(block.Span)
	if err != nil || val.Kind != lang.KindRecord {
		return nil, false
	}

	return val.Record, true
}

// config implements [kong.Resolver] for shale language configs.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error {
	return nil
}

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	// Kong flags use hyphens (e.g., "log-level") but record keys may use
	// underscores. Try both forms.
	name := flag.Name
	underscoreName := strings.ReplaceAll(name, "-", "_")

	if value, ok := r[name]; ok {
		return value, nil
	}

	if value, ok := r[underscoreName]; ok {
		return value, nil
	}

	// Not found - return nil to let Kong use defaults
	return nil, nil
}

// recordToMap converts a record to a native map representation.
func recordToMap(rec *lang.Record) map[string]any {
	result := make(map[string]any, rec.Len())

	for _, key := range rec.Keys() {
		val, _ := rec.Get(key)

		// Kong requires numbers as strings for parsing
		switch val.Kind {
		case lang.KindInt:
			result[key] = strconv.FormatInt(val.Int, 10)
		case lang.KindFloat:
			result[key] = strconv.FormatFloat(val.Float, 'f', -1, 64)
		case lang.KindBool:
			result[key] = val.Bool
		case lang.KindString:
			result[key] = val.Str
		default:
			result[key] = val.Format()
		}
	}

	return result
}
