package builtin

import (
	"fmt"
	"log/slog"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/shale/lang"
)

func yamlCommands() []*builtin {
	return []*builtin{
		{
			sig: lang.NewSignature("from yaml").
				WithDesc("Parse the input string as YAML.").
				WithCategory("formats"),
			run: runFromYAML,
		},
		{
			sig: lang.NewSignature("to yaml").
				WithDesc("Render the input value as a YAML string.").
				WithCategory("formats"),
			run: runToYAML,
		},
	}
}

func runFromYAML(
	_ *lang.EngineState,
	_ *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	val, err := input.IntoValue(call.Head)
	if err != nil {
		return lang.Empty(), err
	}

	text, err := val.AsString()
	if err != nil {
		return lang.Empty(), err
	}

	var doc any

	// Ordered maps preserve document key order through the record type.
	err = yaml.UnmarshalWithOptions([]byte(text), &doc, yaml.UseOrderedMap())
	if err != nil {
		return lang.Empty(), lang.NewShellError(
			lang.WrapError(err).With(slog.String("format", "yaml")),
			val.Span,
		)
	}

	return lang.FromValue(valueFromYAML(doc, call.Head)), nil
}

func runToYAML(
	_ *lang.EngineState,
	stack *lang.Stack,
	call *lang.Call,
	input lang.PipelineData,
) (lang.PipelineData, error) {
	val, err := input.IntoValue(call.Head)
	if err != nil {
		return lang.Empty(), err
	}

	doc, err := yamlFromValue(val, stack)
	if err != nil {
		return lang.Empty(), err
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return lang.Empty(), lang.NewShellError(
			lang.WrapError(err).With(slog.String("format", "yaml")),
			val.Span,
		)
	}

	return lang.FromValue(lang.StringValue(string(data), call.Head)), nil
}

// valueFromYAML converts a decoded YAML document into a shell value.
// Unrecognized node types degrade to their string rendering.
func valueFromYAML(doc any, span lang.Span) lang.Value {
	switch node := doc.(type) {
	case nil:
		return lang.Nothing(span)
	case bool:
		return lang.BoolValue(node, span)
	case int:
		return lang.IntValue(int64(node), span)
	case int64:
		return lang.IntValue(node, span)
	case uint64:
		return lang.IntValue(int64(node), span)
	case float64:
		return lang.FloatValue(node, span)
	case string:
		return lang.StringValue(node, span)
	case []any:
		items := make([]lang.Value, 0, len(node))
		for _, item := range node {
			items = append(items, valueFromYAML(item, span))
		}

		return lang.ListValue(items, span)
	case yaml.MapSlice:
		rec := lang.NewRecord()
		for _, item := range node {
			rec.Set(fmt.Sprint(item.Key), valueFromYAML(item.Value, span))
		}

		return lang.RecordValue(rec, span)
	default:
		return lang.StringValue(fmt.Sprint(node), span)
	}
}

// yamlFromValue converts a shell value into a form the YAML encoder accepts.
// Records become MapSlice so field order survives the round trip. Streams
// and ranges must be collected by the caller; only materialized values reach
// this point.
func yamlFromValue(val lang.Value, stack *lang.Stack) (any, error) {
	switch val.Kind {
	case lang.KindNothing:
		return nil, nil
	case lang.KindBool:
		return val.Bool, nil
	case lang.KindInt:
		return val.Int, nil
	case lang.KindFloat:
		return val.Float, nil
	case lang.KindString:
		return val.Str, nil
	case lang.KindBinary:
		return val.Bytes, nil
	case lang.KindList:
		items := make([]any, 0, len(val.List))
		for _, item := range val.List {
			conv, err := yamlFromValue(item, stack)
			if err != nil {
				return nil, err
			}

			items = append(items, conv)
		}

		return items, nil
	case lang.KindRecord:
		fields := make(yaml.MapSlice, 0, val.Record.Len())
		for _, key := range val.Record.Keys() {
			field, _ := val.Record.Get(key)

			conv, err := yamlFromValue(field, stack)
			if err != nil {
				return nil, err
			}

			fields = append(fields, yaml.MapItem{Key: key, Value: conv})
		}

		return fields, nil
	case lang.KindRange:
		items := make([]any, 0)
		for v := range val.Range.Values(val.Span, stack.Cancel) {
			conv, err := yamlFromValue(v, stack)
			if err != nil {
				return nil, err
			}

			items = append(items, conv)
		}

		return items, nil
	default:
		return nil, lang.NewShellError(
			lang.ErrTypeMismatch.
				With(slog.String("got", val.Type().String())).
				With(slog.String("format", "yaml")),
			val.Span,
		)
	}
}
