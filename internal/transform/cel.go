package transform

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types/ref"
	"github.com/rzbill/flo-transform/internal/eventlog"
	"google.golang.org/protobuf/types/known/structpb"
)

var structValueType = reflect.TypeOf(&structpb.Value{})

func newCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("offset", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("key", cel.StringType),
		cel.Variable("value", cel.StringType),
		// Parsed JSON value (map/list/scalars), null when the value is not JSON
		cel.Variable("json", cel.DynType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
}

func compile(env *cel.Env, expr string) (cel.Program, *cel.Type, error) {
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, nil, iss.Err()
	}
	checked, iss := env.Check(ast)
	if iss != nil && iss.Err() != nil {
		return nil, nil, iss.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, nil, err
	}
	return prog, checked.OutputType(), nil
}

// CompileCEL builds a Func from a filter expression and a value expression.
// The filter must evaluate to a bool; entries for which it is false are
// dropped. The value expression replaces the record value: strings and
// bytes are used as-is, anything else is JSON encoded. Key, headers and
// timestamp are carried over. Empty expressions keep everything.
func CompileCEL(filterExpr, valueExpr string) (Func, error) {
	filterExpr = strings.TrimSpace(filterExpr)
	valueExpr = strings.TrimSpace(valueExpr)
	if filterExpr == "" && valueExpr == "" {
		return Identity, nil
	}
	env, err := newCELEnv()
	if err != nil {
		return nil, err
	}

	var filter, value cel.Program
	if filterExpr != "" {
		prog, out, err := compile(env, filterExpr)
		if err != nil {
			return nil, fmt.Errorf("transform: filter: %w", err)
		}
		if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
			return nil, fmt.Errorf("transform: filter must be a bool expression, got %s", out)
		}
		filter = prog
	}
	if valueExpr != "" {
		prog, _, err := compile(env, valueExpr)
		if err != nil {
			return nil, fmt.Errorf("transform: value: %w", err)
		}
		value = prog
	}

	return func(e eventlog.Entry) ([]eventlog.Record, error) {
		vars := activation(e)
		if filter != nil {
			out, _, err := filter.Eval(vars)
			if err != nil {
				return nil, fmt.Errorf("filter: %w", err)
			}
			keep, ok := out.Value().(bool)
			if !ok {
				return nil, fmt.Errorf("filter: result %v is not a bool", out.Value())
			}
			if !keep {
				return nil, nil
			}
		}
		rec := e.Record
		if value != nil {
			out, _, err := value.Eval(vars)
			if err != nil {
				return nil, fmt.Errorf("value: %w", err)
			}
			if rec.Value, err = celBytes(out); err != nil {
				return nil, fmt.Errorf("value: %w", err)
			}
		}
		return []eventlog.Record{rec}, nil
	}, nil
}

func activation(e eventlog.Entry) map[string]any {
	var jsonObj any
	_ = json.Unmarshal(e.Value, &jsonObj)
	headers := e.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return map[string]any{
		"offset":  int64(e.Offset),
		"ts_ms":   e.TimestampMs,
		"size":    int64(len(e.Value)),
		"key":     string(e.Key),
		"value":   string(e.Value),
		"json":    jsonObj,
		"headers": headers,
		"now_ms":  time.Now().UnixMilli(),
	}
}

func celBytes(v ref.Val) ([]byte, error) {
	switch tv := v.Value().(type) {
	case string:
		return []byte(tv), nil
	case []byte:
		return tv, nil
	}
	native, err := v.ConvertToNative(structValueType)
	if err != nil {
		return nil, err
	}
	return json.Marshal(native.(*structpb.Value).AsInterface())
}
