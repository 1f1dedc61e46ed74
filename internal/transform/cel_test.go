package transform

import (
	"strings"
	"testing"

	"github.com/rzbill/flo-transform/internal/eventlog"
)

func entry(offset uint64, key, value string, headers map[string]string) eventlog.Entry {
	return eventlog.Entry{
		Offset: offset,
		Record: eventlog.Record{Key: []byte(key), Value: []byte(value), Headers: headers, TimestampMs: 1000},
	}
}

func mustCompile(t *testing.T, filter, value string) Func {
	t.Helper()
	fn, err := CompileCEL(filter, value)
	if err != nil {
		t.Fatalf("compile %q/%q: %v", filter, value, err)
	}
	return fn
}

func TestCELFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		in     eventlog.Entry
		keep   bool
	}{
		{"json field match", `json.level == "error"`, entry(1, "", `{"level":"error"}`, nil), true},
		{"json field miss", `json.level == "error"`, entry(1, "", `{"level":"info"}`, nil), false},
		{"key prefix", `key.startsWith("user-")`, entry(1, "user-7", "x", nil), true},
		{"header present", `"env" in headers && headers["env"] == "prod"`, entry(1, "", "x", map[string]string{"env": "prod"}), true},
		{"header absent", `"env" in headers`, entry(1, "", "x", nil), false},
		{"size", `size > 3`, entry(1, "", "abc", nil), false},
		{"offset", `offset % 2 == 0`, entry(4, "", "x", nil), true},
		{"timestamp window", `now_ms - ts_ms > 0`, entry(1, "", "x", nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := mustCompile(t, tt.filter, "")(tt.in)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			if got := len(out) == 1; got != tt.keep {
				t.Fatalf("keep = %v want %v", got, tt.keep)
			}
		})
	}
}

func TestCELValue(t *testing.T) {
	in := entry(7, "k", `{"msg":"hello","n":2}`, map[string]string{"h": "v"})
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"string field", `json.msg`, "hello"},
		{"concat", `"<" + key + ">"`, "<k>"},
		{"bytes", `b"raw"`, "raw"},
		{"map", `{"m": json.msg, "o": offset}`, `{"m":"hello","o":7}`},
		{"list", `[json.msg, key]`, `["hello","k"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := mustCompile(t, "", tt.value)(in)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			if len(out) != 1 {
				t.Fatalf("want one record, got %d", len(out))
			}
			if string(out[0].Value) != tt.want {
				t.Fatalf("value = %s want %s", out[0].Value, tt.want)
			}
			if string(out[0].Key) != "k" || out[0].Headers["h"] != "v" || out[0].TimestampMs != 1000 {
				t.Fatalf("metadata not carried over: %+v", out[0])
			}
		})
	}
}

func TestCELEmptyIsIdentity(t *testing.T) {
	in := entry(1, "k", "v", nil)
	out, err := mustCompile(t, " ", "")(in)
	if err != nil || len(out) != 1 || string(out[0].Value) != "v" {
		t.Fatalf("identity: %v %+v", err, out)
	}
}

func TestCELCompileErrors(t *testing.T) {
	tests := []struct {
		filter, value, want string
	}{
		{`offset + 1`, "", "bool"},
		{`offset ==`, "", "filter"},
		{"", `unknown_var`, "value"},
	}
	for _, tt := range tests {
		_, err := CompileCEL(tt.filter, tt.value)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("CompileCEL(%q, %q) err = %v, want mention of %q", tt.filter, tt.value, err, tt.want)
		}
	}
}

func TestCELRuntimeError(t *testing.T) {
	fn := mustCompile(t, `headers["missing"] == "x"`, "")
	if _, err := fn(entry(1, "", "x", nil)); err == nil {
		t.Fatalf("expected missing key error")
	}
	fn = mustCompile(t, `json.flag`, "")
	if _, err := fn(entry(1, "", `{"flag":"yes"}`, nil)); err == nil {
		t.Fatalf("expected non-bool filter result error")
	}
}
