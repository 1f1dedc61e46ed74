package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newBufferLogger(level Level, f Formatter, opts ...LoggerOption) (Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	all := append([]LoggerOption{
		WithLevel(level),
		WithFormatter(f),
		WithOutput(&ConsoleOutput{W: buf}),
	}, opts...)
	return NewLogger(all...), buf
}

func TestTextFormatterFields(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &TextFormatter{DisableTimestamp: true})
	l.Info("processor started", Str("name", "t1"), Int("partition", 3))

	got := buf.String()
	want := "INFO  processor started name=t1 partition=3\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(WarnLevel, &TextFormatter{DisableTimestamp: true})
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d: %q", len(lines), buf.String())
	}
	if l.GetLevel() != WarnLevel {
		t.Fatalf("level %v", l.GetLevel())
	}
	l.SetLevel(ErrorLevel)
	buf.Reset()
	l.Warn("w")
	if buf.Len() != 0 {
		t.Fatalf("warn should be filtered after SetLevel")
	}
}

func TestWithCarriesFields(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &JSONFormatter{})
	child := l.With(Component("transform"), Str("name", "t1"))
	child.WithError(errors.New("boom")).Error("failed", Uint64("offset", 7))

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if m["component"] != "transform" || m["name"] != "t1" {
		t.Fatalf("missing base fields: %v", m)
	}
	if m["error"] != "boom" {
		t.Fatalf("error field: %v", m["error"])
	}
	if m["offset"] != float64(7) || m["msg"] != "failed" || m["level"] != "ERROR" {
		t.Fatalf("unexpected entry: %v", m)
	}

	// parent is unaffected
	buf.Reset()
	l.Info("plain")
	if strings.Contains(buf.String(), "transform") {
		t.Fatalf("parent picked up child fields: %s", buf.String())
	}
}

func TestInfofKeyValues(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &TextFormatter{DisableTimestamp: true})
	l.Infof("kv", "a", 1, "b", "two")
	if got := buf.String(); got != "INFO  kv a=1 b=two\n" {
		t.Fatalf("got %q", got)
	}
}

func TestRedaction(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &TextFormatter{DisableTimestamp: true}, WithRedactions("token"))
	l.Info("auth", Str("token", "secret"))
	if strings.Contains(buf.String(), "secret") {
		t.Fatalf("token not redacted: %s", buf.String())
	}
}

func TestSampling(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &TextFormatter{DisableTimestamp: true}, WithSampling(2, 3))
	for range 8 {
		l.Info("tick")
	}
	// first 2, then every 3rd of the remaining 6
	if n := strings.Count(buf.String(), "tick"); n != 4 {
		t.Fatalf("want 4 sampled lines, got %d", n)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err=%v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q)=%v want %v", tt.in, got, tt.want)
		}
	}
}

func TestApplyConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flo.log")
	l, err := ApplyConfig(&Config{Level: "debug", Format: "json", Outputs: []OutputConfig{{Type: "file", Path: path}}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	l.Debug("to file", Str("k", "v"))
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `"k":"v"`) {
		t.Fatalf("file output missing entry: %s", b)
	}

	if _, err := ApplyConfig(&Config{Format: "xml"}); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if _, err := ApplyConfig(&Config{Outputs: []OutputConfig{{Type: "file"}}}); err == nil {
		t.Fatalf("expected missing path error")
	}
}

func TestToStdLogger(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &TextFormatter{DisableTimestamp: true})
	std := ToStdLogger(l, WarnLevel)
	std.Printf("pebble: %d files", 3)
	if got := buf.String(); got != "WARN  \"pebble: 3 files\"\n" && got != "WARN  pebble: 3 files\n" {
		t.Fatalf("got %q", got)
	}
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Error("ignored", Str("k", "v"))
	l.With(Component("x")).Warn("also ignored")
}
