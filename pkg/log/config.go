package log

import (
	"fmt"
	stdlog "log"
	"strings"
)

// Config declares how a process logger is built.
type Config struct {
	Level   string         `json:"level"`
	Format  string         `json:"format"` // text|json
	Outputs []OutputConfig `json:"outputs,omitempty"`
	// Redact lists field keys whose values are replaced with [REDACTED].
	Redact []string `json:"redact,omitempty"`
	// SampleInitial/SampleThereafter enable per-message sampling when
	// SampleThereafter > 0.
	SampleInitial    int  `json:"sampleInitial,omitempty"`
	SampleThereafter int  `json:"sampleThereafter,omitempty"`
	ShowCaller       bool `json:"showCaller,omitempty"`
}

// OutputConfig selects an output: console (default), file or null.
type OutputConfig struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
}

// ParseLevel parses debug|info|warn|error|fatal (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// ApplyConfig builds a Logger from cfg. A nil cfg yields an info-level text
// logger on the console.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{ShowCaller: cfg.ShowCaller}
	case "json":
		formatter = &JSONFormatter{ShowCaller: cfg.ShowCaller}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}

	opts := []LoggerOption{
		WithLevel(level),
		WithFormatter(formatter),
		WithRedactions(cfg.Redact...),
		WithSampling(cfg.SampleInitial, cfg.SampleThereafter),
	}
	for _, oc := range cfg.Outputs {
		out, err := buildOutput(oc)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithOutput(out))
	}
	return NewLogger(opts...), nil
}

func buildOutput(oc OutputConfig) (Output, error) {
	switch strings.ToLower(oc.Type) {
	case "", "console", "stderr":
		return NewConsoleOutput(), nil
	case "file":
		if oc.Path == "" {
			return nil, fmt.Errorf("log: file output requires a path")
		}
		return NewFileOutput(oc.Path)
	case "null", "none":
		return NullOutput{}, nil
	default:
		return nil, fmt.Errorf("log: unknown output type %q", oc.Type)
	}
}

// stdWriter adapts a Logger to io.Writer for the standard library logger.
type stdWriter struct {
	logger Logger
	level  Level
}

func (w stdWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	switch w.level {
	case DebugLevel:
		w.logger.Debug(msg)
	case WarnLevel:
		w.logger.Warn(msg)
	case ErrorLevel, FatalLevel:
		w.logger.Error(msg)
	default:
		w.logger.Info(msg)
	}
	return len(p), nil
}

// ToStdLogger returns a *log.Logger that forwards every line to logger at level.
func ToStdLogger(logger Logger, level Level) *stdlog.Logger {
	return stdlog.New(stdWriter{logger: logger, level: level}, "", 0)
}

// RedirectStdLog routes the standard library's default logger (used by
// Pebble and gRPC internals) through logger at InfoLevel.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(stdWriter{logger: logger.WithComponent("stdlib"), level: InfoLevel})
}
