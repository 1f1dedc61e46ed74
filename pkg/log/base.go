package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

var _ Logger = (*BaseLogger)(nil)

// exit is replaced in tests.
var exit = os.Exit

func (l *BaseLogger) log(level Level, msg string, attrs []slog.Attr) {
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrs...)
}

// Debug logs at DebugLevel.
func (l *BaseLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, attrsFromFieldSlice(fields))
}

// Info logs at InfoLevel.
func (l *BaseLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, attrsFromFieldSlice(fields))
}

// Warn logs at WarnLevel.
func (l *BaseLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, attrsFromFieldSlice(fields))
}

// Error logs at ErrorLevel.
func (l *BaseLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, attrsFromFieldSlice(fields))
}

// Fatal logs at ErrorLevel and exits the process.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, attrsFromFieldSlice(fields))
	l.close()
	exit(1)
}

// Debugf logs msg with key/value pairs at DebugLevel.
func (l *BaseLogger) Debugf(msg string, args ...interface{}) {
	l.log(DebugLevel, msg, argsToAttrs(args))
}

// Infof logs msg with key/value pairs at InfoLevel.
func (l *BaseLogger) Infof(msg string, args ...interface{}) {
	l.log(InfoLevel, msg, argsToAttrs(args))
}

// Warnf logs msg with key/value pairs at WarnLevel.
func (l *BaseLogger) Warnf(msg string, args ...interface{}) {
	l.log(WarnLevel, msg, argsToAttrs(args))
}

// Errorf logs msg with key/value pairs at ErrorLevel.
func (l *BaseLogger) Errorf(msg string, args ...interface{}) {
	l.log(ErrorLevel, msg, argsToAttrs(args))
}

// Fatalf logs msg with key/value pairs and exits the process.
func (l *BaseLogger) Fatalf(msg string, args ...interface{}) {
	l.log(FatalLevel, msg, argsToAttrs(args))
	l.close()
	exit(1)
}

// WithField returns a derived logger carrying key=value.
func (l *BaseLogger) WithField(key string, value interface{}) Logger {
	return l.derive(Fields{key: value})
}

// WithFields returns a derived logger carrying fields.
func (l *BaseLogger) WithFields(fields Fields) Logger {
	return l.derive(fields)
}

// WithError returns a derived logger carrying err.
func (l *BaseLogger) WithError(err error) Logger {
	return l.derive(Fields{ErrorKey: err})
}

// With returns a derived logger carrying fields.
func (l *BaseLogger) With(fields ...Field) Logger {
	m := make(Fields, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return l.derive(m)
}

// WithContext returns a derived logger carrying the request/trace values
// found in ctx.
func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	return l.derive(ContextExtractor(ctx))
}

// WithComponent tags logs with a component name.
func (l *BaseLogger) WithComponent(component string) Logger {
	return l.derive(Fields{ComponentKey: component})
}

// SetLevel sets the minimum level of this logger. Derived loggers created
// earlier keep their own level.
func (l *BaseLogger) SetLevel(level Level) { l.level = level }

// GetLevel returns the minimum level.
func (l *BaseLogger) GetLevel() Level { return l.level }

// Slog exposes the underlying slog.Logger.
func (l *BaseLogger) Slog() *slog.Logger { return l.slogLogger }

func (l *BaseLogger) derive(extra Fields) *BaseLogger {
	merged := make(Fields, len(l.fields)+len(extra))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	child := &BaseLogger{
		level:            l.level,
		fields:           merged,
		formatter:        l.formatter,
		outputs:          l.outputs,
		redactions:       l.redactions,
		sampleInitial:    l.sampleInitial,
		sampleThereafter: l.sampleThereafter,
	}
	child.slogLogger = slog.New(child.handler())
	return child
}

func (l *BaseLogger) close() {
	for _, out := range l.outputs {
		if err := out.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "log: close output: %v\n", err)
		}
	}
}
