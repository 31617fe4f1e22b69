// Package log wraps zap behind a small key-value logging interface.
package log

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used across the service.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(err error, msg string, keysAndValues ...any)

	// WithName returns a logger with name appended to its name.
	WithName(name string) Logger
	// WithValues returns a logger that adds keysAndValues to every entry.
	WithValues(keysAndValues ...any) Logger

	// Logr exposes the logger as a logr.Logger.
	Logr() logr.Logger
	// Sync flushes buffered entries.
	Sync() error
}

var _ Logger = (*zapLogger)(nil)

type zapLogger struct {
	core *zap.Logger
}

// New builds a Logger from opts. A nil opts uses NewOptions defaults.
func New(opts *Options) (Logger, error) {
	if opts == nil {
		opts = NewOptions()
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:    "message",
		LevelKey:      "level",
		TimeKey:       "timestamp",
		NameKey:       "logger",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
		EncodeDuration: func(d time.Duration, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendFloat64(float64(d) / float64(time.Millisecond))
		},
	}
	if opts.Format == "console" && opts.EnableColor {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", opts.Level, err)
	}

	outputPaths := opts.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	cfg := zap.Config{
		DisableCaller:    opts.DisableCaller,
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         opts.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	core, err := cfg.Build(zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	if opts.Name != "" {
		core = core.Named(opts.Name)
	}
	return &zapLogger{core: core}, nil
}

// NewFromZap wraps an existing zap logger.
func NewFromZap(core *zap.Logger) Logger {
	return &zapLogger{core: core}
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &zapLogger{core: zap.NewNop()}
}

func (z *zapLogger) Debug(msg string, keysAndValues ...any) {
	z.core.Debug(msg, toFields(keysAndValues...)...)
}

func (z *zapLogger) Info(msg string, keysAndValues ...any) {
	z.core.Info(msg, toFields(keysAndValues...)...)
}

func (z *zapLogger) Warn(msg string, keysAndValues ...any) {
	z.core.Warn(msg, toFields(keysAndValues...)...)
}

func (z *zapLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := toFields(keysAndValues...)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	z.core.Error(msg, fields...)
}

func (z *zapLogger) WithName(name string) Logger {
	return &zapLogger{core: z.core.Named(name)}
}

func (z *zapLogger) WithValues(keysAndValues ...any) Logger {
	return &zapLogger{core: z.core.With(toFields(keysAndValues...)...)}
}

func (z *zapLogger) Logr() logr.Logger {
	return zapr.NewLogger(z.core)
}

func (z *zapLogger) Sync() error {
	return z.core.Sync()
}

// toFields turns alternating key/value arguments into zap fields. Bare
// errors and ready-made zap.Fields are accepted in any position.
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			i++
			continue
		case error:
			fields = append(fields, zap.Error(v))
			i++
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i += 2

		keyStr, ok := key.(string)
		if !ok {
			keyStr = fmt.Sprintf("invalid_key_%d", i/2)
			val = map[string]any{"key": key, "value": val}
		}
		if err, isErr := val.(error); isErr {
			fields = append(fields, zap.NamedError(keyStr, err))
			continue
		}
		fields = append(fields, zap.Any(keyStr, val))
	}
	return fields
}
