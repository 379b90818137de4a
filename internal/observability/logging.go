package observability

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger used across the service. Loggers
// derived through With or WithContext share their parent's level.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
	SetLevel(level string) error
	Level() string
	Zap() *zap.Logger
	Sync() error
}

// Field is a log field.
type Field = zap.Field

// Field constructors.
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Bool     = zap.Bool
	Error    = zap.Error
	Any      = zap.Any
	Duration = zap.Duration
)

// LogConfig selects level, encoding and destination.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	Output string // stdout or stderr
}

// DefaultLogConfig returns info level JSON on stdout.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

type zapLogger struct {
	zl    *zap.Logger
	level zap.AtomicLevel
}

// callerSkip hides Logger's own frames (the public method and emit).
const callerSkip = 2

// NewLogger builds a zap-backed logger from cfg.
func NewLogger(cfg LogConfig) (Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	level := zap.NewAtomicLevelAt(lvl)

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.FunctionKey = zapcore.OmitKey
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(enc)
	} else {
		encoder = zapcore.NewJSONEncoder(enc)
	}

	sink := zapcore.Lock(os.Stdout)
	if cfg.Output == "stderr" {
		sink = zapcore.Lock(os.Stderr)
	}

	zl := zap.New(zapcore.NewCore(encoder, sink, level), zap.AddCaller(), zap.AddCallerSkip(callerSkip))
	return &zapLogger{zl: zl, level: level}, nil
}

// NewLoggerFromZap wraps zl. The returned logger starts at debug level;
// entries below the core's own level are still dropped by the core.
func NewLoggerFromZap(zl *zap.Logger) Logger {
	return &zapLogger{
		zl:    zl.WithOptions(zap.AddCallerSkip(callerSkip)),
		level: zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return &zapLogger{zl: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
}

func (l *zapLogger) emit(lvl zapcore.Level, msg string, fields []Field) {
	if !l.level.Enabled(lvl) {
		return
	}
	if ce := l.zl.Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.emit(zapcore.DebugLevel, msg, fields) }
func (l *zapLogger) Info(msg string, fields ...Field) { l.emit(zapcore.InfoLevel, msg, fields) }
func (l *zapLogger) Warn(msg string, fields ...Field) { l.emit(zapcore.WarnLevel, msg, fields) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.emit(zapcore.ErrorLevel, msg, fields) }

// Fatal logs regardless of level and exits the process.
func (l *zapLogger) Fatal(msg string, fields ...Field) {
	if ce := l.zl.Check(zapcore.FatalLevel, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{zl: l.zl.With(fields...), level: l.level}
}

// WithContext attaches the request, trace and span ids carried by ctx.
// It returns l itself when ctx carries none.
func (l *zapLogger) WithContext(ctx context.Context) Logger {
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// SetLevel changes the level of l and of every logger derived from it.
func (l *zapLogger) SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.level.SetLevel(lvl)
	return nil
}

func (l *zapLogger) Level() string {
	return l.level.Level().String()
}

// Zap returns the underlying logger without the caller skip.
func (l *zapLogger) Zap() *zap.Logger {
	return l.zl.WithOptions(zap.AddCallerSkip(-callerSkip))
}

func (l *zapLogger) Sync() error {
	return l.zl.Sync()
}

// SetGlobalLogger makes logger the target of zap.L and zap.S, so
// libraries logging through zap's globals end up in the same sink.
func SetGlobalLogger(logger Logger) {
	zap.ReplaceGlobals(logger.Zap())
}
