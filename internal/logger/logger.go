package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps the zap logger with additional functionality.
type Logger struct {
	*zap.Logger
}

// Options configures a logger built by NewLoggerWithOptions.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// File, when set, writes JSON logs to a rotated file in addition to stdout.
	File string
	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
}

// NewLogger creates a new logger instance with production configuration.
func NewLogger() (*Logger, error) {
	return NewLoggerWithLevel("info")
}

// NewLoggerWithLevel creates a production logger at the given level.
func NewLoggerWithLevel(level string) (*Logger, error) {
	config := zap.NewProductionConfig()

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	atomicLevel, err := zap.ParseAtomicLevel(levelOrDefault(level))
	if err != nil {
		return nil, err
	}

	config.Level = atomicLevel

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: zapLogger,
	}, nil
}

// NewLoggerWithOptions creates a logger that tees stdout and an optional rotated file.
func NewLoggerWithOptions(opts Options) (*Logger, error) {
	if opts.File == "" {
		return NewLoggerWithLevel(opts.Level)
	}

	level, err := zapcore.ParseLevel(levelOrDefault(opts.Level))
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 50
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxBackups: opts.MaxBackups,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level),
	)

	return &Logger{
		Logger: zap.New(core, zap.AddCaller()),
	}, nil
}

// NewNopLogger returns a logger that discards everything. Used by tests and library callers
// that do not want engine output.
func NewNopLogger() *Logger {
	return &Logger{
		Logger: zap.NewNop(),
	}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l.Logger != nil {
		return l.Logger.Sync()
	}

	return nil
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}

	return level
}
