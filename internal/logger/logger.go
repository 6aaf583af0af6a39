package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured logging interface used across the tool.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	With(fields ...Field) Logger
}

// Field represents a logging field.
type Field struct {
	Key   string
	Value interface{}
}

// Config controls the global logger.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type zeroLogger struct {
	logger zerolog.Logger
	fields []Field
}

var (
	globalLogger *zeroLogger
	once         sync.Once
)

// Initialize sets up the global logger. Subsequent calls are no-ops.
func Initialize(config Config) {
	once.Do(func() {
		var output io.Writer
		switch config.Output {
		case "", "stderr":
			output = os.Stderr
		case "stdout":
			output = os.Stdout
		default:
			file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				output = os.Stderr
			} else {
				output = file
			}
		}

		if config.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: time.RFC3339,
			}
		}

		zerolog.SetGlobalLevel(parseLevel(config.Level))

		globalLogger = &zeroLogger{
			logger: zerolog.New(output).With().Timestamp().Logger(),
		}
	})
}

// Get returns the global logger, initializing it with defaults if needed.
func Get() Logger {
	if globalLogger == nil {
		Initialize(Config{Level: "info", Format: "console", Output: "stderr"})
	}
	return globalLogger
}

// New returns a component-scoped logger backed by the global logger.
func New(component string) Logger {
	return Get().With(String("component", component))
}

// NewWithOutput returns a logger writing JSON lines to w. Tests use this to
// capture and count log events.
func NewWithOutput(w io.Writer, component string) Logger {
	zl := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &zeroLogger{logger: zl}
}

// With returns a logger carrying additional fields.
func (l *zeroLogger) With(fields ...Field) Logger {
	return &zeroLogger{
		logger: l.logger,
		fields: append(append([]Field{}, l.fields...), fields...),
	}
}

// Debug logs a debug message.
func (l *zeroLogger) Debug(msg string, fields ...Field) {
	l.logEvent(l.logger.Debug(), msg, fields...)
}

// Info logs an info message.
func (l *zeroLogger) Info(msg string, fields ...Field) {
	l.logEvent(l.logger.Info(), msg, fields...)
}

// Warn logs a warning message.
func (l *zeroLogger) Warn(msg string, fields ...Field) {
	l.logEvent(l.logger.Warn(), msg, fields...)
}

// Error logs an error message.
func (l *zeroLogger) Error(msg string, fields ...Field) {
	l.logEvent(l.logger.Error(), msg, fields...)
}

// Fatal logs a fatal message and exits.
func (l *zeroLogger) Fatal(msg string, fields ...Field) {
	l.logEvent(l.logger.Fatal(), msg, fields...)
}

func (l *zeroLogger) logEvent(event *zerolog.Event, msg string, fields ...Field) {
	for _, field := range l.fields {
		event = addField(event, field)
	}
	for _, field := range fields {
		event = addField(event, field)
	}
	event.Msg(msg)
}

func addField(event *zerolog.Event, field Field) *zerolog.Event {
	switch v := field.Value.(type) {
	case string:
		return event.Str(field.Key, v)
	case int:
		return event.Int(field.Key, v)
	case int64:
		return event.Int64(field.Key, v)
	case float64:
		return event.Float64(field.Key, v)
	case bool:
		return event.Bool(field.Key, v)
	case time.Time:
		return event.Time(field.Key, v)
	case time.Duration:
		return event.Dur(field.Key, v)
	case []string:
		return event.Strs(field.Key, v)
	case error:
		return event.AnErr(field.Key, v)
	default:
		return event.Interface(field.Key, v)
	}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Field constructors

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

func Strings(key string, value []string) Field {
	return Field{Key: key, Value: value}
}

func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
