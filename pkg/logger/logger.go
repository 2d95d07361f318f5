package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a leveled structured logger over zerolog.
type Logger struct {
	zl zerolog.Logger
}

// Config is the log section of the application config.
type Config struct {
	Level      string `yaml:"level" default:"info"`    // trace, debug, info, warn, error
	Format     string `yaml:"format" default:"json"`   // json or console
	Output     string `yaml:"output" default:"stdout"` // stdout, stderr, or a file path
	TimeFormat string `yaml:"time_format"`             // defaults to RFC3339 with nanoseconds
}

// New builds a logger from cfg. The level applies to this logger only.
func New(cfg *Config) (*Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = zerolog.ParseLevel(cfg.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat

	switch cfg.Format {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	l := NewWithWriter(out)
	l.zl = l.zl.Level(level)
	return l, nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// NewWithWriter builds a JSON logger writing every level to w.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{zl: zerolog.New(w).With().Timestamp().CallerWithSkipFrameCount(3).Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.context(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field) { l.emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field) { l.emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(l.zl.Error(), msg, fields) }

func (l *Logger) emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		f.event(e)
	}
	e.Msg(msg)
}

type kind uint8

const (
	kindAny kind = iota
	kindString
	kindInt
	kindFloat
	kindBool
	kindTime
	kindStrings
	kindError
)

// Field is one key/value pair of a log line.
type Field struct {
	Key   string
	Value interface{}
	kind  kind
}

func (f Field) event(e *zerolog.Event) {
	switch f.kind {
	case kindString:
		e.Str(f.Key, f.Value.(string))
	case kindInt:
		e.Int(f.Key, f.Value.(int))
	case kindFloat:
		e.Float64(f.Key, f.Value.(float64))
	case kindBool:
		e.Bool(f.Key, f.Value.(bool))
	case kindTime:
		e.Time(f.Key, f.Value.(time.Time))
	case kindStrings:
		e.Strs(f.Key, f.Value.([]string))
	case kindError:
		if err, _ := f.Value.(error); err != nil {
			e.AnErr(f.Key, err)
		}
	default:
		e.Interface(f.Key, f.Value)
	}
}

func (f Field) context(c zerolog.Context) zerolog.Context {
	switch f.kind {
	case kindString:
		return c.Str(f.Key, f.Value.(string))
	case kindInt:
		return c.Int(f.Key, f.Value.(int))
	case kindFloat:
		return c.Float64(f.Key, f.Value.(float64))
	case kindBool:
		return c.Bool(f.Key, f.Value.(bool))
	case kindTime:
		return c.Time(f.Key, f.Value.(time.Time))
	case kindStrings:
		return c.Strs(f.Key, f.Value.([]string))
	case kindError:
		if err, _ := f.Value.(error); err != nil {
			return c.AnErr(f.Key, err)
		}
		return c
	default:
		return c.Interface(f.Key, f.Value)
	}
}

func String(key, value string) Field { return Field{key, value, kindString} }
func Int(key string, value int) Field { return Field{key, value, kindInt} }
func Float64(key string, value float64) Field { return Field{key, value, kindFloat} }
func Bool(key string, value bool) Field { return Field{key, value, kindBool} }
func Time(key string, value time.Time) Field { return Field{key, value, kindTime} }
func Any(key string, value interface{}) Field { return Field{key, value, kindAny} }

// Strings logs value as a JSON array.
func Strings(key string, value []string) Field { return Field{key, value, kindStrings} }

// Error logs err under "error"; a nil err adds nothing.
func Error(err error) Field { return Field{"error", err, kindError} }

// Duration logs value in whole milliseconds.
func Duration(key string, value time.Duration) Field {
	return Field{key, int(value / time.Millisecond), kindInt}
}
