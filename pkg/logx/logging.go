package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Config selects the sinks of a process-wide logger. It is applied once:
// rotapost never reloads its configuration.
type Config struct {
	Level   string
	Console bool
	File    FileConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

const (
	timeFormat      = "2006-01-02T15:04:05.000Z07:00"
	defaultFilePath = "./rotapost.log"
)

// Logger is a structured logger value. The zero value discards everything;
// With returns a copy carrying extra fields.
type Logger struct {
	zl     zerolog.Logger
	set    bool
	fields []Field
}

// Nop returns a logger that never writes. Tests pass it to components.
func Nop() Logger { return Logger{zl: zerolog.Nop(), set: true} }

// NewConsole is a console-only logger for use before the config is loaded.
func NewConsole(level string) Logger {
	setGlobals()
	return Logger{zl: newRoot(consoleWriter(os.Stdout), level), set: true}
}

func (l Logger) IsZero() bool { return !l.set && len(l.fields) == 0 }

func (l Logger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	cp := l
	cp.fields = append(append([]Field(nil), l.fields...), fields...)
	return cp
}

func (l Logger) Debug(msg string, fields ...Field) { l.write(zerolog.DebugLevel, msg, fields) }
func (l Logger) Info(msg string, fields ...Field)  { l.write(zerolog.InfoLevel, msg, fields) }
func (l Logger) Warn(msg string, fields ...Field)  { l.write(zerolog.WarnLevel, msg, fields) }
func (l Logger) Error(msg string, fields ...Field) { l.write(zerolog.ErrorLevel, msg, fields) }

// Printf and the leveled variants make Logger usable as resty's and cron's
// logger. Library chatter goes to debug; their warnings and errors keep
// their level.
func (l Logger) Printf(format string, args ...any) {
	l.write(zerolog.DebugLevel, sprintf(format, args), nil)
}

func (l Logger) Debugf(format string, args ...any) {
	l.write(zerolog.DebugLevel, sprintf(format, args), nil)
}

func (l Logger) Warnf(format string, args ...any) {
	l.write(zerolog.WarnLevel, sprintf(format, args), nil)
}

func (l Logger) Errorf(format string, args ...any) {
	l.write(zerolog.ErrorLevel, sprintf(format, args), nil)
}

func sprintf(format string, args []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}

func (l Logger) write(level zerolog.Level, msg string, fields []Field) {
	if !l.set {
		return
	}
	e := l.zl.WithLevel(level)
	if e == nil {
		return
	}
	// Frames: write, the exported method, its caller.
	if _, file, line, ok := runtime.Caller(2); ok {
		e.Str(zerolog.CallerFieldName, filepath.Base(file)+":"+strconv.Itoa(line))
	}
	for _, f := range l.fields {
		if f != nil {
			f(e)
		}
	}
	for _, f := range fields {
		if f != nil {
			f(e)
		}
	}
	e.Msg(msg)
}

// StackTrace renders up to maxFrames frames of the current goroutine, one
// "function\n  file:line" pair per frame. Used when recovering panics.
func StackTrace(skip, maxFrames int) string {
	if maxFrames <= 0 {
		maxFrames = 16
	}
	pcs := make([]uintptr, maxFrames)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(skip, pcs)])
	var b strings.Builder
	for n := 0; n < maxFrames; {
		fr, more := frames.Next()
		if fr.File != "" {
			if n > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s\n  %s:%d", fr.Function, fr.File, fr.Line)
			n++
		}
		if !more {
			break
		}
	}
	return b.String()
}

// Service owns the sinks behind the root logger.
type Service struct {
	file *os.File
}

// New opens the configured sinks and returns the service (to Close on exit)
// with the root logger. A log file that cannot be opened is reported on
// stderr and skipped; the console takes over when no sink is left.
func New(cfg Config) (*Service, Logger) {
	setGlobals()
	s := &Service{}

	var sinks []io.Writer
	if cfg.Console {
		sinks = append(sinks, consoleWriter(os.Stdout))
	}
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = defaultFilePath
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logx: open %s: %v\n", path, err)
		} else {
			s.file = f
			sinks = append(sinks, zerolog.SyncWriter(f))
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, consoleWriter(os.Stdout))
	}

	return s, Logger{zl: newRoot(zerolog.MultiLevelWriter(sinks...), cfg.Level), set: true}
}

func (s *Service) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	f := s.file
	s.file = nil
	return f.Close()
}

func setGlobals() {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = timeFormat
}

func newRoot(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level, zerolog.InfoLevel)).With().Timestamp().Logger()
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
}

func parseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return def
	}
}
