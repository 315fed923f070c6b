// Package clog is a small leveled, structured logger in the style of the
// teacher's own log package: key-value pairs, call-site capture via
// go-stack/stack, and a terminal formatter suitable for development use.
package clog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-stack/stack"
)

// Level is a log verbosity level, most to least severe.
type Level int

const (
	LevelCrit Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelCrit:
		return "CRIT"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Logger emits leveled, key-value structured log lines.
type Logger struct {
	name string
	ctx  []interface{}
}

var (
	mu       sync.Mutex
	out      io.Writer = os.Stderr
	minLevel           = LevelInfo
)

// SetOutput redirects all loggers to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetLevel sets the global verbosity threshold; messages more verbose than
// lvl are dropped.
func SetLevel(lvl Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = lvl
}

// New returns a Logger scoped to name with the given persistent context
// key-value pairs, mirroring the teacher's module-scoped loggers
// (e.g. "module", "downloader").
func New(name string, ctx ...interface{}) *Logger {
	return &Logger{name: name, ctx: ctx}
}

// With returns a derived logger with additional persistent context.
func (l *Logger) With(ctx ...interface{}) *Logger {
	merged := make([]interface{}, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &Logger{name: l.name, ctx: merged}
}

func (l *Logger) log(lvl Level, msg string, kv []interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if lvl > minLevel {
		return
	}
	call := stack.Caller(2)
	line := formatLine(lvl, l.name, msg, append(append([]interface{}{}, l.ctx...), kv...), call)
	fmt.Fprint(out, line)
}

func formatLine(lvl Level, name, msg string, kv []interface{}, call stack.Call) string {
	var b strings.Builder
	b.WriteString(lvl.String())
	b.WriteString(" [")
	b.WriteString(time.Now().Format("01-02|15:04:05.000"))
	b.WriteString("] ")
	if name != "" {
		b.WriteString("[")
		b.WriteString(name)
		b.WriteString("] ")
	}
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 == 1 {
		fmt.Fprintf(&b, " %v=MISSING", kv[len(kv)-1])
	}
	fmt.Fprintf(&b, " (%+v)\n", call)
	return b.String()
}

func (l *Logger) Crit(msg string, ctx ...interface{})  { l.log(LevelCrit, msg, ctx) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.log(LevelError, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.log(LevelWarn, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.log(LevelInfo, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.log(LevelDebug, msg, ctx) }
func (l *Logger) Trace(msg string, ctx ...interface{}) { l.log(LevelTrace, msg, ctx) }

var root = New("")

// Root returns the package-level default logger.
func Root() *Logger { return root }

func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { root.Crit(msg, ctx...) }
