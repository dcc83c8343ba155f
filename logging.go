package geoscene

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

// DefaultLogPrefix tags lines from a DefaultLogger created without a prefix.
const DefaultLogPrefix = "geoscene"

// Logger is the logging surface shared by the controller, layers and
// renderers. It satisfies frame.Logger.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type level uint8

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (lv level) String() string { return levelNames[lv] }

// DefaultLogger writes debug and info lines to stdout and warnings and
// errors to stderr, each as "[prefix] LEVEL: message".
type DefaultLogger struct {
	debug  atomic.Bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return newWriterLogger(prefix, debug, os.Stdout, os.Stderr, log.LstdFlags|log.Lmicroseconds)
}

func newWriterLogger(prefix string, debug bool, out, err io.Writer, flags int) *DefaultLogger {
	if prefix == "" {
		prefix = DefaultLogPrefix
	}
	l := &DefaultLogger{
		prefix: "[" + prefix + "] ",
		out:    log.New(out, "", flags),
		err:    log.New(err, "", flags),
	}
	l.debug.Store(debug)
	return l
}

func (l *DefaultLogger) DebugEnabled() bool    { return l.debug.Load() }
func (l *DefaultLogger) SetDebug(enabled bool) { l.debug.Store(enabled) }

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.DebugEnabled() {
		l.emit(levelDebug, format, args)
	}
}

func (l *DefaultLogger) Infof(format string, args ...any)  { l.emit(levelInfo, format, args) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.emit(levelWarn, format, args) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.emit(levelError, format, args) }

func (l *DefaultLogger) emit(lv level, format string, args []any) {
	dst := l.out
	if lv >= levelWarn {
		dst = l.err
	}
	dst.Print(l.prefix + lv.String() + ": " + fmt.Sprintf(format, args...))
}

// NopLogger discards everything.
type NopLogger struct{}

func NewNopLogger() Logger { return NopLogger{} }

func (NopLogger) DebugEnabled() bool    { return false }
func (NopLogger) SetDebug(bool)         {}
func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

// orNop never returns nil.
func orNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
