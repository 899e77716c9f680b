// Package logger provides leveled logging for the game server.
// Every player action and scheduled transition should be traceable through it.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	colorReset  = "\033[0m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// Logger provides leveled logging with context.
type Logger struct {
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	debug       bool
}

// NewLogger creates a logger writing to stdout and stderr. Level prefixes are
// coloured when the output is a terminal.
func NewLogger() *Logger {
	color := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return newLogger(os.Stdout, os.Stderr, color)
}

// NewWriterLogger creates an uncoloured logger writing every level to w.
func NewWriterLogger(w io.Writer) *Logger {
	return newLogger(w, w, false)
}

// NewNopLogger discards everything. Used by tests.
func NewNopLogger() *Logger {
	return newLogger(io.Discard, io.Discard, false)
}

func newLogger(out, errOut io.Writer, color bool) *Logger {
	prefix := func(level, c string) string {
		if color {
			return c + "[MEMORIA-" + level + "]" + colorReset + " "
		}
		return "[MEMORIA-" + level + "] "
	}
	flags := log.Ldate | log.Ltime | log.Lmicroseconds
	return &Logger{
		debugLogger: log.New(out, prefix("DEBUG", colorGray), flags),
		infoLogger:  log.New(out, prefix("INFO", colorBlue), flags),
		warnLogger:  log.New(out, prefix("WARN", colorYellow), flags),
		errorLogger: log.New(errOut, prefix("ERROR", colorRed), flags),
	}
}

// SetDebug toggles Debug output.
func (l *Logger) SetDebug(enabled bool) {
	l.debug = enabled
}

// Debug logs verbose messages when debug output is enabled.
func (l *Logger) Debug(msg string) {
	if l.debug {
		l.debugLogger.Println(msg)
	}
}

// Debugf is the formatted variant of Debug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.debug {
		l.debugLogger.Printf(format, args...)
	}
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.infoLogger.Println(msg)
}

// Infof is the formatted variant of Info.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.infoLogger.Printf(format, args...)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.warnLogger.Println(msg)
}

// Warnf is the formatted variant of Warn.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.warnLogger.Printf(format, args...)
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.errorLogger.Println(msg)
}

// Errorf is the formatted variant of Error.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.errorLogger.Printf(format, args...)
}

// Event logs a game event for a specific actor.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.infoLogger.Printf("[EVENT:%s] Actor:%s | %s", eventType, actorID, details)
}

// Eventf is the formatted variant of Event.
func (l *Logger) Eventf(eventType string, actorID string, format string, args ...interface{}) {
	l.Event(eventType, actorID, fmt.Sprintf(format, args...))
}
