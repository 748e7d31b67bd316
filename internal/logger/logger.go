package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/term"
)

// Logger wraps the standard log.Logger with verbose gating and in-place
// progress output for terminals.
type Logger struct {
	*log.Logger

	verbose atomic.Bool

	mu          sync.Mutex
	out         io.Writer
	interactive bool // out is a terminal; progress lines overwrite each other
	pending     bool // an in-place progress line is on screen
}

// New creates a new logger writing to stdout.
func New() *Logger {
	return NewWriter(os.Stdout)
}

// NewWriter creates a new logger that writes to the provided writer
func NewWriter(w io.Writer) *Logger {
	l := &Logger{Logger: log.New(w, "", log.LstdFlags)}
	l.setOut(w)
	return l
}

// Discard returns a logger that drops everything, for tests and benchmarks.
func Discard() *Logger {
	return NewWriter(io.Discard)
}

func (l *Logger) setOut(w io.Writer) {
	l.out = w
	l.interactive = false
	if f, ok := w.(*os.File); ok {
		l.interactive = term.IsTerminal(int(f.Fd()))
	}
}

// SetOutput sets the output destination for the logger
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Logger.SetOutput(w)
	l.setOut(w)
}

// SetFlags sets the output flags for the logger
func (l *Logger) SetFlags(flag int) {
	l.Logger.SetFlags(flag)
}

// SetVerbose enables Verbosef output.
func (l *Logger) SetVerbose(v bool) {
	l.verbose.Store(v)
}

// Verbose reports whether verbose output is enabled.
func (l *Logger) Verbose() bool {
	return l.verbose.Load()
}

// Printf logs a line, first ending any in-place progress line.
func (l *Logger) Printf(format string, v ...any) {
	l.mu.Lock()
	l.breakLine()
	l.mu.Unlock()
	l.Logger.Printf(format, v...)
}

// Println logs a line, first ending any in-place progress line.
func (l *Logger) Println(v ...any) {
	l.mu.Lock()
	l.breakLine()
	l.mu.Unlock()
	l.Logger.Println(v...)
}

// Verbosef logs only when verbose output is enabled.
func (l *Logger) Verbosef(format string, v ...any) {
	if !l.Verbose() {
		return
	}
	l.Printf(format, v...)
}

// Progressf writes a progress line. On a terminal the line is rewritten in
// place; anywhere else it is logged like any other line.
func (l *Logger) Progressf(format string, v ...any) {
	l.mu.Lock()
	if l.interactive {
		fmt.Fprintf(l.out, "\r\033[K"+format, v...)
		l.pending = true
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	l.Logger.Printf(format, v...)
}

// breakLine terminates a pending in-place line. Caller holds mu.
func (l *Logger) breakLine() {
	if l.pending {
		fmt.Fprintln(l.out)
		l.pending = false
	}
}
