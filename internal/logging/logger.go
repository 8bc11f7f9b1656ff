// Package logging writes the developer diagnostics log. The form never shows
// it; it is where store, bridge and unexpected submit failures end up.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/signroll/internal/config"
)

// FileName is the diagnostics log under .signroll/logs.
const FileName = "signroll.log"

// Logger appends one timestamped record per Printf. Continuation lines of a
// multi-line message are indented with a tab so a record stays grep-able by
// its first line.
type Logger struct {
	mu    sync.Mutex
	file  *os.File
	clock func() time.Time
}

// New opens the diagnostics log for the given base directory.
func New(baseDir string) (*Logger, error) {
	return Open(filepath.Join(baseDir, config.SignrollDir, "logs", FileName))
}

// Open appends to the log file at path, creating it and its directory.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", path, err)
	}
	return &Logger{file: f, clock: time.Now}, nil
}

// Path returns the log file location, or "" for a nil logger.
func (l *Logger) Path() string {
	if l == nil || l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close releases the file handle. Printf after Close is a no-op.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Printf satisfies the Logger interfaces of roster, submit and eventbridge.
// The bridge server calls it from its own goroutines.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	msg = strings.ReplaceAll(msg, "\n", "\n\t")
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	fmt.Fprintf(l.file, "%s %s\n", l.clock().UTC().Format(time.RFC3339), msg)
}
