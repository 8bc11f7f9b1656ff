// Package logbook keeps the activity journal shown beside the signature
// form: who signed, which submissions were rejected, and when the table
// changed underneath us.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a journal entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Entry is one parsed journal line.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// String renders the entry in its on-disk form, without the newline.
func (e Entry) String() string {
	return fmt.Sprintf("%s %-5s %s", e.Time.UTC().Format(time.RFC3339), string(e.Level), e.Message)
}

// ParseEntry reads a line written by Append. Lines that do not start with a
// timestamp and a known level are reported as not ok.
func ParseEntry(line string) (Entry, bool) {
	stamp, rest, ok := strings.Cut(line, " ")
	if !ok {
		return Entry{}, false
	}
	ts, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return Entry{}, false
	}
	level, message, _ := strings.Cut(rest, " ")
	switch Level(level) {
	case LevelInfo, LevelWarn, LevelError:
	default:
		return Entry{}, false
	}
	return Entry{Time: ts, Level: Level(level), Message: strings.TrimLeft(message, " ")}, true
}

// Logbook is the journal file. Each entry occupies exactly one line.
type Logbook struct {
	path  string
	clock func() time.Time
	mu    sync.Mutex
}

// New opens the journal at path, creating its directory.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	return &Logbook{path: path, clock: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append records message at level. Whitespace runs, newlines included, are
// folded to single spaces.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := Entry{
		Time:    l.clock(),
		Level:   level,
		Message: strings.Join(strings.Fields(message), " "),
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(entry.String() + "\n")
}

// Recent returns up to n of the newest entries, oldest first, and the number
// of entries in the journal. Lines that do not parse are skipped and not
// counted.
func (l *Logbook) Recent(n int) ([]Entry, int) {
	if l == nil || n <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	ring := make([]Entry, 0, n)
	total := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		entry, ok := ParseEntry(scanner.Text())
		if !ok {
			continue
		}
		total++
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, entry)
	}
	if len(ring) == 0 {
		return nil, total
	}
	return ring, total
}

// Info journals a routine event such as a saved signature.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn journals a rejected submission.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error journals an unexpected failure.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}
