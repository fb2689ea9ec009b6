// Package audit appends one line per fleet event to a date-named log file.
package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrSymlink is returned when the log path is a symbolic link.
var ErrSymlink = errors.New("audit log path is a symlink")

// Event names used by the fleet runner and publisher.
const (
	EventStarting    = "starting"
	EventCompleted   = "completed"
	EventFailed      = "failed"
	EventPostCreated = "post-created"
	EventPostFailed  = "post-failed"
)

// FileName returns the log file name for the UTC day of now.
func FileName(now time.Time) string {
	return fmt.Sprintf("dsc-update-%s.log", now.UTC().Format(time.DateOnly))
}

// Log is an append-only audit file shared by concurrent host tasks.
type Log struct {
	mu   sync.Mutex
	file *os.File
	path string
	now  func() time.Time
}

// Open creates or reopens today's log in dir. An existing symlink at the log
// path is refused instead of followed.
func Open(dir string, now func() time.Time) (*Log, error) {
	if now == nil {
		now = time.Now
	}
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, FileName(now()))

	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	return &Log{file: file, path: path, now: now}, nil
}

func openFile(path string) (*os.File, error) {
	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0o600)
		if err == nil {
			return file, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("creating audit log: %w", err)
		}
		// Lost a race with another process creating the same file.
		if info, err = os.Lstat(path); err != nil {
			return nil, fmt.Errorf("checking audit log: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("checking audit log: %w", err)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymlink, path)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("audit log %s is not a regular file", path)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	// The path may have been swapped between Lstat and OpenFile.
	opened, err := file.Stat()
	if err != nil || !os.SameFile(info, opened) {
		file.Close()
		return nil, fmt.Errorf("audit log %s changed while opening", path)
	}
	return file, nil
}

// Path is the file the log writes to.
func (l *Log) Path() string {
	return l.path
}

// Record appends "<timestamp> <event> <host>[: detail]". Each line is a
// single write so concurrent records never interleave.
func (l *Log) Record(event, host, detail string) error {
	var b strings.Builder
	b.WriteString(l.now().UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(event)
	b.WriteByte(' ')
	b.WriteString(host)
	if detail = oneLine(detail); detail != "" {
		b.WriteString(": ")
		b.WriteString(detail)
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return errors.New("audit log is closed")
	}
	if _, err := l.file.WriteString(b.String()); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	return nil
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
