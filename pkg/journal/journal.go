// Package journal records watch-mode reports to a directory, one JSON file per tick.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Entry is one recorded tick.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Seq       int       `json:"seq"`
	Report    any       `json:"report,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Writer persists entries as <command>_<utc time>_<seq>.json under dir.
type Writer struct {
	dir string

	mu  sync.Mutex
	seq int
	now func() time.Time
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWriter creates dir if needed.
func NewWriter(dir string, opts ...Option) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("journal: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: create %s: %w", dir, err)
	}
	w := &Writer{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Write records report, or err when the tick failed, and returns the file path.
func (w *Writer) Write(command string, report any, err error) (string, error) {
	w.mu.Lock()
	w.seq++
	entry := Entry{Timestamp: w.now().UTC(), Command: command, Seq: w.seq, Report: report}
	w.mu.Unlock()
	if err != nil {
		entry.Report = nil
		entry.Error = err.Error()
	}

	data, mErr := json.MarshalIndent(entry, "", "  ")
	if mErr != nil {
		return "", fmt.Errorf("journal: encode %s: %w", command, mErr)
	}
	name := fmt.Sprintf("%s_%s_%05d.json", command, entry.Timestamp.Format("20060102_150405"), entry.Seq)
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("journal: write %s: %w", path, err)
	}
	return path, nil
}
