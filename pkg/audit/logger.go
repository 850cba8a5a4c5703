package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// logRelPath is the audit log location under the home directory.
const logRelPath = ".claude/logs/gatehouse.log"

// Logger is a mutex-guarded append-only JSON Lines writer. One entry per
// line; every append is flushed before returning so a crash never loses an
// acknowledged entry.
type Logger struct {
	mu      sync.Mutex
	path    string
	rotator *Rotator
}

// NewLogger builds a logger writing to path, creating parent directories as
// needed. rotator may be nil to disable size-based rotation.
func NewLogger(path string, rotator *Rotator) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Logger{path: path, rotator: rotator}, nil
}

// Path returns the log file path.
func (l *Logger) Path() string { return l.path }

// Append writes one entry as a JSON line. An empty entry ID is assigned
// here. The write is atomic with respect to concurrent appenders on this
// Logger.
func (l *Logger) Append(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return f.Sync()
}

// Rotate applies the rotation policy now. Appends never rotate; a
// long-running caller invokes this explicitly, normally via the Scheduler.
func (l *Logger) Rotate() error {
	if l.rotator == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rotator.MaybeRotate(l.path)
}

// DefaultPath returns the default audit log path under the home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, logRelPath), nil
}

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
	defaultErr    error
)

// Default returns the process-wide logger at the default path, constructed
// on first use with the default rotation policy.
func Default() (*Logger, error) {
	defaultOnce.Do(func() {
		path, err := DefaultPath()
		if err != nil {
			defaultErr = err
			return
		}
		defaultLogger, defaultErr = NewLogger(path, DefaultRotator())
	})
	return defaultLogger, defaultErr
}
