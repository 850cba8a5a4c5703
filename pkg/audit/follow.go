package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

// Follower incrementally reads entries appended to the log since its last
// poll. Rotation is detected by the file shrinking; the follower then
// restarts from the top of the new live file.
type Follower struct {
	path   string
	offset int64
	log    *slog.Logger
}

// NewFollower creates a follower starting at the beginning of path. The
// file does not need to exist yet.
func NewFollower(path string) *Follower {
	return &Follower{
		path: path,
		log:  slog.Default().With("component", "audit.follower"),
	}
}

// Poll returns the complete entries appended since the previous call. A
// trailing line without a newline belongs to an in-flight append and is
// left for the next poll.
func (f *Follower) Poll() ([]Entry, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.offset = 0
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat audit log: %w", err)
	}
	if info.Size() < f.offset {
		f.offset = 0
	}
	if _, err := fh.Seek(f.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek audit log: %w", err)
	}

	var entries []Entry
	reader := bufio.NewReader(fh)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			break
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return entries, fmt.Errorf("malformed audit entry at %s offset %d: %w", f.path, f.offset, err)
		}
		f.offset += int64(len(line))
		entries = append(entries, e)
	}
	return entries, nil
}

// Run polls on interval and hands each new entry to fn until ctx is done.
// Poll errors are logged and the loop keeps going.
func (f *Follower) Run(ctx context.Context, interval time.Duration, fn func(Entry)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries, err := f.Poll()
			if err != nil {
				f.log.Warn("audit log poll failed", "error", err)
				continue
			}
			for _, e := range entries {
				fn(e)
			}
		}
	}
}
