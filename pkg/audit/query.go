package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

// maxLineSize bounds a single audit line; raw-event debug entries can be
// large.
const maxLineSize = 4 * 1024 * 1024

// Query reads the log at path and returns the entries matching filters,
// newest first. A missing file is an empty result. A malformed line is an
// error: a corrupt audit trail must be surfaced, not silently skipped.
func Query(path string, filters QueryFilters) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("malformed audit entry at %s:%d: %w", path, lineNo, err)
		}
		if filters.matches(&e) {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if filters.Limit > 0 && len(entries) > filters.Limit {
		entries = entries[:filters.Limit]
	}
	return entries, nil
}

// FindBySession returns all entries for one session, newest first. Session
// IDs are the stable key the explain workflow navigates by.
func FindBySession(path, sessionID string) ([]Entry, error) {
	return Query(path, QueryFilters{SessionID: sessionID})
}
