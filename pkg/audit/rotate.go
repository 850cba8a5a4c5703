package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Rotator shifts the log into numbered backups once it exceeds a size
// threshold: log -> log.1, log.1 -> log.2, and so on up to MaxFiles.
type Rotator struct {
	// MaxSizeBytes triggers rotation once the live log reaches this size.
	MaxSizeBytes int64

	// MaxFiles is the number of numbered backups kept.
	MaxFiles int
}

// DefaultRotator returns the standard rotation policy: 10 MiB, 5 backups.
func DefaultRotator() *Rotator {
	return &Rotator{MaxSizeBytes: 10 * 1024 * 1024, MaxFiles: 5}
}

// MaybeRotate rotates the file at path if it has reached the size
// threshold. A missing file is a no-op.
func (r *Rotator) MaybeRotate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < r.MaxSizeBytes {
		return nil
	}

	for i := r.MaxFiles - 1; i >= 1; i-- {
		old := fmt.Sprintf("%s.%d", path, i)
		if _, err := os.Stat(old); err != nil {
			continue
		}
		if err := os.Rename(old, fmt.Sprintf("%s.%d", path, i+1)); err != nil {
			return fmt.Errorf("failed to shift log backup %s: %w", old, err)
		}
	}
	if err := os.Rename(path, path+".1"); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return nil
}
