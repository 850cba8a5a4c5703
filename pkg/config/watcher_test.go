package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hooks.yaml")
	if err := os.WriteFile(path, []byte("version: \"1.0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	failed := make(chan error, 1)
	w := NewWatcher(path,
		func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		},
		func(err error) {
			select {
			case failed <- err:
			default:
			}
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher time to register before the first write.
	time.Sleep(100 * time.Millisecond)

	doc := "version: \"1.0\"\nrules:\n  - name: added\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if len(cfg.Rules) != 1 || cfg.Rules[0].Name != "added" {
			t.Errorf("reloaded config = %+v", cfg.Rules)
		}
	case err := <-failed:
		t.Fatalf("reload reported error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if err := os.WriteFile(path, []byte("version: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-failed:
		if err == nil {
			t.Fatal("nil error from error callback")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload failure")
	}
}
