package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/daniel-kadosh/JobDaemon/internal/applog"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte("max_workers: 2\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	log := applog.New(os.Stderr, applog.Error)
	reloaded := make(chan File, 1)
	w, err := NewWatcher(path, log, func(f File) {
		select {
		case reloaded <- f:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("max_workers: 9\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case f := <-reloaded:
		if f.MaxWorkers != 9 {
			t.Fatalf("reloaded MaxWorkers = %d, want 9", f.MaxWorkers)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("onReload never fired after rewriting the watched config file")
	}
}

func TestWatcherIgnoresOtherFilesInDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte("max_workers: 2\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	log := applog.New(os.Stderr, applog.Error)
	reloaded := make(chan File, 1)
	w, err := NewWatcher(path, log, func(f File) { reloaded <- f })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	other := filepath.Join(dir, "unrelated.txt")
	if err := os.WriteFile(other, []byte("noise"), 0o644); err != nil {
		t.Fatalf("write unrelated file: %v", err)
	}

	select {
	case f := <-reloaded:
		t.Fatalf("onReload fired for an unrelated file write: %+v", f)
	case <-time.After(300 * time.Millisecond):
		// expected: no reload
	}
}
