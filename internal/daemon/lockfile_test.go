package daemon

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
)

func TestAcquireCreatesAndWritesPID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.pid")

	l := NewLockFile(path)
	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()

	if err := l.WritePID(12345); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "12345" {
		t.Fatalf("lock file contents = %q, want %q", data, "12345")
	}
}

func TestAcquireRefusesWhileLiveOwnerHoldsIt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.pid")

	first := NewLockFile(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Release()
	if err := first.WritePID(os.Getpid()); err != nil {
		t.Fatalf("WritePID: %v", err)
	}

	second := NewLockFile(path)
	err := second.Acquire()
	if err == nil {
		t.Fatal("second Acquire succeeded while the first instance is live")
	}
}

func TestAcquireRemovesStaleLockFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.pid")

	// A PID from a process that has already exited: run `true` (or an
	// equivalent) to completion and use its now-dead PID.
	cmd := exec.Command(trueCmd())
	if err := cmd.Run(); err != nil {
		t.Fatalf("run throwaway process: %v", err)
	}
	deadPID := cmd.Process.Pid

	if err := os.WriteFile(path, []byte(strconv.Itoa(deadPID)), 0o644); err != nil {
		t.Fatalf("seed stale lock file: %v", err)
	}

	l := NewLockFile(path)
	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire should clean up a stale lock file, got: %v", err)
	}
	defer l.Release()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected a fresh lock file to exist after Acquire: %v", err)
	}
}

func TestReleaseRemovesLockFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.pid")

	l := NewLockFile(path)
	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("lock file still exists after Release: err=%v", err)
	}
}

func TestAcquireAdoptsInheritedFDWhenDaemonized(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.pid")

	holder := NewLockFile(path)
	if err := holder.Acquire(); err != nil {
		t.Fatalf("holder Acquire: %v", err)
	}
	defer holder.Release()

	t.Setenv(daemonizeEnv, "1")
	t.Setenv(lockFDEnv, strconv.Itoa(int(holder.File().Fd())))
	defer os.Unsetenv(lockFDEnv)

	child := NewLockFile(path)
	if err := child.Acquire(); err != nil {
		t.Fatalf("child Acquire should adopt the inherited fd, got: %v", err)
	}
	if child.File() == nil {
		t.Fatal("child.File() is nil after adopting the inherited descriptor")
	}
	if os.Getenv(lockFDEnv) != "" {
		t.Fatal("Acquire should unset lockFDEnv once the fd is adopted")
	}
}

func trueCmd() string {
	if p, err := exec.LookPath("true"); err == nil {
		return p
	}
	return "/bin/true"
}
