//go:build !windows

package supervisor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/daniel-kadosh/JobDaemon/internal/app"
	"github.com/daniel-kadosh/JobDaemon/internal/applog"
	"github.com/daniel-kadosh/JobDaemon/internal/ipc"
	"github.com/daniel-kadosh/JobDaemon/internal/worker"
)

// fakeJob is the trivial app.Job used by the fake application below; it
// carries no payload beyond its id, since the launcher in these tests
// never actually execs the supervisor's own re-exec subcommand.
type fakeJob string

func (j fakeJob) ID() string { return string(j) }

// queueApp hands out a fixed queue of jobs, then signals "no more work" by
// returning an error — exercising the same graceful-termination path as
// spec's "application's get_next_job raises" scenario, without needing a
// real shutdown signal to end the test.
type queueApp struct {
	app.Base
	mu    sync.Mutex
	queue []string
	calls int
}

func (a *queueApp) GetNextJob(ctx context.Context, slot int) (app.Job, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if len(a.queue) == 0 {
		return nil, errors.New("queueApp: exhausted")
	}
	j := a.queue[0]
	a.queue = a.queue[1:]
	return fakeJob(j), nil
}

func (a *queueApp) ChildRun(ctx context.Context, job app.Job, slot int) int { return 0 }
func (a *queueApp) EncodeJob(job app.Job) ([]byte, error)                  { return []byte(job.ID()), nil }
func (a *queueApp) DecodeJob(data []byte) (app.Job, error)                 { return fakeJob(data), nil }

// shellLauncher launches a short-lived real OS process per job instead of
// re-exec'ing the test binary, standing in for worker.ReexecLauncher so
// the dispatcher's reap/release machinery runs against genuine process
// exits without the test needing its own hidden subcommand.
type shellLauncher struct{ sleep string }

func (l *shellLauncher) Launch(ctx context.Context, slot int, payload []byte) (*worker.Process, error) {
	cmd := exec.Command("sh", "-c", "sleep "+l.sleep)
	return worker.StartProcess(cmd, slot)
}

func TestDispatcherHappyPathDrainsAllJobs(t *testing.T) {
	cfg := &Config{MaxWorkers: 2, IdleSleep: 5 * time.Millisecond, NoSlotSleep: 5 * time.Millisecond}
	cfg.Normalize()
	region := ipc.NewRegion(1, cfg.MaxWorkers)
	intake := newTestIntake()
	defer intake.Stop()

	appln := &queueApp{queue: []string{"A", "B", "C"}}
	launcher := &shellLauncher{sleep: "0.05"}
	log := applog.New(io.Discard, applog.Error)

	d := NewDispatcher(cfg, region, intake, launcher, appln, log)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v, want nil (graceful termination)", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("dispatcher never returned")
	}

	if region.ActiveCount() != 0 {
		t.Fatalf("ActiveCount after shutdown = %d, want 0", region.ActiveCount())
	}
	if region.RunStatus() != ipc.StatusTerminate {
		t.Fatalf("RunStatus after shutdown = %v, want TERMINATE", region.RunStatus())
	}
	if n := d.pidsLen(); n != 0 {
		t.Fatalf("dispatcher still tracking %d pids after shutdown", n)
	}
	// 3 real jobs plus at least one call that found the queue empty and
	// triggered termination.
	if appln.calls < 4 {
		t.Fatalf("GetNextJob called %d times, want at least 4 (3 jobs + exhaustion)", appln.calls)
	}
}

func TestDispatcherLaunchFailureTriggersGracefulShutdown(t *testing.T) {
	cfg := &Config{MaxWorkers: 1, IdleSleep: 5 * time.Millisecond}
	cfg.Normalize()
	region := ipc.NewRegion(1, cfg.MaxWorkers)
	intake := newTestIntake()
	defer intake.Stop()

	appln := &queueApp{queue: []string{"A"}}
	log := applog.New(io.Discard, applog.Error)
	d := NewDispatcher(cfg, region, intake, failingLauncher{}, appln, log)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v, want nil (fork failure is a graceful-terminate condition)", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher never returned after a launch failure")
	}
	if region.ActiveCount() != 0 {
		t.Fatalf("ActiveCount after shutdown = %d, want 0", region.ActiveCount())
	}
}

type failingLauncher struct{}

func (failingLauncher) Launch(ctx context.Context, slot int, payload []byte) (*worker.Process, error) {
	return nil, errors.New("launch always fails")
}

// hupCountingApp wraps queueApp to additionally report every LoadConfig
// call, so a test can observe that a real HUP delivered to the process
// reached the application hook via the dispatcher's signal path.
type hupCountingApp struct {
	queueApp
	loadCalls chan struct{}
}

func (a *hupCountingApp) LoadConfig() error {
	select {
	case a.loadCalls <- struct{}{}:
	default:
	}
	return nil
}

func TestDispatcherHupCallsLoadConfig(t *testing.T) {
	cfg := &Config{MaxWorkers: 1, IdleSleep: 5 * time.Millisecond}
	cfg.Normalize()
	region := ipc.NewRegion(1, cfg.MaxWorkers)
	intake := newTestIntake()
	defer intake.Stop()

	loadCalls := make(chan struct{}, 8)
	appln := &hupCountingApp{loadCalls: loadCalls}
	log := applog.New(io.Discard, applog.Error)
	d := NewDispatcher(cfg, region, intake, &shellLauncher{sleep: "0.01"}, appln, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	// A real HUP delivered to this process: DefaultHandledSignals maps
	// SIGHUP to signalintake.Hup, so the dispatcher's own signal path
	// (not a test-only injection point) is what's under test here.
	if err := syscall.Kill(os.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("self-signal SIGHUP: %v", err)
	}

	select {
	case <-loadCalls:
	case <-time.After(2 * time.Second):
		t.Fatal("LoadConfig was never called after a real HUP signal")
	}
}
