// Package worker implements the worker side of the spawn-and-reexec model:
// a Launcher that starts worker processes on behalf of the dispatcher, and
// the Run entry point a re-exec'd process calls to decode its job and
// invoke the embedding application's ChildRun.
//
// Go cannot fork and keep running Go code in the child the way the system
// this project descends from forks a worker process: goroutines and most
// of the runtime do not survive a bare fork(2) in a multithreaded process.
// Every worker here is instead a fresh copy of the supervisor's own binary,
// re-exec'd with a hidden subcommand, exactly the substitution the
// reexec-based job workers this project is grounded on use.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/daniel-kadosh/JobDaemon/internal/app"
)

// Subcommand is the hidden cobra/cli verb the re-exec'd binary is invoked
// with. It is never meant to be typed by an operator.
const Subcommand = "__worker"

// Launcher starts a worker process and hands back a handle the dispatcher
// can wait on. Implementations must not block past process start; Launch
// returns as soon as the child is running.
type Launcher interface {
	Launch(ctx context.Context, slot int, payload []byte) (*Process, error)
}

// Process is a running (or exited) worker process.
type Process struct {
	cmd  *exec.Cmd
	slot int
	done chan struct{}

	exitCode int
	waitErr  error
}

// Pid returns the worker's OS process id.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Slot returns the slot index this process occupies.
func (p *Process) Slot() int { return p.slot }

// Done returns a channel closed once the process has exited and its exit
// code has been recorded.
func (p *Process) Done() <-chan struct{} { return p.done }

// ExitCode returns the process's exit code. Only valid after Done is closed.
func (p *Process) ExitCode() int { return p.exitCode }

// Signal relays an OS signal to the worker process.
func (p *Process) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Signal(sig)
}

// Kill forcibly terminates the worker process.
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// ReexecLauncher launches workers by re-executing the supervisor's own
// binary with Subcommand and the slot index as arguments, streaming the
// encoded job in on stdin. Stdout/stderr are redirected to LogWriter, or
// inherited from the supervisor if nil, mirroring the teacher's
// stdout/stderr-pipe-plus-log-scanner treatment of spawned children.
type ReexecLauncher struct {
	// Executable is the path re-exec'd; defaults to os.Executable().
	Executable string
	// LogWriter receives the worker's stdout and stderr, line-interleaved.
	// Nil means inherit the supervisor's own stdout/stderr.
	LogWriter io.Writer
}

// Launch starts a worker process for slot, feeding it payload on stdin and
// returning once the process has started (not once it has exited).
func (l *ReexecLauncher) Launch(ctx context.Context, slot int, payload []byte) (*Process, error) {
	exe := l.Executable
	if exe == "" {
		resolved, err := os.Executable()
		if err != nil {
			return nil, errors.Wrap(err, "worker: resolve executable")
		}
		exe = resolved
	}

	cmd := exec.CommandContext(ctx, exe, Subcommand, strconv.Itoa(slot))
	cmd.Stdin = bytes.NewReader(payload)
	if l.LogWriter != nil {
		cmd.Stdout = l.LogWriter
		cmd.Stderr = l.LogWriter
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	applyPlatformAttrs(cmd)

	p, err := StartProcess(cmd, slot)
	if err != nil {
		return nil, errors.Wrapf(err, "worker: spawn slot %d", slot)
	}
	return p, nil
}

// StartProcess starts cmd and returns a Process tracking it for slot,
// factored out of ReexecLauncher.Launch so an alternate Launcher (a test
// fake driving a trivial command instead of a re-exec'd self-invocation,
// say) can reuse the same start-and-track plumbing.
func StartProcess(cmd *exec.Cmd, slot int) (*Process, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &Process{cmd: cmd, slot: slot, done: make(chan struct{}), exitCode: -1}
	go func() {
		defer close(p.done)
		waitErr := cmd.Wait()
		p.waitErr = waitErr
		if waitErr == nil {
			p.exitCode = 0
			return
		}
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			p.exitCode = exitErr.ExitCode()
			return
		}
		p.exitCode = -1
	}()
	return p, nil
}

// orphanCheckInterval is how often a running worker checks whether its
// parent has died out from under it.
const orphanCheckInterval = 250 * time.Millisecond

// Run is the child-side entry point: it decodes the job fed in on stdin,
// starts the orphan watch, invokes appln.ChildRun, and returns the process
// exit code. A panic inside ChildRun is recovered and reported as -1,
// matching the core's "exceptions become -1" contract. If the parent PID
// reads 1 once ChildRun returns, the worker kills itself instead of
// returning.
func Run(ctx context.Context, appln app.Application, slot int) (code int) {
	payload, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: read job payload: %v\n", err)
		return -1
	}

	job, err := appln.DecodeJob(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: decode job: %v\n", err)
		return -1
	}

	stop := make(chan struct{})
	defer close(stop)
	go watchOrphan(stop, orphanCheckInterval)

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "worker: panic in ChildRun: %v\n", r)
			code = -1
		}
	}()

	code = appln.ChildRun(ctx, job, slot)
	if os.Getppid() == 1 {
		// Orphaned while ChildRun ran: uncatchable self-kill, no normal exit.
		if self, err := os.FindProcess(os.Getpid()); err == nil {
			_ = self.Kill()
		}
	}
	return code
}
