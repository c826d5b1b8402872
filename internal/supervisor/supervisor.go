package supervisor

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/daniel-kadosh/JobDaemon/internal/app"
	"github.com/daniel-kadosh/JobDaemon/internal/applog"
	"github.com/daniel-kadosh/JobDaemon/internal/daemon"
	"github.com/daniel-kadosh/JobDaemon/internal/ipc"
	"github.com/daniel-kadosh/JobDaemon/internal/signalintake"
	"github.com/daniel-kadosh/JobDaemon/internal/worker"
)

// projectID tags this daemon's derived IPC key, distinguishing it from any
// other IPC region that might otherwise derive the same key from an
// identical lock-file path.
const projectID byte = 0x4a

// Supervisor is the top-level lifecycle controller: it owns the lock file,
// the IPC region, signal intake, and the dispatcher loop, and drives the
// startup sequence from §4.1 end to end.
type Supervisor struct {
	cfg    *Config
	appln  app.Application
	log    *applog.Logger
	lock   *daemon.LockFile
	region *ipc.Region
	intake *signalintake.Intake

	Control    *ControlSurface
	Dispatcher *Dispatcher

	// Daemonize is the detach step; overridable in tests so a supervisor
	// can be started in-process without forking the test binary.
	Daemonize func(logPath string, lock *daemon.LockFile) error
}

// New builds a Supervisor. cfg is normalized (clamped, defaulted) in place.
func New(cfg *Config, appln app.Application, log *applog.Logger) *Supervisor {
	cfg.Normalize()
	return &Supervisor{
		cfg:       cfg,
		appln:     appln,
		log:       log,
		lock:      daemon.NewLockFile(cfg.PIDFilePath),
		Daemonize: daemon.Daemonize,
	}
}

// Start runs the full lifecycle sequence from §4.1 and then blocks running
// the dispatcher loop until graceful shutdown or a loop-fatal error, at
// which point it tears down (IPC, signal handlers, lock file) and returns.
// A non-nil error here is always Startup-fatal or Loop-fatal; the caller
// should exit non-zero.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.lock.Acquire(); err != nil {
		return err
	}

	if err := s.Daemonize(s.cfg.LogPath, s.lock); err != nil {
		_ = s.lock.Release()
		return errors.Wrap(err, "daemonize")
	}

	if err := s.lock.WritePID(os.Getpid()); err != nil {
		_ = s.lock.Release()
		return errors.Wrap(err, "record pid")
	}

	if s.cfg.UID != nil {
		if err := daemon.SwitchUser(s.lock, *s.cfg.UID); err != nil {
			_ = s.lock.Release()
			return errors.Wrap(err, "switch effective uid")
		}
	}

	key := ipc.DeriveKey(s.cfg.PIDFilePath, projectID)
	s.region = ipc.NewRegion(key, 0)
	s.Control = NewControlSurface(s.cfg, s.region)

	if err := s.appln.LoadConfig(); err != nil {
		_ = s.lock.Release()
		return errors.Wrap(err, "application load_config")
	}

	s.region.WithLock(func() {
		s.region.GrowSlots(s.cfg.MaxWorkers)
	})

	s.intake = signalintake.New(s.cfg.HandledSignals)

	launcher := &worker.ReexecLauncher{}
	s.Dispatcher = NewDispatcher(s.cfg, s.region, s.intake, launcher, s.appln, s.log)
	s.Dispatcher.bindControl(s.Control)
	s.Control.bindDispatcher(s.Dispatcher)

	runErr := s.Dispatcher.Run(ctx)

	s.teardown()

	if runErr != nil {
		return errors.Wrap(runErr, "dispatcher loop")
	}
	return nil
}

// teardown stops signal handling, detaches the IPC region, and removes the
// lock file, in that order; removing the lock file is the last step.
func (s *Supervisor) teardown() {
	if s.intake != nil {
		s.intake.Stop()
	}
	s.region = nil
	if err := s.lock.Release(); err != nil {
		s.log.Errorf("teardown: release lock file: %v", err)
	}
}
