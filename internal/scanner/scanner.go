// Package scanner is a reference Application: it watches a directory and
// produces one job per file that appears or changes in it, demonstrating
// the embedding contract the supervisor core expects (§6 of the system
// this implements). It is not part of the core; a real embedder supplies
// its own GetNextJob/ChildRun pair.
package scanner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/daniel-kadosh/JobDaemon/internal/app"
	"github.com/daniel-kadosh/JobDaemon/internal/applog"
)

// Job is the unit of work this application hands to ChildRun: one file
// path to process.
type Job struct {
	Path string `json:"path"`
}

// ID satisfies app.Job.
func (j Job) ID() string { return j.Path }

// App watches Dir for created or written files and offers one Job per
// create or write event. Events for the same path are not merged, so a
// file that is created and then written is offered more than once.
type App struct {
	app.Base

	Dir string
	Log *applog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	pending []string
	started bool
}

// LoadConfig starts the directory watch on first call; subsequent calls
// (e.g. on HUP) are no-ops, since there is nothing in this demo app's
// config to reload beyond the watch itself.
func (a *App) LoadConfig() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "scanner: create watcher")
	}
	if err := w.Add(a.Dir); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "scanner: watch %s", a.Dir)
	}
	a.watcher = w
	a.started = true
	go a.collect()
	return nil
}

func (a *App) collect() {
	for {
		select {
		case ev, ok := <-a.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			info, err := os.Stat(ev.Name)
			if err != nil || info.IsDir() {
				continue
			}
			a.mu.Lock()
			a.pending = append(a.pending, ev.Name)
			a.mu.Unlock()
		case err, ok := <-a.watcher.Errors:
			if !ok {
				return
			}
			if a.Log != nil {
				a.Log.Warnf("scanner watch error: %v", err)
			}
		}
	}
}

// GetNextJob returns the oldest pending file path, or nil if none is
// waiting — it never blocks, matching the core's requirement that this
// hook return promptly.
func (a *App) GetNextJob(ctx context.Context, slot int) (app.Job, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.pending) == 0 {
		return nil, nil
	}
	path := a.pending[0]
	a.pending = a.pending[1:]
	return Job{Path: path}, nil
}

// ChildRun runs in the re-exec'd worker process: it simply stats the file
// and logs its size, standing in for whatever real per-file processing an
// embedder would plug in here.
func (a *App) ChildRun(ctx context.Context, job app.Job, slot int) int {
	j, ok := job.(Job)
	if !ok {
		return -1
	}
	info, err := os.Stat(j.Path)
	if err != nil {
		return 1
	}
	fname := filepath.Base(j.Path)
	os.Stdout.WriteString(fname + ": " + strconv.FormatInt(info.Size(), 10) + " bytes\n")
	return 0
}

// EncodeJob/DecodeJob carry a Job across the re-exec boundary as JSON.

func (a *App) EncodeJob(job app.Job) ([]byte, error) {
	j, ok := job.(Job)
	if !ok {
		return nil, errors.New("scanner: not a scanner job")
	}
	return json.Marshal(j)
}

func (a *App) DecodeJob(data []byte) (app.Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, errors.Wrap(err, "scanner: decode job")
	}
	return j, nil
}
