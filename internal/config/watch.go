package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/daniel-kadosh/JobDaemon/internal/applog"
)

// Watcher reloads the config file on write and invokes onReload with the
// parsed result. What a reload changes is up to onReload; the watcher does
// not call the application's LoadConfig, so it is not the same as sending
// HUP.
type Watcher struct {
	fsw *fsnotify.Watcher
	log *applog.Logger
}

// NewWatcher starts watching path's containing directory (not the file
// itself — editors that replace-on-save unlink the old inode, which would
// silently stop a watch placed directly on the file) and calls onReload
// with the freshly parsed File every time path is written.
func NewWatcher(path string, log *applog.Logger, onReload func(File)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create config watcher")
	}

	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, errors.Wrapf(err, "watch config dir %s", dir)
	}

	w := &Watcher{fsw: fsw, log: log}
	go w.loop(path, onReload)
	return w, nil
}

func (w *Watcher) loop(path string, onReload func(File)) {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			f, err := Load(path)
			if err != nil {
				w.log.Warnf("config reload: %v", err)
				continue
			}
			onReload(f)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnf("config watcher error: %v", err)
		}
	}
}

// Close stops the watch.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
