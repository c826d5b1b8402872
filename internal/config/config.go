// Package config loads the YAML file backing SupervisorConfig, with the
// file taking precedence over built-in defaults. Command-line flags are
// applied on top of the result by the cli package.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/daniel-kadosh/JobDaemon/internal/supervisor"
)

// File is the on-disk shape of the daemon's YAML config file.
type File struct {
	MaxWorkers       int    `yaml:"max_workers"`
	IdleSleepUs      int64  `yaml:"idle_sleep_us"`
	NoSlotSleepUs    int64  `yaml:"no_slot_sleep_us"`
	PropagateSignals bool   `yaml:"propagate_signals"`
	UID              *int   `yaml:"uid,omitempty"`
	PIDFile          string `yaml:"pid_file"`
	LogFile          string `yaml:"log_file"`
}

// Defaults returns the built-in baseline applied before a file or flags are
// read.
func Defaults() File {
	return File{
		MaxWorkers:       4,
		IdleSleepUs:      250000,
		NoSlotSleepUs:    100000,
		PropagateSignals: true,
		PIDFile:          "/var/run/jobsupervisord.pid",
	}
}

// Load reads path (if it exists) over Defaults(). A missing file is not an
// error — the daemon runs on defaults alone, the way the teacher's own
// tools tolerate an absent config and fall back to flags.
func Load(path string) (File, error) {
	f := Defaults()
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, errors.Wrapf(err, "parse config %s", path)
	}
	return f, nil
}

// ToSupervisorConfig converts the loaded file into a supervisor.Config.
// Callers should still call Normalize (supervisor.New does this) to apply
// the clamps the control surface's boundary rules require.
func (f File) ToSupervisorConfig() *supervisor.Config {
	return &supervisor.Config{
		MaxWorkers:       f.MaxWorkers,
		IdleSleep:        time.Duration(f.IdleSleepUs) * time.Microsecond,
		NoSlotSleep:      time.Duration(f.NoSlotSleepUs) * time.Microsecond,
		PropagateSignals: f.PropagateSignals,
		UID:              f.UID,
		PIDFilePath:      f.PIDFile,
		LogPath:          f.LogFile,
	}
}
