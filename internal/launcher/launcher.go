// Package launcher spawns or re-triggers the external fan-control
// application so an edited configuration takes effect.
//
// Two paths exist: launching the executable directly (the default, which on
// an elevated install pops an interactive elevation prompt on every edit),
// and triggering a pre-created scheduled host task, optionally through a
// helper script placed beside the executable, which runs elevated without
// prompting. Which task and script are used is configuration, not code.
package launcher

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/pdittrich/fandial/internal/errors"
	"github.com/pdittrich/fandial/internal/metrics"
)

// Target describes one relaunch destination.
type Target struct {
	Executable string
	ConfigPath string
	Bypass     bool
}

// Result is the outcome of a precondition check.
type Result struct {
	TaskExists   bool `json:"taskExists"`
	ScriptExists bool `json:"scriptExists"`
}

// Ok reports whether bypass relaunches can proceed.
func (r Result) Ok() bool {
	return r.TaskExists && r.ScriptExists
}

// TaskRunner is the host's scheduled-task surface.
type TaskRunner interface {
	TaskExists(ctx context.Context, name string) (bool, error)
	RunTask(ctx context.Context, name string) error
}

// Launcher relaunches the external application and checks bypass
// preconditions.
type Launcher struct {
	tasks        TaskRunner
	taskName     string
	helperScript string
	probe        func(ctx context.Context, executable string) (bool, error)
	group        singleflight.Group
}

// New creates a Launcher. taskName is the scheduled task triggered in bypass
// mode; helperScript is the file name looked up beside the executable.
func New(tasks TaskRunner, taskName, helperScript string) *Launcher {
	return &Launcher{
		tasks:        tasks,
		taskName:     taskName,
		helperScript: helperScript,
		probe:        processProbe,
	}
}

// Relaunch restarts the external application so it re-reads the config
// file. Failures are logged by the caller and never retried.
func (l *Launcher) Relaunch(ctx context.Context, t Target) error {
	if t.Bypass {
		return l.relaunchBypassed(ctx, t)
	}
	return l.relaunchDirect(ctx, t)
}

func (l *Launcher) relaunchDirect(ctx context.Context, t Target) error {
	// The app is single-instance: launching it while an instance is up
	// makes that instance reload the config instead of starting twice.
	// The probe tells operators which of the two happened.
	running, probeErr := l.probe(ctx, t.Executable)
	switch {
	case probeErr != nil:
		slog.WarnContext(ctx, "Running-instance probe failed", "executable", t.Executable, "error", probeErr)
	case running:
		slog.InfoContext(ctx, "Application already running, relaunch triggers a reload", "executable", t.Executable)
	default:
		slog.InfoContext(ctx, "Application not running, starting it", "executable", t.Executable)
	}

	cmd := exec.Command(t.Executable, "-c", t.ConfigPath)
	cmd.Dir = filepath.Dir(t.Executable)
	if err := cmd.Start(); err != nil {
		metrics.RelaunchFailuresTotal.Inc()
		return apperrors.Launch("failed to start application", err).WithContext("executable", t.Executable)
	}
	metrics.RelaunchesTotal.WithLabelValues("direct").Inc()

	// The process outlives the plugin; reap it in the background so it
	// never becomes a zombie while we run.
	go func() { _ = cmd.Wait() }()
	return nil
}

func (l *Launcher) relaunchBypassed(ctx context.Context, t Target) error {
	if script := l.scriptPath(t.Executable); script != "" {
		if _, err := os.Stat(script); err == nil {
			cmd := exec.Command(script)
			cmd.Dir = filepath.Dir(script)
			if err := cmd.Start(); err != nil {
				metrics.RelaunchFailuresTotal.Inc()
				return apperrors.Launch("failed to run helper script", err).WithContext("script", script)
			}
			metrics.RelaunchesTotal.WithLabelValues("script").Inc()
			go func() { _ = cmd.Wait() }()
			return nil
		}
	}

	if err := l.tasks.RunTask(ctx, l.taskName); err != nil {
		metrics.RelaunchFailuresTotal.Inc()
		return apperrors.Launch("failed to trigger scheduled task", err).WithContext("task", l.taskName)
	}
	metrics.RelaunchesTotal.WithLabelValues("task").Inc()
	return nil
}

// CheckPreconditions verifies the scheduled task and helper script exist.
// Concurrent checks for the same executable collapse into one (several
// dials usually point at the same install).
func (l *Launcher) CheckPreconditions(ctx context.Context, executable string) (Result, error) {
	v, err, _ := l.group.Do(l.taskName+"|"+executable, func() (any, error) {
		taskExists, err := l.tasks.TaskExists(ctx, l.taskName)
		if err != nil {
			return Result{}, apperrors.Precondition("failed to query scheduled task").WithContext("task", l.taskName)
		}

		scriptExists := false
		if script := l.scriptPath(executable); script != "" {
			_, statErr := os.Stat(script)
			scriptExists = statErr == nil
		}

		return Result{TaskExists: taskExists, ScriptExists: scriptExists}, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (l *Launcher) scriptPath(executable string) string {
	if l.helperScript == "" || executable == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(executable), l.helperScript)
}

// processProbe reports whether an instance of the executable is live, by
// scanning the process table for its base name.
func processProbe(ctx context.Context, executable string) (bool, error) {
	want := strings.ToLower(filepath.Base(executable))
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if strings.ToLower(name) == want {
			return true, nil
		}
	}
	return false, nil
}
