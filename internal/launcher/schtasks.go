package launcher

import (
	"context"
	"os/exec"
)

// Schtasks drives the host's task scheduler through its CLI. Querying a
// task is the single external status call this plugin makes.
type Schtasks struct{}

func (Schtasks) TaskExists(ctx context.Context, name string) (bool, error) {
	cmd := exec.CommandContext(ctx, "schtasks", "/query", "/tn", name)
	if err := cmd.Run(); err != nil {
		// schtasks exits non-zero for unknown tasks; treat any failure
		// as "missing" rather than distinguishing error classes.
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (Schtasks) RunTask(ctx context.Context, name string) error {
	return exec.CommandContext(ctx, "schtasks", "/run", "/tn", name).Run()
}
