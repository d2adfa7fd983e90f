// Package spawn starts detached background processes.
//
// A spawned process gets its own session (or process group on Windows),
// has stdio connected to the null device, and is released immediately: the
// caller never waits for it and cannot observe its result.
package spawn

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/raphi011/skillsync/internal/log"
)

// Process launches a program detached from the caller.
type Process struct {
	Executable string   // defaults to the running binary
	Dir        string   // working directory, empty for the caller's
	Env        []string // appended to the caller's environment
}

// Self returns a Process that re-executes the running binary.
func Self() *Process {
	return &Process{}
}

// Spawn starts the program with args and returns as soon as it is running.
// The returned error only covers starting it.
func (p *Process) Spawn(ctx context.Context, args ...string) error {
	exe := p.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable: %w", err)
		}
		exe = self
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devnull.Close()

	// Not CommandContext: the child must outlive ctx
	cmd := exec.Command(exe, args...)
	cmd.Dir = p.Dir
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", exe, err)
	}

	log.FromContext(ctx).Debug().Str("exe", exe).Strs("args", args).Int("pid", cmd.Process.Pid).Msg("spawned background process")

	return cmd.Process.Release()
}
