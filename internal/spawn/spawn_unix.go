//go:build unix

package spawn

import (
	"os/exec"
	"syscall"
)

// detach starts the child in a new session so it survives the parent's
// terminal going away.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
