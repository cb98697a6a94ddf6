// Package power prevents system suspension while a timer session is
// active by delegating to the platform's inhibitor tool.
package power

import (
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
)

// Inhibitor holds a suspend-prevention token for as long as it is
// acquired.
type Inhibitor interface {
	Acquire()
	Release()
}

// New picks the platform inhibitor tool. When no tool is found, the
// returned Inhibitor does nothing.
func New() Inhibitor {
	var name string

	var args []string

	switch runtime.GOOS {
	case "darwin":
		name = "caffeinate"
		args = []string{"-di"}
	case "linux":
		name = "systemd-inhibit"
		args = []string{
			"--what=sleep:idle",
			"--who=pomo",
			"--why=Pomodoro session in progress",
			"sleep", "infinity",
		}
	default:
		return noop{}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		slog.Info("no suspend inhibitor tool found", slog.String("tool", name))
		return noop{}
	}

	return &cmdInhibitor{path: path, args: args}
}

// cmdInhibitor keeps a child process alive while acquired; the child
// holds the actual inhibition lock.
type cmdInhibitor struct {
	path string
	args []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

func (c *cmdInhibitor) Acquire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return
	}

	cmd := exec.Command(c.path, c.args...)

	if err := cmd.Start(); err != nil {
		slog.Error("unable to acquire suspend inhibitor", slog.Any("error", err))
		return
	}

	c.cmd = cmd
}

func (c *cmdInhibitor) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd == nil {
		return
	}

	_ = c.cmd.Process.Kill()
	_ = c.cmd.Wait()

	c.cmd = nil
}

type noop struct{}

func (noop) Acquire() {}

func (noop) Release() {}
