package isolate

import (
	"context"
	"os"
	"os/exec"
)

// None runs the command directly.
type None struct{}

func (n *None) Name() string { return "none" }

func (n *None) IsIsolated() bool { return false }

func (n *None) Available() bool { return true }

// Execute runs the command with the full parent environment.
func (n *None) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	ctx, cancel := withTimeout(ctx, cfg)
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.Executable, cfg.Args...)
	stdout, stderr := SetupCommand(cmd, cfg)
	cmd.Env = append(os.Environ(), cfg.Env...)

	err := cmd.Run()
	return BuildResult(err, cfg, stdout, stderr)
}
