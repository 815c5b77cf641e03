package isolate

import (
	"context"
	"os/exec"
	"runtime"
)

// LinuxNetwork runs the command in a fresh network namespace created with
// unshare. The namespace holds only a loopback interface, which is brought
// up before the command starts, so 127.0.0.1 binds and every other address
// fails the same way on every host.
type LinuxNetwork struct{}

func (l *LinuxNetwork) Name() string { return "linux-network" }

func (l *LinuxNetwork) IsIsolated() bool { return true }

// Available returns true if unshare and ip are on PATH.
func (l *LinuxNetwork) Available() bool {
	return runtime.GOOS == "linux" && commandExists("unshare") && commandExists("ip")
}

// Execute runs the command inside the namespace.
func (l *LinuxNetwork) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	ctx, cancel := withTimeout(ctx, cfg)
	defer cancel()

	cmd := l.buildCommand(ctx, cfg)
	stdout, stderr := SetupCommand(cmd, cfg)
	cmd.Env = append(cmd.Env, EnvMarker+"="+l.Name())

	err := cmd.Run()
	return BuildResult(err, cfg, stdout, stderr)
}

func (l *LinuxNetwork) buildCommand(ctx context.Context, cfg *Config) *exec.Cmd {
	shellCmd := "ip link set lo up && exec " + BuildCommand(cfg)
	return exec.CommandContext(ctx, "unshare", "--net", "--map-root-user", "sh", "-c", shellCmd)
}
