package isolate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/eddmann/repyx/internal/util"
)

// Active reports whether this process is running inside an isolator.
func Active() bool {
	return os.Getenv(EnvMarker) != ""
}

// ShellEscape escapes a string for safe use in shell commands.
// Wraps in single quotes and escapes embedded single quotes.
func ShellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// BuildCommand renders the configured command as an escaped shell string.
func BuildCommand(cfg *Config) string {
	parts := make([]string, 0, len(cfg.Args)+1)
	parts = append(parts, ShellEscape(cfg.Executable))
	for _, arg := range cfg.Args {
		parts = append(parts, ShellEscape(arg))
	}
	return strings.Join(parts, " ")
}

// SetupCommand wires the command's output and gives it a filtered
// environment. Buffers are returned for streams that are not configured.
func SetupCommand(cmd *exec.Cmd, cfg *Config) (*bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer

	if cfg.Stdout != nil {
		cmd.Stdout = cfg.Stdout
	} else {
		cmd.Stdout = &stdout
	}
	if cfg.Stderr != nil {
		cmd.Stderr = cfg.Stderr
	} else {
		cmd.Stderr = &stderr
	}

	env := util.FilterEnv(cfg.AllowedEnvVars)
	env = append(env, cfg.Env...)
	cmd.Env = env

	return &stdout, &stderr
}

// BuildResult creates a Result from command execution, extracting exit code and output.
func BuildResult(err error, cfg *Config, stdout, stderr *bytes.Buffer) (*Result, error) {
	result := &Result{}

	if cfg.Stdout == nil && stdout != nil {
		result.Stdout = stdout.String()
	}
	if cfg.Stderr == nil && stderr != nil {
		result.Stderr = stderr.String()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	} else if err != nil {
		return result, err
	}

	return result, nil
}

func withTimeout(ctx context.Context, cfg *Config) (context.Context, context.CancelFunc) {
	if cfg.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
