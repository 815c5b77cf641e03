// Package isolate re-runs the verifier where its view of the network is
// private and predictable.
package isolate

import (
	"context"
	"io"
	"os/exec"
	"runtime"
	"time"
)

// EnvMarker is set in the environment of an isolated child.
const EnvMarker = "REPYX_ISOLATED"

// Config describes the command to isolate.
type Config struct {
	Executable string   // program to run, normally os.Executable()
	Args       []string // arguments after the executable

	Env            []string // extra NAME=value entries
	AllowedEnvVars []string // host variables to pass beyond the safelist

	Timeout time.Duration // zero for none

	// If set, output streams directly instead of buffering
	Stdout io.Writer
	Stderr io.Writer

	Verbose bool
}

// Result holds the outcome of an isolated run.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Isolator runs a command under some form of isolation.
type Isolator interface {
	// Name returns the backend name
	Name() string

	// IsIsolated reports whether the backend applies any isolation
	IsIsolated() bool

	// Available reports whether the backend works on this system
	Available() bool

	// Execute runs the command
	Execute(ctx context.Context, cfg *Config) (*Result, error)
}

// Detect returns the best available isolator for this system.
func Detect() Isolator {
	if runtime.GOOS == "linux" {
		linux := &LinuxNetwork{}
		if linux.Available() {
			return linux
		}
	}
	return &None{}
}

// commandExists checks if a command is available in PATH.
func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
