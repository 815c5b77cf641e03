// Package home resolves the on-disk layout under ~/.repyx.
package home

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EnvDir overrides the base directory when set.
const EnvDir = "REPYX_HOME"

// Dir returns the base directory (~/.repyx).
func Dir() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".repyx"), nil
}

// RestrictionsDir returns the directory holding user restrictions files.
func RestrictionsDir() (string, error) {
	base, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "restrictions"), nil
}

// RestrictionsPath returns the path of a named user restrictions file.
func RestrictionsPath(name string) (string, error) {
	dir, err := RestrictionsDir()
	if err != nil {
		return "", err
	}
	// Names never escape the restrictions directory
	return filepath.Join(dir, filepath.Base(name)+".toml"), nil
}

// ReportsDir returns the directory where verification reports are saved.
func ReportsDir() (string, error) {
	base, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "reports"), nil
}

// ReportPath returns a timestamped report path for a contract.
func ReportPath(contract string, at time.Time, ext string) (string, error) {
	dir, err := ReportsDir()
	if err != nil {
		return "", err
	}
	name := strings.TrimSuffix(filepath.Base(contract), filepath.Ext(contract))
	return filepath.Join(dir, name+"-"+at.UTC().Format("20060102T150405Z")+"."+ext), nil
}

// Exists checks if a path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
