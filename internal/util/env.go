package util

import (
	"os"
	"strings"
)

// envPrefixes pass through every variable they prefix. REPYX_ carries the
// home directory and the isolation marker into a re-executed verifier.
var envPrefixes = []string{"LC_", "XDG_", "REPYX_"}

// envNames pass through by exact name.
var envNames = map[string]bool{
	"PATH":     true,
	"HOME":     true,
	"USER":     true,
	"LOGNAME":  true,
	"SHELL":    true,
	"LANG":     true,
	"LANGUAGE": true,
	"TZ":       true,
	"TMPDIR":   true,
	"TERM":     true,
	"COLUMNS":  true,
	"LINES":    true,
}

// Passes reports whether the named variable survives FilterEnv without
// being allowed explicitly.
func Passes(name string) bool {
	if envNames[name] {
		return true
	}
	for _, prefix := range envPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// FilterEnv returns the current environment reduced to the variables that
// pass, plus those named in allow. An allow entry of the form NAME=value
// sets the variable, replacing any inherited value.
func FilterEnv(allow []string) []string {
	allowed := make(map[string]bool)
	set := make(map[string]string)
	var order []string
	for _, a := range allow {
		name, value, hasValue := strings.Cut(a, "=")
		if name == "" {
			continue
		}
		if hasValue {
			if _, seen := set[name]; !seen {
				order = append(order, name)
			}
			set[name] = value
			continue
		}
		allowed[name] = true
	}

	var env []string
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		if _, override := set[name]; override {
			continue
		}
		if allowed[name] || Passes(name) {
			env = append(env, kv)
		}
	}
	for _, name := range order {
		env = append(env, name+"="+set[name])
	}
	return env
}
