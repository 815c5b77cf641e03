package restrictions

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eddmann/repyx/internal/home"
)

//go:embed builtin/*.toml
var builtinFS embed.FS

// Builtins returns the names of the bundled restrictions.
func Builtins() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	sort.Strings(names)
	return names
}

// LoadFile reads a restrictions file from disk.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read restrictions: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, data)
}

// Load resolves restrictions by path or name.
//
// An empty ref yields Unrestricted. A ref naming an existing file is read
// directly. Otherwise the "restrictions." prefix used by repy pragmas is
// stripped and the name is looked up in ~/.repyx/restrictions, then among
// the builtins.
func Load(ref string) (*Policy, error) {
	if ref == "" {
		return Unrestricted(), nil
	}

	if strings.ContainsRune(ref, filepath.Separator) || filepath.Ext(ref) == ".toml" {
		return LoadFile(ref)
	}
	if home.Exists(ref) {
		if info, err := os.Stat(ref); err == nil && !info.IsDir() {
			return LoadFile(ref)
		}
	}

	name := strings.TrimPrefix(ref, "restrictions.")

	userPath, err := home.RestrictionsPath(name)
	if err == nil && home.Exists(userPath) {
		p, err := LoadFile(userPath)
		if err != nil {
			return nil, err
		}
		p.Name = name
		return p, nil
	}

	data, err := builtinFS.ReadFile("builtin/" + name + ".toml")
	if err != nil {
		return nil, fmt.Errorf("unknown restrictions %q (builtins: %s)", ref, strings.Join(Builtins(), ", "))
	}
	return Parse(name, data)
}
