// Package contract runs contract files against the sandboxed network API
// and reports which calls raised the expected error kind.
//
// A contract file is TOML. Leading "#pragma" comment lines carry repy
// directives:
//
//	#pragma repy
//	#pragma repy restrictions.twoports
//	api = ">=2.0"
//
//	[[step]]
//	call = "listenformessage"
//	args = ["127.0.0.1", 12345]
//	expect = "AlreadyListeningError"
//	description = "trying to bind an address more than once"
package contract

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/eddmann/repyx/internal/api"
	"github.com/eddmann/repyx/internal/apierror"
	"github.com/eddmann/repyx/internal/netapi"
)

//go:embed builtin/*.toml
var builtinFS embed.FS

// Contract is a parsed contract file.
type Contract struct {
	Name         string `toml:"name"`
	Description  string `toml:"description"`
	API          string `toml:"api"`
	Restrictions string `toml:"restrictions"`
	Steps        []Step `toml:"step"`

	Pragmas []string `toml:"-"`
	Source  string   `toml:"-"`
}

// Step is one entry of a contract.
//
// A call step invokes Call once with Args, or once per entry of Each.
// Expect names the error kind the call must raise; empty means it must
// succeed. A successful call's handle is released at once unless Hold
// names it, in which case a later Close step releases it.
type Step struct {
	Call        string  `toml:"call"`
	Args        []any   `toml:"args"`
	Each        [][]any `toml:"each"`
	Expect      string  `toml:"expect"`
	Description string  `toml:"description"`
	Hold        string  `toml:"hold"`
	Close       string  `toml:"close"`

	expected  apierror.Kind
	expectErr bool
}

// IsClose reports whether the step releases a held handle.
func (s *Step) IsClose() bool { return s.Close != "" }

// Checks returns the number of outcomes the step produces.
func (s *Step) Checks() int {
	if len(s.Each) > 0 {
		return len(s.Each)
	}
	return 1
}

// Parse decodes a contract file. The pragma header is scanned first, then
// the whole file is decoded as TOML.
func Parse(source string, content []byte) (*Contract, error) {
	c := &Contract{Source: source}
	c.Pragmas = scanPragmas(content)

	md, err := toml.Decode(string(content), c)
	if err != nil {
		return nil, fmt.Errorf("contract %s: %w", source, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("contract %s: unknown keys: %s", source, strings.Join(keys, ", "))
	}

	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	if c.Restrictions == "" {
		c.Restrictions = restrictionsPragma(c.Pragmas)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("contract %s: %w", source, err)
	}
	return c, nil
}

// scanPragmas collects the "#pragma" lines of the leading comment block.
func scanPragmas(content []byte) []string {
	scanner := bufio.NewScanner(bytes.NewReader(content))

	var pragmas []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// Stop at first non-comment line
		if !strings.HasPrefix(line, "#") {
			break
		}
		if rest, ok := strings.CutPrefix(line, "#pragma"); ok {
			pragmas = append(pragmas, strings.TrimSpace(rest))
		}
	}
	return pragmas
}

// restrictionsPragma returns the restrictions named by "#pragma repy NAME".
func restrictionsPragma(pragmas []string) string {
	for _, p := range pragmas {
		fields := strings.Fields(p)
		if len(fields) >= 2 && fields[0] == "repy" {
			return fields[1]
		}
	}
	return ""
}

func (c *Contract) validate() error {
	if c.API != "" {
		if _, err := semver.NewConstraint(c.API); err != nil {
			return fmt.Errorf("invalid api constraint %q: %w", c.API, err)
		}
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("no steps")
	}

	held := map[string]bool{}
	for i := range c.Steps {
		s := &c.Steps[i]
		n := i + 1

		if s.IsClose() {
			if s.Call != "" || len(s.Args) > 0 || len(s.Each) > 0 || s.Expect != "" || s.Hold != "" {
				return fmt.Errorf("step %d: a close step takes no other keys", n)
			}
			if !held[s.Close] {
				return fmt.Errorf("step %d: closes %q, which no earlier step holds", n, s.Close)
			}
			delete(held, s.Close)
			continue
		}

		if s.Call == "" {
			return fmt.Errorf("step %d: needs call or close", n)
		}
		if !hasCall(s.Call) {
			return fmt.Errorf("step %d: unknown call %q (supported: %s)", n, s.Call, strings.Join(api.Calls(), ", "))
		}
		if len(s.Args) > 0 && len(s.Each) > 0 {
			return fmt.Errorf("step %d: use args or each, not both", n)
		}

		kind, expectErr, err := apierror.ParseKind(s.Expect)
		if err != nil {
			return fmt.Errorf("step %d: %w", n, err)
		}
		s.expected, s.expectErr = kind, expectErr

		if s.Hold != "" {
			if !strings.EqualFold(s.Call, "listenformessage") {
				return fmt.Errorf("step %d: only listenformessage returns a handle to hold", n)
			}
			if expectErr || len(s.Each) > 0 {
				return fmt.Errorf("step %d: hold needs a single call expected to succeed", n)
			}
			if held[s.Hold] {
				return fmt.Errorf("step %d: %q is already held", n, s.Hold)
			}
			held[s.Hold] = true
		}
	}
	return nil
}

func hasCall(name string) bool {
	for _, c := range api.Calls() {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// CheckAPI verifies the contract's api constraint against netapi.APIVersion.
func (c *Contract) CheckAPI() error {
	if c.API == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(c.API)
	if err != nil {
		return fmt.Errorf("invalid api constraint %q: %w", c.API, err)
	}
	version := semver.MustParse(netapi.APIVersion)
	if !constraint.Check(version) {
		return fmt.Errorf("contract %s needs api %s, this build provides %s", c.Name, c.API, netapi.APIVersion)
	}
	return nil
}

// Checks returns the number of outcomes a run produces.
func (c *Contract) Checks() int {
	total := 0
	for i := range c.Steps {
		total += c.Steps[i].Checks()
	}
	return total
}

// Builtins returns the names of the bundled contracts.
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

// Load reads a contract from a file, falling back to a builtin of that name.
func Load(ref string) (*Contract, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		content, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to read contract: %w", err)
		}
		return Parse(ref, content)
	}

	content, err := builtinFS.ReadFile("builtin/" + ref + ".toml")
	if err != nil {
		return nil, fmt.Errorf("contract not found: %s (builtins: %s)", ref, strings.Join(Builtins(), ", "))
	}
	return Parse(ref, content)
}
