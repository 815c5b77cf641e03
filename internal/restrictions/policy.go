// Package restrictions loads the sandbox policy that decides which local
// ports and addresses sandboxed code may use.
//
// Two file formats are understood. The native format is TOML:
//
//	[resources]
//	messport = [12345, 12346]
//	insockets = 5
//	[network]
//	allowed_ips = ["127.0.0.1", "10.0.0.0/8"]
//
// The legacy repy format is one directive per line:
//
//	resource messport 12345
//	resource insockets 5
//	call listenformessage allow
package restrictions

import (
	"bufio"
	"bytes"
	"fmt"
	"net/netip"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Policy is a parsed restrictions file.
type Policy struct {
	Name      string
	AllPorts  bool  // Any port may be used; MessPorts is ignored
	MessPorts []int // UDP local ports, sorted
	ConnPorts []int // TCP local ports, sorted. Parsed for compatibility only
	InSockets int   // Maximum concurrent listening sockets, 0 for unlimited
	Addrs     *AddrFilter
}

type policyFile struct {
	Resources struct {
		MessPort  []int `toml:"messport"`
		ConnPort  []int `toml:"connport"`
		InSockets int   `toml:"insockets"`
		AllPorts  bool  `toml:"all_ports"`
	} `toml:"resources"`
	Network struct {
		AllowedIPs []string `toml:"allowed_ips"`
	} `toml:"network"`
}

// Unrestricted returns a policy allowing every port on every address.
func Unrestricted() *Policy {
	addrs := NewAddrFilter()
	addrs.AllowAll()
	return &Policy{Name: "unrestricted", AllPorts: true, Addrs: addrs}
}

// AllowsMessPort reports whether port may be used for datagram sockets.
func (p *Policy) AllowsMessPort(port int) bool {
	if p.AllPorts {
		return true
	}
	_, found := slices.BinarySearch(p.MessPorts, port)
	return found
}

// AllowsLocalIP reports whether addr may be used as a local address.
func (p *Policy) AllowsLocalIP(addr netip.Addr) bool {
	if p.Addrs == nil {
		return true
	}
	return p.Addrs.IsAllowed(addr)
}

// Parse decodes a restrictions file in either format.
func Parse(name string, data []byte) (*Policy, error) {
	if isLegacy(data) {
		return parseLegacy(name, data)
	}
	return parseTOML(name, data)
}

func parseTOML(name string, data []byte) (*Policy, error) {
	var f policyFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("restrictions %s: %w", name, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("restrictions %s: unknown keys: %s", name, strings.Join(keys, ", "))
	}

	p := &Policy{
		Name:      name,
		AllPorts:  f.Resources.AllPorts,
		InSockets: f.Resources.InSockets,
		Addrs:     NewAddrFilter(),
	}
	if p.InSockets < 0 {
		return nil, fmt.Errorf("restrictions %s: insockets must not be negative", name)
	}
	for _, port := range f.Resources.MessPort {
		if err := p.addPort(&p.MessPorts, port); err != nil {
			return nil, fmt.Errorf("restrictions %s: messport: %w", name, err)
		}
	}
	for _, port := range f.Resources.ConnPort {
		if err := p.addPort(&p.ConnPorts, port); err != nil {
			return nil, fmt.Errorf("restrictions %s: connport: %w", name, err)
		}
	}

	if len(f.Network.AllowedIPs) == 0 {
		p.Addrs.AllowAll()
	}
	for _, entry := range f.Network.AllowedIPs {
		if err := p.Addrs.AddAllowed(entry); err != nil {
			return nil, fmt.Errorf("restrictions %s: allowed_ips: %w", name, err)
		}
	}

	return p, nil
}

func parseLegacy(name string, data []byte) (*Policy, error) {
	p := &Policy{Name: name, Addrs: NewAddrFilter()}
	p.Addrs.AllowAll()

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "call":
			// Call permissions are not enforced here
			continue
		case "resource":
			if len(fields) != 3 {
				return nil, fmt.Errorf("restrictions %s:%d: want 'resource <name> <value>'", name, lineNo)
			}
			if err := p.applyLegacyResource(fields[1], fields[2]); err != nil {
				return nil, fmt.Errorf("restrictions %s:%d: %w", name, lineNo, err)
			}
		default:
			return nil, fmt.Errorf("restrictions %s:%d: unknown directive %q", name, lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("restrictions %s: %w", name, err)
	}

	return p, nil
}

func (p *Policy) applyLegacyResource(resource, value string) error {
	switch resource {
	case "messport", "connport", "insockets":
	default:
		// cpu, memory, filewrite and the like are accounted elsewhere
		return nil
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil || n != float64(int(n)) {
		return fmt.Errorf("%s: invalid value %q", resource, value)
	}

	switch resource {
	case "messport":
		return p.addPort(&p.MessPorts, int(n))
	case "connport":
		return p.addPort(&p.ConnPorts, int(n))
	default:
		if n < 0 {
			return fmt.Errorf("insockets must not be negative")
		}
		p.InSockets = int(n)
		return nil
	}
}

func (p *Policy) addPort(ports *[]int, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	i, found := slices.BinarySearch(*ports, port)
	if !found {
		*ports = slices.Insert(*ports, i, port)
	}
	return nil
}

// isLegacy reports whether the first significant line is a repy directive.
func isLegacy(data []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}
		return strings.HasPrefix(line, "resource ") || strings.HasPrefix(line, "call ")
	}
	return false
}

func stripComment(line string) string {
	if idx := strings.Index(line, "#"); idx != -1 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}

// Summary renders the policy for humans.
func (p *Policy) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Restrictions: %s\n", p.Name)
	if p.AllPorts {
		b.WriteString("  UDP ports: any\n")
	} else {
		fmt.Fprintf(&b, "  UDP ports: %s\n", joinPorts(p.MessPorts))
	}
	if len(p.ConnPorts) > 0 {
		fmt.Fprintf(&b, "  TCP ports: %s (not enforced)\n", joinPorts(p.ConnPorts))
	}
	if p.InSockets > 0 {
		fmt.Fprintf(&b, "  Listening sockets: at most %d\n", p.InSockets)
	} else {
		b.WriteString("  Listening sockets: unlimited\n")
	}
	if p.Addrs == nil || p.Addrs.AllowsAll() {
		b.WriteString("  Local IPs: any\n")
	} else {
		fmt.Fprintf(&b, "  Local IPs: %s\n", strings.Join(p.Addrs.Entries(), ", "))
	}
	return b.String()
}

func joinPorts(ports []int) string {
	if len(ports) == 0 {
		return "none"
	}
	parts := make([]string, len(ports))
	for i, port := range ports {
		parts[i] = strconv.Itoa(port)
	}
	return strings.Join(parts, ", ")
}
