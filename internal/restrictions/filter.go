package restrictions

import (
	"fmt"
	"net/netip"
	"strings"
)

// AddrFilter handles local IP allowlisting.
type AddrFilter struct {
	allowedAddrs    []netip.Addr
	allowedPrefixes []netip.Prefix // Entries written as CIDR, e.g. 10.0.0.0/8
	allowAll        bool
}

// NewAddrFilter creates a new address filter.
func NewAddrFilter() *AddrFilter {
	return &AddrFilter{
		allowedAddrs:    []netip.Addr{},
		allowedPrefixes: []netip.Prefix{},
	}
}

// AllowAll allows all addresses (disables filtering).
func (f *AddrFilter) AllowAll() {
	f.allowAll = true
}

// AddAllowed adds an address or CIDR prefix to the allow list.
func (f *AddrFilter) AddAllowed(entry string) error {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}

	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return fmt.Errorf("invalid prefix %q: %w", entry, err)
		}
		f.allowedPrefixes = append(f.allowedPrefixes, prefix.Masked())
		return nil
	}

	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", entry, err)
	}
	f.allowedAddrs = append(f.allowedAddrs, addr.Unmap())
	return nil
}

// IsAllowed checks if an address is allowed.
func (f *AddrFilter) IsAllowed(addr netip.Addr) bool {
	if f.allowAll {
		return true
	}

	addr = addr.Unmap()

	for _, allowed := range f.allowedAddrs {
		if addr == allowed {
			return true
		}
	}

	for _, prefix := range f.allowedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}

// AllowsAll reports whether filtering is disabled.
func (f *AddrFilter) AllowsAll() bool {
	return f.allowAll
}

// Entries returns the allow list in its textual form.
func (f *AddrFilter) Entries() []string {
	if f.allowAll {
		return []string{"*"}
	}
	entries := make([]string, 0, len(f.allowedAddrs)+len(f.allowedPrefixes))
	for _, a := range f.allowedAddrs {
		entries = append(entries, a.String())
	}
	for _, p := range f.allowedPrefixes {
		entries = append(entries, p.String())
	}
	return entries
}
