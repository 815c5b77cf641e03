package restrictions

import (
	"net/netip"
	"testing"
)

func TestAddrFilter_IsAllowed(t *testing.T) {
	f := NewAddrFilter()
	for _, entry := range []string{"127.0.0.1", "10.0.0.0/8", " 192.168.1.7 "} {
		if err := f.AddAllowed(entry); err != nil {
			t.Fatalf("AddAllowed(%q): %v", entry, err)
		}
	}

	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"127.0.0.2", false},
		{"10.1.2.3", true},
		{"11.0.0.1", false},
		{"192.168.1.7", true},
		{"::ffff:127.0.0.1", true},
		{"8.8.4.4", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			got := f.IsAllowed(netip.MustParseAddr(tt.addr))
			if got != tt.want {
				t.Errorf("IsAllowed(%s) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestAddrFilter_allow_all(t *testing.T) {
	f := NewAddrFilter()
	f.AllowAll()

	if !f.IsAllowed(netip.MustParseAddr("8.8.4.4")) {
		t.Error("allow-all filter should allow any address")
	}
	if got := f.Entries(); len(got) != 1 || got[0] != "*" {
		t.Errorf("Entries() = %v, want [*]", got)
	}
}

func TestAddrFilter_rejects_malformed_entries(t *testing.T) {
	f := NewAddrFilter()

	for _, entry := range []string{"1...", "10.0.0.0/33", "host.example"} {
		if err := f.AddAllowed(entry); err == nil {
			t.Errorf("AddAllowed(%q) succeeded, want error", entry)
		}
	}
}

func TestAddrFilter_empty_entry_is_ignored(t *testing.T) {
	f := NewAddrFilter()

	if err := f.AddAllowed("   "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Entries()) != 0 {
		t.Errorf("Entries() = %v, want empty", f.Entries())
	}
}
