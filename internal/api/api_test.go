package api

import (
	"errors"
	"net/netip"
	"strings"
	"testing"

	"github.com/eddmann/repyx/internal/apierror"
	"github.com/eddmann/repyx/internal/netapi"
	"github.com/eddmann/repyx/internal/restrictions"
)

// stubBinder refuses every bind so tests never touch the host.
type stubBinder struct{ binds int }

func (b *stubBinder) BindUDP(addr netip.AddrPort) (netapi.PacketConn, error) {
	b.binds++
	return nil, errors.New("stub binder: no host sockets")
}

func newNetwork(t *testing.T) (*netapi.Network, *stubBinder) {
	t.Helper()
	p, err := restrictions.Load("twoports")
	if err != nil {
		t.Fatalf("failed to load twoports: %v", err)
	}
	b := &stubBinder{}
	n := netapi.New(p, netapi.WithBinder(b))
	t.Cleanup(n.Close)
	return n, b
}

func TestCall_listenformessage_invalid_arguments(t *testing.T) {
	tests := []struct {
		name string
		args []any
	}{
		{"int_ip", []any{5, 5}},
		{"null_port", []any{"127.0.0.1", nil}},
		{"missing_port", []any{"127.0.0.1"}},
		{"malformed_ip", []any{"1...", 5}},
		{"port_too_large", []any{"127.0.0.1", 65536}},
		{"int64_port_too_large", []any{"127.0.0.1", int64(1) << 40}},
		{"float_port", []any{"127.0.0.1", 12345.0}},
		{"bool_port", []any{"127.0.0.1", true}},
		{"string_port", []any{"127.0.0.1", "12345"}},
		{"too_many_args", []any{"127.0.0.1", 12345, 1}},
		{"no_args", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, b := newNetwork(t)

			_, err := Call(n, "listenformessage", tt.args...)
			if !errors.Is(err, apierror.ErrInvalidArgument) {
				t.Errorf("err = %v, want InvalidArgumentError", err)
			}
			if b.binds != 0 {
				t.Errorf("invalid call reached the host binder %d times", b.binds)
			}
		})
	}
}

func TestCall_listenformessage_passes_int64(t *testing.T) {
	n, _ := newNetwork(t)

	// TOML integers arrive as int64; 12347 is well-typed but forbidden
	_, err := Call(n, "listenformessage", "127.0.0.1", int64(12347))
	if !errors.Is(err, apierror.ErrResourceForbidden) {
		t.Errorf("err = %v, want ResourceForbiddenError", err)
	}
}

func TestCall_null_is_named_in_message(t *testing.T) {
	n, _ := newNetwork(t)

	_, err := Call(n, "listenformessage", "127.0.0.1", nil)
	if err == nil || !strings.Contains(err.Error(), "got null") {
		t.Errorf("err = %v, want mention of null", err)
	}
}

func TestCall_sendmessage_argument_types(t *testing.T) {
	n, _ := newNetwork(t)

	_, err := Call(n, "sendmessage", "127.0.0.1", 9999, 42, "127.0.0.1", 12345)
	if !errors.Is(err, apierror.ErrInvalidArgument) {
		t.Errorf("err = %v, want InvalidArgumentError for non-string message", err)
	}

	_, err = Call(n, "sendmessage", "127.0.0.1", 9999, "hi", "127.0.0.1", 12347)
	if !errors.Is(err, apierror.ErrResourceForbidden) {
		t.Errorf("err = %v, want ResourceForbiddenError", err)
	}
}

func TestCall_unknown(t *testing.T) {
	n, _ := newNetwork(t)

	_, err := Call(n, "openconnection", "127.0.0.1", 80)
	if err == nil {
		t.Fatal("expected error")
	}
	if apierror.KindOf(err) != apierror.KindUnknown {
		t.Errorf("unknown call should not be an API error kind, got %v", apierror.KindOf(err))
	}
	if !strings.Contains(err.Error(), "listenformessage") {
		t.Errorf("error should list supported calls, got %q", err)
	}
}

func TestCall_name_is_case_insensitive(t *testing.T) {
	n, _ := newNetwork(t)

	_, err := Call(n, "ListenForMessage", "1...", 5)
	if !errors.Is(err, apierror.ErrInvalidArgument) {
		t.Errorf("err = %v, want InvalidArgumentError", err)
	}
}

func TestCalls(t *testing.T) {
	got := Calls()
	if len(got) != 2 || got[0] != "listenformessage" || got[1] != "sendmessage" {
		t.Errorf("Calls() = %v", got)
	}
}
