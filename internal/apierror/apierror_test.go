package apierror

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       Kind
		wantExpect bool
		wantErr    bool
	}{
		{"canonical_name", "AlreadyBoundError", KindAlreadyBound, true, false},
		{"repy_alias_listening", "AlreadyListeningError", KindAlreadyBound, true, false},
		{"repy_alias_argument", "RepyArgumentError", KindInvalidArgument, true, false},
		{"case_insensitive", "addressbindingerror", KindAddressBinding, true, false},
		{"surrounding_whitespace", "  ResourceForbiddenError ", KindResourceForbidden, true, false},
		{"empty_means_success", "", KindUnknown, false, false},
		{"none_means_success", "none", KindUnknown, false, false},
		{"unknown_name", "KeyError", KindUnknown, false, true},
		{"unknown_kind_name_is_not_expectable", "UnknownError", KindUnknown, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, expect, err := ParseKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if expect != tt.wantExpect {
				t.Errorf("ParseKind(%q) expectErr = %v, want %v", tt.input, expect, tt.wantExpect)
			}
		})
	}
}

func TestError_is_matches_sentinel_of_same_kind(t *testing.T) {
	err := New(KindAlreadyBound, "listenformessage", "127.0.0.1:12345 is already in use")

	if !errors.Is(err, ErrAlreadyBound) {
		t.Error("errors.Is(err, ErrAlreadyBound) = false, want true")
	}
	if errors.Is(err, ErrInvalidArgument) {
		t.Error("errors.Is(err, ErrInvalidArgument) = true, want false")
	}
}

func TestError_is_survives_wrapping(t *testing.T) {
	err := fmt.Errorf("step 2: %w", New(KindInvalidArgument, "listenformessage", "bad port"))

	if !errors.Is(err, ErrInvalidArgument) {
		t.Error("wrapped error should match ErrInvalidArgument")
	}
	if got := KindOf(err); got != KindInvalidArgument {
		t.Errorf("KindOf = %v, want %v", got, KindInvalidArgument)
	}
}

func TestError_unwraps_cause(t *testing.T) {
	err := Wrap(KindAddressBinding, "listenformessage", syscall.EADDRNOTAVAIL, "cannot bind 8.8.4.4:12345")

	if !errors.Is(err, syscall.EADDRNOTAVAIL) {
		t.Error("errors.Is should reach the wrapped errno")
	}
}

func TestError_message(t *testing.T) {
	err := New(KindResourceForbidden, "listenformessage", "port %d is not allowed", 12347)

	want := "listenformessage: ResourceForbiddenError: port 12347 is not allowed"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestKindOf_plain_error_is_unknown(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindUnknown {
		t.Errorf("KindOf = %v, want %v", got, KindUnknown)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Errorf("KindOf(nil) = %v, want %v", got, KindUnknown)
	}
}
