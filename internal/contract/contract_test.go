package contract

import (
	"strings"
	"testing"

	"github.com/eddmann/repyx/internal/apierror"
)

func TestParse_builtin_listenformessage(t *testing.T) {
	c, err := Load("listenformessage")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Name != "listenformessage" {
		t.Errorf("Name = %q, want listenformessage", c.Name)
	}
	if c.Restrictions != "restrictions.twoports" {
		t.Errorf("Restrictions = %q, want restrictions.twoports", c.Restrictions)
	}
	if len(c.Pragmas) != 2 {
		t.Errorf("Pragmas = %v, want 2 entries", c.Pragmas)
	}
	if got := c.Checks(); got != 10 {
		t.Errorf("Checks() = %d, want 10", got)
	}
	if err := c.CheckAPI(); err != nil {
		t.Errorf("CheckAPI: %v", err)
	}
}

func TestParse_pragmas(t *testing.T) {
	tests := []struct {
		name             string
		content          string
		wantRestrictions string
	}{
		{
			name: "pragma_selects_restrictions",
			content: `#pragma repy restrictions.twoports
[[step]]
call = "listenformessage"
args = ["127.0.0.1", 12345]
`,
			wantRestrictions: "restrictions.twoports",
		},
		{
			name: "bare_repy_pragma",
			content: `#pragma repy
[[step]]
call = "listenformessage"
args = ["127.0.0.1", 12345]
`,
			wantRestrictions: "",
		},
		{
			name: "key_overrides_pragma",
			content: `#pragma repy restrictions.twoports
restrictions = "unrestricted"
[[step]]
call = "listenformessage"
args = ["127.0.0.1", 12345]
`,
			wantRestrictions: "unrestricted",
		},
		{
			name: "pragma_after_content_is_ignored",
			content: `[[step]]
call = "listenformessage"
args = ["127.0.0.1", 12345]
#pragma repy restrictions.twoports
`,
			wantRestrictions: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustParse(t, tt.content)
			if c.Restrictions != tt.wantRestrictions {
				t.Errorf("Restrictions = %q, want %q", c.Restrictions, tt.wantRestrictions)
			}
		})
	}
}

func TestParse_name_defaults_to_file_base(t *testing.T) {
	c, err := Parse("/tmp/contracts/udp-bind.toml", []byte(`[[step]]
call = "listenformessage"
args = ["127.0.0.1", 12345]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Name != "udp-bind" {
		t.Errorf("Name = %q, want udp-bind", c.Name)
	}
}

func TestParse_expect_resolves_kind(t *testing.T) {
	c := mustParse(t, `[[step]]
call = "listenformessage"
args = ["127.0.0.1", 12345]
expect = "AlreadyListeningError"

[[step]]
call = "ListenForMessage"
args = ["127.0.0.1", 12345]
`)

	if c.Steps[0].expected != apierror.KindAlreadyBound || !c.Steps[0].expectErr {
		t.Errorf("step 1 expects %v (%v), want AlreadyBoundError", c.Steps[0].expected, c.Steps[0].expectErr)
	}
	if c.Steps[1].expectErr {
		t.Error("step 2 without expect should expect success")
	}
}

func TestParse_errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no_steps", `api = ">=2.0"`, "no steps"},
		{"bad_toml", `[[step]`, "test.toml"},
		{"unknown_key", "[[step]]\ncall = \"listenformessage\"\ntimeout = 5\n", "unknown keys"},
		{"unknown_call", "[[step]]\ncall = \"openconnection\"\n", "unknown call"},
		{"missing_call", "[[step]]\ndescription = \"nothing\"\n", "needs call or close"},
		{"unknown_kind", "[[step]]\ncall = \"listenformessage\"\nexpect = \"KeyError\"\n", "unknown error kind"},
		{"args_and_each", "[[step]]\ncall = \"listenformessage\"\nargs = [1]\neach = [[1]]\n", "not both"},
		{"bad_api_constraint", "api = \"two\"\n[[step]]\ncall = \"listenformessage\"\n", "invalid api constraint"},
		{"close_unheld", "[[step]]\nclose = \"s1\"\n", "which no earlier step holds"},
		{"close_with_call", "[[step]]\ncall = \"listenformessage\"\nargs = [\"127.0.0.1\", 12345]\nhold = \"s1\"\n[[step]]\nclose = \"s1\"\ncall = \"listenformessage\"\n", "no other keys"},
		{"hold_expecting_error", "[[step]]\ncall = \"listenformessage\"\nhold = \"s1\"\nexpect = \"RepyArgumentError\"\n", "hold needs"},
		{"hold_on_send", "[[step]]\ncall = \"sendmessage\"\nhold = \"s1\"\n", "only listenformessage"},
		{"hold_twice", "[[step]]\ncall = \"listenformessage\"\nargs = [\"127.0.0.1\", 12345]\nhold = \"s1\"\n[[step]]\ncall = \"listenformessage\"\nargs = [\"127.0.0.1\", 12346]\nhold = \"s1\"\n", "already held"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test.toml", []byte(tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestCheckAPI_rejects_newer_constraint(t *testing.T) {
	c := mustParse(t, `api = ">=3.0"
[[step]]
call = "listenformessage"
args = ["127.0.0.1", 12345]
`)
	if err := c.CheckAPI(); err == nil {
		t.Error("CheckAPI should fail for a constraint above the API version")
	}
}

func TestLoad_unknown_contract(t *testing.T) {
	_, err := Load("does-not-exist")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "listenformessage") {
		t.Errorf("error should list builtins, got %q", err)
	}
}
