package contract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/eddmann/repyx/internal/api"
	"github.com/eddmann/repyx/internal/apierror"
	"github.com/eddmann/repyx/internal/netapi"
	"github.com/schollz/progressbar/v3"
)

// Verifier drives API calls and checks the error kind each one raises.
type Verifier struct {
	Net      *netapi.Network
	Log      io.Writer // verbose diagnostics
	Verbose  bool
	Progress io.Writer // progress bar output, nil for none

	held map[string]*netapi.UDPServerSocket
}

// NewVerifier creates a verifier calling into n.
func NewVerifier(n *netapi.Network) *Verifier {
	return &Verifier{Net: n}
}

// Outcome is the result of one check.
type Outcome struct {
	Step        int    `yaml:"step"`
	Call        string `yaml:"call"`
	Args        string `yaml:"args,omitempty"`
	Description string `yaml:"description,omitempty"`
	Expected    string `yaml:"expected"`
	Got         string `yaml:"got"`
	Passed      bool   `yaml:"passed"`
	Mismatch    string `yaml:"mismatch,omitempty"`
	Error       string `yaml:"error,omitempty"`
}

const success = "success"

func expectation(expected apierror.Kind) string {
	if expected == apierror.KindUnknown {
		return success
	}
	return expected.String()
}

// AttemptListen calls listenformessage(ip, port) and checks the result.
// An expected kind of apierror.KindUnknown means the call must succeed.
//
// A call that succeeds when an error was expected is a mismatch, reported
// as "no exception for: <description>", and its handle is released. A call
// that fails with a different kind is a mismatch carrying the actual kind
// and message.
func (v *Verifier) AttemptListen(ip, port any, expected apierror.Kind, description string) Outcome {
	o, sock := v.attempt("listenformessage", []any{ip, port}, expected, description)
	if sock != nil {
		sock.Close()
	}
	return o
}

// attempt performs one call. On success the listening handle, if any, is
// returned to the caller, who owns it.
func (v *Verifier) attempt(call string, args []any, expected apierror.Kind, description string) (Outcome, *netapi.UDPServerSocket) {
	o := Outcome{
		Call:        call,
		Args:        formatArgs(args),
		Description: description,
		Expected:    expectation(expected),
	}

	result, err := api.Call(v.Net, call, args...)
	sock, _ := result.(*netapi.UDPServerSocket)

	switch {
	case err == nil:
		o.Got = success
		o.Passed = expected == apierror.KindUnknown
		if !o.Passed {
			o.Mismatch = "no exception for: " + description
		}
	case apierror.KindOf(err) == expected && expected != apierror.KindUnknown:
		o.Got = expected.String()
		o.Passed = true
		o.Error = err.Error()
	default:
		o.Got = apierror.KindOf(err).String()
		o.Error = err.Error()
		if expected == apierror.KindUnknown {
			o.Mismatch = "unexpected exception for: " + description
		} else {
			o.Mismatch = "wrong exception for: " + description
		}
	}

	v.logf("%s(%s): expected %s, got %s", call, o.Args, o.Expected, o.Got)
	return o, sock
}

// Run executes the contract's steps in order. Only a cancelled context or a
// contract the API cannot satisfy returns an error; mismatches are recorded
// in the report.
func (v *Verifier) Run(ctx context.Context, c *Contract) (*Report, error) {
	if err := c.CheckAPI(); err != nil {
		return nil, err
	}

	report := newReport(c, v.Net.Policy().Name)
	v.held = make(map[string]*netapi.UDPServerSocket)
	defer v.releaseHeld()

	var bar *progressbar.ProgressBar
	if v.Progress != nil {
		bar = progressbar.NewOptions(c.Checks(),
			progressbar.OptionSetWriter(v.Progress),
			progressbar.OptionSetDescription("Verifying "+c.Name),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
	}

	for i := range c.Steps {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("verification interrupted: %w", err)
		}

		step := &c.Steps[i]
		for _, o := range v.runStep(step) {
			o.Step = i + 1
			report.add(o)
			if bar != nil {
				_ = bar.Add(1)
			}
		}
	}

	report.finish()
	return report, nil
}

func (v *Verifier) runStep(s *Step) []Outcome {
	if s.IsClose() {
		return []Outcome{v.closeHeld(s.Close)}
	}

	argSets := s.Each
	if len(argSets) == 0 {
		argSets = [][]any{s.Args}
	}

	outcomes := make([]Outcome, 0, len(argSets))
	for _, args := range argSets {
		o, sock := v.attempt(s.Call, args, s.expected, s.Description)
		if sock != nil {
			if s.Hold != "" {
				v.held[s.Hold] = sock
			} else {
				sock.Close()
			}
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (v *Verifier) closeHeld(name string) Outcome {
	o := Outcome{
		Call:        "close",
		Args:        name,
		Description: "close " + name,
		Expected:    "true",
	}

	sock, ok := v.held[name]
	if !ok {
		o.Got = "no handle"
		o.Mismatch = "cannot close " + name + ": the call that should have opened it failed"
		return o
	}
	delete(v.held, name)

	if sock.Close() {
		o.Got = "true"
		o.Passed = true
	} else {
		o.Got = "false"
		o.Mismatch = "close returned false for: " + name
	}
	v.logf("close(%s): %s", name, o.Got)
	return o
}

func (v *Verifier) releaseHeld() {
	for name, sock := range v.held {
		v.logf("releasing %s left open by the contract", name)
		sock.Close()
	}
	v.held = nil
}

func (v *Verifier) logf(format string, args ...any) {
	if v.Verbose && v.Log != nil {
		fmt.Fprintf(v.Log, "[contract] "+format+"\n", args...)
	}
}

// formatArgs renders arguments the way they appear in a contract file.
func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		switch x := a.(type) {
		case nil:
			parts[i] = "null"
		case string:
			parts[i] = fmt.Sprintf("%q", x)
		default:
			parts[i] = fmt.Sprint(x)
		}
	}
	return strings.Join(parts, ", ")
}
