package contract

import (
	"fmt"
	"io"
	"time"

	"github.com/eddmann/repyx/internal/netapi"
	"gopkg.in/yaml.v3"
)

// Report collects the outcomes of a contract run.
type Report struct {
	Contract     string    `yaml:"contract"`
	Restrictions string    `yaml:"restrictions"`
	APIVersion   string    `yaml:"api_version"`
	StartedAt    time.Time `yaml:"started_at"`
	Duration     string    `yaml:"duration"`
	Checks       int       `yaml:"checks"`
	Passed       int       `yaml:"passed"`
	Failed       int       `yaml:"failed"`
	Outcomes     []Outcome `yaml:"outcomes"`
}

func newReport(c *Contract, restrictions string) *Report {
	return &Report{
		Contract:     c.Name,
		Restrictions: restrictions,
		APIVersion:   netapi.APIVersion,
		StartedAt:    time.Now().UTC(),
	}
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Checks++
	if o.Passed {
		r.Passed++
	} else {
		r.Failed++
	}
}

func (r *Report) finish() {
	r.Duration = time.Since(r.StartedAt).Round(time.Microsecond).String()
}

// Err returns an error naming the failed checks, or nil if all passed.
func (r *Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d checks failed in contract %s", r.Failed, r.Checks, r.Contract)
}

// WriteText writes a human-readable report.
func (r *Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s (restrictions: %s, api %s)\n", r.Contract, r.Restrictions, r.APIVersion); err != nil {
		return err
	}
	for _, o := range r.Outcomes {
		status := "ok  "
		if !o.Passed {
			status = "FAIL"
		}
		label := o.Description
		if label == "" {
			label = o.Call
		}
		fmt.Fprintf(w, "  %s  %-3d %s(%s)  %s\n", status, o.Step, o.Call, o.Args, label)
		if !o.Passed {
			fmt.Fprintf(w, "        %s\n", o.Mismatch)
			fmt.Fprintf(w, "        expected %s, got %s\n", o.Expected, o.Got)
			if o.Error != "" {
				fmt.Fprintf(w, "        %s\n", o.Error)
			}
		}
	}
	_, err := fmt.Fprintf(w, "%d checks, %d passed, %d failed\n", r.Checks, r.Passed, r.Failed)
	return err
}

// WriteYAML writes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}
