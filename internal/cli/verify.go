package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/eddmann/repyx/internal/contract"
	"github.com/eddmann/repyx/internal/home"
	"github.com/eddmann/repyx/internal/isolate"
	"github.com/spf13/cobra"
)

const defaultContract = "listenformessage"

var (
	verifyRestrictions string
	verifyOutput       string
	verifySave         bool
	verifyMetricsFile  string
	verifyIsolate      bool
	verifyTimeout      int
)

var verifyCmd = &cobra.Command{
	Use:   "verify [contract.toml|builtin]",
	Short: "Check that API calls raise the expected error kinds",
	Long: `Run a contract: a list of API calls, each with the error kind it must
raise. Without an argument the builtin listenformessage contract runs.

A contract file is TOML. Leading "#pragma repy restrictions.NAME" lines
select the restrictions it runs under:

    #pragma repy
    #pragma repy restrictions.twoports
    api = ">=2.0"

    [[step]]
    call = "listenformessage"
    args = ["127.0.0.1", 12345]
    hold = "s1"

    [[step]]
    call = "listenformessage"
    args = ["127.0.0.1", 12345]
    expect = "AlreadyListeningError"

    [[step]]
    close = "s1"

Options:
    --restrictions     Override the contract's restrictions
    --output           Report format: text or yaml
    --save             Save the report under ~/.repyx/reports
    --metrics-file     Write Prometheus metrics to a textfile
    --isolate          Run in a private network namespace`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyRestrictions, "restrictions", "", "restrictions name or file (overrides contract)")
	verifyCmd.Flags().StringVarP(&verifyOutput, "output", "o", "text", "report format (text, yaml)")
	verifyCmd.Flags().BoolVar(&verifySave, "save", false, "save the report under ~/.repyx/reports")
	verifyCmd.Flags().StringVar(&verifyMetricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	verifyCmd.Flags().BoolVar(&verifyIsolate, "isolate", false, "run in a private network namespace")
	verifyCmd.Flags().IntVar(&verifyTimeout, "timeout", 30, "verification timeout in seconds")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ref := defaultContract
	if len(args) == 1 {
		ref = args[0]
	}

	if verifyOutput != "text" && verifyOutput != "yaml" {
		return fmt.Errorf("unknown output format %q (text, yaml)", verifyOutput)
	}

	c, err := contract.Load(ref)
	if err != nil {
		return err
	}
	logf("Contract: %s (%d checks)", c.Name, c.Checks())

	if verifyIsolate && !isolate.Active() {
		return verifyIsolated(cmd.Context(), ref)
	}
	if isolate.Active() {
		logf("Running isolated (%s)", os.Getenv(isolate.EnvMarker))
	}

	restrictionsRef := verifyRestrictions
	if restrictionsRef == "" {
		restrictionsRef = c.Restrictions
	}
	n, err := newNetwork(restrictionsRef)
	if err != nil {
		return err
	}
	defer n.Close()

	v := contract.NewVerifier(n)
	v.Log = os.Stderr
	v.Verbose = verbose
	if !quiet && !verbose {
		v.Progress = os.Stderr
	}

	ctx := context.Background()
	if verifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(verifyTimeout)*time.Second)
		defer cancel()
	}

	report, err := v.Run(ctx, c)
	if err != nil {
		return err
	}

	if err := writeReport(stdout(), report, verifyOutput); err != nil {
		return err
	}

	if verifySave {
		ext := "txt"
		if verifyOutput == "yaml" {
			ext = "yaml"
		}
		path, err := home.ReportPath(c.Name, report.StartedAt, ext)
		if err != nil {
			return err
		}
		if err := saveReport(path, report, verifyOutput); err != nil {
			return err
		}
		logf("Report saved to %s", path)
	}

	if verifyMetricsFile != "" {
		if err := n.WriteMetrics(verifyMetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		logf("Metrics written to %s", verifyMetricsFile)
	}

	return report.Err()
}

// verifyIsolated re-runs this command inside an isolator and exits with
// the child's exit code.
func verifyIsolated(ctx context.Context, ref string) error {
	iso := isolate.Detect()
	if !iso.IsIsolated() {
		return fmt.Errorf("--isolate requested but no network isolation is available on this system")
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate repyx executable: %w", err)
	}

	// The child may start in another directory; pass files by absolute path
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		if abs, err := filepath.Abs(ref); err == nil {
			ref = abs
		}
	}

	childArgs := []string{"verify", ref, "--output", verifyOutput, "--timeout", fmt.Sprint(verifyTimeout)}
	if verifyRestrictions != "" {
		childArgs = append(childArgs, "--restrictions", absIfFile(verifyRestrictions))
	}
	if verifySave {
		childArgs = append(childArgs, "--save")
	}
	if verifyMetricsFile != "" {
		childArgs = append(childArgs, "--metrics-file", absIfFile(verifyMetricsFile))
	}
	if verbose {
		childArgs = append(childArgs, "--verbose")
	}
	if quiet {
		childArgs = append(childArgs, "--quiet")
	}

	logf("Isolating with %s", iso.Name())

	result, err := iso.Execute(ctx, &isolate.Config{
		Executable: exe,
		Args:       childArgs,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Verbose:    verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to run isolated verification: %w", err)
	}

	logf("Exit code: %d", result.ExitCode)
	if result.ExitCode != 0 {
		os.Exit(result.ExitCode)
	}
	return nil
}

// absIfFile makes relative paths absolute and leaves bare names alone.
func absIfFile(path string) string {
	if filepath.IsAbs(path) || (filepath.Base(path) == path && filepath.Ext(path) == "") {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func writeReport(w io.Writer, r *contract.Report, format string) error {
	if format == "yaml" {
		return r.WriteYAML(w)
	}
	return r.WriteText(w)
}

func saveReport(path string, r *contract.Report, format string) error {
	if err := home.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	if err := writeReport(f, r, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
