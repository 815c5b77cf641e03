package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/eddmann/repyx/internal/netapi"
	"github.com/eddmann/repyx/internal/restrictions"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "repyx",
	Short: "Exercise and verify a sandboxed datagram API",
	Long: `repyx implements the repy datagram API (listenformessage, sendmessage)
under a restrictions policy and verifies that each call raises the
documented error kind.

Examples:
  repyx verify                          Run the builtin listenformessage contract
  repyx verify contracts/udp.toml       Run a contract file
  repyx listen 127.0.0.1 12345          Print datagrams received on a port
  repyx send 127.0.0.1 12345 hello --from-port 12346
  repyx restrictions show twoports      Describe a restrictions policy`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show detailed output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress repyx output")
}

func Execute() error {
	return rootCmd.Execute()
}

func logf(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[repyx] "+format+"\n", args...)
	}
}

// stdout is where command results go; quiet discards them.
func stdout() io.Writer {
	if quiet {
		return io.Discard
	}
	return os.Stdout
}

// newNetwork loads the restrictions named by ref and opens a network
// enforcing them.
func newNetwork(ref string) (*netapi.Network, error) {
	policy, err := restrictions.Load(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load restrictions: %w", err)
	}
	logf("Restrictions: %s", policy.Name)
	return netapi.New(policy, netapi.WithLogger(os.Stderr, verbose)), nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return port, nil
}
