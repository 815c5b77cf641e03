package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var (
	listenRestrictions string
	listenCount        int
	listenTimeout      int
)

var listenCmd = &cobra.Command{
	Use:   "listen <ip> <port>",
	Short: "Listen for datagrams and print them",
	Long: `Bind a UDP server socket through listenformessage and print each
datagram received, subject to the same checks sandboxed code faces.

Stops after --count datagrams, after --timeout seconds, or on interrupt.`,
	Args: cobra.ExactArgs(2),
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVar(&listenRestrictions, "restrictions", "", "restrictions name or file")
	listenCmd.Flags().IntVarP(&listenCount, "count", "n", 0, "stop after this many datagrams (0 for no limit)")
	listenCmd.Flags().IntVar(&listenTimeout, "timeout", 0, "stop after this many seconds (0 for no limit)")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	port, err := parsePort(args[1])
	if err != nil {
		return err
	}

	n, err := newNetwork(listenRestrictions)
	if err != nil {
		return err
	}
	defer n.Close()

	sock, err := n.ListenForMessage(args[0], port)
	if err != nil {
		return err
	}
	defer sock.Close()

	logf("Listening on %s (handle %s)", sock.LocalAddr(), sock.ID())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if listenTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(listenTimeout)*time.Second)
		defer cancel()
	}

	out := stdout()
	for received := 0; listenCount == 0 || received < listenCount; received++ {
		d, err := sock.WaitMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logf("Stopped after %d datagrams", received)
				return nil
			}
			return err
		}
		fmt.Fprintf(out, "%s %q\n", d.From, d.Data)
	}
	return nil
}
