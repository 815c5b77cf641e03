package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	sendRestrictions string
	sendFromIP       string
	sendFromPort     int
)

var sendCmd = &cobra.Command{
	Use:   "send <ip> <port> <message>",
	Short: "Send one datagram through sendmessage",
	Args:  cobra.ExactArgs(3),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendRestrictions, "restrictions", "", "restrictions name or file")
	sendCmd.Flags().StringVar(&sendFromIP, "from-ip", "127.0.0.1", "local IP to send from")
	sendCmd.Flags().IntVar(&sendFromPort, "from-port", 0, "local port to send from")
	_ = sendCmd.MarkFlagRequired("from-port")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	port, err := parsePort(args[1])
	if err != nil {
		return err
	}

	n, err := newNetwork(sendRestrictions)
	if err != nil {
		return err
	}
	defer n.Close()

	sent, err := n.SendMessage(args[0], port, []byte(args[2]), sendFromIP, sendFromPort)
	if err != nil {
		return err
	}

	logf("Sent from %s:%d", sendFromIP, sendFromPort)
	fmt.Fprintf(stdout(), "sent %d bytes to %s:%d\n", sent, args[0], port)
	return nil
}
