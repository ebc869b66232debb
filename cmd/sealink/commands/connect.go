package commands

import (
	"context"
	"net"

	"github.com/spf13/cobra"

	"sealink"
)

// connectCmd dials a listening peer, initiates the key exchange, and runs
// the chat loop.
func connectCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Dial a waiting peer and chat as the initiator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dialer := new(net.Dialer)
			conn, err := dialer.DialContext(context.Background(), "tcp", addr)
			if err != nil {
				return err
			}
			defer func() {
				_ = conn.Close()
			}()
			log.Info("connected", "addr", conn.RemoteAddr())

			ch, err := sealink.Open(conn, sealink.Initiator, nil)
			if err != nil {
				return err
			}
			log.Info("channel established", "role", sealink.Initiator)

			return chat(cmd, conn, ch)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:4747", "the address to connect to")
	return cmd
}
