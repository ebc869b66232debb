package commands

import (
	"context"
	"net"

	"github.com/spf13/cobra"

	"sealink"
)

// listenCmd waits for a single peer to connect, answers its key exchange as
// the responder, and runs the chat loop.
func listenCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Wait for a peer and chat as the responder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listenConfig := new(net.ListenConfig)
			listener, err := listenConfig.Listen(context.Background(), "tcp", addr)
			if err != nil {
				return err
			}
			defer func() {
				_ = listener.Close()
			}()
			log.Info("listening", "addr", listener.Addr())

			conn, err := listener.Accept()
			if err != nil {
				return err
			}
			defer func() {
				_ = conn.Close()
			}()
			log.Info("peer connected", "addr", conn.RemoteAddr())

			ch, err := sealink.Open(conn, sealink.Responder, nil)
			if err != nil {
				return err
			}
			log.Info("channel established", "role", sealink.Responder)

			return chat(cmd, conn, ch)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:4747", "the address to listen on")
	return cmd
}
