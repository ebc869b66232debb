package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/spf13/cobra"

	"sealink"
)

// chat pumps lines between the terminal and the channel until either side
// goes away. One goroutine sends, one receives; the channel's send and
// receive halves lock independently.
//
// Shutdown is ordered: close the transport first so a Receive blocked on it
// returns, join the receive goroutine, then close the channel and destroy its
// keys. Any protocol error on receive ends the session with a warning: a
// message that fails authentication is never shown.
func chat(cmd *cobra.Command, conn io.Closer, ch *sealink.Channel) error {
	recvDone := make(chan error, 1)
	go func() {
		for {
			plaintext, err := ch.Receive()
			if err != nil {
				recvDone <- err
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "peer> %s\n", plaintext)
		}
	}()

	sendDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			if err := ch.Send(scanner.Bytes()); err != nil {
				sendDone <- err
				return
			}
		}
		sendDone <- scanner.Err()
	}()

	var recvErr, sendErr error
	sendEnded := false
	select {
	case recvErr = <-recvDone:
		_ = conn.Close()
	case sendErr = <-sendDone:
		sendEnded = true
		_ = conn.Close()
		recvErr = <-recvDone
	}
	sent, received := ch.SendCount(), ch.ReceiveCount()
	ch.Close()

	if sendEnded {
		if sendErr != nil {
			return sendErr
		}
		log.Info("session ended", "sent", sent, "received", received)
		return nil
	}
	switch {
	case errors.Is(recvErr, sealink.ErrProtocol):
		log.Warn("message failed verification; terminating session", "err", recvErr)
		return recvErr
	case errors.Is(recvErr, io.EOF), errors.Is(recvErr, net.ErrClosed):
		log.Info("peer disconnected", "sent", sent, "received", received)
		return nil
	default:
		return recvErr
	}
}
