// Package commands implements the sealink CLI.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var log = slog.New(slog.NewTextHandler(os.Stderr, nil)) //nolint:gochecknoglobals // CLI-wide logger

func Execute() error {
	root := &cobra.Command{
		Use:           "sealink",
		Short:         "Two-party encrypted chat over an untrusted transport",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(listenCmd(), connectCmd())
	return root.Execute()
}
