// Command sealink is a two-party encrypted chat over TCP: one side listens,
// the other connects, and every line typed on either end is delivered to the
// other over an authenticated channel.
package main

import (
	"os"

	"sealink/cmd/sealink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
