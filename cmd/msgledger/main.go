// Command msgledger runs the message ledger CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/msgledger/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
