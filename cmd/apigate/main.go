package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/harun/apigate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		// the failure envelope is already on stdout
		if !errors.Is(err, cli.ErrToolFailed) {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		}
		os.Exit(1)
	}
}
