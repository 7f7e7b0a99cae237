package main

import (
	"fmt"
	"os"

	"github.com/xpomul/workspacefs/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if !cli.Silent(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.ExitCode(err))
	}
}
