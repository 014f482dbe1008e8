package main

import (
	"fmt"
	"os"

	"github.com/nhle/leadboard/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "leadboard: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
