// Command lineage renders and inspects numeric audit trails.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/lineage/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
