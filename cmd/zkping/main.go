package main

import (
	"fmt"
	"os"

	zkcli "github.com/amirimatin/zkping/pkg/cli"
)

func main() {
	err := zkcli.NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "zkping:", err)
	}
	os.Exit(zkcli.ExitCode(err))
}
