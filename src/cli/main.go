package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	clihandler "github.com/apex/log/handlers/cli"
)

func main() {
	log.SetHandler(clihandler.Default)

	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
