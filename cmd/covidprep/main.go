package main

import (
	"os"

	"covidprep/internal/cli"
)

func main() {
	os.Exit(int(cli.Run(os.Args[1:], os.Stdout, os.Stderr)))
}
