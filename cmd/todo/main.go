package main

import (
	"os"

	"tasklist/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
