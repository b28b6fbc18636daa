package main

import (
	"os"

	"stewardship/cmd/stewardctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
