package main

import (
	"os"

	"veil/cmd/veil/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
