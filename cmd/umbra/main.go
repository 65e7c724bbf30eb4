package main

import (
	"os"

	"umbra/cmd/umbra/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
