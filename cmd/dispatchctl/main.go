package main

import (
	"os"

	"courier-dispatch-service/cmd/dispatchctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
