package main

import (
	"os"

	"github.com/cydxin/birdchat/cmd/birdchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
