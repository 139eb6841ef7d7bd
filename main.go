package main

import (
	"os"

	"github.com/brfoley76/PromptingHumanAgent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
