package main

import (
	"os"

	"github.com/wecollab/matchmaker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
