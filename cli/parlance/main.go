package main

import (
	"os"

	parlancecmder "github.com/parlancehq/parlance/cmd/parlance"
)

func main() {
	cmd := parlancecmder.NewParlanceCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
