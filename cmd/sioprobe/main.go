package main

import (
	"os"

	"github.com/apigear-io/sioprobe/pkg/cmd"
	"github.com/fatih/color"
)

func main() {
	if err := cmd.Execute(); err != nil {
		_, _ = color.New(color.FgRed).Fprintf(color.Error, "Error: %v\n", err)
		os.Exit(1)
	}
}
