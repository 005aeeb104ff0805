package main

import (
	"fmt"
	"os"

	"hostel/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
