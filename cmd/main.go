package main

import (
	"fmt"
	"os"

	"github.com/ostafen/lmtrie/cmd/cmd"
	"github.com/ostafen/lmtrie/internal/env"
)

func main() {
	PrintLogo()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func PrintLogo() {
	fmt.Fprintln(os.Stderr, " _           _        _      ")
	fmt.Fprintln(os.Stderr, "| |_ __ ___ | |_ _ __(_) ___ ")
	fmt.Fprintln(os.Stderr, "| | '_ ` _ \\| __| '__| |/ _ \\")
	fmt.Fprintln(os.Stderr, "| | | | | | | |_| |  | |  __/")
	fmt.Fprintln(os.Stderr, "|_|_| |_| |_|\\__|_|  |_|\\___|")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "N-gram language model store and query tool")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Version:   %s\n", env.Version)
	fmt.Fprintf(os.Stderr, "Commit:    %s\n", env.CommitHash)
	fmt.Fprintf(os.Stderr, "Build Time: %s\n", env.BuildTime)
	fmt.Fprintln(os.Stderr)
}
