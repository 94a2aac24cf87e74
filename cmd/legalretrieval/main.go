// Package main provides the entry point for the legal-retrieval CLI.
package main

import (
	"os"

	"github.com/refrain2333/legal-retrieval/cmd/legalretrieval/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
