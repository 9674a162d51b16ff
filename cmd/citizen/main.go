// Package main provides the citizen CLI, a terminal client for the citizen
// services backend.
package main

import (
	"os"

	"github.com/sirosfoundation/go-citizen-client/cmd/citizen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
