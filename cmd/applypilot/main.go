// Package main provides the entry point for the ApplyPilot sync CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "applypilot",
	Short: "ApplyPilot client sync core",
	Long:  "ApplyPilot keeps a local cache of profiles, resumes, applications and wishlist items in sync with the backend, and runs profile and resume mutations through a validated pipeline.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
