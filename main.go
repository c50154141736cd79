package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ax5-sect",
	Short: "AX5-SECT orchestrates specialist agents for IMDS and PCF questions",
	Long: `AX5-SECT routes each user message through a coordinator, a queue of specialist
agents (knowledge, data modeling, campaigns, content) and a synthesizer.
Configuration is read from the environment, optionally loaded from a .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a .env file to load before reading the environment")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
