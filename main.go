package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "cropcare",
	Short:        "Plant disease scan service",
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, reapCmd, bucketPublicCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
