package main

import (
	"github.com/spf13/cobra"

	"github.com/metalagman/normareg/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "normareg",
	Short: "normareg analyzes regulatory text against a source-code repository",
}

// Execute runs the root command.
func Execute() error {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		logging.Init(debug)
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd.Execute()
}
