package main

import (
	"github.com/spf13/cobra"
)

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "foliorank",
	Short: "Match portfolio projects against job descriptions",
	Long: `foliorank ranks your portfolio projects by relevance to a job
description, combining semantic similarity, technology overlap, recency,
and project quality.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the foliorank version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("foliorank %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
