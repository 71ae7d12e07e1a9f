package main

import (
	"fmt"

	"github.com/sercanarga/pcienum/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pcienum %s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
