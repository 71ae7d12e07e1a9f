package main

import (
	"fmt"

	"github.com/sercanarga/pcienum/internal/color"
	"github.com/sercanarga/pcienum/internal/pcie"
	"github.com/spf13/cobra"
)

var inspectFixture string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Replay a recorded bus topology from a YAML fixture",
	Long: `Loads a YAML fixture describing a set of functions' configuration
space and walks it exactly as enumerate would walk a real bus, with no
hardware access and no root privilege required. Useful for exercising
enumeration scenarios and for regression-testing bus-numbering logic.

Example:
  pcienum inspect --fixture testdata/two-level-bridge.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		access, err := pcie.LoadFixture(inspectFixture)
		if err != nil {
			return fmt.Errorf("%s", color.Failf("cannot load fixture: %v", err))
		}

		rc := pcie.NewRootComplex(access, 0)
		printEnumeration(rc)
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFixture, "fixture", "", "path to a YAML fixture file (required)")
	_ = inspectCmd.MarkFlagRequired("fixture")
	rootCmd.AddCommand(inspectCmd)
}
