package main

import (
	"fmt"
	"os"

	"github.com/sercanarga/pcienum/internal/color"
	"github.com/sercanarga/pcienum/internal/donor"
	"github.com/sercanarga/pcienum/internal/pci"
	"github.com/spf13/cobra"
)

var (
	captureBDF     string
	captureJSON    string
	captureFixture string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a kernel-bound device's config space as a replayable fixture",
	Long: `Reads a device's config space, BARs, and capabilities through sysfs
-- the only place a device already claimed by a kernel driver can be
inspected without unbinding it -- and writes the result out as either a
JSON device-context snapshot or a YAML fixture "pcienum inspect" can
replay through the same freestanding enumeration path used against real
ECAM hardware.

Example:
  pcienum capture --bdf 0000:03:00.0 --fixture donor.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bdf, err := pci.ParseBDF(captureBDF)
		if err != nil {
			return fmt.Errorf("invalid BDF: %w", err)
		}
		if captureJSON == "" && captureFixture == "" {
			return fmt.Errorf("specify at least one of --json or --fixture")
		}

		ctx, err := donor.NewCollector().Collect(bdf)
		if err != nil {
			return fmt.Errorf("%s", color.Failf("cannot collect %s: %v", bdf, err))
		}

		fmt.Println(color.Okf("captured %04x:%04x %s", ctx.Device.VendorID, ctx.Device.DeviceID, ctx.Device.ClassDescription()))
		fmt.Printf("  %d capabilities, %d extended capabilities, %d BARs\n",
			len(ctx.Capabilities), len(ctx.ExtCapabilities), len(ctx.BARs))

		if captureJSON != "" {
			if err := donor.SaveContext(ctx, captureJSON); err != nil {
				return fmt.Errorf("%s", color.Failf("cannot write %s: %v", captureJSON, err))
			}
			fmt.Println(color.Okf("wrote device context to %s", captureJSON))
		}

		if captureFixture != "" {
			yamlDoc, err := ctx.FixtureYAML()
			if err != nil {
				return fmt.Errorf("%s", color.Failf("cannot build fixture: %v", err))
			}
			if err := os.WriteFile(captureFixture, yamlDoc, 0644); err != nil {
				return fmt.Errorf("%s", color.Failf("cannot write %s: %v", captureFixture, err))
			}
			fmt.Println(color.Okf("wrote fixture to %s", captureFixture))
		}

		return nil
	},
}

func init() {
	captureCmd.Flags().StringVar(&captureBDF, "bdf", "", "device BDF address to capture (required)")
	captureCmd.Flags().StringVar(&captureJSON, "json", "", "write a JSON device-context snapshot to this path")
	captureCmd.Flags().StringVar(&captureFixture, "fixture", "", "write a pcienum-inspect-compatible YAML fixture to this path")
	_ = captureCmd.MarkFlagRequired("bdf")
	rootCmd.AddCommand(captureCmd)
}
