package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pcienum",
	Short: "PCIe bus enumerator and BAR allocator",
	Long: `pcienum walks the PCI/PCIe configuration space below a root complex and
reports what it finds: bus topology, capabilities, and BAR layout.

It reads a live bus through a real ECAM mapping ("enumerate"), or replays
a recorded YAML fixture with no hardware at all ("inspect"). "scan" and "capture" reach a kernel-bound device
through sysfs instead, for the case no freestanding access path can
reach: a device already claimed by a driver. "capture" can export what
it reads as a fixture, so a real device's config space can be replayed
through the same enumeration path as a real ECAM window.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
