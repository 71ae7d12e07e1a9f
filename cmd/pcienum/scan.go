package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/sercanarga/pcienum/internal/donor"
	"github.com/sercanarga/pcienum/internal/pci"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List PCI devices visible to the running kernel",
	Long: `Scans /sys/bus/pci/devices and lists the PCI devices the kernel
already knows about, with their driver and IOMMU group. This is the
sysfs-mediated view of the bus, for finding a BDF to hand to
"pcienum capture" -- it does not touch the device itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sr := donor.NewSysfsReader()
		devices, err := sr.ScanDevices()
		if err != nil {
			return fmt.Errorf("failed to scan devices: %w", err)
		}

		if len(devices) == 0 {
			fmt.Println("No PCI devices found.")
			return nil
		}

		db := pci.LoadPCIDB()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BDF\tCLASS\tVENDOR:DEVICE\tDRIVER\tIOMMU GROUP")

		for _, dev := range devices {
			driver := dev.Driver
			if driver == "" {
				driver = "-"
			}

			iommuStr := "-"
			if link, err := os.Readlink(filepath.Join("/sys/bus/pci/devices", dev.BDF.String(), "iommu_group")); err == nil {
				iommuStr = filepath.Base(link)
			}

			description := dev.ClassDescription()
			vendorName := db.VendorName(dev.VendorID)
			devName := db.DeviceName(dev.VendorID, dev.DeviceID)
			ids := fmt.Sprintf("%04x:%04x", dev.VendorID, dev.DeviceID)
			if vendorName != "" && devName != "" {
				ids = fmt.Sprintf("%s (%s %s)", ids, vendorName, devName)
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				dev.BDF.String(), description, ids, driver, iommuStr)
		}
		w.Flush()

		fmt.Printf("\nTotal: %d devices\n", len(devices))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
