package pci

import (
	"encoding/binary"
	"fmt"
)

// PCIe Link Speed constants (PCI Express Capability, Link Capabilities Register).
const (
	LinkSpeedGen1 uint8 = 1 // 2.5 GT/s
	LinkSpeedGen2 uint8 = 2 // 5.0 GT/s
	LinkSpeedGen3 uint8 = 3 // 8.0 GT/s
	LinkSpeedGen4 uint8 = 4 // 16.0 GT/s
	LinkSpeedGen5 uint8 = 5 // 32.0 GT/s
)

// LinkInfo holds the PCIe link and serial-number facts derivable from a
// device's standard and extended capability lists.
type LinkInfo struct {
	HasPCIeCap  bool
	PCIeDevType uint8 // PCIe Device/Port Type (PCIe Capabilities Register bits 7:4)
	LinkSpeed   uint8 // Max Link Speed (Link Capabilities Register bits 3:0)
	LinkWidth   uint8 // Max Link Width (Link Capabilities Register bits 9:4)

	HasDSN bool
	DSN    uint64 // Device Serial Number, from the extended capability
}

// ExtractLinkInfo reads the PCI Express capability (link speed/width) and
// the Device Serial Number extended capability out of an already-parsed
// capability list. It does not re-walk config space.
func ExtractLinkInfo(caps []Capability, extCaps []ExtCapability) LinkInfo {
	var li LinkInfo

	for _, c := range caps {
		if c.ID == CapIDPCIExpress && len(c.Data) >= 16 {
			li.HasPCIeCap = true

			pcieCapReg := binary.LittleEndian.Uint16(c.Data[2:4])
			li.PCIeDevType = uint8((pcieCapReg >> 4) & 0x0F)

			linkCap := binary.LittleEndian.Uint32(c.Data[12:16])
			li.LinkSpeed = uint8(linkCap & 0x0F)
			li.LinkWidth = uint8((linkCap >> 4) & 0x3F)
			break
		}
	}

	for _, c := range extCaps {
		if c.ID == ExtCapIDDeviceSerialNumber && len(c.Data) >= 12 {
			li.DSN = binary.LittleEndian.Uint64(c.Data[4:12])
			li.HasDSN = true
			break
		}
	}

	return li
}

// LinkSpeedName returns a human-readable name for a PCIe link speed.
func LinkSpeedName(speed uint8) string {
	switch speed {
	case LinkSpeedGen1:
		return "Gen1 (2.5 GT/s)"
	case LinkSpeedGen2:
		return "Gen2 (5.0 GT/s)"
	case LinkSpeedGen3:
		return "Gen3 (8.0 GT/s)"
	case LinkSpeedGen4:
		return "Gen4 (16.0 GT/s)"
	case LinkSpeedGen5:
		return "Gen5 (32.0 GT/s)"
	default:
		return fmt.Sprintf("Unknown (%d)", speed)
	}
}

// SerialNumberHex formats a 64-bit device serial number as a fixed-width
// hex string, matching the layout lspci -vvv prints for the DSN capability.
func SerialNumberHex(dsn uint64) string {
	return fmt.Sprintf("%016X", dsn)
}
