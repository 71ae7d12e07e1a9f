package pcie

import "github.com/sercanarga/pcienum/internal/pci"

// Descriptor is the value EnumerationEngine.Next yields for one function
// discovered on the bus. Every present function, endpoint or bridge,
// produces exactly one Descriptor.
type Descriptor struct {
	Address PciAddress
	Header  HeaderCommon
	Bars    BarVec

	// Bridge fields, valid only when Header.Kind == HeaderKindPciPciBridge.
	PrimaryBus     uint8
	SecondaryBus   uint8
	SubordinateBus uint8

	InterruptLine uint8
	InterruptPin  uint8

	// Subsystem fields, valid only for an endpoint header.
	SubsystemVendorID uint16
	SubsystemID       uint16

	Capabilities    []pci.Capability
	ExtCapabilities []pci.ExtCapability
	Link            pci.LinkInfo

	// AllocErr records an allocation failure for one or more of this
	// function's BARs without halting enumeration of the rest of the bus.
	AllocErr error
}

// IsBridge reports whether this descriptor names a PCI-PCI bridge.
func (d Descriptor) IsBridge() bool {
	return d.Header.Kind == HeaderKindPciPciBridge
}

// BridgeBusNumbers returns the primary/secondary/subordinate triple for a
// bridge descriptor. It returns a *HeaderKindError for any descriptor that
// is not a bridge, since PrimaryBus/SecondaryBus/SubordinateBus are left at
// their zero value on every other header kind.
func (d Descriptor) BridgeBusNumbers() (primary, secondary, subordinate uint8, err error) {
	if !d.IsBridge() {
		return 0, 0, 0, &HeaderKindError{Kind: d.Header.Kind, Want: "pci-pci bridge"}
	}
	return d.PrimaryBus, d.SecondaryBus, d.SubordinateBus, nil
}
