package pcie

import "github.com/sercanarga/pcienum/internal/pci"

const capabilitiesListBit = 1 << 4

// configAccessReader adapts a live ConfigAccess/PciAddress pair to
// pci.CapabilityReader, so the capability-list walk only needs to exist
// once: pci.WalkCapabilities/WalkExtCapabilities don't care whether the
// bytes behind them come from a 4KB snapshot or a register read issued
// one dword at a time. ReadU8 reads the containing aligned dword and
// shifts out the requested byte, since ConfigAccess only ever transfers
// whole dwords.
type configAccessReader struct {
	access ConfigAccess
	addr   PciAddress
}

func (r configAccessReader) ReadU8(offset int) uint8 {
	base := uint16(offset) &^ 0x3
	w := r.access.Read(r.addr, base)
	shift := uint(offset&0x3) * 8
	return uint8(w >> shift)
}

func (r configAccessReader) ReadU32(offset int) uint32 {
	return r.access.Read(r.addr, uint16(offset)&^0x3)
}

// readCapabilities walks the standard capability list starting at the
// function's capability pointer, reading directly through access rather
// than from a pre-captured ConfigSpace snapshot. Status bit 4 gates
// whether the pointer is even meaningful.
func readCapabilities(access ConfigAccess, addr PciAddress, status uint16) []pci.Capability {
	if status&capabilitiesListBit == 0 {
		return nil
	}
	ptr := capabilityPointer(access, addr)
	return pci.WalkCapabilities(configAccessReader{access, addr}, int(ptr), pci.ConfigSpaceLegacySize)
}

// readExtCapabilities walks the PCIe extended capability list starting at
// offset 0x100. Unlike the standard list, there is no list bit gating this
// walk: an absent extended capability region simply reads back as zero (or
// all-ones, past the end of a fixture's declared dwords), which
// pci.WalkExtCapabilities treats as the terminator.
func readExtCapabilities(access ConfigAccess, addr PciAddress) []pci.ExtCapability {
	return pci.WalkExtCapabilities(configAccessReader{access, addr}, pci.ConfigSpaceSize)
}
