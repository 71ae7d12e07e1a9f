package pcie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadCapabilitiesWalksList(t *testing.T) {
	addr := PciAddress{Bus: 0, Device: 0, Function: 0}
	dwords := make([]uint32, 24)
	dwords[13] = 0x40 // capability pointer at offset 0x34

	// Capability at 0x40: ID=0x01 (power mgmt), next=0x50.
	dwords[0x40/4] = 0x00005001
	// Capability at 0x50: ID=0x10 (PCI Express), next=0x00 (terminator).
	dwords[0x50/4] = 0x00000010

	access := NewFixtureAccess(0, map[PciAddress][]uint32{addr: dwords})

	const capabilitiesListBit = 1 << 4
	caps := readCapabilities(access, addr, capabilitiesListBit)

	require.Len(t, caps, 2)
	require.Equal(t, uint8(0x01), caps[0].ID)
	require.Equal(t, uint8(0x10), caps[1].ID)
}

func TestReadCapabilitiesNoListBit(t *testing.T) {
	addr := PciAddress{}
	access := NewFixtureAccess(0, map[PciAddress][]uint32{addr: make([]uint32, 24)})

	caps := readCapabilities(access, addr, 0)
	require.Nil(t, caps)
}

func TestReadCapabilitiesGuardsAgainstCycle(t *testing.T) {
	addr := PciAddress{}
	dwords := make([]uint32, 24)
	dwords[13] = 0x40
	dwords[0x40/4] = 0x00004001 // points back to itself

	access := NewFixtureAccess(0, map[PciAddress][]uint32{addr: dwords})
	const capabilitiesListBit = 1 << 4

	caps := readCapabilities(access, addr, capabilitiesListBit)
	require.Len(t, caps, 1, "a self-referential pointer must not loop forever")
}

func TestReadExtCapabilitiesStopsAtZero(t *testing.T) {
	addr := PciAddress{}
	dwords := make([]uint32, 0x100/4+4)
	access := NewFixtureAccess(0, map[PciAddress][]uint32{addr: dwords})

	caps := readExtCapabilities(access, addr)
	require.Nil(t, caps)
}
