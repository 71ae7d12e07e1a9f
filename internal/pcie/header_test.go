package pcie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func endpointFunctions(addr PciAddress, vendorID, deviceID uint16) map[PciAddress][]uint32 {
	dwords := make([]uint32, 16)
	dwords[0] = uint32(vendorID) | uint32(deviceID)<<16
	return map[PciAddress][]uint32{addr: dwords}
}

func TestReadHeaderCommonAbsent(t *testing.T) {
	access := NewFixtureAccess(0, nil)
	addr := PciAddress{Bus: 0, Device: 0, Function: 0}
	h := readHeaderCommon(access, addr)
	require.False(t, present(h))
}

func TestReadHeaderCommonEndpoint(t *testing.T) {
	addr := PciAddress{Bus: 0, Device: 0, Function: 0}
	access := NewFixtureAccess(0, endpointFunctions(addr, 0x8086, 0x1234))

	h := readHeaderCommon(access, addr)
	require.True(t, present(h))
	require.Equal(t, uint16(0x8086), h.VendorID)
	require.Equal(t, uint16(0x1234), h.DeviceID)
	require.Equal(t, HeaderKindEndpoint, h.Kind)
	require.False(t, h.HasMultipleFunctions)
}

func TestReadHeaderCommonMultiFunction(t *testing.T) {
	addr := PciAddress{Bus: 0, Device: 0, Function: 0}
	functions := endpointFunctions(addr, 0x10DE, 0x0001)
	functions[addr][3] = 0x00_80_00_00 // header type byte at bits 16-23, bit7 set
	access := NewFixtureAccess(0, functions)

	h := readHeaderCommon(access, addr)
	require.True(t, h.HasMultipleFunctions)
}

func TestReadHeaderCommonBridge(t *testing.T) {
	addr := PciAddress{Bus: 0, Device: 1, Function: 0}
	functions := endpointFunctions(addr, 0x1022, 0x7450)
	functions[addr][3] = 0x00_01_00_00 // header type 0x01 = pci-pci bridge
	access := NewFixtureAccess(0, functions)

	h := readHeaderCommon(access, addr)
	require.Equal(t, HeaderKindPciPciBridge, h.Kind)
}

func TestBridgeBusNumbersRoundTrip(t *testing.T) {
	addr := PciAddress{Bus: 0, Device: 1, Function: 0}
	dwords := make([]uint32, 16)
	access := NewFixtureAccess(0, map[PciAddress][]uint32{addr: dwords})

	writeBridgeBusNumbers(access, addr, 0, 1, 1)
	primary, secondary, subordinate := readBridgeBusNumbers(access, addr)
	require.Equal(t, uint8(0), primary)
	require.Equal(t, uint8(1), secondary)
	require.Equal(t, uint8(1), subordinate)

	writeBridgeBusNumbers(access, addr, 0, 1, 5)
	_, _, subordinate = readBridgeBusNumbers(access, addr)
	require.Equal(t, uint8(5), subordinate)
}
