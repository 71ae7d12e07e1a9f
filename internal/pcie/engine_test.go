package pcie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newFunction builds the first 16 config-space dwords (offsets 0x00-0x3C)
// for one function: enough for every header field the engine inspects,
// plus whatever BAR dwords the scenario supplies starting at offset 0x10.
func newFunction(vendorID, deviceID uint16, headerType uint8, multiFn bool, bars ...uint32) []uint32 {
	dwords := make([]uint32, 16)
	dwords[0] = uint32(vendorID) | uint32(deviceID)<<16
	htByte := uint32(headerType)
	if multiFn {
		htByte |= 0x80
	}
	dwords[3] = htByte << 16
	for i, b := range bars {
		dwords[4+i] = b
	}
	return dwords
}

func TestEnumerateEmptyBus(t *testing.T) {
	access := NewFixtureAccess(0, nil)
	rc := NewRootComplex(access, 0)
	eng := rc.Enumerate()

	_, ok := eng.Next()
	require.False(t, ok)
}

func TestEnumerateSingleEndpointWithBar(t *testing.T) {
	addr := PciAddress{Bus: 0, Device: 0, Function: 0}
	functions := map[PciAddress][]uint32{
		addr: newFunction(0x8086, 0x10D3, 0x00, false, 0xFFFFF000),
	}
	// 0xFFFFF000 is itself the all-ones sizing read-back mask for a 0x1000
	// window, so the fake only needs to echo it back on the sizing write;
	// a plain FixtureAccess would instead store the 0xFFFFFFFF probe value
	// verbatim and report a bogus 0x10-byte BAR.
	access := newSizingFakeFromFixture(functions, addr, 0xFFFFF000, 0xFFFFFFFF)
	rc := NewRootComplex(access, 0)
	eng := rc.Enumerate()

	desc, ok := eng.Next()
	require.True(t, ok)
	require.Equal(t, addr, desc.Address)
	require.Equal(t, HeaderKindEndpoint, desc.Header.Kind)
	bar0 := desc.Bars.Get(0)
	require.NotNil(t, bar0)
	require.Equal(t, uint64(0x1000), bar0.Size)

	_, ok = eng.Next()
	require.False(t, ok, "a single present function must end the walk")
}

func TestEnumerateSingleBridgeWithChildEndpoint(t *testing.T) {
	bridgeAddr := PciAddress{Bus: 0, Device: 0, Function: 0}
	childAddr := PciAddress{Bus: 1, Device: 0, Function: 0}
	functions := map[PciAddress][]uint32{
		bridgeAddr: newFunction(0x8086, 0x2448, 0x01, false),
		childAddr:  newFunction(0x1AF4, 0x1000, 0x00, false),
	}
	access := NewFixtureAccess(0, functions)
	rc := NewRootComplex(access, 0)
	eng := rc.Enumerate()

	first, ok := eng.Next()
	require.True(t, ok)
	require.True(t, first.IsBridge())
	require.Equal(t, uint8(0), first.PrimaryBus)
	require.Equal(t, uint8(1), first.SecondaryBus)

	second, ok := eng.Next()
	require.True(t, ok)
	require.Equal(t, childAddr, second.Address)
	require.False(t, second.IsBridge())

	_, ok = eng.Next()
	require.False(t, ok)

	// The bridge's subordinate must be fixed up to the highest bus number
	// reached beneath it once its subtree is fully walked.
	_, _, subordinate := readBridgeBusNumbers(access, bridgeAddr)
	require.Equal(t, uint8(1), subordinate)
}

func TestEnumerateTwoLevelBridgeTree(t *testing.T) {
	rootBridge := PciAddress{Bus: 0, Device: 0, Function: 0}
	midBridge := PciAddress{Bus: 1, Device: 0, Function: 0}
	leaf := PciAddress{Bus: 2, Device: 0, Function: 0}

	functions := map[PciAddress][]uint32{
		rootBridge: newFunction(0x8086, 0x2448, 0x01, false),
		midBridge:  newFunction(0x8086, 0x2449, 0x01, false),
		leaf:       newFunction(0x1AF4, 0x1001, 0x00, false),
	}
	access := NewFixtureAccess(0, functions)
	rc := NewRootComplex(access, 0)
	eng := rc.Enumerate()

	var descs []Descriptor
	for {
		d, ok := eng.Next()
		if !ok {
			break
		}
		descs = append(descs, d)
	}
	require.Len(t, descs, 3)
	require.Equal(t, uint8(1), descs[0].SecondaryBus)
	require.Equal(t, uint8(2), descs[1].SecondaryBus)

	_, _, rootSub := readBridgeBusNumbers(access, rootBridge)
	_, _, midSub := readBridgeBusNumbers(access, midBridge)
	require.Equal(t, uint8(2), rootSub, "ancestor subordinate must propagate to the deepest descendant bus")
	require.Equal(t, uint8(2), midSub)
}

func TestEnumerateMultiFunctionEndpointWithGap(t *testing.T) {
	fn0 := PciAddress{Bus: 0, Device: 5, Function: 0}
	fn2 := PciAddress{Bus: 0, Device: 5, Function: 2}
	functions := map[PciAddress][]uint32{
		fn0: newFunction(0x8086, 0x1533, 0x00, true),
		fn2: newFunction(0x8086, 0x1534, 0x00, false),
	}
	access := NewFixtureAccess(0, functions)
	rc := NewRootComplex(access, 0)
	eng := rc.Enumerate()

	var seen []PciAddress
	for {
		d, ok := eng.Next()
		if !ok {
			break
		}
		seen = append(seen, d.Address)
	}
	require.Equal(t, []PciAddress{fn0, fn2}, seen, "function 1 is absent but function 2 must still be probed")
}

func TestEnumerateSkipsRemainingFunctionsWhenNotMultiFunction(t *testing.T) {
	fn0 := PciAddress{Bus: 0, Device: 6, Function: 0}
	fn1 := PciAddress{Bus: 0, Device: 6, Function: 1}
	functions := map[PciAddress][]uint32{
		fn0: newFunction(0x8086, 0x1, 0x00, false), // has_multiple_functions = false
		fn1: newFunction(0x8086, 0x2, 0x00, false), // present anyway, but must not be probed
	}
	access := NewFixtureAccess(0, functions)
	rc := NewRootComplex(access, 0)
	eng := rc.Enumerate()

	desc, ok := eng.Next()
	require.True(t, ok)
	require.Equal(t, fn0, desc.Address)

	_, ok = eng.Next()
	require.False(t, ok, "function 1 must not be probed when function 0 did not set has_multiple_functions")
}

func Test64BitPrefetchableBarFallsBackTo32BitWindow(t *testing.T) {
	addr := PciAddress{Bus: 0, Device: 0, Function: 0}
	// 64-bit, prefetchable, sized to 0x10000 (fits easily under 4 GiB).
	low := uint32(0) | barMemType64 | barPrefetchableBit
	functions := map[PciAddress][]uint32{
		addr: newFunction(0x10DE, 0x2204, 0x00, false, low, 0),
	}
	access := newSizingFakeFromFixture(functions, addr, 0xFFFF0000|barMemType64|barPrefetchableBit, 0xFFFFFFFF)

	barAlloc := NewBarAllocator()
	require.NoError(t, barAlloc.SetWindow32(0x1000_0000, 0x100000, false))
	// No 64-bit window configured at all: Alloc64 must fall back to the
	// 32-bit window since the size fits comfortably below 4 GiB.

	rc := NewRootComplex(access, 0).WithBarAllocator(barAlloc)
	eng := rc.Enumerate()

	desc, ok := eng.Next()
	require.True(t, ok)
	bar0 := desc.Bars.Get(0)
	require.NotNil(t, bar0)
	require.Equal(t, BarKindMemory64, bar0.Kind)
	require.NoError(t, desc.AllocErr)
	require.GreaterOrEqual(t, bar0.Address, uint64(0x1000_0000))
	require.Less(t, bar0.Address, uint64(0x1000_0000+0x100000))
}

// newSizingFakeFromFixture glues together a FixtureAccess-style layout with
// sizingFake's write-all-ones-returns-mask semantics for exactly one BAR
// dword pair, so a scenario can exercise real BAR sizing end to end through
// the engine rather than only through bar_test.go's narrower probes.
func newSizingFakeFromFixture(functions map[PciAddress][]uint32, barAddr PciAddress, lowMask, highMask uint32) ConfigAccess {
	fixture := NewFixtureAccess(0, functions)
	return &fixtureWithBarMask{FixtureAccess: fixture, addr: barAddr, lowMask: lowMask, highMask: highMask}
}

type fixtureWithBarMask struct {
	*FixtureAccess
	addr              PciAddress
	lowMask, highMask uint32
}

func (f *fixtureWithBarMask) Write(addr PciAddress, offset uint16, value uint32) {
	if addr == f.addr && value == 0xFFFFFFFF {
		switch offset {
		case offBarStart:
			f.FixtureAccess.Write(addr, offset, f.lowMask)
			return
		case offBarStart + 4:
			f.FixtureAccess.Write(addr, offset, f.highMask)
			return
		}
	}
	f.FixtureAccess.Write(addr, offset, value)
}
