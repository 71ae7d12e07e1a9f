package pcie

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFixtureParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	content := []byte(`
segment: 0
functions:
  - bus: 0
    device: 0
    function: 0
    dwords: [0x00011AF4, 0, 0, 0]
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	access, err := LoadFixture(path)
	require.NoError(t, err)

	addr := PciAddress{Bus: 0, Device: 0, Function: 0}
	h := readHeaderCommon(access, addr)
	require.True(t, present(h))
	require.Equal(t, uint16(0x1AF4), h.VendorID)
	require.Equal(t, uint16(0x0001), h.DeviceID)
}

func TestFixtureAccessAbsentFunction(t *testing.T) {
	access := NewFixtureAccess(0, nil)
	require.Equal(t, AbsentValue, access.Read(PciAddress{}, 0))
}

func TestFixtureAccessWriteExtendsDwords(t *testing.T) {
	addr := PciAddress{}
	access := NewFixtureAccess(0, map[PciAddress][]uint32{addr: {1}})
	access.Write(addr, 0x10, 0xABCD)
	require.Equal(t, uint32(0xABCD), access.Read(addr, 0x10))
}

func TestMarshalFixtureYAMLRoundTrips(t *testing.T) {
	entries := []FixtureEntry{
		{Bus: 2, Device: 3, Function: 1, Dwords: []uint32{0x00011AF4, 0, 0, 0}},
	}
	doc, err := MarshalFixtureYAML(0, entries)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "roundtrip.yaml")
	require.NoError(t, os.WriteFile(path, doc, 0644))

	access, err := LoadFixture(path)
	require.NoError(t, err)

	addr := PciAddress{Bus: 2, Device: 3, Function: 1}
	h := readHeaderCommon(access, addr)
	require.True(t, present(h))
	require.Equal(t, uint16(0x1AF4), h.VendorID)
	require.Equal(t, uint16(0x0001), h.DeviceID)
}
