package pcie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeIOPort struct {
	addressWritten uint32
	data           map[uint32]uint32
}

func newFakeIOPort() *fakeIOPort {
	return &fakeIOPort{data: make(map[uint32]uint32)}
}

func (p *fakeIOPort) Out32(port uint16, value uint32) {
	switch port {
	case camConfigAddress:
		p.addressWritten = value
	case camConfigData:
		p.data[p.addressWritten] = value
	}
}

func (p *fakeIOPort) In32(port uint16) uint32 {
	if port != camConfigData {
		return 0
	}
	return p.data[p.addressWritten]
}

func TestCAMPortAccessWriteThenRead(t *testing.T) {
	io := newFakeIOPort()
	access := NewCAMPortAccess(io)
	addr := PciAddress{Bus: 2, Device: 3, Function: 1}

	access.Write(addr, 0x10, 0xDEADBEEF)
	require.Equal(t, uint32(0xDEADBEEF), access.Read(addr, 0x10))
}

func TestCAMAddressEncoding(t *testing.T) {
	addr := PciAddress{Bus: 1, Device: 2, Function: 3}
	got := camAddress(addr, 0x20)

	require.Equal(t, camEnableBit, got&camEnableBit)
	require.Equal(t, uint32(1), (got>>16)&0xFF)
	require.Equal(t, uint32(2), (got>>11)&0x1F)
	require.Equal(t, uint32(3), (got>>8)&0x7)
	require.Equal(t, uint32(0x20), got&0xFC)
}

func TestCAMPortAccessDistinguishesAddresses(t *testing.T) {
	io := newFakeIOPort()
	access := NewCAMPortAccess(io)

	access.Write(PciAddress{Bus: 0, Device: 0, Function: 0}, 0x00, 1)
	access.Write(PciAddress{Bus: 0, Device: 1, Function: 0}, 0x00, 2)

	require.Equal(t, uint32(1), access.Read(PciAddress{Bus: 0, Device: 0, Function: 0}, 0x00))
	require.Equal(t, uint32(2), access.Read(PciAddress{Bus: 0, Device: 1, Function: 0}, 0x00))
}
