//go:build linux

package pcie

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MappedECAMAccess is an ECAMAccess backed by a real mmap of a segment's
// ECAM window, obtained either from /dev/mem (physical address) or from a
// sysfs "resourceN" file for a host bridge window (resourceN is already
// seekable at the offset the kernel uses and is the preferred path under
// an IOMMU-locked-down kernel where /dev/mem is refused).
type MappedECAMAccess struct {
	*ECAMAccess
	file *os.File
	mmap []byte
}

// NewECAMAccessMmap maps size bytes at physAddr from path (typically
// "/dev/mem" or a PCI host bridge's sysfs resource file) and returns a
// ConfigAccess reading and writing that window directly. The caller must
// call Close when done to unmap and release the descriptor.
func NewECAMAccessMmap(path string, physAddr uint64, size int) (*MappedECAMAccess, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &ErrConfigUnavailable{Reason: "open " + path + ": " + err.Error()}
	}

	mmap, err := unix.Mmap(int(f.Fd()), int64(physAddr), size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, &ErrConfigUnavailable{Reason: "mmap " + path + ": " + err.Error()}
	}

	return &MappedECAMAccess{
		ECAMAccess: NewECAMAccess(mmap),
		file:       f,
		mmap:       mmap,
	}, nil
}

// Close unmaps the ECAM window and closes the backing file descriptor.
// Further reads/writes through this MappedECAMAccess are undefined after
// Close returns.
func (m *MappedECAMAccess) Close() error {
	mmapErr := unix.Munmap(m.mmap)
	fileErr := m.file.Close()
	if mmapErr != nil {
		return fmt.Errorf("pcie: munmap: %w", mmapErr)
	}
	if fileErr != nil {
		return fmt.Errorf("pcie: close: %w", fileErr)
	}
	return nil
}
