package pci

// CapabilityReader is the minimum read surface a capability-list walk
// needs: one byte for pointer-chasing, one little-endian dword for an
// extended capability header. *ConfigSpace satisfies it directly; a
// live register-access source satisfies it through a small adapter.
type CapabilityReader interface {
	ReadU8(offset int) uint8
	ReadU32(offset int) uint32
}

// WalkCapabilities walks the standard PCI capability linked list starting
// at capPtr, reading through r. limit bounds both how far the list may
// run and how large the terminal capability's data span is taken to be
// (ConfigSpaceLegacySize for a byte-snapshot reader, or the live
// configuration space's own standard-header width).
func WalkCapabilities(r CapabilityReader, capPtr int, limit int) []Capability {
	var caps []Capability
	visited := make(map[int]bool)

	ptr := capPtr & 0xFC // must be DWORD-aligned
	for ptr != 0 && ptr < limit && !visited[ptr] {
		visited[ptr] = true

		capID := r.ReadU8(ptr)
		nextPtr := int(r.ReadU8(ptr+1)) & 0xFC

		// Determine capability size (minimum 2 bytes for id+next)
		capSize := 2
		if nextPtr > ptr {
			capSize = nextPtr - ptr
		} else if nextPtr == 0 {
			// Last capability, extends to end of standard config space or next boundary
			capSize = limit - ptr
		}

		data := make([]byte, capSize)
		for i := range data {
			data[i] = r.ReadU8(ptr + i)
		}

		caps = append(caps, Capability{
			ID:     capID,
			Offset: ptr,
			Data:   data,
		})

		ptr = nextPtr
	}

	return caps
}

// WalkExtCapabilities walks the PCIe extended capability linked list
// starting at offset 0x100, reading through r, bounded by limit.
func WalkExtCapabilities(r CapabilityReader, limit int) []ExtCapability {
	var caps []ExtCapability
	visited := make(map[int]bool)

	offset := 0x100 // Extended capabilities start at offset 0x100
	for offset >= 0x100 && offset < limit && !visited[offset] {
		visited[offset] = true

		header := r.ReadU32(offset)
		if header == 0 || header == 0xFFFFFFFF {
			break
		}

		capID := uint16(header & 0xFFFF)
		version := uint8((header >> 16) & 0xF)
		nextOffset := int((header >> 20) & 0xFFC)

		// Determine capability size
		capSize := 4 // minimum: the header itself
		if nextOffset > offset {
			capSize = nextOffset - offset
		} else if nextOffset == 0 {
			capSize = limit - offset
		}

		data := make([]byte, capSize)
		for i := range data {
			data[i] = r.ReadU8(offset + i)
		}

		caps = append(caps, ExtCapability{
			ID:      capID,
			Version: version,
			Offset:  offset,
			Data:    data,
		})

		if nextOffset == 0 {
			break
		}
		offset = nextOffset
	}

	return caps
}
