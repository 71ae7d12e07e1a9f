// Package addralloc implements a first-fit address-range allocator over a
// single contiguous window, used to hand out BAR addresses during PCIe
// enumeration.
package addralloc

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOutOfSpace is returned when no free interval is large enough to
// satisfy a request, including a request larger than the whole window.
var ErrOutOfSpace = errors.New("addralloc: out of space")

// ErrOverflow is returned by New when base+size for the requested window
// would wrap the address space. Allocate does not return it: a candidate
// whose alignment would wrap is treated as not fitting.
var ErrOverflow = errors.New("addralloc: address overflow")

// ErrBadAlignment is returned when the requested alignment is not a power
// of two.
var ErrBadAlignment = errors.New("addralloc: alignment is not a power of two")

// Policy selects where within the set of fitting free intervals a new
// allocation is placed.
type Policy int

const (
	// FirstMatch returns the lowest-addressed interval that fits.
	FirstMatch Policy = iota
	// LastMatch returns the highest aligned address in the
	// highest-addressed interval that fits.
	LastMatch
	// ExactMatch only allocates from an interval whose size exactly equals
	// the request, after alignment.
	ExactMatch
)

type interval struct {
	base, size uint64
}

func (iv interval) end() uint64 { return iv.base + iv.size }

// AddressAllocator hands out non-overlapping sub-ranges of a single
// contiguous [base, base+size) window. It is not safe for concurrent use;
// callers needing concurrent allocation must add their own locking.
type AddressAllocator struct {
	windowBase uint64
	windowEnd  uint64
	free       []interval // sorted by base, non-overlapping, non-adjacent is allowed
}

// New creates an allocator over [base, base+size). It returns ErrOverflow
// if base+size wraps.
func New(base, size uint64) (*AddressAllocator, error) {
	end := base + size
	if size != 0 && end < base {
		return nil, ErrOverflow
	}
	return &AddressAllocator{
		windowBase: base,
		windowEnd:  end,
		free:       []interval{{base: base, size: size}},
	}, nil
}

func isPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

func alignUp(addr, alignment uint64) (uint64, error) {
	mask := alignment - 1
	aligned := (addr + mask) &^ mask
	if aligned < addr {
		return 0, ErrOverflow
	}
	return aligned, nil
}

// Allocate finds size bytes aligned to alignment within the allocator's
// free space, per policy, removes that range from the free set, and
// returns its base address. alignment must be a power of two; size of
// zero is rejected by the caller's convention (the allocator itself
// accepts it as a zero-width carve, since BarAllocator never issues one).
func (a *AddressAllocator) Allocate(size, alignment uint64, policy Policy) (uint64, error) {
	if !isPowerOfTwo(alignment) {
		return 0, ErrBadAlignment
	}

	switch policy {
	case LastMatch:
		for i := len(a.free) - 1; i >= 0; i-- {
			iv := a.free[i]
			if iv.size < size {
				continue
			}
			if addr := (iv.end() - size) &^ (alignment - 1); addr >= iv.base {
				return a.commit(i, addr, size)
			}
		}
	case ExactMatch:
		for i, iv := range a.free {
			if addr, ok := a.tryFit(iv, size, alignment, true); ok {
				return a.commit(i, addr, size)
			}
		}
	default: // FirstMatch
		for i, iv := range a.free {
			if addr, ok := a.tryFit(iv, size, alignment, false); ok {
				return a.commit(i, addr, size)
			}
		}
	}

	return 0, ErrOutOfSpace
}

// tryFit reports whether size aligned bytes fit within iv, and if so at
// what address. When exact is true, the aligned candidate must consume iv
// exactly (no leftover on either side).
func (a *AddressAllocator) tryFit(iv interval, size, alignment uint64, exact bool) (uint64, bool) {
	addr, err := alignUp(iv.base, alignment)
	if err != nil || addr >= iv.end() {
		return 0, false
	}
	avail := iv.end() - addr
	if avail < size {
		return 0, false
	}
	if exact && (addr != iv.base || avail != size) {
		return 0, false
	}
	return addr, true
}

// commit removes [addr, addr+size) from free interval i, splitting it into
// up to two remaining intervals as needed.
func (a *AddressAllocator) commit(i int, addr, size uint64) (uint64, error) {
	iv := a.free[i]
	var remaining []interval
	if addr > iv.base {
		remaining = append(remaining, interval{base: iv.base, size: addr - iv.base})
	}
	if tailBase := addr + size; tailBase < iv.end() {
		remaining = append(remaining, interval{base: tailBase, size: iv.end() - tailBase})
	}

	a.free = append(a.free[:i], append(remaining, a.free[i+1:]...)...)
	return addr, nil
}

// Release returns [addr, addr+size) to the free set, merging with
// neighbouring free intervals where they abut. Releasing a range that was
// never allocated, or that partially overlaps live allocations, is a
// caller error this package does not detect -- enumeration never calls
// Release, but the interface is symmetric for allocators used outside it.
func (a *AddressAllocator) Release(addr, size uint64) error {
	if size == 0 {
		return nil
	}
	end := addr + size
	if end < addr || addr < a.windowBase || end > a.windowEnd {
		return fmt.Errorf("addralloc: release range [%#x,%#x) outside window", addr, end)
	}

	all := make([]interval, 0, len(a.free)+1)
	all = append(all, a.free...)
	all = append(all, interval{base: addr, size: size})
	sortIntervals(all)

	merged := make([]interval, 0, len(all))
	for _, iv := range all {
		if n := len(merged); n > 0 && merged[n-1].end() >= iv.base {
			if iv.end() > merged[n-1].end() {
				merged[n-1].size = iv.end() - merged[n-1].base
			}
			continue
		}
		merged = append(merged, iv)
	}
	a.free = merged
	return nil
}

func sortIntervals(ivs []interval) {
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].base < ivs[j].base })
}

// FreeBytes returns the total free space remaining in the window.
func (a *AddressAllocator) FreeBytes() uint64 {
	var total uint64
	for _, iv := range a.free {
		total += iv.size
	}
	return total
}
