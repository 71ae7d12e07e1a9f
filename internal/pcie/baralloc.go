package pcie

import "github.com/sercanarga/pcienum/internal/pcie/addralloc"

// BarAllocator composes up to four independent address windows -- 32-bit
// and 64-bit, each split into prefetchable and non-prefetchable -- and
// hands out addresses for BARs discovered during enumeration. A window
// that was never set (SetWindow32/SetWindow64 not called) is simply
// unavailable to Alloc32/Alloc64, which then fall back per the policy
// below rather than failing outright.
type BarAllocator struct {
	mem32     *addralloc.AddressAllocator
	mem32Pref *addralloc.AddressAllocator
	mem64     *addralloc.AddressAllocator
	mem64Pref *addralloc.AddressAllocator
}

// NewBarAllocator returns a BarAllocator with no windows configured; every
// allocation will fail with AllocError until at least one matching window
// is set.
func NewBarAllocator() *BarAllocator {
	return &BarAllocator{}
}

// SetWindow32 configures the prefetchable or the non-prefetchable 32-bit
// memory window, as selected by prefetchable, replacing any window of
// that kind set before.
func (b *BarAllocator) SetWindow32(base, size uint64, prefetchable bool) error {
	a, err := addralloc.New(base, size)
	if err != nil {
		return err
	}
	if prefetchable {
		b.mem32Pref = a
	} else {
		b.mem32 = a
	}
	return nil
}

// SetWindow64 configures the non-prefetchable and prefetchable 64-bit
// memory windows.
func (b *BarAllocator) SetWindow64(base, size uint64, prefetchable bool) error {
	a, err := addralloc.New(base, size)
	if err != nil {
		return err
	}
	if prefetchable {
		b.mem64Pref = a
	} else {
		b.mem64 = a
	}
	return nil
}

// Alloc32 allocates size bytes aligned to size (BARs are always naturally
// aligned to their own size) from the 32-bit window matching prefetchable,
// falling back to the non-prefetchable 32-bit window if no prefetchable
// window was configured or it cannot satisfy the request.
func (b *BarAllocator) Alloc32(size uint64, prefetchable bool) (uint64, error) {
	if prefetchable {
		if b.mem32Pref != nil {
			if addr, err := b.mem32Pref.Allocate(size, size, addralloc.FirstMatch); err == nil {
				return addr, nil
			}
		}
	}
	if b.mem32 != nil {
		if addr, err := b.mem32.Allocate(size, size, addralloc.FirstMatch); err == nil {
			return addr, nil
		}
	}
	return 0, &AllocError{Width: 32, Prefetchable: prefetchable, Requested: size}
}

// Alloc64 allocates size bytes for a 64-bit BAR. Preference order is: the
// prefetchable 64-bit window (prefetchable requests only), then the
// non-prefetchable 64-bit window, then -- since a 64-bit BAR may still
// validly decode an address below 4 GiB -- Alloc32 with the same
// prefetchability as a zero-extend fallback when the size actually fits
// in 32-bit space. A non-prefetchable request never uses a prefetchable
// window.
func (b *BarAllocator) Alloc64(size uint64, prefetchable bool) (uint64, error) {
	if prefetchable && b.mem64Pref != nil {
		if addr, err := b.mem64Pref.Allocate(size, size, addralloc.FirstMatch); err == nil {
			return addr, nil
		}
	}
	if b.mem64 != nil {
		if addr, err := b.mem64.Allocate(size, size, addralloc.FirstMatch); err == nil {
			return addr, nil
		}
	}
	if size <= 0xFFFFFFFF {
		if addr, err := b.Alloc32(size, prefetchable); err == nil {
			return addr, nil
		}
	}
	return 0, &AllocError{Width: 64, Prefetchable: prefetchable, Requested: size}
}
