package pcie

// RootComplex is the entry point for enumerating one PCIe segment. It owns
// the ConfigAccess used to reach every function's configuration space and,
// optionally, a BarAllocator used to assign addresses to every function's
// memory BARs.
type RootComplex struct {
	access   ConfigAccess
	barAlloc *BarAllocator
	segment  uint16
	rootBus  uint8
}

// NewRootComplex builds a RootComplex over access. access must not be nil;
// construction never touches it, so an access whose underlying mapping
// failed should be reported by the caller as ErrConfigUnavailable before
// reaching this constructor.
func NewRootComplex(access ConfigAccess, segment uint16) *RootComplex {
	return &RootComplex{access: access, segment: segment}
}

// WithRootBus sets the starting bus number Enumerate walks from. Segments
// whose root complex sits above bus 0 (rare, but legal) use this instead
// of the zero-value default.
func (r *RootComplex) WithRootBus(bus uint8) *RootComplex {
	r.rootBus = bus
	return r
}

// WithBarAllocator attaches a BarAllocator that Enumerate will use to
// assign a fresh address to every non-empty memory BAR, including one
// firmware already placed; I/O BARs are left as found. Without one,
// enumeration only reports what is already programmed.
func (r *RootComplex) WithBarAllocator(alloc *BarAllocator) *RootComplex {
	r.barAlloc = alloc
	return r
}

// Enumerate returns a fresh EnumerationEngine positioned at the start of
// bus 0 (or whichever root bus was configured). Each call returns an
// independent walk; an engine is single-use and stateful, so callers that
// need to re-scan call Enumerate again rather than reusing one.
func (r *RootComplex) Enumerate() *EnumerationEngine {
	return newEnumerationEngine(r.access, r.barAlloc, r.segment, r.rootBus)
}

// Access returns the ConfigAccess this RootComplex was built with, for
// callers that need direct register access alongside enumeration (e.g.
// CLI commands printing a raw config-space hex dump).
func (r *RootComplex) Access() ConfigAccess {
	return r.access
}
