package pcie

import (
	"github.com/sercanarga/pcienum/internal/pci"
	log "github.com/sirupsen/logrus"
)

// frame is one level of the depth-first walk: either the root bus (address
// is unused, isBridge false) or the secondary side of a bridge the walk
// has descended into. The stack of frames is a plain value slice rather
// than a linked structure: nothing in the walk needs to outlive its
// parent frame, so there is no cyclic ownership to manage.
type frame struct {
	bus         uint8
	device      uint8
	function    uint8
	isBridge    bool
	address     PciAddress
	primary     uint8
	secondary   uint8
	subordinate uint8
}

// EnumerationEngine performs a depth-first walk of every bus reachable
// from a root complex, using an explicit frame stack rather than
// recursion so that the depth of any one bridge chain never grows the Go
// call stack.
//
// An EnumerationEngine is single-use and not safe for concurrent calls to
// Next: it mutates its own cursor state in place, matching a hardware
// scan that cannot itself be parallelized across a shared bus.
type EnumerationEngine struct {
	access     ConfigAccess
	barAlloc   *BarAllocator
	segment    uint16
	stack      []frame
	busCounter uint8
}

func newEnumerationEngine(access ConfigAccess, barAlloc *BarAllocator, segment uint16, rootBus uint8) *EnumerationEngine {
	return &EnumerationEngine{
		access:     access,
		barAlloc:   barAlloc,
		segment:    segment,
		stack:      []frame{{bus: rootBus}},
		busCounter: rootBus,
	}
}

// Next advances the walk and returns the next present function, or
// (Descriptor{}, false) once every reachable bus has been exhausted.
func (e *EnumerationEngine) Next() (Descriptor, bool) {
	for len(e.stack) > 0 {
		top := e.stack[len(e.stack)-1]

		if top.function > MaxFunction {
			top.device++
			top.function = 0
			e.stack[len(e.stack)-1] = top
			continue
		}

		if top.device > MaxDevice {
			e.popFrame()
			continue
		}

		addr := NewPciAddress(e.segment, top.bus, top.device, top.function)
		header := readHeaderCommon(e.access, addr)

		if !present(header) {
			if top.function == 0 {
				top.device++
				top.function = 0
			} else {
				top.function++
			}
			e.stack[len(e.stack)-1] = top
			continue
		}

		skipRemainingFunctions := top.function == 0 && !header.HasMultipleFunctions
		if skipRemainingFunctions {
			top.device++
			top.function = 0
		} else {
			top.function++
		}
		e.stack[len(e.stack)-1] = top

		if header.Kind == HeaderKindPciPciBridge {
			e.descend(addr, top.bus)
		}

		desc := e.describe(addr, header)
		return desc, true
	}
	return Descriptor{}, false
}

// popFrame finishes the bus level at the top of the stack, fixing up the
// bridge that owns it (if any) with the final subordinate bus number now
// that every descendant bus has been assigned. busCounter is monotonic
// across the whole walk, so its value at pop time is exactly the highest
// bus number reachable under this frame.
func (e *EnumerationEngine) popFrame() {
	finished := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]

	if !finished.isBridge {
		return
	}
	if finished.subordinate == e.busCounter {
		return
	}
	finished.subordinate = e.busCounter
	writeBridgeBusNumbers(e.access, finished.address, finished.primary, finished.secondary, finished.subordinate)
	log.WithFields(log.Fields{
		"bridge":      finished.address,
		"subordinate": finished.subordinate,
	}).Debug("pcie: fixed up bridge subordinate bus number")
}

// descend assigns the next bus number to a newly discovered bridge and
// pushes a frame so the walk continues on its secondary side before
// returning to sibling devices on parentBus. The secondary (and initial
// subordinate) bus number is allocated from a single counter shared by
// the whole walk, per the bus-numbering policy fixed for this engine:
// the number is written to the bridge immediately rather than held as a
// 0xFF placeholder.
func (e *EnumerationEngine) descend(bridgeAddr PciAddress, parentBus uint8) {
	e.busCounter++
	secondary := e.busCounter
	subordinate := secondary

	writeBridgeBusNumbers(e.access, bridgeAddr, parentBus, secondary, subordinate)
	log.WithFields(log.Fields{
		"bridge":      bridgeAddr,
		"primary":     parentBus,
		"secondary":   secondary,
		"subordinate": subordinate,
	}).Trace("pcie: assigned bridge bus numbers")

	e.stack = append(e.stack, frame{
		bus:         secondary,
		isBridge:    true,
		address:     bridgeAddr,
		primary:     parentBus,
		secondary:   secondary,
		subordinate: subordinate,
	})
}

// describe builds the full Descriptor for a present function: BARs,
// capability chain, and (for bridges) the bus-number triple.
func (e *EnumerationEngine) describe(addr PciAddress, header HeaderCommon) Descriptor {
	desc := Descriptor{Address: addr, Header: header}

	if header.Kind != HeaderKindPciPciBridge {
		desc.Bars = parseBarVec(e.access, addr, header.Kind)
		desc.InterruptLine, desc.InterruptPin = interruptLine(e.access, addr)
		desc.SubsystemVendorID, desc.SubsystemID = subsystem(e.access, addr)
		if e.barAlloc != nil {
			desc.AllocErr = e.allocateBars(addr, desc.Bars)
		}
	} else {
		desc.PrimaryBus, desc.SecondaryBus, desc.SubordinateBus = readBridgeBusNumbers(e.access, addr)
	}

	desc.Capabilities = readCapabilities(e.access, addr, header.Status)
	desc.ExtCapabilities = readExtCapabilities(e.access, addr)
	desc.Link = pci.ExtractLinkInfo(desc.Capabilities, desc.ExtCapabilities)

	return desc
}

// allocateBars assigns a fresh address to every non-empty memory BAR,
// including one firmware already placed: the allocator's windows are the
// authority on the address map the enumerator is building, not whatever a
// prior boot stage left behind. A 64-bit BAR already decoding an address
// below 4 GiB tries the 32-bit window first, so a device firmware placed
// in 32-bit space isn't pushed up into 64-bit space for no reason; it
// falls back to Alloc64's own windows (and Alloc64's generic 32-bit
// fallback) when that first attempt has no room. A failure on one BAR
// does not prevent the rest from being assigned; only the first failure
// is reported on the descriptor, matching how enumeration never halts on
// a single device's allocation trouble.
func (e *EnumerationEngine) allocateBars(addr PciAddress, bars BarVec) error {
	var firstErr error
	for slot := 0; slot < bars.Len(); slot++ {
		bar := bars.Get(slot)
		if bar == nil || bar.Size == 0 {
			continue
		}

		var newAddr uint64
		var err error
		switch bar.Kind {
		case BarKindMemory64:
			if bar.Address != 0 && bar.Address <= 0xFFFFFFFF {
				newAddr, err = e.barAlloc.Alloc32(bar.Size, bar.Prefetchable)
				if err != nil {
					newAddr, err = e.barAlloc.Alloc64(bar.Size, bar.Prefetchable)
				}
			} else {
				newAddr, err = e.barAlloc.Alloc64(bar.Size, bar.Prefetchable)
			}
		case BarKindMemory32:
			newAddr, err = e.barAlloc.Alloc32(bar.Size, bar.Prefetchable)
		default:
			continue // I/O BARs are not served by BarAllocator's memory windows
		}

		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if werr := writeBar(e.access, addr, slot, bar, newAddr); werr != nil {
			if firstErr == nil {
				firstErr = werr
			}
			continue
		}
		bar.Address = newAddr
	}
	return firstErr
}
