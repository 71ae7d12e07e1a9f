// Package pcie implements a freestanding-style PCIe bus enumerator and BAR
// allocator: a depth-first walk of the bus/device/function space below a
// root complex, driven entirely through a caller-supplied ConfigAccess and
// yielding one descriptor per present function.
package pcie

import "fmt"

// MaxDevice is the highest device number on any PCI bus.
const MaxDevice = 31

// MaxFunction is the highest function number within a multi-function device.
const MaxFunction = 7

// PciAddress is an immutable 4-tuple naming one configuration space.
type PciAddress struct {
	Segment  uint16
	Bus      uint8
	Device   uint8
	Function uint8
}

// NewPciAddress builds a PciAddress, panicking if device or function are out
// of range -- callers within this package only ever construct addresses from
// bounded loop counters, so this is a programmer-error guard, not a runtime
// validation path.
func NewPciAddress(segment uint16, bus, device, function uint8) PciAddress {
	if device > MaxDevice {
		panic(fmt.Sprintf("pcie: device %d exceeds MaxDevice", device))
	}
	if function > MaxFunction {
		panic(fmt.Sprintf("pcie: function %d exceeds MaxFunction", function))
	}
	return PciAddress{Segment: segment, Bus: bus, Device: device, Function: function}
}

// String renders the address as "segment:bus:device.function".
func (a PciAddress) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", a.Segment, a.Bus, a.Device, a.Function)
}
