package pcie

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fixtureFunction is the on-disk shape of one function's configuration
// space in a fixture file: a flat list of little-endian dwords starting
// at offset 0, long enough to cover whatever the scenario needs (a bare
// endpoint only needs through its BARs and capabilities; a bridge needs
// through its bus-number register).
type fixtureFunction struct {
	Bus      uint8    `yaml:"bus"`
	Device   uint8    `yaml:"device"`
	Function uint8    `yaml:"function"`
	Dwords   []uint32 `yaml:"dwords"`
}

// fixtureFile is the top-level shape of a FixtureAccess YAML document.
type fixtureFile struct {
	Segment   uint16            `yaml:"segment"`
	Functions []fixtureFunction `yaml:"functions"`
}

// FixtureAccess is a ConfigAccess backed by a fixed, in-memory table of
// functions loaded from YAML. It exists so enumeration scenarios can be
// exercised in tests and by "pcienum inspect --fixture" without any real
// hardware or root privilege, mirroring the six end-to-end scenarios the
// engine's test suite drives through it.
type FixtureAccess struct {
	segment uint16
	space   map[PciAddress][]uint32
}

// LoadFixture parses a YAML fixture file at path into a FixtureAccess.
func LoadFixture(path string) (*FixtureAccess, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pcie: read fixture %s: %w", path, err)
	}

	var doc fixtureFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("pcie: parse fixture %s: %w", path, err)
	}

	return newFixtureAccess(doc), nil
}

// NewFixtureAccess builds a FixtureAccess directly from in-memory function
// definitions, for tests that would rather construct a scenario in Go than
// maintain a YAML file on disk.
func NewFixtureAccess(segment uint16, functions map[PciAddress][]uint32) *FixtureAccess {
	space := make(map[PciAddress][]uint32, len(functions))
	for addr, dwords := range functions {
		cp := make([]uint32, len(dwords))
		copy(cp, dwords)
		space[addr] = cp
	}
	return &FixtureAccess{segment: segment, space: space}
}

func newFixtureAccess(doc fixtureFile) *FixtureAccess {
	space := make(map[PciAddress][]uint32, len(doc.Functions))
	for _, fn := range doc.Functions {
		addr := PciAddress{Segment: doc.Segment, Bus: fn.Bus, Device: fn.Device, Function: fn.Function}
		dwords := make([]uint32, len(fn.Dwords))
		copy(dwords, fn.Dwords)
		space[addr] = dwords
	}
	return &FixtureAccess{segment: doc.Segment, space: space}
}

// Read returns the fixture's dword at offset for addr, or AbsentValue if
// the address was never defined or the offset runs past the function's
// recorded dwords (an all-ones tail is the same thing real hardware would
// return past a header it doesn't implement).
func (f *FixtureAccess) Read(addr PciAddress, offset uint16) uint32 {
	checkOffset(offset)
	dwords, ok := f.space[addr]
	idx := int(offset / 4)
	if !ok || idx >= len(dwords) {
		return AbsentValue
	}
	return dwords[idx]
}

// Write stores value at offset for addr. Writing to a function not present
// in the fixture is a no-op: a fixture models only functions the scenario
// cares about, and enumeration only ever writes to functions it has
// already read as present.
func (f *FixtureAccess) Write(addr PciAddress, offset uint16, value uint32) {
	checkOffset(offset)
	dwords, ok := f.space[addr]
	if !ok {
		return
	}
	idx := int(offset / 4)
	for idx >= len(dwords) {
		dwords = append(dwords, 0)
	}
	dwords[idx] = value
	f.space[addr] = dwords
}

// FixtureEntry is the exported counterpart of fixtureFunction: one
// function's worth of raw config-space dwords, for callers outside this
// package that build a fixture document from something other than a YAML
// file on disk (a live capture, a generated scenario).
type FixtureEntry struct {
	Bus      uint8
	Device   uint8
	Function uint8
	Dwords   []uint32
}

// MarshalFixtureYAML renders segment and entries as a fixture document in
// the same YAML shape LoadFixture reads, so a caller that captured a real
// device's config space can hand it straight to "pcienum inspect".
func MarshalFixtureYAML(segment uint16, entries []FixtureEntry) ([]byte, error) {
	doc := fixtureFile{Segment: segment}
	for _, e := range entries {
		doc.Functions = append(doc.Functions, fixtureFunction{
			Bus:      e.Bus,
			Device:   e.Device,
			Function: e.Function,
			Dwords:   e.Dwords,
		})
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("pcie: marshal fixture: %w", err)
	}
	return out, nil
}
