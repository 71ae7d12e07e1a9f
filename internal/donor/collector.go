package donor

import (
	"fmt"
	"os"
	"time"

	"github.com/sercanarga/pcienum/internal/pci"
	"github.com/sercanarga/pcienum/internal/pcie"
	"github.com/sercanarga/pcienum/internal/version"
)

// Collector reads a device's config space, BARs, and capabilities through
// sysfs, for a kernel-bound device the freestanding pcie engine can never
// see directly.
type Collector struct {
	sysfs *SysfsReader
}

// NewCollector creates a new Collector.
func NewCollector() *Collector {
	return &Collector{sysfs: NewSysfsReader()}
}

// NewCollectorWithSysfs creates a Collector with a custom sysfs reader (for testing).
func NewCollectorWithSysfs(sr *SysfsReader) *Collector {
	return &Collector{sysfs: sr}
}

// Collect reads config space, BARs, and capabilities from the given device.
func (c *Collector) Collect(bdf pci.BDF) (*DeviceContext, error) {
	ctx := &DeviceContext{
		CollectedAt: time.Now(),
		ToolVersion: version.Version,
	}

	hostname, _ := os.Hostname()
	ctx.Hostname = hostname

	// Read basic device info
	dev, err := c.sysfs.ReadDeviceInfo(bdf)
	if err != nil {
		return nil, fmt.Errorf("failed to read device info for %s: %w", bdf, err)
	}
	ctx.Device = *dev

	// Read config space
	cs, err := c.sysfs.ReadConfigSpace(bdf)
	if err != nil {
		return nil, fmt.Errorf("failed to read config space for %s: %w", bdf, err)
	}
	ctx.ConfigSpace = cs

	// Read BAR information from sysfs resource file
	bars, err := c.sysfs.ReadResourceFile(bdf)
	if err != nil {
		// Fall back to parsing from config space
		bars = pci.ParseBARsFromConfigSpace(cs)
	}
	ctx.BARs = bars

	// Parse capabilities
	ctx.Capabilities = pci.ParseCapabilities(cs)
	ctx.ExtCapabilities = pci.ParseExtCapabilities(cs)

	return ctx, nil
}

// SaveContext saves a DeviceContext to a JSON file.
func SaveContext(ctx *DeviceContext, path string) error {
	data, err := ctx.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal device context: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadContext loads a DeviceContext from a JSON file.
func LoadContext(path string) (*DeviceContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device context file: %w", err)
	}
	return FromJSON(data)
}

// FixtureYAML renders a captured device context as a single-function pcie
// fixture document, the bridge between a real device's kernel-mediated
// config space and the freestanding engine's replay-only ConfigAccess.
// "pcienum inspect --fixture" can walk the result exactly as it would a
// hand-written scenario, with the header and capability walk it was
// actually captured with. BAR sizes are not replayed: a fixture stores the
// all-ones sizing write verbatim, so a replayed BAR's size reflects that
// write rather than the device's real size mask.
func (ctx *DeviceContext) FixtureYAML() ([]byte, error) {
	if ctx.ConfigSpace == nil {
		return nil, fmt.Errorf("device context has no config space to export")
	}
	dwords := make([]uint32, ctx.ConfigSpace.Size/4)
	for i := range dwords {
		dwords[i] = ctx.ConfigSpace.ReadU32(i * 4)
	}
	entry := pcie.FixtureEntry{
		Bus:      ctx.Device.BDF.Bus,
		Device:   ctx.Device.BDF.Device,
		Function: ctx.Device.BDF.Function,
		Dwords:   dwords,
	}
	return pcie.MarshalFixtureYAML(ctx.Device.BDF.Domain, []pcie.FixtureEntry{entry})
}
