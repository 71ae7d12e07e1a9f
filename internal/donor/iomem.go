package donor

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const procIomemPath = "/proc/iomem"

// HostWindow is a span of physical address space the host bridge has
// already carved out for PCI MMIO, as reported by the kernel. It is the
// real-hardware counterpart to the address range an operator would
// otherwise have to look up and pass by hand via --bar-window-base/size.
type HostWindow struct {
	Base uint64
	Size uint64
}

func (w HostWindow) end() uint64 { return w.Base + w.Size - 1 }

// DiscoverHostWindows reads a /proc/iomem-formatted file and returns every
// top-level "PCI Bus" span it finds, in the order the kernel reported
// them. Child resources (lines indented under a PCI Bus span, one per
// BDF already claiming part of it) are skipped: callers want the whole
// span a fresh BAR assignment may still carve into, not what is already
// occupied within it.
func DiscoverHostWindows(path string) ([]HostWindow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read iomem: %w", err)
	}
	defer f.Close()

	var windows []HostWindow
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue // indented: a resource already claimed within a parent span
		}

		base, size, label, ok := parseIomemLine(line)
		if !ok {
			continue
		}
		if !strings.HasPrefix(label, "PCI Bus") {
			continue
		}
		windows = append(windows, HostWindow{Base: base, Size: size})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan iomem: %w", err)
	}
	return windows, nil
}

// parseIomemLine splits a "<base>-<end> : <label>" line into its base
// address, size, and label.
func parseIomemLine(line string) (base, size uint64, label string, ok bool) {
	parts := strings.SplitN(line, " : ", 2)
	if len(parts) != 2 {
		return 0, 0, "", false
	}
	span := strings.SplitN(strings.TrimSpace(parts[0]), "-", 2)
	if len(span) != 2 {
		return 0, 0, "", false
	}

	baseVal, err := strconv.ParseUint(span[0], 16, 64)
	if err != nil {
		return 0, 0, "", false
	}
	endVal, err := strconv.ParseUint(span[1], 16, 64)
	if err != nil {
		return 0, 0, "", false
	}
	if endVal < baseVal {
		return 0, 0, "", false
	}
	return baseVal, endVal - baseVal + 1, strings.TrimSpace(parts[1]), true
}

// LargestWindowUnder4G returns the largest window that fits entirely
// below the 4 GiB line, for callers (the 32-bit BAR assignment window)
// that cannot use a span extending past it. It reports false if none of
// the discovered windows qualify.
func LargestWindowUnder4G(windows []HostWindow) (HostWindow, bool) {
	var best HostWindow
	found := false
	for _, w := range windows {
		if w.end() > 0xFFFFFFFF {
			continue
		}
		if !found || w.Size > best.Size {
			best = w
			found = true
		}
	}
	return best, found
}
