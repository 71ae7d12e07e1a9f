package donor

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleIomem = `00000000-00000fff : Reserved
000a0000-000bffff : PCI Bus 0000:00
c0000000-cfffffff : PCI Bus 0000:00
  c0000000-c00fffff : 0000:00:02.0
e0000000-efffffff : PCI MMCONFIG 0000 [bus 00-ff]
fd00000000-fd0fffffff : PCI Bus 0000:01
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "iomem")
	if err := os.WriteFile(path, []byte(sampleIomem), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscoverHostWindowsSkipsChildrenAndNonPCI(t *testing.T) {
	windows, err := DiscoverHostWindows(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(windows) != 3 {
		t.Fatalf("expected 3 top-level PCI Bus windows, got %d: %+v", len(windows), windows)
	}
	if windows[1].Base != 0xc0000000 || windows[1].Size != 0x10000000 {
		t.Fatalf("unexpected window: %+v", windows[1])
	}
}

func TestLargestWindowUnder4G(t *testing.T) {
	windows, err := DiscoverHostWindows(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	best, ok := LargestWindowUnder4G(windows)
	if !ok {
		t.Fatal("expected a window under 4 GiB")
	}
	if best.Base != 0xc0000000 {
		t.Fatalf("expected the 256 MiB window at 0xc0000000, got %+v", best)
	}
}

func TestDiscoverHostWindowsMissingFile(t *testing.T) {
	if _, err := DiscoverHostWindows(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
