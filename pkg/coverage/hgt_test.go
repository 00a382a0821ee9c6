package coverage

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeTestTile writes a 3 arc-second tile whose samples all hold elev,
// except for an optional void at the exact center sample.
func writeTestTile(t *testing.T, dir, name string, elev int16, void bool) string {
	t.Helper()
	const n = 1201
	raw := make([]byte, n*n*2)
	for i := 0; i < n*n; i++ {
		binary.BigEndian.PutUint16(raw[2*i:], uint16(elev))
	}
	if void {
		mid := (n/2)*n + n/2
		void := int16(hgtVoid)
		binary.BigEndian.PutUint16(raw[2*mid:], uint16(void))
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write tile: %v", err)
	}
	return path
}

func TestLoadHGT(t *testing.T) {
	dir := t.TempDir()
	path := writeTestTile(t, dir, "N47E008.hgt", 420, false)

	tile, err := LoadHGT(path)
	if err != nil {
		t.Fatalf("LoadHGT: %v", err)
	}

	b := tile.Bound()
	if b.Min[0] != 8 || b.Min[1] != 47 || b.Max[0] != 9 || b.Max[1] != 48 {
		t.Errorf("Bound = %v, want [8 47, 9 48]", b)
	}

	got, err := tile.ElevationAt(8.5, 47.5)
	if err != nil {
		t.Fatalf("ElevationAt: %v", err)
	}
	if math.Abs(got-420) > 1e-9 {
		t.Errorf("ElevationAt(8.5, 47.5) = %v, want 420", got)
	}

	if _, err := tile.ElevationAt(9.5, 47.5); !errors.Is(err, ErrPointOutsideCoverage) {
		t.Errorf("outside lookup err = %v, want ErrPointOutsideCoverage", err)
	}
}

func TestLoadHGTSouthWest(t *testing.T) {
	dir := t.TempDir()
	path := writeTestTile(t, dir, "S02W072.hgt", 95, false)

	tile, err := LoadHGT(path)
	if err != nil {
		t.Fatalf("LoadHGT: %v", err)
	}
	b := tile.Bound()
	if b.Min[0] != -72 || b.Min[1] != -2 {
		t.Errorf("Bound.Min = %v, want (-72, -2)", b.Min)
	}
}

func TestHGTVoid(t *testing.T) {
	dir := t.TempDir()
	path := writeTestTile(t, dir, "N10E020.hgt", 50, true)

	tile, err := LoadHGT(path)
	if err != nil {
		t.Fatalf("LoadHGT: %v", err)
	}

	// The center sample is void, so lookups next to it fail while the
	// rest of the tile still evaluates.
	if _, err := tile.ElevationAt(20.5, 10.5); !errors.Is(err, ErrPointOutsideCoverage) {
		t.Errorf("void lookup err = %v, want ErrPointOutsideCoverage", err)
	}
	if v, err := tile.ElevationAt(20.1, 10.1); err != nil || math.Abs(v-50) > 1e-9 {
		t.Errorf("ElevationAt(20.1, 10.1) = %v, %v, want 50", v, err)
	}
}

func TestLoadHGTBadName(t *testing.T) {
	dir := t.TempDir()
	path := writeTestTile(t, dir, "bogus.hgt", 1, false)
	if _, err := LoadHGT(path); err == nil {
		t.Error("LoadHGT with unparseable name: want error")
	}
}

func TestLoadHGTDir(t *testing.T) {
	dir := t.TempDir()
	writeTestTile(t, dir, "N47E008.hgt", 400, false)
	writeTestTile(t, dir, "N47E009.hgt", 500, false)

	tiles, err := LoadHGTDir(dir)
	if err != nil {
		t.Fatalf("LoadHGTDir: %v", err)
	}
	if len(tiles) != 2 {
		t.Fatalf("loaded %d tiles, want 2", len(tiles))
	}
}
