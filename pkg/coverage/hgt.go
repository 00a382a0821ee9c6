package coverage

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
)

// SRTM .hgt tiles: a square grid of big-endian int16 samples named by the
// lower-left corner (e.g. N45W123.hgt), 1201x1201 for 3 arc-second data or
// 3601x3601 for 1 arc-second data. -32768 marks data voids.
const hgtVoid = -32768

// HGTTile is one 1x1 degree SRTM elevation tile. Read-only after load.
type HGTTile struct {
	lon, lat float64 // lower-left corner in whole degrees
	n        int     // samples per side
	data     []int16 // row-major, first row is the northernmost
}

// LoadHGT reads a .hgt tile, deriving its corner from the file name.
func LoadHGT(path string) (*HGTTile, error) {
	base := filepath.Base(path)
	var ns, ew string
	var latDeg, lonDeg int
	if _, err := fmt.Sscanf(base, "%1s%2d%1s%3d", &ns, &latDeg, &ew, &lonDeg); err != nil {
		return nil, fmt.Errorf("tile name %q: %w", base, err)
	}
	if ns == "S" || ns == "s" {
		latDeg = -latDeg
	}
	if ew == "W" || ew == "w" {
		lonDeg = -lonDeg
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var n int
	switch len(raw) {
	case 1201 * 1201 * 2:
		n = 1201
	case 3601 * 3601 * 2:
		n = 3601
	default:
		return nil, fmt.Errorf("unexpected size %d for %q", len(raw), base)
	}

	data := make([]int16, n*n)
	for i := range data {
		data[i] = int16(uint16(raw[2*i])<<8 | uint16(raw[2*i+1]))
	}

	return &HGTTile{
		lon:  float64(lonDeg),
		lat:  float64(latDeg),
		n:    n,
		data: data,
	}, nil
}

// LoadHGTDir loads every .hgt tile directly under dir.
func LoadHGTDir(dir string) ([]*HGTTile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var tiles []*HGTTile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".hgt") {
			continue
		}
		t, err := LoadHGT(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", e.Name(), err)
		}
		tiles = append(tiles, t)
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("no .hgt tiles in %s", dir)
	}
	return tiles, nil
}

// Bound returns the tile's 1x1 degree envelope.
func (t *HGTTile) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{t.lon, t.lat},
		Max: orb.Point{t.lon + 1, t.lat + 1},
	}
}

// ElevationAt bilinearly interpolates the tile at (lon, lat). Voids fail
// with ErrPointOutsideCoverage.
func (t *HGTTile) ElevationAt(lon, lat float64) (float64, error) {
	if !t.Bound().Contains(orb.Point{lon, lat}) {
		return 0, fmt.Errorf("%w: point (%f, %f)", ErrPointOutsideCoverage, lon, lat)
	}

	// Fractional sample position; row 0 is the tile's northern edge.
	gx := (lon - t.lon) * float64(t.n-1)
	gy := (t.lat + 1 - lat) * float64(t.n-1)

	i := int(math.Floor(gx))
	j := int(math.Floor(gy))
	if i > t.n-2 {
		i = t.n - 2
	}
	if j > t.n-2 {
		j = t.n - 2
	}
	fx := gx - float64(i)
	fy := gy - float64(j)

	v00 := t.data[j*t.n+i]
	v10 := t.data[j*t.n+i+1]
	v01 := t.data[(j+1)*t.n+i]
	v11 := t.data[(j+1)*t.n+i+1]
	if v00 == hgtVoid || v10 == hgtVoid || v01 == hgtVoid || v11 == hgtVoid {
		return 0, fmt.Errorf("%w: void near (%f, %f)", ErrPointOutsideCoverage, lon, lat)
	}

	top := float64(v00) + fx*(float64(v10)-float64(v00))
	bottom := float64(v01) + fx*(float64(v11)-float64(v01))
	return top + fy*(bottom-top), nil
}
