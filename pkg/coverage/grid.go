package coverage

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Grid is an in-memory elevation raster with bilinear interpolation.
// Samples are node-registered: column i, row j (south-based) sits at
// (xll + i*cell, yll + j*cell). Read-only after load.
type Grid struct {
	nCols, nRows int
	xll, yll     float64 // position of the (0, 0) sample
	cell         float64 // sample spacing in degrees
	nodata       float64
	data         []float64 // row-major, first row is the northernmost
}

// NewGrid builds a grid from row-major data whose first row is the
// northernmost. rows[j][i] holds the sample i columns east and j rows south
// of the upper-left corner.
func NewGrid(xll, yll, cell float64, rows [][]float64) (*Grid, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("grid needs at least 2 rows, got %d", len(rows))
	}
	nRows := len(rows)
	nCols := len(rows[0])
	if nCols < 2 {
		return nil, fmt.Errorf("grid needs at least 2 columns, got %d", nCols)
	}
	data := make([]float64, 0, nRows*nCols)
	for j, row := range rows {
		if len(row) != nCols {
			return nil, fmt.Errorf("row %d has %d samples, want %d", j, len(row), nCols)
		}
		data = append(data, row...)
	}
	return &Grid{
		nCols:  nCols,
		nRows:  nRows,
		xll:    xll,
		yll:    yll,
		cell:   cell,
		nodata: math.Inf(-1),
		data:   data,
	}, nil
}

// Bound returns the envelope spanned by the outermost samples.
func (g *Grid) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{g.xll, g.yll},
		Max: orb.Point{g.xll + float64(g.nCols-1)*g.cell, g.yll + float64(g.nRows-1)*g.cell},
	}
}

// ElevationAt bilinearly interpolates the grid at (lon, lat). Points outside
// the envelope or touching a nodata sample fail with
// ErrPointOutsideCoverage.
func (g *Grid) ElevationAt(lon, lat float64) (float64, error) {
	if !g.Bound().Contains(orb.Point{lon, lat}) {
		return 0, fmt.Errorf("%w: point (%f, %f)", ErrPointOutsideCoverage, lon, lat)
	}

	gx := (lon - g.xll) / g.cell
	gy := (lat - g.yll) / g.cell

	i := int(math.Floor(gx))
	j := int(math.Floor(gy))
	if i > g.nCols-2 {
		i = g.nCols - 2
	}
	if j > g.nRows-2 {
		j = g.nRows - 2
	}
	fx := gx - float64(i)
	fy := gy - float64(j)

	v00 := g.at(i, j)
	v10 := g.at(i+1, j)
	v01 := g.at(i, j+1)
	v11 := g.at(i+1, j+1)
	if v00 == g.nodata || v10 == g.nodata || v01 == g.nodata || v11 == g.nodata {
		return 0, fmt.Errorf("%w: nodata near (%f, %f)", ErrPointOutsideCoverage, lon, lat)
	}

	bottom := v00 + fx*(v10-v00)
	top := v01 + fx*(v11-v01)
	return bottom + fy*(top-bottom), nil
}

// at returns the sample at column i, row j counted from the south.
func (g *Grid) at(i, j int) float64 {
	return g.data[(g.nRows-1-j)*g.nCols+i]
}

// ParseASCIIGrid reads an ESRI ASCII grid (ncols/nrows/xllcorner/yllcorner/
// cellsize/NODATA_value header followed by rows north to south).
func ParseASCIIGrid(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)

	header := map[string]float64{}
	nodata := -9999.0
	var data []float64

	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		// Header lines are "name value" pairs; data lines start with a number.
		if len(fields) == 2 && !isNumeric(fields[0]) {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("header %q: %w", fields[0], err)
			}
			key := strings.ToLower(fields[0])
			if key == "nodata_value" {
				nodata = v
			} else {
				header[key] = v
			}
			continue
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("data value %q: %w", f, err)
			}
			data = append(data, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	nCols := int(header["ncols"])
	nRows := int(header["nrows"])
	if nCols < 2 || nRows < 2 {
		return nil, fmt.Errorf("grid needs at least 2x2 samples, got %dx%d", nRows, nCols)
	}
	if len(data) != nCols*nRows {
		return nil, fmt.Errorf("expected %d samples, got %d", nCols*nRows, len(data))
	}
	cell, ok := header["cellsize"]
	if !ok || cell <= 0 {
		return nil, fmt.Errorf("missing or invalid cellsize")
	}

	return &Grid{
		nCols:  nCols,
		nRows:  nRows,
		xll:    header["xllcorner"],
		yll:    header["yllcorner"],
		cell:   cell,
		nodata: nodata,
		data:   data,
	}, nil
}

// LoadASCIIGrid reads an ESRI ASCII grid file, transparently decompressing
// a .gz suffix.
func LoadASCIIGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return ParseASCIIGrid(r)
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// VerticalDatum is a correction sub-grid giving an interpolated
// ellipsoid-to-datum offset over its envelope. Read-only after load.
type VerticalDatum struct {
	grid *Grid
}

// NewVerticalDatum wraps an offset grid as a vertical datum.
func NewVerticalDatum(grid *Grid) *VerticalDatum {
	return &VerticalDatum{grid: grid}
}

// LoadVerticalDatum reads a datum offset grid from an ESRI ASCII file.
func LoadVerticalDatum(path string) (*VerticalDatum, error) {
	g, err := LoadASCIIGrid(path)
	if err != nil {
		return nil, err
	}
	return &VerticalDatum{grid: g}, nil
}

// Bound returns the datum's envelope.
func (d *VerticalDatum) Bound() orb.Bound { return d.grid.Bound() }

// InterpolatedHeight returns the bilinearly interpolated offset at (x, y).
func (d *VerticalDatum) InterpolatedHeight(x, y float64) (float64, error) {
	return d.grid.ElevationAt(x, y)
}
