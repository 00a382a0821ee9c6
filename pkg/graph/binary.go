package graph

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"

	"github.com/paulmach/orb"
)

const (
	magicBytes  = "ELEVGRPH"
	version     = uint32(1)
	maxVertices = 10_000_000
	maxEdges    = 50_000_000
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic       [8]byte
	Version     uint32
	NumVertices uint32
	NumEdges    uint32
}

// Edge flags.
const (
	flagSlopeOverride = 1 << 0
	flagFlattened     = 1 << 1
	flagHasProfile    = 1 << 2
)

// WriteBinary serializes a graph, including any elevation profiles, to a
// binary file. The file is written to a temp path and renamed into place.
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	bw := bufio.NewWriter(f)
	crcWriter := crc32Writer{w: bw, hash: crc32.NewIEEE()}
	w := &crcWriter

	edges := g.Edges()

	hdr := fileHeader{
		Version:     version,
		NumVertices: uint32(len(g.Vertices)),
		NumEdges:    uint32(len(edges)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Vertex coordinates.
	for _, v := range g.Vertices {
		if err := binary.Write(w, binary.LittleEndian, [2]float64{v.Point[0], v.Point[1]}); err != nil {
			return fmt.Errorf("write vertex %d: %w", v.ID, err)
		}
	}

	// Edge records.
	for i, e := range edges {
		if err := writeEdge(w, e); err != nil {
			return fmt.Errorf("write edge %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	// Write CRC32 trailer.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

func writeEdge(w io.Writer, e *StreetEdge) error {
	if err := binary.Write(w, binary.LittleEndian, [2]uint32{uint32(e.From.ID), uint32(e.To.ID)}); err != nil {
		return err
	}

	var flags uint8
	if e.slopeOverride {
		flags |= flagSlopeOverride
	}
	if e.flattened {
		flags |= flagFlattened
	}
	if e.profile != nil {
		flags |= flagHasProfile
	}
	if err := binary.Write(w, binary.LittleEndian, flags); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Geometry))); err != nil {
		return err
	}
	for _, p := range e.Geometry {
		if err := binary.Write(w, binary.LittleEndian, [2]float64{p[0], p[1]}); err != nil {
			return err
		}
	}

	if e.profile != nil {
		if err := binary.Write(w, binary.LittleEndian, uint32(e.profile.Len())); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, e.profile.Dist); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, e.profile.Elev); err != nil {
			return err
		}
	}

	return nil
}

// ReadBinary deserializes a graph from a binary file.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	crcReader := crc32Reader{r: br, hash: crc32.NewIEEE()}
	r := &crcReader

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumVertices > maxVertices {
		return nil, fmt.Errorf("NumVertices %d exceeds limit %d", hdr.NumVertices, maxVertices)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}

	g := New()
	for i := uint32(0); i < hdr.NumVertices; i++ {
		var pt [2]float64
		if err := binary.Read(r, binary.LittleEndian, &pt); err != nil {
			return nil, fmt.Errorf("read vertex %d: %w", i, err)
		}
		g.AddVertex(pt[0], pt[1])
	}

	for i := uint32(0); i < hdr.NumEdges; i++ {
		if err := readEdge(r, g, hdr.NumVertices); err != nil {
			return nil, fmt.Errorf("read edge %d: %w", i, err)
		}
	}

	// Read and validate CRC32.
	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(br, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	return g, nil
}

func readEdge(r io.Reader, g *Graph, numVertices uint32) error {
	var ft [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &ft); err != nil {
		return err
	}
	if ft[0] >= numVertices || ft[1] >= numVertices {
		return fmt.Errorf("vertex reference %v out of range", ft)
	}

	var flags uint8
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return err
	}

	var geomLen uint32
	if err := binary.Read(r, binary.LittleEndian, &geomLen); err != nil {
		return err
	}
	if geomLen < 2 {
		return fmt.Errorf("geometry has %d points", geomLen)
	}
	geom := make(orb.LineString, geomLen)
	for j := range geom {
		var pt [2]float64
		if err := binary.Read(r, binary.LittleEndian, &pt); err != nil {
			return err
		}
		geom[j] = orb.Point(pt)
	}

	e := g.AddEdge(g.Vertices[ft[0]], g.Vertices[ft[1]], geom)
	e.slopeOverride = flags&flagSlopeOverride != 0

	if flags&flagHasProfile != 0 {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return err
		}
		if n > maxEdges {
			return fmt.Errorf("profile has %d samples", n)
		}
		p := &Profile{
			Dist: make([]float64, n),
			Elev: make([]float64, n),
		}
		if err := binary.Read(r, binary.LittleEndian, p.Dist); err != nil {
			return err
		}
		if err := binary.Read(r, binary.LittleEndian, p.Elev); err != nil {
			return err
		}
		e.profile = p
	}
	e.flattened = flags&flagFlattened != 0

	return nil
}

// crc32Writer updates a running checksum with everything written through it.
type crc32Writer struct {
	w    io.Writer
	hash hash.Hash32
}

func (c *crc32Writer) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.hash.Write(p[:n])
	return n, err
}

// crc32Reader updates a running checksum with everything read through it.
type crc32Reader struct {
	r    io.Reader
	hash hash.Hash32
}

func (c *crc32Reader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.hash.Write(p[:n])
	return n, err
}
