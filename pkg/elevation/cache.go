package elevation

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-polyline"

	"elevation_builder/pkg/graph"
)

const (
	cacheMagic   = "ELEVPROF"
	cacheVersion = uint32(1)
	maxEntries   = 50_000_000
	maxSamples   = 1_000_000
	maxKeyLen    = 1 << 20
)

// ProfileCache maps a lossy polyline encoding of an edge geometry to a
// previously computed elevation profile. The encoding rounds coordinates to
// 1e-5 degrees, so distinct geometries can in principle share an entry;
// that collision tolerance is accepted and must not be tightened, since a
// stronger key would change which edges hit the cache.
type ProfileCache struct {
	entries map[string]*graph.Profile
}

// NewProfileCache creates an empty cache.
func NewProfileCache() *ProfileCache {
	return &ProfileCache{entries: make(map[string]*graph.Profile)}
}

// Len returns the number of cached profiles.
func (c *ProfileCache) Len() int { return len(c.entries) }

// Get looks up a profile by cache key. Safe for concurrent readers as long
// as no writer is active; the build only writes before and after sampling.
func (c *ProfileCache) Get(key string) (*graph.Profile, bool) {
	p, ok := c.entries[key]
	return p, ok
}

// Put stores a profile under the given key.
func (c *ProfileCache) Put(key string, p *graph.Profile) {
	c.entries[key] = p
}

// CacheKey returns the lossy polyline encoding of a geometry.
func CacheKey(geom orb.LineString) string {
	coords := make([][]float64, len(geom))
	for i, p := range geom {
		coords[i] = []float64{p.Lat(), p.Lon()}
	}
	return string(polyline.EncodeCoords(coords))
}

// WriteProfileCache serializes the cache to a binary file, written to a
// temp path and renamed into place.
func WriteProfileCache(path string, c *ProfileCache) error {
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

	var magic [8]byte
	copy(magic[:], cacheMagic)
	if err := binary.Write(w, binary.LittleEndian, magic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, cacheVersion); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.entries))); err != nil {
		return fmt.Errorf("write entry count: %w", err)
	}

	for key, p := range c.entries {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(key))); err != nil {
			return fmt.Errorf("write key length: %w", err)
		}
		if _, err := w.Write([]byte(key)); err != nil {
			return fmt.Errorf("write key: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(p.Len())); err != nil {
			return fmt.Errorf("write sample count: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, p.Dist); err != nil {
			return fmt.Errorf("write distances: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, p.Elev); err != nil {
			return fmt.Errorf("write elevations: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadProfileCache deserializes a cache file written by WriteProfileCache.
func ReadProfileCache(path string) (*ProfileCache, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	crcReader := crc32Reader{r: br, hash: crc32.NewIEEE()}
	r := &crcReader

	var magic [8]byte
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic[:]) != cacheMagic {
		return nil, fmt.Errorf("invalid magic bytes: %q", magic)
	}
	var ver uint32
	if err := binary.Read(r, binary.LittleEndian, &ver); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if ver != cacheVersion {
		return nil, fmt.Errorf("unsupported version: %d", ver)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read entry count: %w", err)
	}
	if count > maxEntries {
		return nil, fmt.Errorf("entry count %d exceeds limit %d", count, maxEntries)
	}

	c := &ProfileCache{entries: make(map[string]*graph.Profile, count)}
	for i := uint32(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
			return nil, fmt.Errorf("entry %d: read key length: %w", i, err)
		}
		if keyLen == 0 || keyLen > maxKeyLen {
			return nil, fmt.Errorf("entry %d: key length %d out of range", i, keyLen)
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, fmt.Errorf("entry %d: read key: %w", i, err)
		}
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("entry %d: read sample count: %w", i, err)
		}
		if n < 2 || n > maxSamples {
			return nil, fmt.Errorf("entry %d: sample count %d out of range", i, n)
		}
		p := &graph.Profile{
			Dist: make([]float64, n),
			Elev: make([]float64, n),
		}
		if err := binary.Read(r, binary.LittleEndian, p.Dist); err != nil {
			return nil, fmt.Errorf("entry %d: read distances: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, p.Elev); err != nil {
			return nil, fmt.Errorf("entry %d: read elevations: %w", i, err)
		}
		c.entries[string(key)] = p
	}

	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(br, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	return c, nil
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
