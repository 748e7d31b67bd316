package sampler

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/willf/bloom"
)

// DedupFilter remembers which random draws a single worker has already
// tested. It is never shared, so two workers may test the same key.
type DedupFilter struct {
	bf  *bloom.BloomFilter
	buf [16]byte
}

// NewDedupFilter sizes a Bloom filter for n entries at false-positive rate fp.
func NewDedupFilter(n uint64, fp float64) *DedupFilter {
	if n == 0 {
		n = 1
	}
	return &DedupFilter{bf: bloom.NewWithEstimates(uint(n), fp)}
}

// TestAndAdd reports whether v was (probably) seen before and records it.
// Only the low 128 bits are hashed; key ranges never exceed them.
func (f *DedupFilter) TestAndAdd(v *uint256.Int) bool {
	return f.bf.TestAndAdd(f.encode(v))
}

// Seen reports whether v was (probably) recorded, without recording it.
func (f *DedupFilter) Seen(v *uint256.Int) bool {
	return f.bf.Test(f.encode(v))
}

func (f *DedupFilter) encode(v *uint256.Int) []byte {
	binary.BigEndian.PutUint64(f.buf[:8], v[1])
	binary.BigEndian.PutUint64(f.buf[8:], v[0])
	return f.buf[:]
}

// Reset forgets every recorded value.
func (f *DedupFilter) Reset() {
	f.bf.ClearAll()
}

// Bits returns the size of the underlying bit array.
func (f *DedupFilter) Bits() uint {
	return f.bf.Cap()
}
