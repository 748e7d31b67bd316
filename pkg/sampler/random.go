package sampler

import (
	mrand "math/rand/v2"

	"github.com/holiman/uint256"
	"github.com/screa/keyhunter/pkg/keyspace"
	"github.com/screa/keyhunter/pkg/types"
)

// stopCheckEvery is how many rejected draws pass between Stop polls.
const stopCheckEvery = 1024

// Random draws uniformly from a chunk for exactly Cardinality slots. A draw
// the filter has already seen is redrawn, so one slot can take any number
// of draws. Filter false positives skip keys for good, so a run is not
// guaranteed to cover the chunk.
//
// When the chunk holds more keys than the filter capacity, the filter only
// remembers recent draws: it is cleared each time it has taken capacity
// entries, which keeps its false-positive rate at or below the configured one.
type Random struct {
	start     uint256.Int
	card      uint256.Int
	remaining uint256.Int
	mask      [2]uint64

	rng    *mrand.ChaCha8
	filter *DedupFilter
	stop   func() bool

	capacity  uint64
	capped    bool
	inFilter  uint64
	rotations uint64

	draw     uint256.Int
	accepted uint64
	rejected uint64
}

// NewRandom creates a random sampler over chunk seeded with seed.
func NewRandom(chunk keyspace.KeyRange, opts Options, seed [32]byte) *Random {
	card := chunk.Cardinality()

	fp := opts.FPRate
	if fp <= 0 || fp >= 1 {
		fp = types.DefaultFilterFPRate
	}
	entries, capped := FilterCapacity(chunk, opts.MaxFilterEntries)

	r := &Random{
		start:     chunk.Start,
		card:      *card,
		remaining: *card,
		rng:       mrand.NewChaCha8(seed),
		filter:    NewDedupFilter(entries, fp),
		stop:      opts.Stop,
		capacity:  entries,
		capped:    capped,
	}

	// Mask draws to the bit length of card-1 so rejection sampling accepts
	// at least half of all draws.
	bits := new(uint256.Int).SubUint64(card, 1).BitLen()
	r.mask[0] = lowMask(bits)
	if bits > 64 {
		r.mask[1] = lowMask(bits - 64)
	}
	return r
}

// FilterCapacity returns the dedup filter size used for chunk: its
// cardinality, limited to maxEntries (zero selects the default). capped is
// true when the chunk holds more keys than the filter.
func FilterCapacity(chunk keyspace.KeyRange, maxEntries uint64) (entries uint64, capped bool) {
	if maxEntries == 0 {
		maxEntries = types.DefaultMaxFilterEntries
	}
	card := chunk.Cardinality()
	if card.IsUint64() && card.Uint64() <= maxEntries {
		return card.Uint64(), false
	}
	return maxEntries, true
}

func lowMask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}

// offset writes a uniform value in [0, card) into dst.
func (r *Random) offset(dst *uint256.Int) {
	for {
		dst[0] = r.rng.Uint64() & r.mask[0]
		dst[1] = r.rng.Uint64() & r.mask[1]
		dst[2], dst[3] = 0, 0
		if dst.Lt(&r.card) {
			return
		}
	}
}

func (r *Random) Next(dst *uint256.Int) bool {
	if r.remaining.IsZero() {
		return false
	}
	r.remaining.SubUint64(&r.remaining, 1)

	if r.capped && r.inFilter >= r.capacity {
		r.filter.Reset()
		r.inFilter = 0
		r.rotations++
	}

	for {
		r.offset(&r.draw)
		r.draw.Add(&r.draw, &r.start)
		if !r.filter.TestAndAdd(&r.draw) {
			break
		}
		r.rejected++
		if r.stop != nil && r.rejected%stopCheckEvery == 0 && r.stop() {
			r.remaining.Clear()
			return false
		}
	}

	r.accepted++
	r.inFilter++
	dst.Set(&r.draw)
	return true
}

// Accepted returns how many draws passed the filter.
func (r *Random) Accepted() uint64 { return r.accepted }

// Rejected returns how many draws the filter reported as already seen.
func (r *Random) Rejected() uint64 { return r.rejected }

// Capped reports whether the chunk is larger than the filter capacity, so
// the filter is periodically cleared.
func (r *Random) Capped() bool { return r.capped }

// Rotations returns how many times the filter has been cleared.
func (r *Random) Rotations() uint64 { return r.rotations }

func (r *Random) Close() {
	r.draw.Clear()
	r.remaining.Clear()
	r.filter = nil
}
