package sampler

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screa/keyhunter/pkg/keyspace"
	"github.com/screa/keyhunter/pkg/types"
)

func chunk(t *testing.T, start, end uint64) keyspace.KeyRange {
	t.Helper()
	r, err := keyspace.FromUint64(start, end)
	require.NoError(t, err)
	return r
}

func seed(b byte) *[32]byte {
	var s [32]byte
	s[0] = b
	return &s
}

func TestSequentialYieldsEveryKeyOnce(t *testing.T) {
	s, err := New(types.Sequential, chunk(t, 0x1, 0x14), Options{})
	require.NoError(t, err)

	var got []uint64
	var v uint256.Int
	for s.Next(&v) {
		got = append(got, v.Uint64())
	}
	require.Len(t, got, 20)
	for i, g := range got {
		assert.Equal(t, uint64(i+1), g)
	}

	assert.False(t, s.Next(&v), "an exhausted sampler stays exhausted")
}

func TestSequentialAtUpperBound(t *testing.T) {
	start := new(uint256.Int).SubUint64(&keyspace.MaxValue, 2)
	r, err := keyspace.New(start, &keyspace.MaxValue)
	require.NoError(t, err)

	s := NewSequential(r)
	var v uint256.Int
	n := 0
	for s.Next(&v) {
		n++
	}
	assert.Equal(t, 3, n)
	assert.True(t, v.Eq(&keyspace.MaxValue))
}

func TestNewRejectsEmptyChunk(t *testing.T) {
	chunks, err := keyspace.Divide(chunk(t, 1, 2), 4)
	require.NoError(t, err)
	_, err = New(types.Sequential, chunks[0], Options{})
	assert.ErrorIs(t, err, ErrEmptyChunk)
}

func TestRandomStaysInChunkAndRunsCardinalitySlots(t *testing.T) {
	c := chunk(t, 1000, 1999)
	s, err := New(types.Random, c, Options{FPRate: 1e-9, Seed: seed(1)})
	require.NoError(t, err)

	var v uint256.Int
	slots := 0
	seen := make(map[uint64]int)
	for s.Next(&v) {
		require.True(t, c.Contains(&v), "draw %d outside chunk", v.Uint64())
		seen[v.Uint64()]++
		slots++
	}
	assert.Equal(t, 1000, slots, "outer loop runs exactly card slots")
	for k, n := range seen {
		assert.Equal(t, 1, n, "key %d yielded twice", k)
	}
}

func TestRandomAcceptanceRate(t *testing.T) {
	const (
		card  = 1 << 20
		draws = 5000
		fp    = 0.01
	)
	c := chunk(t, 1, card)

	for trial := byte(0); trial < 5; trial++ {
		s, err := New(types.Random, c, Options{FPRate: fp, Seed: seed(trial + 10)})
		require.NoError(t, err)
		r := s.(*Random)

		var v uint256.Int
		for i := 0; i < draws; i++ {
			require.True(t, r.Next(&v))
		}
		total := r.Accepted() + r.Rejected()
		rate := float64(r.Accepted()) / float64(total)
		assert.GreaterOrEqual(t, rate, 1-fp-0.005, "trial %d acceptance rate %.4f", trial, rate)
	}
}

func TestRandomFullWidthChunk(t *testing.T) {
	r, err := keyspace.New(new(uint256.Int), &keyspace.MaxValue)
	require.NoError(t, err)

	s, err := New(types.Random, r, Options{MaxFilterEntries: 1 << 10, Seed: seed(7)})
	require.NoError(t, err)

	var v uint256.Int
	highBits := false
	for i := 0; i < 64; i++ {
		require.True(t, s.Next(&v))
		require.True(t, r.Contains(&v))
		if v[1] != 0 {
			highBits = true
		}
	}
	assert.True(t, highBits, "draws should reach the upper 64 bits")
}

func TestRandomHonoursStop(t *testing.T) {
	// A single-key chunk: the second slot can only ever redraw the seen key.
	c := chunk(t, 5, 5)
	stopped := false
	s, err := New(types.Random, c, Options{Seed: seed(3), Stop: func() bool { return stopped }})
	require.NoError(t, err)

	var v uint256.Int
	require.True(t, s.Next(&v))
	assert.Equal(t, uint64(5), v.Uint64())
	assert.False(t, s.Next(&v), "one slot for one key")

	// Give a two-key chunk a third slot so it can only redraw seen keys.
	c = chunk(t, 5, 6)
	s, err = New(types.Random, c, Options{FPRate: 1e-9, Seed: seed(4), Stop: func() bool { return stopped }})
	require.NoError(t, err)
	r := s.(*Random)
	r.remaining.SetUint64(3)

	require.True(t, r.Next(&v))
	require.True(t, r.Next(&v))
	stopped = true
	assert.False(t, r.Next(&v), "stop must break the redraw loop")
}

func TestDedupFilterFalsePositiveRate(t *testing.T) {
	const (
		n  = 20000
		fp = 0.01
	)
	f := NewDedupFilter(n, fp)

	var v uint256.Int
	for i := uint64(0); i < n; i++ {
		v.SetUint64(i)
		f.TestAndAdd(&v)
	}

	falsePositives := 0
	for i := uint64(n); i < 2*n; i++ {
		v.SetUint64(i)
		if f.Seen(&v) {
			falsePositives++
		}
	}
	rate := float64(falsePositives) / n
	assert.Less(t, rate, 3*fp, "observed false-positive rate %.4f", rate)

	v.SetUint64(42)
	assert.True(t, f.TestAndAdd(&v), "a recorded value is always reported as seen")
	assert.NotZero(t, f.Bits())
}

func TestRandomCappedFilterKeepsAccepting(t *testing.T) {
	const (
		capacity = 64
		fp       = 0.01
		slots    = capacity * 200
	)
	s, err := New(types.Random, chunk(t, 0, 1<<20-1), Options{
		FPRate:           fp,
		MaxFilterEntries: capacity,
		Seed:             seed(9),
	})
	require.NoError(t, err)
	r := s.(*Random)
	require.True(t, r.Capped())

	var v uint256.Int
	for i := 0; i < slots; i++ {
		require.True(t, r.Next(&v))
	}

	rate := float64(r.Accepted()) / float64(r.Accepted()+r.Rejected())
	assert.GreaterOrEqual(t, rate, 1-2*fp, "acceptance rate %.4f after %d times the capacity", rate, slots/capacity)
	assert.Equal(t, uint64(slots/capacity-1), r.Rotations())
}

func TestFilterCapacity(t *testing.T) {
	wide, err := keyspace.New(new(uint256.Int), &keyspace.MaxValue)
	require.NoError(t, err)

	tests := []struct {
		name        string
		chunk       keyspace.KeyRange
		maxEntries  uint64
		wantEntries uint64
		wantCapped  bool
	}{
		{name: "small chunk", chunk: chunk(t, 1, 100), maxEntries: 1000, wantEntries: 100},
		{name: "chunk equal to cap", chunk: chunk(t, 1, 1000), maxEntries: 1000, wantEntries: 1000},
		{name: "chunk above cap", chunk: chunk(t, 1, 1001), maxEntries: 1000, wantEntries: 1000, wantCapped: true},
		{name: "wide chunk with default cap", chunk: wide, wantEntries: types.DefaultMaxFilterEntries, wantCapped: true},
		{name: "small chunk with default cap", chunk: chunk(t, 1, 10), wantEntries: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, capped := FilterCapacity(tt.chunk, tt.maxEntries)
			assert.Equal(t, tt.wantEntries, entries)
			assert.Equal(t, tt.wantCapped, capped)
		})
	}
}

func TestRandomWideChunkWithoutOptions(t *testing.T) {
	wide, err := keyspace.New(new(uint256.Int), &keyspace.MaxValue)
	require.NoError(t, err)

	s, err := New(types.Random, wide, Options{Seed: seed(11)})
	require.NoError(t, err)
	r := s.(*Random)

	assert.Equal(t, uint64(types.DefaultMaxFilterEntries), r.capacity)
	assert.Greater(t, r.filter.Bits(), uint(1<<20), "filter must be sized for the default cap")
}
