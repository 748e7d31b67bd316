// Package sampler produces the candidate scalars a worker tests within its
// chunk, either every value in order or uniform random draws de-duplicated
// by a per-worker Bloom filter.
package sampler

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/screa/keyhunter/pkg/keyspace"
	"github.com/screa/keyhunter/pkg/types"
)

// ErrEmptyChunk is returned when a sampler is asked to walk an empty chunk.
var ErrEmptyChunk = errors.New("chunk holds no keys")

// Sampler yields candidate values one at a time.
type Sampler interface {
	// Next writes the next candidate into dst. It returns false once the
	// sampler has no more slots for this chunk.
	Next(dst *uint256.Int) bool
	// Close zeroes any candidate material the sampler still holds.
	Close()
}

// Options tune the random sampler. Sequential sampling ignores them.
type Options struct {
	FPRate           float64
	MaxFilterEntries uint64
	// Seed fixes the PRNG stream; nil seeds from crypto/rand.
	Seed *[32]byte
	// Stop is polled while redrawing duplicates so a cancelled run is not
	// stuck inside one slot. May be nil.
	Stop func() bool
}

// New returns the sampler for mode over chunk.
func New(mode types.Mode, chunk keyspace.KeyRange, opts Options) (Sampler, error) {
	if chunk.Empty() {
		return nil, ErrEmptyChunk
	}

	switch mode {
	case types.Sequential:
		return NewSequential(chunk), nil
	case types.Random:
		seed := opts.Seed
		if seed == nil {
			seed = new([32]byte)
			if _, err := rand.Read(seed[:]); err != nil {
				return nil, fmt.Errorf("seed random sampler: %w", err)
			}
		}
		return NewRandom(chunk, opts, *seed), nil
	default:
		return nil, fmt.Errorf("unsupported mode %v", mode)
	}
}

// Sequential walks a chunk from Start to End inclusive.
type Sequential struct {
	next uint256.Int
	end  uint256.Int
	done bool
}

// NewSequential creates an ascending sampler over chunk.
func NewSequential(chunk keyspace.KeyRange) *Sequential {
	return &Sequential{
		next: chunk.Start,
		end:  chunk.End,
		done: chunk.Empty(),
	}
}

func (s *Sequential) Next(dst *uint256.Int) bool {
	if s.done {
		return false
	}
	dst.Set(&s.next)
	if s.next.Eq(&s.end) {
		s.done = true
	} else {
		s.next.AddUint64(&s.next, 1)
	}
	return true
}

func (s *Sequential) Close() {
	s.next.Clear()
	s.done = true
}
