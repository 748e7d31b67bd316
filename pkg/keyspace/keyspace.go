// Package keyspace models inclusive ranges of candidate private key scalars
// and splits them into contiguous chunks for parallel workers.
package keyspace

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Errors
var (
	ErrMalformedRange    = errors.New("range must be two hex values separated by a comma")
	ErrInvalidBound      = errors.New("range bound is not valid hex")
	ErrStartAfterEnd     = errors.New("range start is greater than range end")
	ErrBoundTooLarge     = errors.New("range bound does not fit in 128 bits")
	ErrInvalidChunkCount = errors.New("chunk count must be at least 1")
)

// MaxValue is the largest scalar a KeyRange may hold (2^128 - 1).
var MaxValue = uint256.Int{^uint64(0), ^uint64(0), 0, 0}

// KeyRange is an inclusive interval [Start, End] of scalar values.
type KeyRange struct {
	Start uint256.Int
	End   uint256.Int

	empty bool // degenerate chunk produced by Divide
}

// New builds a validated KeyRange from its bounds.
func New(start, end *uint256.Int) (KeyRange, error) {
	if start.Gt(&MaxValue) || end.Gt(&MaxValue) {
		return KeyRange{}, ErrBoundTooLarge
	}
	if start.Gt(end) {
		return KeyRange{}, ErrStartAfterEnd
	}
	return KeyRange{Start: *start, End: *end}, nil
}

// FromUint64 is a convenience constructor for small ranges.
func FromUint64(start, end uint64) (KeyRange, error) {
	return New(uint256.NewInt(start), uint256.NewInt(end))
}

// ParseKeyRange parses "start,end" where both bounds are hexadecimal,
// optionally 0x-prefixed.
func ParseKeyRange(s string) (KeyRange, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return KeyRange{}, ErrMalformedRange
	}

	start, err := parseBound(parts[0])
	if err != nil {
		return KeyRange{}, fmt.Errorf("start %q: %w", strings.TrimSpace(parts[0]), err)
	}
	end, err := parseBound(parts[1])
	if err != nil {
		return KeyRange{}, fmt.Errorf("end %q: %w", strings.TrimSpace(parts[1]), err)
	}
	return New(start, end)
}

func parseBound(s string) (*uint256.Int, error) {
	h := strings.TrimSpace(s)
	if len(h) >= 2 && (h[0:2] == "0x" || h[0:2] == "0X") {
		h = h[2:]
	}
	if h == "" {
		return nil, ErrInvalidBound
	}
	b, ok := new(big.Int).SetString(h, 16)
	if !ok || b.Sign() < 0 {
		return nil, ErrInvalidBound
	}
	v, overflow := uint256.FromBig(b)
	if overflow || v.Gt(&MaxValue) {
		return nil, ErrBoundTooLarge
	}
	return v, nil
}

// Empty reports whether the range holds no values.
func (r KeyRange) Empty() bool {
	return r.empty || r.Start.Gt(&r.End)
}

// Cardinality returns End-Start+1, or zero for an empty range. It reaches
// 2^128 for the full range.
func (r KeyRange) Cardinality() *uint256.Int {
	if r.Empty() {
		return new(uint256.Int)
	}
	n := new(uint256.Int).Sub(&r.End, &r.Start)
	return n.AddUint64(n, 1)
}

// Contains reports whether v lies inside the range.
func (r KeyRange) Contains(v *uint256.Int) bool {
	if r.Empty() {
		return false
	}
	return !v.Lt(&r.Start) && !v.Gt(&r.End)
}

func (r KeyRange) String() string {
	if r.Empty() {
		return "(empty)"
	}
	return r.Start.Hex() + ":" + r.End.Hex()
}

// Divide splits r into n contiguous, disjoint, ascending chunks whose union is
// exactly r. Every chunk holds card/n values except the last, which absorbs the
// remainder. When n exceeds the cardinality the chunk size is zero, so every
// chunk but the last is empty; callers drop those with NonEmpty.
func Divide(r KeyRange, n int) ([]KeyRange, error) {
	if n < 1 {
		return nil, ErrInvalidChunkCount
	}
	if r.Empty() {
		return nil, ErrStartAfterEnd
	}

	count := uint256.NewInt(uint64(n))
	size := new(uint256.Int).Div(r.Cardinality(), count)

	chunks := make([]KeyRange, n)
	for i := 0; i < n; i++ {
		offset := new(uint256.Int).Mul(size, uint256.NewInt(uint64(i)))
		start := new(uint256.Int).Add(&r.Start, offset)

		if i == n-1 {
			chunks[i] = KeyRange{Start: *start, End: r.End}
			continue
		}
		if size.IsZero() {
			chunks[i] = KeyRange{Start: *start, End: *start, empty: true}
			continue
		}
		end := new(uint256.Int).Add(start, size)
		end.SubUint64(end, 1)
		chunks[i] = KeyRange{Start: *start, End: *end}
	}
	return chunks, nil
}

// NonEmpty returns the chunks that hold at least one value, preserving order.
func NonEmpty(chunks []KeyRange) []KeyRange {
	out := make([]KeyRange, 0, len(chunks))
	for _, c := range chunks {
		if !c.Empty() {
			out = append(out, c)
		}
	}
	return out
}
