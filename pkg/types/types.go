package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/screa/keyhunter/internal/crypto"
	"github.com/screa/keyhunter/pkg/keyspace"
)

// Mode selects how a worker walks its chunk.
type Mode int

const (
	Sequential Mode = iota // every key in ascending order, exactly once
	Random                 // uniform draws de-duplicated by a Bloom filter
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Random:
		return "random"
	default:
		return "unknown"
	}
}

// ParseMode resolves a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential", "exhaustive":
		return Sequential, nil
	case "random", "randomized":
		return Random, nil
	default:
		return 0, fmt.Errorf("unknown search mode %q", s)
	}
}

// Defaults for the core search.
const (
	DefaultFlushInterval    = 1000
	DefaultFilterFPRate     = 0.01
	DefaultMaxFilterEntries = 1 << 26
	DefaultReportInterval   = 30 * time.Second
)

// SearchConfig is the validated input of a search run.
type SearchConfig struct {
	Range       keyspace.KeyRange
	Target      string // normalized by the deriver before the search starts
	AddressKind crypto.Kind
	Workers     int
	Mode        Mode
	Verbose     bool

	FilterFPRate     float64 // Random mode only
	MaxFilterEntries uint64  // Random mode only; caps Bloom filter memory
	FlushInterval    uint64
	ReportInterval   time.Duration
}

// Result is a discovered key and its address.
type Result struct {
	Key      [crypto.KeySize]byte
	Address  string
	WorkerID int
}

// KeyHex returns the 64-char hex form of the key.
func (r *Result) KeyHex() string {
	return crypto.KeyHex(&r.Key)
}

// Status is the terminal state of a search.
type Status int

const (
	StatusFound       Status = iota // a worker matched the target
	StatusNotFound                  // every chunk was exhausted without a match
	StatusInterrupted               // stopped externally before either of the above
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not found"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Outcome is what a completed search run resolves to.
type Outcome struct {
	Status   Status
	Result   *Result // set only when Status is StatusFound
	Tested   uint64
	Duration time.Duration
}

// Rate returns the mean throughput over the whole run in keys per second.
func (o *Outcome) Rate() float64 {
	if o.Duration.Seconds() <= 0 {
		return 0
	}
	return float64(o.Tested) / o.Duration.Seconds()
}

// WorkerConfig contains configuration for individual workers
type WorkerConfig struct {
	ID            int
	Chunk         keyspace.KeyRange
	Target        string
	Verbose       bool
	FlushInterval uint64
}

// WorkerReport is the single message a worker sends when it stops.
type WorkerReport struct {
	WorkerID  int
	Chunk     keyspace.KeyRange
	Matched   bool
	Exhausted bool   // walked every slot of its chunk
	Tested    uint64 // candidates this worker processed
	Err       error
}
