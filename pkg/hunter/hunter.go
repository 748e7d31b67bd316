package hunter

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/screa/keyhunter/internal/crypto"
	"github.com/screa/keyhunter/internal/logger"
	"github.com/screa/keyhunter/pkg/keyspace"
	"github.com/screa/keyhunter/pkg/sampler"
	"github.com/screa/keyhunter/pkg/types"
	"github.com/screa/keyhunter/pkg/worker"
)

// Errors
var (
	ErrInvalidWorkers = errors.New("worker count must be at least 1")
	ErrEmptyRange     = errors.New("key range is empty")
	ErrAlreadyStarted = errors.New("hunter has already been run")
)

// DeriverFactory returns a fresh Deriver for one worker.
type DeriverFactory func() (crypto.Deriver, error)

// Option customizes a Hunter.
type Option func(*Hunter)

// WithDeriverFactory replaces the deriver built from SearchConfig.AddressKind.
func WithDeriverFactory(f DeriverFactory) Option {
	return func(h *Hunter) { h.newDeriver = f }
}

// WithProgressSink sends progress samples to sink instead of the logger.
func WithProgressSink(sink ProgressSink) Option {
	return func(h *Hunter) { h.sink = sink }
}

// WithSeed makes random-mode draws reproducible. Each worker mixes its ID
// into the seed so chunks do not share a stream.
func WithSeed(seed [32]byte) Option {
	return func(h *Hunter) { h.seed = &seed }
}

// Hunter coordinates one search run: it splits the keyspace, runs one worker
// per chunk plus a progress reporter, and resolves the outcome.
type Hunter struct {
	config     *types.SearchConfig
	logger     *logger.Logger
	state      *types.SearchState
	newDeriver DeriverFactory
	sink       ProgressSink
	seed       *[32]byte
	started    atomic.Bool
}

// NewHunter validates cfg and prepares a run. The target is normalized by
// the configured deriver so it compares equal to derived addresses.
func NewHunter(cfg *types.SearchConfig, log *logger.Logger, opts ...Option) (*Hunter, error) {
	if cfg.Workers < 1 {
		return nil, ErrInvalidWorkers
	}
	if cfg.Range.Empty() {
		return nil, ErrEmptyRange
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = types.DefaultFlushInterval
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = types.DefaultReportInterval
	}
	if cfg.FilterFPRate <= 0 || cfg.FilterFPRate >= 1 {
		cfg.FilterFPRate = types.DefaultFilterFPRate
	}
	if cfg.MaxFilterEntries == 0 {
		cfg.MaxFilterEntries = types.DefaultMaxFilterEntries
	}
	if log == nil {
		log = logger.Discard()
	}
	if cfg.Verbose {
		log.SetVerbose(true)
	}

	h := &Hunter{
		config: cfg,
		logger: log,
	}
	kind := cfg.AddressKind
	h.newDeriver = func() (crypto.Deriver, error) { return crypto.NewDeriver(kind) }
	for _, opt := range opts {
		opt(h)
	}
	if h.sink == nil {
		h.sink = LogSink(log)
	}

	d, err := h.newDeriver()
	if err != nil {
		return nil, err
	}
	target, err := d.NormalizeTarget(cfg.Target)
	if err != nil {
		return nil, err
	}
	h.state = types.NewSearchState(target)
	return h, nil
}

// Target returns the normalized target address.
func (h *Hunter) Target() string {
	return h.state.Target()
}

// Tested returns the shared tested-count.
func (h *Hunter) Tested() uint64 {
	return h.state.Tested()
}

// Stop asks every worker to finish its current candidate and return. It is
// safe to call at any time and more than once.
func (h *Hunter) Stop() {
	h.state.Stop()
}

// Run searches until a match is found, every chunk is exhausted, or ctx is
// cancelled. A worker failure is returned as an error alongside the outcome.
func (h *Hunter) Run(ctx context.Context) (*types.Outcome, error) {
	if !h.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}
	start := time.Now()

	chunks, err := keyspace.Divide(h.config.Range, h.config.Workers)
	if err != nil {
		return nil, err
	}
	chunks = keyspace.NonEmpty(chunks)

	// Build every worker before launching any, so a setup failure aborts
	// before the search begins.
	workers := make([]*worker.Worker, len(chunks))
	for i, chunk := range chunks {
		w, err := h.newWorker(i, chunk)
		if err != nil {
			return nil, fmt.Errorf("start worker %d: %w", i, err)
		}
		workers[i] = w
	}

	h.logger.Printf("Searching %s (%s mode) with %d workers for %s",
		h.config.Range, h.config.Mode, len(workers), h.state.Target())
	if h.config.Mode == types.Random {
		// The last chunk is the largest.
		if entries, capped := sampler.FilterCapacity(chunks[len(chunks)-1], h.config.MaxFilterEntries); capped {
			h.logger.Verbosef("Dedup filter capped at %d entries per worker; it is cleared each time it fills", entries)
		}
	}

	stopOnCancel := context.AfterFunc(ctx, h.Stop)
	defer stopOnCancel()

	done := make(chan struct{})
	reporterDone := make(chan struct{})
	reporter := NewReporter(h.state, h.config.ReportInterval, h.sink)
	go func() {
		defer close(reporterDone)
		reporter.Run(done)
	}()

	reports := make(chan types.WorkerReport, len(workers))
	var g errgroup.Group
	for _, w := range workers {
		g.Go(func() error {
			report := w.Run()
			if report.Err != nil {
				h.state.Stop()
			}
			reports <- report
			return report.Err
		})
	}

	exhausted := 0
	for range workers {
		report := <-reports
		if report.Exhausted {
			exhausted++
		}
		h.logger.Verbosef("Worker %d finished %s: tested %d, matched %t, exhausted %t",
			report.WorkerID, report.Chunk, report.Tested, report.Matched, report.Exhausted)
	}
	runErr := g.Wait()

	close(done)
	<-reporterDone

	outcome := &types.Outcome{
		Tested:   h.state.Tested(),
		Duration: time.Since(start),
	}
	switch {
	case h.state.Found():
		outcome.Status = types.StatusFound
		outcome.Result = h.state.Result()
	case exhausted == len(workers):
		outcome.Status = types.StatusNotFound
	default:
		outcome.Status = types.StatusInterrupted
	}
	return outcome, runErr
}

func (h *Hunter) newWorker(id int, chunk keyspace.KeyRange) (*worker.Worker, error) {
	d, err := h.newDeriver()
	if err != nil {
		return nil, err
	}
	s, err := sampler.New(h.config.Mode, chunk, sampler.Options{
		FPRate:           h.config.FilterFPRate,
		MaxFilterEntries: h.config.MaxFilterEntries,
		Seed:             h.seedFor(id),
		Stop:             h.state.ShouldStop,
	})
	if err != nil {
		return nil, err
	}

	cfg := &types.WorkerConfig{
		ID:            id,
		Chunk:         chunk,
		Target:        h.state.Target(),
		Verbose:       h.config.Verbose,
		FlushInterval: h.config.FlushInterval,
	}
	return worker.NewWorker(cfg, h.state, d, s, h.logger), nil
}

func (h *Hunter) seedFor(id int) *[32]byte {
	if h.seed == nil {
		return nil
	}
	s := *h.seed
	mix := binary.BigEndian.Uint64(s[24:]) ^ uint64(id)
	binary.BigEndian.PutUint64(s[24:], mix)
	return &s
}
