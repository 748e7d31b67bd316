package worker

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/screa/keyhunter/internal/crypto"
	"github.com/screa/keyhunter/internal/logger"
	"github.com/screa/keyhunter/pkg/sampler"
	"github.com/screa/keyhunter/pkg/types"
)

// Worker tests the candidates of one chunk against the target address
type Worker struct {
	config  *types.WorkerConfig
	state   *types.SearchState
	deriver crypto.Deriver
	sampler sampler.Sampler
	logger  *logger.Logger

	// Pre-allocated buffers for the hot path
	value  uint256.Int
	keyBuf [crypto.KeySize]byte

	unflushed uint64
	tested    uint64
}

// NewWorker creates a new worker instance. The deriver and sampler belong to
// this worker alone.
func NewWorker(config *types.WorkerConfig, state *types.SearchState, d crypto.Deriver, s sampler.Sampler, log *logger.Logger) *Worker {
	if config.FlushInterval == 0 {
		config.FlushInterval = types.DefaultFlushInterval
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Worker{
		config:  config,
		state:   state,
		deriver: d,
		sampler: s,
		logger:  log,
	}
}

// Run walks the chunk until it is exhausted, the target is matched, or the
// shared state asks every worker to stop. The found flag is checked before
// each candidate, never in the middle of a derivation.
func (w *Worker) Run() types.WorkerReport {
	report := types.WorkerReport{
		WorkerID: w.config.ID,
		Chunk:    w.config.Chunk,
	}
	defer w.release()

	for {
		if w.state.ShouldStop() {
			break
		}
		if !w.sampler.Next(&w.value) {
			report.Exhausted = !w.state.ShouldStop()
			break
		}
		w.value.WriteToArray32(&w.keyBuf)
		w.count()

		address, err := w.deriver.Derive(&w.keyBuf)
		if err != nil {
			if errors.Is(err, crypto.ErrInvalidScalar) {
				continue
			}
			report.Err = fmt.Errorf("worker %d: derive key %s: %w", w.config.ID, crypto.KeyHex(&w.keyBuf), err)
			break
		}

		if w.config.Verbose {
			w.logger.Printf("Testing key: %s -> Address: %s", crypto.KeyHex(&w.keyBuf), address)
		}

		if address == w.config.Target {
			report.Matched = w.state.MarkFound(&types.Result{
				Key:      w.keyBuf,
				Address:  address,
				WorkerID: w.config.ID,
			})
			break
		}
	}

	w.flush()
	report.Tested = w.tested
	return report
}

// count records one processed candidate, publishing a batch every
// FlushInterval candidates with a single atomic add.
func (w *Worker) count() {
	w.tested++
	w.unflushed++
	if w.unflushed >= w.config.FlushInterval {
		w.flush()
	}
}

func (w *Worker) flush() {
	w.state.AddTested(w.unflushed)
	w.unflushed = 0
}

// release zeroes key material once the worker is done with it.
func (w *Worker) release() {
	clear(w.keyBuf[:])
	w.value.Clear()
	w.sampler.Close()
}
