package hunter

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/screa/keyhunter/internal/logger"
	"github.com/screa/keyhunter/pkg/types"
)

// Progress is one throughput sample.
type Progress struct {
	Tested  uint64        // shared tested-count at sample time
	Delta   uint64        // keys tested since the previous sample
	Rate    float64       // Delta per second over the sample window
	Elapsed time.Duration // since the reporter started
	Final   bool          // last sample, taken when the run ends
}

// ProgressSink receives progress samples.
type ProgressSink func(Progress)

// LogSink writes samples through log, in place when it is a terminal.
func LogSink(log *logger.Logger) ProgressSink {
	return func(p Progress) {
		log.Progressf("Total: %s keys, %s keys/s",
			humanize.Comma(int64(p.Tested)), humanize.Comma(int64(p.Rate)))
	}
}

// Reporter samples the tested-count on a fixed interval and turns the delta
// between samples into an approximate throughput.
type Reporter struct {
	state    *types.SearchState
	interval time.Duration
	sink     ProgressSink

	start  time.Time
	last   uint64
	lastAt time.Time
}

// NewReporter creates a reporter for state.
func NewReporter(state *types.SearchState, interval time.Duration, sink ProgressSink) *Reporter {
	if interval <= 0 {
		interval = types.DefaultReportInterval
	}
	now := time.Now()
	return &Reporter{
		state:    state,
		interval: interval,
		sink:     sink,
		start:    now,
		lastAt:   now,
	}
}

// Run emits a sample every interval until done is closed, then emits one
// final sample and returns.
func (r *Reporter) Run(done <-chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			r.sink(r.Sample(now, false))
		case <-done:
			r.sink(r.Sample(time.Now(), true))
			return
		}
	}
}

// Sample reads the shared count and advances the sample window to now.
func (r *Reporter) Sample(now time.Time, final bool) Progress {
	tested := r.state.Tested()
	delta := tested - r.last
	window := now.Sub(r.lastAt)

	p := Progress{
		Tested:  tested,
		Delta:   delta,
		Elapsed: now.Sub(r.start),
		Final:   final,
	}
	if window > 0 {
		p.Rate = float64(delta) / window.Seconds()
	}

	r.last = tested
	r.lastAt = now
	return p
}
