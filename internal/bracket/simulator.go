package bracket

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Progress is reported to a ProgressObserver as trials complete
type Progress struct {
	Percent   int `json:"percent"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// ProgressObserver is called whenever the completed percentage changes. Calls
// are serialized and never affect results.
type ProgressObserver func(Progress)

// Options tunes a run. Zero values pick defaults.
type Options struct {
	Trials   int
	Workers  int
	Seed     uint64
	Streams  Streams
	Observer ProgressObserver
	Logger   *logrus.Logger
}

// Simulator runs full-bracket Monte Carlo trials over a Field
type Simulator struct {
	field  *Field
	series SeriesSimulator
	opts   Options
}

// NewSimulator creates a simulator. A zero Seed is replaced with a time based
// one; the seed actually used is reported in the Result.
func NewSimulator(field *Field, opts Options) *Simulator {
	if opts.Trials <= 0 {
		opts.Trials = DefaultTrials
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Workers > opts.Trials {
		opts.Workers = opts.Trials
	}
	if opts.Streams == nil {
		if opts.Seed == 0 {
			opts.Seed = NewSeed()
		}
		opts.Streams = PCGStreams{Seed: opts.Seed}
	}
	return &Simulator{
		field:  field,
		series: NewSeriesSimulator(field.config),
		opts:   opts,
	}
}

// Field returns the simulator's field
func (s *Simulator) Field() *Field {
	return s.field
}

// Run plays every trial and returns normalized per-team outcomes. Trials are
// split into contiguous blocks, one per worker; each worker sums into its own
// accumulator and the blocks are merged once the worker is done.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	startTime := time.Now()
	trials, workers := s.opts.Trials, s.opts.Workers

	if s.opts.Logger != nil {
		s.opts.Logger.WithFields(logrus.Fields{
			"teams":   s.field.Len(),
			"trials":  trials,
			"workers": workers,
			"seed":    s.opts.Seed,
			"policy":  s.field.config.Policy.String(),
		}).Info("Starting playoff simulation")
	}

	total := NewAccumulator(s.field.Len())
	var mu sync.Mutex
	tracker := newProgressTracker(trials, s.opts.Observer)

	g, gctx := errgroup.WithContext(ctx)
	batchSize := trials / workers
	remainder := trials % workers
	next := 0
	for w := 0; w < workers; w++ {
		size := batchSize
		if w < remainder {
			size++
		}
		first, last := next, next+size
		next = last

		g.Go(func() error {
			local := NewAccumulator(s.field.Len())
			for i := first; i < last; i++ {
				if (i-first)%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if _, err := s.PlayTrial(s.opts.Streams.Trial(uint64(i)), local); err != nil {
					return fmt.Errorf("trial %d: %w", i, err)
				}
				tracker.advance()
			}
			mu.Lock()
			total.Merge(local)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := newResult(s.field, total, trials)
	result.Seed = s.opts.Seed
	result.Workers = workers
	result.Duration = time.Since(startTime)

	if s.opts.Logger != nil {
		s.opts.Logger.WithFields(logrus.Fields{
			"trials":         trials,
			"execution_time": result.Duration,
		}).Info("Playoff simulation completed")
	}
	return result, nil
}

type progressTracker struct {
	mu        sync.Mutex
	completed int
	total     int
	last      int
	observe   ProgressObserver
}

func newProgressTracker(total int, observe ProgressObserver) *progressTracker {
	return &progressTracker{total: total, last: -1, observe: observe}
}

func (p *progressTracker) advance() {
	if p.observe == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	pct := p.completed * 100 / p.total
	if pct != p.last {
		p.last = pct
		p.observe(Progress{Percent: pct, Completed: p.completed, Total: p.total})
	}
}
