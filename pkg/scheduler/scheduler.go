// Package scheduler repeats probe cycles at a fixed cadence until a cycle
// bound is reached or the context is cancelled.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/amirimatin/zkping/pkg/internal/logutil"
	"github.com/amirimatin/zkping/pkg/probe"
	"github.com/amirimatin/zkping/pkg/report"
)

// DefaultInterval is the pause between two cycles.
const DefaultInterval = time.Second

// State of the loop.
type State int32

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	if s == Terminated {
		return "terminated"
	}
	return "running"
}

// Engine runs one cycle. *probe.Engine satisfies it.
type Engine interface {
	RunCycle(ctx context.Context, seq uint64) probe.CycleReport
}

// Options configures a Scheduler.
type Options struct {
	// MaxCycles bounds the run; zero or negative means unbounded.
	MaxCycles int
	// Interval is the pause after each cycle. Defaults to DefaultInterval.
	Interval time.Duration
	Logger   *zap.Logger
}

// Scheduler drives Engine cycles and hands each report to a Reporter.
type Scheduler struct {
	engine   Engine
	reporter report.Reporter
	opts     Options
	logger   *zap.Logger
	state    atomic.Int32
	seq      atomic.Uint64
}

func New(engine Engine, reporter report.Reporter, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Scheduler{engine: engine, reporter: reporter, opts: opts, logger: logutil.OrNop(opts.Logger)}
}

// State returns the current loop state.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Cycles returns the number of cycles run so far.
func (s *Scheduler) Cycles() uint64 { return s.completed() }

// Run loops until the cycle bound is exceeded or ctx is cancelled. A cycle
// that has started always runs to completion and is reported; cancellation
// is only observed during the pause between cycles.
func (s *Scheduler) Run(ctx context.Context) error {
	// probes must not be cut short by cancellation
	cycleCtx := context.WithoutCancel(ctx)
	for s.State() == Running {
		seq := s.seq.Add(1)
		if s.opts.MaxCycles > 0 && seq > uint64(s.opts.MaxCycles) {
			s.terminate("cycle bound reached")
			break
		}
		rep := s.engine.RunCycle(cycleCtx, seq)
		if s.reporter != nil {
			if err := s.reporter.Report(cycleCtx, rep); err != nil {
				s.logger.Warn("report failed", zap.Uint64("sequence", seq), zap.Error(err))
			}
		}
		if !s.pause(ctx) {
			s.terminate("cancelled")
		}
	}
	return nil
}

// pause waits one interval. It returns false when ctx was cancelled first.
func (s *Scheduler) pause(ctx context.Context) bool {
	t := time.NewTimer(s.opts.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Scheduler) terminate(reason string) {
	s.state.Store(int32(Terminated))
	s.logger.Info("prober stopped", zap.String("reason", reason), zap.Uint64("cycles", s.completed()))
}

func (s *Scheduler) completed() uint64 {
	n := s.seq.Load()
	if s.opts.MaxCycles > 0 && n > uint64(s.opts.MaxCycles) {
		return uint64(s.opts.MaxCycles)
	}
	return n
}
