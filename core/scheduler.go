package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/web3guy0/fundingbot/internal/arbitrage"
	"github.com/web3guy0/fundingbot/internal/venue"
	"github.com/web3guy0/fundingbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SCHEDULER - Polling cycle orchestrator
// ═══════════════════════════════════════════════════════════════════════════════
//
// Flow (one cycle):
//   Sources (concurrent) → join → Comparator → Formatter → Notifier
//
// Cycles never overlap. A cycle that overruns the interval swallows the
// pending tick. Nothing survives from one cycle to the next.
//
// ═══════════════════════════════════════════════════════════════════════════════

// State of the scheduler
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// Formatter renders a cycle's data; ok=false means nothing to send
type Formatter interface {
	Build(at time.Time, quotes []types.VenueQuote, results []arbitrage.PairResult) (string, bool)
}

// Dispatcher delivers a report best effort and returns how many channels took it
type Dispatcher interface {
	Dispatch(ctx context.Context, text string) int
}

// Config holds scheduler configuration
type Config struct {
	Interval     time.Duration
	CycleTimeout time.Duration
	Pairs        []types.Pair
}

// CycleResult summarises one cycle
type CycleResult struct {
	ID        string
	Quotes    []types.VenueQuote
	Results   []arbitrage.PairResult
	Report    string
	Delivered int
	Duration  time.Duration
}

// Scheduler runs polling cycles on a fixed interval
type Scheduler struct {
	mu sync.Mutex

	cfg        Config
	sources    []venue.Source
	comparator *arbitrage.Comparator
	formatter  Formatter
	notifier   Dispatcher

	state   atomic.Int32
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler over the given sources
func NewScheduler(cfg Config, sources []venue.Source, comparator *arbitrage.Comparator, formatter Formatter, notifier Dispatcher) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		sources:    sources,
		comparator: comparator,
		formatter:  formatter,
		notifier:   notifier,
	}
}

// State reports whether a cycle is in flight
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Start runs a cycle immediately and then one per interval until Stop or
// ctx is done
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.loop(ctx, s.stopCh)

	log.Info().
		Dur("interval", s.cfg.Interval).
		Int("sources", len(s.sources)).
		Int("pairs", len(s.cfg.Pairs)).
		Msg("⚡ Scheduler started")
}

// Stop halts future cycles. An in-flight cycle is not interrupted; Stop
// waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)

		// Overran the interval: drop the tick that queued up meanwhile
		select {
		case <-ticker.C:
			log.Warn().Dur("interval", s.cfg.Interval).Msg("⏭️ Cycle overran interval, skipping tick")
		default:
		}

		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single cycle: fetch all venues concurrently, compare,
// format and dispatch. It never returns an error; every failure is absorbed
// into null data and logged.
func (s *Scheduler) RunOnce(ctx context.Context) CycleResult {
	s.state.Store(int32(StateRunning))
	defer s.state.Store(int32(StateIdle))

	start := time.Now()
	res := CycleResult{ID: uuid.NewString()}
	logger := log.With().Str("cycle", res.ID).Logger()

	// Detached from ctx so a stop request does not cut an in-flight cycle short
	cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cycleTimeout())
	defer cancel()
	cycleCtx = logger.WithContext(cycleCtx)

	res.Quotes = make([]types.VenueQuote, len(s.sources))
	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			res.Quotes[i] = src.Quote(cycleCtx)
			return nil
		})
	}
	_ = g.Wait()

	live := 0
	byVenue := make(map[types.Venue]types.VenueQuote, len(res.Quotes))
	var causes []error
	for _, q := range res.Quotes {
		byVenue[q.Source] = q
		if q.Empty() {
			if q.Err != nil {
				causes = append(causes, q.Err)
			}
			continue
		}
		live++
	}

	if live == 0 {
		res.Duration = time.Since(start)
		logger.Warn().
			Err(errors.Join(causes...)).
			Dur("took", res.Duration).
			Msg("❌ No venue returned data, nothing sent")
		return res
	}

	res.Results = s.comparator.CompareAll(byVenue, s.cfg.Pairs)
	computed := 0
	for _, r := range res.Results {
		if r.Err == nil {
			computed++
		}
	}

	report, ok := s.formatter.Build(time.Now(), res.Quotes, res.Results)
	if ok {
		res.Report = report
		res.Delivered = s.notifier.Dispatch(cycleCtx, report)
	}

	res.Duration = time.Since(start)
	logger.Info().
		Int("venues", live).
		Int("pairs", computed).
		Int("delivered", res.Delivered).
		Dur("took", res.Duration).
		Msg("📨 Cycle complete")
	return res
}

func (s *Scheduler) cycleTimeout() time.Duration {
	if s.cfg.CycleTimeout > 0 {
		return s.cfg.CycleTimeout
	}
	return time.Minute
}
