package core

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/fundingbot/internal/arbitrage"
	"github.com/web3guy0/fundingbot/internal/report"
	"github.com/web3guy0/fundingbot/internal/venue"
	"github.com/web3guy0/fundingbot/types"
)

type fakeSource struct {
	venue types.Venue
	quote types.VenueQuote
	delay time.Duration

	calls    atomic.Int32
	active   *atomic.Int32
	maxSeen  *atomic.Int32
	ctxErrs  atomic.Int32
	finished atomic.Int32
}

func (f *fakeSource) Venue() types.Venue { return f.venue }

func (f *fakeSource) Quote(ctx context.Context) types.VenueQuote {
	f.calls.Add(1)
	if f.active != nil {
		n := f.active.Add(1)
		defer f.active.Add(-1)
		for {
			m := f.maxSeen.Load()
			if n <= m || f.maxSeen.CompareAndSwap(m, n) {
				break
			}
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if ctx.Err() != nil {
		f.ctxErrs.Add(1)
	}
	f.finished.Add(1)
	q := f.quote
	q.Source = f.venue
	return q
}

type fakeDispatcher struct {
	mu    sync.Mutex
	texts []string
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, text string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = append(d.texts, text)
	return 1
}

func (d *fakeDispatcher) sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.texts...)
}

func book(bid, ask, funding string) types.VenueQuote {
	return types.VenueQuote{
		Bid:     types.Value(decimal.RequireFromString(bid)),
		Ask:     types.Value(decimal.RequireFromString(ask)),
		Funding: types.Value(decimal.RequireFromString(funding)),
	}
}

func newTestScheduler(interval time.Duration, sources []*fakeSource, d *fakeDispatcher) *Scheduler {
	cmp := arbitrage.NewComparator(decimal.NewFromInt(8760), nil)
	f := report.NewFormatter(map[types.Venue]string{
		types.VenueLighter:     "HYPE",
		types.VenueExtended:    "HYPE-USD",
		types.VenueHyperliquid: "HYPE",
	}, cmp)
	cfg := Config{
		Interval:     interval,
		CycleTimeout: time.Second,
		Pairs: []types.Pair{
			{A: types.VenueLighter, B: types.VenueExtended},
			{A: types.VenueLighter, B: types.VenueHyperliquid},
		},
	}
	srcs := make([]venue.Source, 0, len(sources))
	for _, s := range sources {
		srcs = append(srcs, s)
	}
	return NewScheduler(cfg, srcs, cmp, f, d)
}

func threeVenues() []*fakeSource {
	return []*fakeSource{
		{venue: types.VenueLighter, quote: book("41.2850", "41.3300", "0.0012")},
		{venue: types.VenueExtended, quote: book("41.2800", "41.3100", "0.0014")},
		{venue: types.VenueHyperliquid, quote: book("41.2950", "41.3150", "0.0020")},
	}
}

func TestRunOnce_SendsReport(t *testing.T) {
	d := &fakeDispatcher{}
	s := newTestScheduler(time.Hour, threeVenues(), d)

	res := s.RunOnce(context.Background())

	if res.ID == "" {
		t.Fatal("cycle id not set")
	}
	if len(res.Quotes) != 3 {
		t.Fatalf("quotes = %d, want 3", len(res.Quotes))
	}
	if len(res.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(res.Results))
	}
	for _, r := range res.Results {
		if r.Err != nil {
			t.Errorf("%s: unexpected error %v", r.Pair, r.Err)
		}
	}
	sent := d.sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d reports, want 1", len(sent))
	}
	if res.Delivered != 1 || sent[0] != res.Report {
		t.Errorf("delivered = %d, report mismatch", res.Delivered)
	}
	for _, want := range []string{"Lighter", "Extended", "Hyperliquid", "Lighter vs Extended"} {
		if !strings.Contains(sent[0], want) {
			t.Errorf("report missing %q", want)
		}
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s after cycle, want idle", s.State())
	}
}

func TestRunOnce_FetchesConcurrently(t *testing.T) {
	sources := threeVenues()
	for _, s := range sources {
		s.delay = 100 * time.Millisecond
	}
	s := newTestScheduler(time.Hour, sources, &fakeDispatcher{})

	start := time.Now()
	s.RunOnce(context.Background())
	if took := time.Since(start); took > 250*time.Millisecond {
		t.Errorf("cycle took %v, sources not fetched concurrently", took)
	}
}

func TestRunOnce_TotalFailureSendsNothing(t *testing.T) {
	sources := []*fakeSource{
		{venue: types.VenueLighter, quote: types.EmptyQuote(types.VenueLighter, types.ErrUnrecoverable)},
		{venue: types.VenueExtended, quote: types.EmptyQuote(types.VenueExtended, types.ErrVenueUnavailable)},
		{venue: types.VenueHyperliquid, quote: types.EmptyQuote(types.VenueHyperliquid, types.ErrTimeout)},
	}
	d := &fakeDispatcher{}
	s := newTestScheduler(time.Hour, sources, d)

	res := s.RunOnce(context.Background())

	if len(d.sent()) != 0 {
		t.Fatalf("sent %d reports on total failure", len(d.sent()))
	}
	if res.Report != "" || res.Results != nil {
		t.Errorf("expected no report and no results, got %+v", res)
	}
}

func TestRunOnce_PartialFailureStillReports(t *testing.T) {
	sources := threeVenues()
	sources[1].quote = types.EmptyQuote(types.VenueExtended, types.ErrVenueUnavailable)
	d := &fakeDispatcher{}
	s := newTestScheduler(time.Hour, sources, d)

	res := s.RunOnce(context.Background())

	if len(d.sent()) != 1 {
		t.Fatalf("sent %d reports, want 1", len(d.sent()))
	}
	var failed, ok int
	for _, r := range res.Results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	if failed != 1 || ok != 1 {
		t.Errorf("failed=%d ok=%d, want 1 and 1", failed, ok)
	}
	if !strings.Contains(res.Report, "unavailable") {
		t.Error("report does not flag the missing venue")
	}
}

func TestStart_RunsImmediatelyAndOnInterval(t *testing.T) {
	sources := threeVenues()
	d := &fakeDispatcher{}
	s := newTestScheduler(50*time.Millisecond, sources, d)

	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	if n := sources[0].calls.Load(); n != 1 {
		t.Fatalf("calls after start = %d, want 1", n)
	}
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	n := sources[0].calls.Load()
	if n < 3 {
		t.Errorf("calls = %d, want at least 3", n)
	}
	time.Sleep(120 * time.Millisecond)
	if after := sources[0].calls.Load(); after != n {
		t.Errorf("cycles continued after Stop: %d -> %d", n, after)
	}
}

func TestStart_CyclesNeverOverlap(t *testing.T) {
	var active, maxSeen atomic.Int32
	sources := threeVenues()
	sources[0].delay = 80 * time.Millisecond
	sources[0].active = &active
	sources[0].maxSeen = &maxSeen
	s := newTestScheduler(20*time.Millisecond, sources, &fakeDispatcher{})

	s.Start(context.Background())
	time.Sleep(300 * time.Millisecond)
	s.Stop()

	if m := maxSeen.Load(); m != 1 {
		t.Errorf("max concurrent cycles = %d, want 1", m)
	}
	// 300ms at 80ms per cycle leaves room for at most 4 cycles plus one racing Stop
	if n := sources[0].calls.Load(); n > 5 {
		t.Errorf("calls = %d, overrun ticks were not skipped", n)
	}
}

func TestStop_LetsInFlightCycleFinish(t *testing.T) {
	sources := threeVenues()
	sources[0].delay = 100 * time.Millisecond
	d := &fakeDispatcher{}
	s := newTestScheduler(time.Hour, sources, d)

	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	if s.State() != StateRunning {
		t.Fatalf("state = %s during cycle, want running", s.State())
	}
	s.Stop()

	if sources[0].finished.Load() != 1 {
		t.Fatal("in-flight fetch did not finish")
	}
	if sources[0].ctxErrs.Load() != 0 {
		t.Error("in-flight fetch saw a cancelled context")
	}
	if len(d.sent()) != 1 {
		t.Errorf("sent %d reports, want 1", len(d.sent()))
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s after Stop, want idle", s.State())
	}
}

func TestStop_Idempotent(t *testing.T) {
	s := newTestScheduler(time.Hour, threeVenues(), &fakeDispatcher{})
	s.Stop()
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}
