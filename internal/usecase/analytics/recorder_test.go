package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/domain/analytics"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
	"github.com/kailas-cloud/mediasearch/internal/metrics"
)

// --- Mocks ---

type mockLog struct {
	mu       sync.Mutex
	searches []analytics.Event
	clicks   []analytics.Click
	err      error
	block    chan struct{}
}

func (m *mockLog) AppendSearch(_ context.Context, ev analytics.Event) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, ev)
	return m.err
}

func (m *mockLog) AppendClick(_ context.Context, c analytics.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, c)
	return m.err
}

func (m *mockLog) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.searches), len(m.clicks)
}

type incr struct {
	typ      suggestion.Type
	value    string
	existing bool
}

type mockVocab struct {
	mu    sync.Mutex
	incrs []incr
	known map[string]bool
}

func (m *mockVocab) Increment(t suggestion.Type, value string, _ int64, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrs = append(m.incrs, incr{typ: t, value: value})
}

func (m *mockVocab) IncrementExisting(t suggestion.Type, value string, _ int64, _ time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known[suggestion.KeyOf(t, value)] {
		return false
	}
	m.incrs = append(m.incrs, incr{typ: t, value: value, existing: true})
	return true
}

func (m *mockVocab) snapshot() []incr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]incr(nil), m.incrs...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// --- Tests ---

func TestRecordSearch_AppendsAndRegistersQuery(t *testing.T) {
	log := &mockLog{}
	vocab := &mockVocab{}
	r, err := New(log, vocab, Config{Workers: 2}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = r.Close(time.Second) }()

	r.RecordSearch(analytics.Event{Query: "  Lathe  Safety ", ResultCount: 3})
	r.RecordSearch(analytics.Event{Query: "nothing here", ResultCount: 0})

	waitFor(t, func() bool { s, _ := log.counts(); return s == 2 })
	waitFor(t, func() bool { return len(vocab.snapshot()) == 1 })

	incrs := vocab.snapshot()
	if len(incrs) != 1 || incrs[0].typ != suggestion.TypeQuery || incrs[0].value != "lathe safety" {
		t.Errorf("increments = %+v", incrs)
	}
	for _, ev := range log.searches {
		if ev.ID == "" || ev.Timestamp.IsZero() {
			t.Errorf("event not stamped: %+v", ev)
		}
	}
}

func TestRecordClick_CreditsMatchingTerms(t *testing.T) {
	log := &mockLog{}
	vocab := &mockVocab{known: map[string]bool{
		suggestion.KeyOf(suggestion.TypeTag, "safety"): true,
	}}
	r, err := New(log, vocab, Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = r.Close(time.Second) }()

	r.RecordClick(analytics.Click{DocumentID: "lesson-1", Position: 2, Query: "Safety"})
	waitFor(t, func() bool { _, c := log.counts(); return c == 1 })
	waitFor(t, func() bool { return len(vocab.snapshot()) == 2 })

	incrs := vocab.snapshot()
	if incrs[0] != (incr{typ: suggestion.TypeQuery, value: "safety"}) {
		t.Errorf("first increment = %+v", incrs[0])
	}
	if incrs[1] != (incr{typ: suggestion.TypeTag, value: "safety", existing: true}) {
		t.Errorf("second increment = %+v", incrs[1])
	}
}

func TestRecord_LogFailureIsSwallowedAndCounted(t *testing.T) {
	log := &mockLog{err: errors.New("disk full")}
	vocab := &mockVocab{}
	r, err := New(log, vocab, Config{Workers: 1}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = r.Close(time.Second) }()

	failed := metrics.AnalyticsEventsTotal.WithLabelValues(kindSearch, "failed")
	before := testutil.ToFloat64(failed)

	r.RecordSearch(analytics.Event{Query: "coolant", ResultCount: 1})
	waitFor(t, func() bool { return testutil.ToFloat64(failed) == before+1 })

	if len(vocab.snapshot()) != 1 {
		t.Error("vocabulary increment must not depend on the event log")
	}
}

func TestRecord_DropsWhenSaturated(t *testing.T) {
	log := &mockLog{block: make(chan struct{})}
	r, err := New(log, nil, Config{Workers: 1}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = r.Close(time.Second) }()

	dropped := metrics.AnalyticsEventsTotal.WithLabelValues(kindSearch, "dropped")
	before := testutil.ToFloat64(dropped)

	r.RecordSearch(analytics.Event{Query: "first"})
	waitFor(t, func() bool { return r.Running() == 1 })

	start := time.Now()
	r.RecordSearch(analytics.Event{Query: "second"})
	if time.Since(start) > 100*time.Millisecond {
		t.Error("RecordSearch blocked on a saturated pool")
	}
	if got := testutil.ToFloat64(dropped); got != before+1 {
		t.Errorf("dropped = %f, want %f", got, before+1)
	}

	close(log.block)
	waitFor(t, func() bool { s, _ := log.counts(); return s == 1 })
}

type sliceReplayer []analytics.Record

func (s sliceReplayer) Replay(ctx context.Context, fn func(analytics.Record) error) error {
	for _, rec := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func TestReplay_AppliesWithoutAppending(t *testing.T) {
	log := &mockLog{}
	vocab := &mockVocab{}
	r, err := New(log, vocab, Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = r.Close(time.Second) }()

	n, err := r.Replay(context.Background(), sliceReplayer{
		{Search: &analytics.Event{Query: "Spindle", ResultCount: 2}},
		{Search: &analytics.Event{Query: "empty", ResultCount: 0}},
		{Click: &analytics.Click{Query: "spindle", DocumentID: "a"}},
		{},
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if n != 3 {
		t.Errorf("applied = %d, want 3", n)
	}

	incrs := vocab.snapshot()
	if len(incrs) != 2 || incrs[0].value != "spindle" || incrs[1].value != "spindle" {
		t.Errorf("increments = %+v", incrs)
	}
	if s, c := log.counts(); s != 0 || c != 0 {
		t.Errorf("replay appended %d searches and %d clicks", s, c)
	}
}

func TestReplay_Error(t *testing.T) {
	r, err := New(nil, &mockVocab{}, Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = r.Close(time.Second) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Replay(ctx, sliceReplayer{{Search: &analytics.Event{Query: "x", ResultCount: 1}}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
