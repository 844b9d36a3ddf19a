package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront-cart/internal/domain"
)

type stubFetcher struct {
	mu      sync.Mutex
	results [][]domain.StockEntry
	errs    []error
	calls   int
	block   chan struct{}
}

func (s *stubFetcher) FetchCatalog(ctx context.Context) ([]domain.StockEntry, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	var err error
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	if err != nil {
		return nil, err
	}
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx], nil
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	f := &stubFetcher{results: [][]domain.StockEntry{
		{{ID: "1", Stock: 2}, {ID: "2", Stock: 0}},
		{{ID: "3", Stock: 4}},
	}}
	svc := New(f, nil)
	if svc.Loaded() {
		t.Fatalf("fresh cache should not be loaded")
	}
	if _, ok := svc.Get("1"); ok {
		t.Fatalf("fresh cache should be empty")
	}

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !svc.IsInStock("1") || svc.IsInStock("2") || svc.IsInStock("nope") {
		t.Fatalf("unexpected stock flags after first refresh")
	}

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if _, ok := svc.Get("1"); ok {
		t.Fatalf("second refresh should replace, not merge")
	}
	if e, ok := svc.Get("3"); !ok || e.Stock != 4 {
		t.Fatalf("expected entry 3 after second refresh, got %+v %v", e, ok)
	}
}

func TestRefreshFailureKeepsOldSnapshot(t *testing.T) {
	f := &stubFetcher{
		results: [][]domain.StockEntry{{{ID: "1", Stock: 2}}},
		errs:    []error{nil, errors.New("connection refused")},
	}
	svc := New(f, nil)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	err := svc.Refresh(context.Background())
	if !domain.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !svc.IsInStock("1") {
		t.Fatalf("old snapshot should survive a failed refresh")
	}
}

func TestRefreshFailureOnEmptyCache(t *testing.T) {
	svc := New(&stubFetcher{errs: []error{errors.New("down")}}, nil)
	_ = svc.Refresh(context.Background())
	if svc.Loaded() || len(svc.Entries()) != 0 {
		t.Fatalf("failed first refresh should leave an empty, unloaded cache")
	}
}

func TestConcurrentRefreshesShareOneFetch(t *testing.T) {
	f := &stubFetcher{results: [][]domain.StockEntry{{{ID: "1", Stock: 1}}}, block: make(chan struct{})}
	svc := New(f, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Refresh(context.Background())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(f.block)
	wg.Wait()

	if f.calls != 1 {
		t.Fatalf("expected a single fetch, got %d", f.calls)
	}
}

func TestRequestRefreshRunsInBackground(t *testing.T) {
	f := &stubFetcher{results: [][]domain.StockEntry{{{ID: "7", Stock: 3}}}}
	svc := New(f, nil)
	var hooks atomic.Int32
	svc.OnRefresh(func() { hooks.Add(1) })

	svc.RequestRefresh()
	svc.Close()

	if !svc.IsInStock("7") {
		t.Fatalf("background refresh should have loaded entry 7")
	}
	if hooks.Load() != 1 {
		t.Fatalf("expected refresh hook to fire once, got %d", hooks.Load())
	}

	svc.RequestRefresh()
	if f.calls != 1 {
		t.Fatalf("closed cache must not start new refreshes")
	}
}

func TestEntriesOrder(t *testing.T) {
	f := &stubFetcher{results: [][]domain.StockEntry{{{ID: "10"}, {ID: "b"}, {ID: "2"}, {ID: "a"}, {ID: ""}}}}
	svc := New(f, nil)
	_ = svc.Refresh(context.Background())

	var got []domain.ProductID
	for _, e := range svc.Entries() {
		got = append(got, e.ID)
	}
	want := []domain.ProductID{"2", "10", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

// gatedFetcher holds each call until its own gate is released.
type gatedFetcher struct {
	mu      sync.Mutex
	gates   []chan struct{}
	results [][]domain.StockEntry
	entered chan int
}

func (g *gatedFetcher) FetchCatalog(_ context.Context) ([]domain.StockEntry, error) {
	g.mu.Lock()
	idx := len(g.gates)
	gate := make(chan struct{})
	g.gates = append(g.gates, gate)
	g.mu.Unlock()
	g.entered <- idx
	<-gate
	return g.results[idx], nil
}

func (g *gatedFetcher) release(idx int) {
	g.mu.Lock()
	gate := g.gates[idx]
	g.mu.Unlock()
	close(gate)
}

func TestOlderOverlappingFetchIsDiscarded(t *testing.T) {
	g := &gatedFetcher{
		entered: make(chan int, 2),
		results: [][]domain.StockEntry{
			{{ID: "p1", Stock: 1}},
			{{ID: "p1", Stock: 9}},
		},
	}
	s := New(g, nil)

	first := make(chan error, 1)
	go func() { first <- s.refresh(context.Background()) }()
	<-g.entered
	second := make(chan error, 1)
	go func() { second <- s.refresh(context.Background()) }()
	<-g.entered

	g.release(1)
	if err := <-second; err != nil {
		t.Fatalf("newer refresh: %v", err)
	}
	g.release(0)
	if err := <-first; err != nil {
		t.Fatalf("older refresh: %v", err)
	}

	e, ok := s.Get("p1")
	if !ok || e.Stock != 9 {
		t.Fatalf("older response must not overwrite newer snapshot, got %+v", e)
	}
}
