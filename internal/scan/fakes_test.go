package scan

import (
	"context"
	"errors"
	"sync"

	"ghasexport/internal/cachestore"
	"ghasexport/internal/output"
	"ghasexport/internal/record"
	"ghasexport/internal/scanner"
)

type fakeLister struct {
	repos map[string][]record.Ref
	errs  map[string]error
	calls []string
}

func (l *fakeLister) ListRepositories(_ context.Context, org string) ([]record.Ref, error) {
	l.calls = append(l.calls, org)
	if err := l.errs[org]; err != nil {
		return nil, err
	}
	return l.repos[org], nil
}

func refs(org string, names ...string) []record.Ref {
	out := make([]record.Ref, 0, len(names))
	for _, n := range names {
		out = append(out, record.Ref{Owner: org, Name: n})
	}
	return out
}

// fakeScanner answers from per-repository tables keyed by repository name.
type fakeScanner struct {
	feature  record.Feature
	disabled map[string]bool
	counts   map[string]int
	errs     map[string]error

	// onCount runs before CountAlerts answers; a non-nil error is returned.
	onCount func(ctx context.Context, ref record.Ref) error

	mu    sync.Mutex
	calls map[string]int
}

func newFakeScanner(f record.Feature) *fakeScanner {
	return &fakeScanner{
		feature:  f,
		disabled: map[string]bool{},
		counts:   map[string]int{},
		errs:     map[string]error{},
		calls:    map[string]int{},
	}
}

func (s *fakeScanner) Feature() record.Feature { return s.feature }

func (s *fakeScanner) IsEnabled(_ context.Context, ref record.Ref) (bool, error) {
	s.mu.Lock()
	s.calls[ref.Name]++
	s.mu.Unlock()
	if err := s.errs[ref.Name]; err != nil {
		return false, err
	}
	return !s.disabled[ref.Name], nil
}

func (s *fakeScanner) CountAlerts(ctx context.Context, ref record.Ref) (int, error) {
	s.mu.Lock()
	s.calls[ref.Name]++
	s.mu.Unlock()
	if s.onCount != nil {
		if err := s.onCount(ctx, ref); err != nil {
			return 0, err
		}
	}
	return s.counts[ref.Name], nil
}

func (s *fakeScanner) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *fakeScanner) callsFor(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

type fakeScanners struct {
	cs, dep, ss *fakeScanner
}

func newFakeScanners() *fakeScanners {
	return &fakeScanners{
		cs:  newFakeScanner(record.FeatureCodeScanning),
		dep: newFakeScanner(record.FeatureDependabot),
		ss:  newFakeScanner(record.FeatureSecretScanning),
	}
}

func (f *fakeScanners) list() []scanner.Scanner {
	return []scanner.Scanner{f.cs, f.dep, f.ss}
}

func (f *fakeScanners) totalCalls() int {
	return f.cs.totalCalls() + f.dep.totalCalls() + f.ss.totalCalls()
}

func (f *fakeScanners) callsFor(name string) int {
	return f.cs.callsFor(name) + f.dep.callsFor(name) + f.ss.callsFor(name)
}

// countingStore wraps a Store and counts saves per organization.
type countingStore struct {
	cachestore.Store
	saveErr error

	mu    sync.Mutex
	saves map[string]int
}

func newCountingStore(s cachestore.Store) *countingStore {
	return &countingStore{Store: s, saves: map[string]int{}}
}

func (s *countingStore) Save(ctx context.Context, org string, c cachestore.Cache) error {
	s.mu.Lock()
	s.saves[org]++
	s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Store.Save(ctx, org, c)
}

func (s *countingStore) savesFor(org string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[org]
}

type eventRecorder struct {
	events []output.Event
}

func (r *eventRecorder) Write(e output.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) ofType(typ string) []output.Event {
	var out []output.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

var errRateLimited = errors.New("rate limited")
