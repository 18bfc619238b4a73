package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/foodlog/backend/internal/domain"
)

// scriptedGenerator returns its responses in order, one per call
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func newScriptedGenerator(responses ...string) *scriptedGenerator {
	return &scriptedGenerator{responses: responses}
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	call := len(g.prompts)
	g.prompts = append(g.prompts, prompt)

	if call < len(g.errs) && g.errs[call] != nil {
		return "", g.errs[call]
	}
	if call >= len(g.responses) {
		return "", errors.New("unexpected generate call")
	}
	return g.responses[call], nil
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// fakeSearcher serves canned results keyed by query
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]domain.EscalationCandidate
	errs    map[string]error
	hang    map[string]bool // queries that block until ctx is done
	queries []string
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		results: make(map[string][]domain.EscalationCandidate),
		errs:    make(map[string]error),
		hang:    make(map[string]bool),
	}
}

func (s *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]domain.EscalationCandidate, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	hang := s.hang[query]
	err := s.errs[query]
	results := s.results[query]
	s.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// fakeRefDB is an in-memory reference table
type fakeRefDB map[string]domain.FoodReference

func (db fakeRefDB) Lookup(name string) (domain.FoodReference, bool) {
	ref, ok := db[name]
	return ref, ok
}

func (db fakeRefDB) Names() []string {
	names := make([]string, 0, len(db))
	for name := range db {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func strPtr(s string) *string { return &s }

func testRefDB() fakeRefDB {
	return fakeRefDB{
		"brown rice": {
			FoodName:              "brown rice",
			UnitServingEnergyKcal: 216,
			UnitServingProteinG:   5,
			UnitServingCarbG:      45,
			UnitServingFatG:       1.8,
			ServingsUnit:          strPtr("cup"),
		},
		"mutton biryani": {
			FoodName:              "mutton biryani",
			UnitServingEnergyKcal: 480,
			UnitServingProteinG:   22,
			UnitServingCarbG:      55,
			UnitServingFatG:       18,
			ServingsUnit:          strPtr("plate"),
		},
	}
}

// countingObserver records observer callbacks
type countingObserver struct {
	mu          sync.Mutex
	stages      map[string]int
	stageErrors map[string]int
	runs        int
	runErrors   int
	searchFails int
	corrections int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{stages: map[string]int{}, stageErrors: map[string]int{}}
}

func (o *countingObserver) ObserveStage(stage string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages[stage]++
	if err != nil {
		o.stageErrors[stage]++
	}
}

func (o *countingObserver) ObserveRun(_ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs++
	if err != nil {
		o.runErrors++
	}
}

func (o *countingObserver) SearchFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.searchFails++
}

func (o *countingObserver) ConsistencyCorrected() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.corrections++
}

// mapStore is a minimal domain.KeyValueStore
type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]byte)}
}

func (s *mapStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return v, nil
}

func (s *mapStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *mapStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *mapStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
