package geocode

import (
	"context"
	"courier-dispatch-service/internal/ports"
	"sync"
	"time"
)

// MockGeocoder answers from a fixed table and records when each query was
// made. Queries missing from the table return no candidates.
type MockGeocoder struct {
	mu      sync.Mutex
	results map[string][]ports.GeocodeCandidate
	errs    map[string][]error
	calls   []MockCall
}

type MockCall struct {
	Query string
	At    time.Time
}

func NewMockGeocoder(results map[string][]ports.GeocodeCandidate) *MockGeocoder {
	if results == nil {
		results = map[string][]ports.GeocodeCandidate{}
	}
	return &MockGeocoder{results: results, errs: map[string][]error{}}
}

// FailNext queues errors returned, in order, by the next calls for query.
func (m *MockGeocoder) FailNext(query string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[query] = append(m.errs[query], errs...)
}

func (m *MockGeocoder) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

func (m *MockGeocoder) Search(ctx context.Context, query string, limit int) ([]ports.GeocodeCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Query: query, At: time.Now()})

	if q := m.errs[query]; len(q) > 0 {
		m.errs[query] = q[1:]
		return nil, q[0]
	}

	r := m.results[query]
	if limit > 0 && len(r) > limit {
		r = r[:limit]
	}
	return r, nil
}
