package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store using brute-force cosine search.
// Suitable for tests and small trees.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Upsert(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		r.Vector = vec
		m.records[r.ID] = r
	}
	return nil
}

func (m *MemoryStore) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if k <= 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(m.records))
	for _, r := range m.records {
		if len(r.Vector) == 0 {
			continue
		}
		results = append(results, Result{Record: r, Score: cosineSimilarity(vector, r.Vector)})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (m *MemoryStore) DeleteByFile(ctx context.Context, file string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, r := range m.records {
		if r.File == file {
			delete(m.records, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) ListAll(ctx context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].File != records[j].File {
			return records[i].File < records[j].File
		}
		return records[i].StartLine < records[j].StartLine
	})
	return records, nil
}

func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dim := 0
	for _, r := range m.records {
		if len(r.Vector) > 0 {
			dim = len(r.Vector)
			break
		}
	}
	return Stats{Count: len(m.records), Dimension: dim, Location: "memory"}, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
