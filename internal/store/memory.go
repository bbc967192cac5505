package store

import (
	"context"
	"sync"

	"github.com/katakuxiko/luminarag/internal/model"
)

// Memory is a process-local backend using brute-force cosine similarity.
type Memory struct {
	mu    sync.RWMutex
	order []string
	recs  map[string]Record
}

func NewMemory() *Memory {
	return &Memory{recs: make(map[string]Record)}
}

func (m *Memory) Upsert(_ context.Context, recs []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(recs)
	return nil
}

func (m *Memory) ReplaceFile(_ context.Context, fileName string, recs []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stale []string
	for _, id := range m.order {
		if m.recs[id].FileName == fileName {
			stale = append(stale, id)
		}
	}
	m.remove(stale)
	m.put(recs)
	return nil
}

func (m *Memory) Nearest(_ context.Context, vec []float32, k int) ([]model.Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		recs = append(recs, m.recs[id])
	}
	return rank(recs, vec, k)
}

func (m *Memory) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(ids)
	return nil
}

func (m *Memory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.recs), nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) put(recs []Record) {
	for _, r := range recs {
		if _, ok := m.recs[r.ID]; !ok {
			m.order = append(m.order, r.ID)
		}
		m.recs[r.ID] = r
	}
}

func (m *Memory) remove(ids []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := m.recs[id]; ok {
			drop[id] = struct{}{}
			delete(m.recs, id)
		}
	}
	if len(drop) == 0 {
		return
	}
	kept := m.order[:0]
	for _, id := range m.order {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	m.order = kept
}
