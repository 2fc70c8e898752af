package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It backs tests and serves as a degraded
// fallback when no database is configured (history then only spans the
// current process).
type Memory struct {
	mu      sync.RWMutex
	records map[string]map[Identity]TitleRecord // date -> identity -> record
	markers map[string]string                   // kind|date -> note
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]map[Identity]TitleRecord),
		markers: make(map[string]string),
	}
}

func (m *Memory) GetTitleRecord(_ context.Context, date string, id Identity) (TitleRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	day, ok := m.records[date]
	if !ok {
		return TitleRecord{}, false, nil
	}
	rec, ok := day[id]
	return rec, ok, nil
}

func (m *Memory) PutTitleRecord(_ context.Context, date string, id Identity, rec TitleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	day, ok := m.records[date]
	if !ok {
		day = make(map[Identity]TitleRecord)
		m.records[date] = day
	}
	// Copy the rank slice so callers can't alias stored state.
	ranks := make([]int, len(rec.Ranks))
	copy(ranks, rec.Ranks)
	rec.Ranks = ranks
	day[id] = rec
	return nil
}

func (m *Memory) RecordsForDate(_ context.Context, date string) (map[Identity]TitleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[Identity]TitleRecord, len(m.records[date]))
	for id, rec := range m.records[date] {
		ranks := make([]int, len(rec.Ranks))
		copy(ranks, rec.Ranks)
		rec.Ranks = ranks
		out[id] = rec
	}
	return out, nil
}

func (m *Memory) HasMarker(_ context.Context, kind MarkerKind, date string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.markers[string(kind)+"|"+date]
	return ok, nil
}

func (m *Memory) SetMarker(_ context.Context, kind MarkerKind, date string, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.markers[string(kind)+"|"+date] = note
	return nil
}

func (m *Memory) ClearMarker(_ context.Context, kind MarkerKind, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.markers, string(kind)+"|"+date)
	return nil
}

func (m *Memory) Cleanup(_ context.Context, before string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for date := range m.records {
		if date < before {
			delete(m.records, date)
		}
	}
	for key := range m.markers {
		// key format is kind|date
		if idx := len(key) - len("2006-01-02"); idx > 0 && key[idx:] < before {
			delete(m.markers, key)
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }
