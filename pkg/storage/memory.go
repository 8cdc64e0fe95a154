package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryLinkStore keeps links in process memory. Used by tests and the memory store mode.
type MemoryLinkStore struct {
	mu    sync.RWMutex
	links map[string]string
}

func NewMemoryLinkStore() *MemoryLinkStore {
	return &MemoryLinkStore{links: make(map[string]string)}
}

func (s *MemoryLinkStore) Get(_ context.Context, code string) (*ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dest, ok := s.links[code]
	if !ok {
		return nil, nil
	}
	return &ShortLink{Code: code, Destination: dest}, nil
}

func (s *MemoryLinkStore) Put(_ context.Context, link *ShortLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links[link.Code] = link.Destination
	return nil
}

func (s *MemoryLinkStore) PutIfAbsent(_ context.Context, link *ShortLink) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[link.Code]; ok {
		return false, nil
	}
	s.links[link.Code] = link.Destination
	return true, nil
}

func (s *MemoryLinkStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.links, code)
	return nil
}

func (s *MemoryLinkStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]string, 0, len(s.links))
	for code := range s.links {
		codes = append(codes, code)
	}
	return codes, nil
}

func (s *MemoryLinkStore) Close() error {
	return nil
}

// Len returns the number of stored keys, the secret included.
func (s *MemoryLinkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.links)
}

// MemoryViewLedger is an in-process ViewLedger.
type MemoryViewLedger struct {
	mu      sync.Mutex
	records map[string]ViewRecord
}

func NewMemoryViewLedger() *MemoryViewLedger {
	return &MemoryViewLedger{records: make(map[string]ViewRecord)}
}

func (l *MemoryViewLedger) Migrate(_ context.Context) error {
	return nil
}

func (l *MemoryViewLedger) Increment(_ context.Context, code string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[code]
	if !ok {
		rec = ViewRecord{LinkID: code}
	}
	rec.Count++
	// writes may land out of order; keep the latest view time
	if at = at.UTC(); at.After(rec.UpdatedAt) {
		rec.UpdatedAt = at
	}
	l.records[code] = rec
	return nil
}

func (l *MemoryViewLedger) Get(_ context.Context, code string) (*ViewRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[code]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (l *MemoryViewLedger) TotalViews(_ context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total int64
	for _, rec := range l.records {
		total += rec.Count
	}
	return total, nil
}

func (l *MemoryViewLedger) Delete(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.records, code)
	return nil
}

func (l *MemoryViewLedger) Close() error {
	return nil
}

var (
	_ LinkStore  = (*MemoryLinkStore)(nil)
	_ ViewLedger = (*MemoryViewLedger)(nil)
)
