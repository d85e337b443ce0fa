package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

// MemoryStore keeps monitors and delivery tags in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	monitors  map[string]domain.PriceMonitor
	delivered map[string]time.Time
	now       func() time.Time
}

var (
	_ ports.MonitorStore   = (*MemoryStore)(nil)
	_ ports.DeliveryLedger = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		monitors:  map[string]domain.PriceMonitor{},
		delivered: map[string]time.Time{},
		now:       time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, m domain.PriceMonitor) error {
	if m.ID == "" {
		return fmt.Errorf("create monitor: id is empty")
	}
	if !m.Status.Valid() {
		return fmt.Errorf("create monitor %s: invalid status %q", m.ID, m.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.monitors[m.ID]; exists {
		return fmt.Errorf("create monitor %s: already exists", m.ID)
	}
	s.monitors[m.ID] = m
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.PriceMonitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.monitors[id]
	if !ok {
		return domain.PriceMonitor{}, fmt.Errorf("%w: %s", domain.ErrMonitorNotFound, id)
	}
	return m, nil
}

func (s *MemoryStore) List(_ context.Context, ownerID string) ([]domain.PriceMonitor, error) {
	return s.filter(func(m domain.PriceMonitor) bool {
		return ownerID == "" || m.OwnerID == ownerID
	}), nil
}

func (s *MemoryStore) ListActive(ctx context.Context) ([]domain.PriceMonitor, error) {
	return s.ListByStatus(ctx, domain.MonitorActive)
}

func (s *MemoryStore) ListByStatus(_ context.Context, status domain.MonitorStatus) ([]domain.PriceMonitor, error) {
	return s.filter(func(m domain.PriceMonitor) bool { return m.Status == status }), nil
}

// Transition is the compare-and-swap on status.
func (s *MemoryStore) Transition(_ context.Context, id string, from, to domain.MonitorStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrMonitorNotFound, id)
	}
	if m.Status != from {
		return false, nil
	}
	m.Status = to
	m.UpdatedAt = s.now()
	s.monitors[id] = m
	return true, nil
}

func (s *MemoryStore) RecordCheck(_ context.Context, id string, priceMinor int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrMonitorNotFound, id)
	}
	m.LastPriceMinor = priceMinor
	m.LastCheckedAt = at
	s.monitors[id] = m
	return nil
}

// Remove marks the monitor removed whatever its current state.
func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrMonitorNotFound, id)
	}
	m.Status = domain.MonitorRemoved
	m.UpdatedAt = s.now()
	s.monitors[id] = m
	return nil
}

func (s *MemoryStore) Delivered(_ context.Context, tag string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.delivered[tag]
	return ok, nil
}

func (s *MemoryStore) MarkDelivered(_ context.Context, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.delivered[tag]; !ok {
		s.delivered[tag] = s.now()
	}
	return nil
}

func (s *MemoryStore) filter(keep func(domain.PriceMonitor) bool) []domain.PriceMonitor {
	s.mu.RLock()
	out := make([]domain.PriceMonitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		if keep(m) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()

	sortMonitors(out)
	return out
}

func sortMonitors(ms []domain.PriceMonitor) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[i].ID < ms[j].ID
	})
}
