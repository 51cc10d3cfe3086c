package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"suvidha/internal/transfer/models"
	"suvidha/pkg/domain"
	"suvidha/pkg/platform/sentinel"
)

// InMemoryTransfers keeps transfer records in process memory. Doubles as the
// test fake.
type InMemoryTransfers struct {
	mu        sync.RWMutex
	transfers map[domain.TransferID]models.Transfer
}

func NewInMemoryTransfers() *InMemoryTransfers {
	return &InMemoryTransfers{transfers: make(map[domain.TransferID]models.Transfer)}
}

// Create re-verifies the single-pending invariant under the store lock, so
// two concurrent initiators cannot both insert a pending transfer for one
// complaint.
func (s *InMemoryTransfers) Create(_ context.Context, t *models.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transfers[t.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	for _, existing := range s.transfers {
		if existing.ComplaintNumber == t.ComplaintNumber && existing.Status == models.StatusPending {
			return sentinel.ErrConflict
		}
	}
	s.transfers[t.ID] = *t
	return nil
}

func (s *InMemoryTransfers) FindByID(_ context.Context, id domain.TransferID) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.transfers[id]; ok {
		return &t, nil
	}
	return nil, sentinel.ErrNotFound
}

// Execute runs validate-then-mutate atomically under the store lock, so a
// concurrent resolver cannot slip between the status check and the write.
func (s *InMemoryTransfers) Execute(_ context.Context, id domain.TransferID, validate func(*models.Transfer) error, mutate func(*models.Transfer)) (*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&t); err != nil {
		return nil, err
	}
	mutate(&t)
	s.transfers[id] = t
	return &t, nil
}

func (s *InMemoryTransfers) PendingByComplaint(_ context.Context, number domain.ComplaintNumber) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transfers {
		if t.ComplaintNumber == number && t.Status == models.StatusPending {
			copied := t
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryTransfers) PendingByDepartment(_ context.Context, dept domain.DepartmentID) ([]*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transfer
	for _, t := range s.transfers {
		if t.Status == models.StatusPending && t.ToDepartment == dept {
			copied := t
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryTransfers) HistoryByComplaint(_ context.Context, number domain.ComplaintNumber) ([]*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transfer
	for _, t := range s.transfers {
		if t.ComplaintNumber == number {
			copied := t
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryTransfers) ListByDepartmentAndRange(_ context.Context, dept domain.DepartmentID, from, to time.Time) ([]*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transfer
	for _, t := range s.transfers {
		if t.FromDepartment != dept && t.ToDepartment != dept {
			continue
		}
		if t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		copied := t
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// InMemoryConnections keeps department connections in process memory.
type InMemoryConnections struct {
	mu          sync.RWMutex
	connections map[string]models.Connection
}

func NewInMemoryConnections() *InMemoryConnections {
	return &InMemoryConnections{connections: make(map[string]models.Connection)}
}

func pairKey(a, b domain.DepartmentID) string {
	a, b = models.PairKey(a, b)
	return string(a) + "|" + string(b)
}

func (s *InMemoryConnections) Get(_ context.Context, a, b domain.DepartmentID) (*models.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.connections[pairKey(a, b)]; ok {
		return &c, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryConnections) Create(_ context.Context, c *models.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(c.DepartmentA, c.DepartmentB)
	if _, ok := s.connections[key]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.connections[key] = *c
	return nil
}

func (s *InMemoryConnections) Update(_ context.Context, c *models.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(c.DepartmentA, c.DepartmentB)
	if _, ok := s.connections[key]; !ok {
		return sentinel.ErrNotFound
	}
	s.connections[key] = *c
	return nil
}

func (s *InMemoryConnections) List(_ context.Context) ([]*models.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Connection, 0, len(s.connections))
	for _, c := range s.connections {
		copied := c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartmentA != out[j].DepartmentA {
			return out[i].DepartmentA < out[j].DepartmentA
		}
		return out[i].DepartmentB < out[j].DepartmentB
	})
	return out, nil
}
