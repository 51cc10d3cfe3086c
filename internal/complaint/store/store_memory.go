package store

import (
	"context"
	"sync"

	"suvidha/internal/complaint/models"
	"suvidha/pkg/domain"
	"suvidha/pkg/platform/sentinel"
)

// InMemory keeps complaints in process memory. Doubles as the test fake.
type InMemory struct {
	mu         sync.RWMutex
	complaints map[domain.ComplaintNumber]models.Complaint
}

func NewInMemory() *InMemory {
	return &InMemory{complaints: make(map[domain.ComplaintNumber]models.Complaint)}
}

func (s *InMemory) Create(_ context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.complaints[c.Number]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.complaints[c.Number] = cloneComplaint(c)
	return nil
}

func (s *InMemory) FindByNumber(_ context.Context, number domain.ComplaintNumber) (*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.complaints[number]; ok {
		copied := cloneComplaint(&c)
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(_ context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.complaints[c.Number]; !ok {
		return sentinel.ErrNotFound
	}
	s.complaints[c.Number] = cloneComplaint(c)
	return nil
}

func (s *InMemory) ListAssigned(_ context.Context) ([]*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Complaint
	for _, c := range s.complaints {
		if !c.AssignedOfficer.IsZero() {
			copied := cloneComplaint(&c)
			out = append(out, &copied)
		}
	}
	return out, nil
}

func cloneComplaint(c *models.Complaint) models.Complaint {
	copied := *c
	copied.TransferHistory = append([]models.TransferHistoryEntry{}, c.TransferHistory...)
	return copied
}
