package store

import (
	"context"
	"strings"
	"sync"

	"suvidha/internal/officer/models"
	"suvidha/pkg/domain"
	"suvidha/pkg/platform/sentinel"
)

// InMemory keeps officers in process memory. Doubles as the test fake.
type InMemory struct {
	mu       sync.RWMutex
	officers map[domain.OfficerCode]models.Officer
}

func NewInMemory() *InMemory {
	return &InMemory{officers: make(map[domain.OfficerCode]models.Officer)}
}

func (s *InMemory) Create(_ context.Context, o *models.Officer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.officers[o.Code]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.officers[o.Code] = cloneOfficer(o)
	return nil
}

func (s *InMemory) FindByCode(_ context.Context, code domain.OfficerCode) (*models.Officer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.officers[code]; ok {
		copied := cloneOfficer(&o)
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(_ context.Context, o *models.Officer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.officers[o.Code]; !ok {
		return sentinel.ErrNotFound
	}
	s.officers[o.Code] = cloneOfficer(o)
	return nil
}

func (s *InMemory) Delete(_ context.Context, code domain.OfficerCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.officers[code]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.officers, code)
	return nil
}

// MaxCodeForPrefix returns the lexicographically greatest officer code with
// the given prefix, or empty when the prefix has no officers yet.
func (s *InMemory) MaxCodeForPrefix(_ context.Context, prefix string) (domain.OfficerCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max domain.OfficerCode
	for code := range s.officers {
		if strings.HasPrefix(string(code), prefix) && code > max {
			max = code
		}
	}
	return max, nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Officer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Officer, 0, len(s.officers))
	for _, o := range s.officers {
		copied := cloneOfficer(&o)
		out = append(out, &copied)
	}
	return out, nil
}

// Execute runs validate-then-mutate atomically under the store lock, so a
// concurrent writer cannot slip between the check and the update.
func (s *InMemory) Execute(_ context.Context, code domain.OfficerCode, validate func(*models.Officer) error, mutate func(*models.Officer)) (*models.Officer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.officers[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := cloneOfficer(&o)
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.officers[code] = cloneOfficer(&working)
	return &working, nil
}

func cloneOfficer(o *models.Officer) models.Officer {
	copied := *o
	copied.History = append([]models.AssignmentChange{}, o.History...)
	return copied
}
