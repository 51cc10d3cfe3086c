package directory

import (
	"context"
	"sync"

	"suvidha/pkg/domain"
	"suvidha/pkg/platform/sentinel"
	"suvidha/pkg/requestcontext"
)

// InMemoryStore keeps the directory in process memory. It doubles as the test
// fake for every service that takes a Reader.
type InMemoryStore struct {
	mu             sync.RWMutex
	departments    map[domain.DepartmentID]Department
	subDepartments map[domain.SubDepartmentID]SubDepartment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		departments:    make(map[domain.DepartmentID]Department),
		subDepartments: make(map[domain.SubDepartmentID]SubDepartment),
	}
}

func (s *InMemoryStore) GetDepartment(_ context.Context, id domain.DepartmentID) (*Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.departments[id]; ok {
		return &d, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetSubDepartment(_ context.Context, id domain.SubDepartmentID) (*SubDepartment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sd, ok := s.subDepartments[id]; ok {
		return &sd, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListDepartments(_ context.Context) ([]*Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Department, 0, len(s.departments))
	for _, d := range s.departments {
		copied := d
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemoryStore) ListSubDepartments(_ context.Context) ([]*SubDepartment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SubDepartment, 0, len(s.subDepartments))
	for _, sd := range s.subDepartments {
		copied := sd
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemoryStore) SaveDepartment(_ context.Context, d *Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments[d.ID] = *d
	return nil
}

func (s *InMemoryStore) SaveSubDepartment(_ context.Context, sd *SubDepartment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subDepartments[sd.ID] = *sd
	return nil
}

func (s *InMemoryStore) DeactivateSubDepartment(ctx context.Context, id domain.SubDepartmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sd, ok := s.subDepartments[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	sd.Active = false
	sd.UpdatedAt = requestcontext.Now(ctx)
	s.subDepartments[id] = sd
	return nil
}
