package records

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu       sync.RWMutex
	medical  map[uuid.UUID]MedicalRecord
	reviews  map[uuid.UUID]Review
	surveys  map[uuid.UUID]Survey
	getCalls int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		medical: make(map[uuid.UUID]MedicalRecord),
		reviews: make(map[uuid.UUID]Review),
		surveys: make(map[uuid.UUID]Survey),
	}
}

func (s *MemoryStore) CreateMedicalRecord(_ context.Context, in MedicalRecord) (*MedicalRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID, in.CreatedAt = uuid.New(), time.Now()
	s.medical[in.ID] = in
	return &in, nil
}

func (s *MemoryStore) CreateReview(_ context.Context, in Review) (*Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID, in.CreatedAt = uuid.New(), time.Now()
	s.reviews[in.ID] = in
	return &in, nil
}

func (s *MemoryStore) CreateSurvey(_ context.Context, in Survey) (*Survey, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID, in.CreatedAt = uuid.New(), time.Now()
	s.surveys[in.ID] = in
	return &in, nil
}

func (s *MemoryStore) GetMedicalRecord(_ context.Context, id uuid.UUID) (*MedicalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	m, ok := s.medical[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &m, nil
}

func (s *MemoryStore) GetReview(_ context.Context, id uuid.UUID) (*Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	r, ok := s.reviews[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &r, nil
}

func (s *MemoryStore) GetSurvey(_ context.Context, id uuid.UUID) (*Survey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	sv, ok := s.surveys[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &sv, nil
}

// GetCalls counts Get* invocations.
func (s *MemoryStore) GetCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCalls
}

// Counts reports how many records of each kind were created.
func (s *MemoryStore) Counts() (medical, reviews, surveys int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.medical), len(s.reviews), len(s.surveys)
}
