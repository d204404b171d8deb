package storage

import (
	"sync"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// Compile-time check that MemoryStore implements ActivityStore.
var _ ActivityStore = (*MemoryStore)(nil)

// MemoryStore keeps activities in memory. Useful for testing and development.
type MemoryStore struct {
	activities map[string]*models.Activity
	mu         sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		activities: make(map[string]*models.Activity),
	}
}

// CreateActivity stores a copy of activity.
func (s *MemoryStore) CreateActivity(activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.activities[activity.ID]; exists {
		return models.ErrActivityAlreadyExists
	}
	s.activities[activity.ID] = copyActivity(activity)
	return nil
}

// GetActivity retrieves a copy of an activity.
func (s *MemoryStore) GetActivity(id string) (*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.activities[id]
	if !ok {
		return nil, models.ErrActivityNotFound
	}
	return copyActivity(a), nil
}

// DeleteActivity removes an activity.
func (s *MemoryStore) DeleteActivity(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activities[id]; !ok {
		return models.ErrActivityNotFound
	}
	delete(s.activities, id)
	return nil
}

// ListActivities returns activities newest first with the total count.
func (s *MemoryStore) ListActivities(farmerID string, offset, limit int) ([]*models.Activity, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var activities []*models.Activity
	for _, a := range s.activities {
		if farmerID != "" && a.FarmerID != farmerID {
			continue
		}
		activities = append(activities, copyActivity(a))
	}
	sortNewestFirst(activities)
	return page(activities, offset, limit), len(activities), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func copyActivity(a *models.Activity) *models.Activity {
	c := *a
	if a.Location != nil {
		loc := *a.Location
		c.Location = &loc
	}
	return &c
}
