// Package storage persists the farmer activity log.
package storage

import (
	"sort"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// ActivityStore provides activity log persistence.
type ActivityStore interface {
	// CreateActivity stores a new activity. Returns ErrActivityAlreadyExists
	// if the ID is taken.
	CreateActivity(activity *models.Activity) error
	// GetActivity retrieves an activity by ID. Returns ErrActivityNotFound if
	// not found.
	GetActivity(id string) (*models.Activity, error)
	// DeleteActivity deletes an activity by ID. Returns ErrActivityNotFound if
	// not found.
	DeleteActivity(id string) error
	// ListActivities returns a farmer's activities newest first, or every
	// farmer's when farmerID is empty. It returns one page starting at offset
	// and the total count. A limit of 0 returns everything after offset.
	ListActivities(farmerID string, offset, limit int) ([]*models.Activity, int, error)
	// Close releases the store.
	Close() error
}

// sortNewestFirst orders by activity date, then creation time, then ID.
func sortNewestFirst(activities []*models.Activity) {
	sort.Slice(activities, func(i, j int) bool {
		a, b := activities[i], activities[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// page slices a sorted list.
func page(activities []*models.Activity, offset, limit int) []*models.Activity {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(activities) {
		return []*models.Activity{}
	}
	end := len(activities)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return activities[offset:end]
}
