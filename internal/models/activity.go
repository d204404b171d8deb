package models

import (
	"fmt"
	"strings"
	"time"
)

// ActivityType is the kind of farm work being logged.
type ActivityType string

const (
	ActivitySowing     ActivityType = "sowing"
	ActivityIrrigation ActivityType = "irrigation"
	ActivityFertilizer ActivityType = "fertilizer"
	ActivityPesticide  ActivityType = "pesticide"
	ActivityWeeding    ActivityType = "weeding"
	ActivityHarvest    ActivityType = "harvest"
	ActivityOther      ActivityType = "other"
)

var activityTypes = map[ActivityType]bool{
	ActivitySowing:     true,
	ActivityIrrigation: true,
	ActivityFertilizer: true,
	ActivityPesticide:  true,
	ActivityWeeding:    true,
	ActivityHarvest:    true,
	ActivityOther:      true,
}

// Activity is one entry in a farmer's activity log.
type Activity struct {
	ID          string       `json:"id"`
	FarmerID    string       `json:"farmer_id"`
	Type        ActivityType `json:"type"`
	Crop        string       `json:"crop,omitempty"`
	Description string       `json:"description"`
	Quantity    string       `json:"quantity,omitempty"`
	Location    *Location    `json:"location,omitempty"`
	Date        time.Time    `json:"date"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Validate checks required fields.
func (a *Activity) Validate() error {
	if strings.TrimSpace(a.FarmerID) == "" {
		return fmt.Errorf("%w: farmer_id is required", ErrInvalidActivity)
	}
	if !activityTypes[a.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidActivity, a.Type)
	}
	if strings.TrimSpace(a.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidActivity)
	}
	if a.Location != nil && !a.Location.Valid() {
		return fmt.Errorf("%w: location out of range", ErrInvalidActivity)
	}
	return nil
}
