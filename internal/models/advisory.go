package models

// Priority grades a government advisory.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps free-form upstream text to a Priority.
func ParsePriority(s string) Priority {
	switch normalizeEnum(s) {
	case "low":
		return PriorityLow
	case "high", "urgent", "critical":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// GovernmentAdvisory is a scheme announcement or departmental advisory.
type GovernmentAdvisory struct {
	ID                string   `json:"id"`
	Scheme            string   `json:"scheme_name"`
	SchemeLabel       string   `json:"scheme_label"`
	SchemeType        string   `json:"scheme_type"`
	Crops             []string `json:"crops,omitempty"`
	Priority          Priority `json:"priority"`
	Description       string   `json:"description"`
	RecommendedAction string   `json:"recommended_action"`
	Deadline          string   `json:"deadline,omitempty"`
	Date              string   `json:"date"`
	Source            string   `json:"source"`
}

// AppliesTo reports whether the advisory covers crop. Advisories without a
// crop list apply to every crop.
func (a GovernmentAdvisory) AppliesTo(crop string) bool {
	if crop == "" || len(a.Crops) == 0 {
		return true
	}
	for _, c := range a.Crops {
		if EqualFold(c, crop) {
			return true
		}
	}
	return false
}
