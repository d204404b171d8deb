package models

// Severity grades a pest alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity maps free-form upstream text to a Severity. Unknown values
// are treated as medium.
func ParseSeverity(s string) Severity {
	switch normalizeEnum(s) {
	case "low", "minor":
		return SeverityLow
	case "high", "severe":
		return SeverityHigh
	case "critical", "extreme", "very high":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// Rank orders severities from low (0) to critical (3).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 1
	}
}

// PestAlert is a pest or disease outbreak warning for a crop and district.
type PestAlert struct {
	ID                string   `json:"id"`
	Pest              string   `json:"pest_name"`
	PestLabel         string   `json:"pest_label"`
	Crop              string   `json:"crop"`
	CropLabel         string   `json:"crop_label"`
	District          string   `json:"district"`
	Severity          Severity `json:"severity"`
	Description       string   `json:"description"`
	RecommendedAction string   `json:"recommended_action"`
	Date              string   `json:"date"`
	Source            string   `json:"source"`
}
