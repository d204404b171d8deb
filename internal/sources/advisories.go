package sources

import (
	"context"
	"sort"
	"strings"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// AdvisoryFilter narrows a government advisory request.
type AdvisoryFilter struct {
	SchemeType string
	Crop       string
}

func (f AdvisoryFilter) matches(a models.GovernmentAdvisory) bool {
	if f.SchemeType != "" && !models.EqualFold(a.SchemeType, f.SchemeType) {
		return false
	}
	return a.AppliesTo(f.Crop)
}

// FetchGovernmentAdvisories returns scheme announcements, highest priority first.
func (c *Client) FetchGovernmentAdvisories(ctx context.Context, filter AdvisoryFilter) models.Dataset[models.GovernmentAdvisory] {
	rows, provenance := c.tiered(ctx, SourceAdvisories,
		func(ctx context.Context) ([]record, error) {
			return c.getJSONRecords(ctx, SourceAdvisories, c.config.Advisories.URL)
		},
		func(ctx context.Context) ([]record, error) {
			return c.getCSVRecords(ctx, SourceAdvisories, c.config.Advisories.CSVURL)
		},
	)

	if provenance == models.ProvenanceFallback {
		return models.Dataset[models.GovernmentAdvisory]{
			Items:      c.fallbackAdvisories(filter),
			Provenance: provenance,
		}
	}

	source := "government"
	if provenance == models.ProvenanceSecondary {
		source = "csv"
	}
	advisories := make([]models.GovernmentAdvisory, 0, len(rows))
	for _, row := range rows {
		a, ok := c.normalizeAdvisory(row, source)
		if !ok || !filter.matches(a) {
			continue
		}
		advisories = append(advisories, a)
	}
	sortAdvisories(advisories)
	return models.Dataset[models.GovernmentAdvisory]{Items: advisories, Provenance: provenance}
}

func (c *Client) normalizeAdvisory(row record, source string) (models.GovernmentAdvisory, bool) {
	scheme := row.get("scheme_name", "scheme", "title", "name")
	if scheme == "" {
		return models.GovernmentAdvisory{}, false
	}
	date := normalizeDate(row.get("date", "published_on", "announced_on"))
	if date == "" {
		date = c.today()
	}
	id := row.get("id", "scheme_id")
	if id == "" {
		id = fallbackID("scheme", scheme, date)
	}
	return models.GovernmentAdvisory{
		ID:                id,
		Scheme:            scheme,
		SchemeLabel:       models.MalayalamLabel(scheme),
		SchemeType:        strings.ToLower(row.get("scheme_type", "type", "category")),
		Crops:             splitList(row.get("crops", "crop", "applicable_crops")),
		Priority:          models.ParsePriority(row.get("priority", "importance")),
		Description:       row.get("description", "details", "summary"),
		RecommendedAction: row.get("recommended_action", "action", "how_to_apply"),
		Deadline:          normalizeDate(row.get("deadline", "last_date")),
		Date:              date,
		Source:            source,
	}, true
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func priorityRank(p models.Priority) int {
	switch p {
	case models.PriorityHigh:
		return 2
	case models.PriorityLow:
		return 0
	default:
		return 1
	}
}

// sortAdvisories orders by priority, then newest first.
func sortAdvisories(advisories []models.GovernmentAdvisory) {
	sort.SliceStable(advisories, func(i, j int) bool {
		ri, rj := priorityRank(advisories[i].Priority), priorityRank(advisories[j].Priority)
		if ri != rj {
			return ri > rj
		}
		return advisories[i].Date > advisories[j].Date
	})
}
