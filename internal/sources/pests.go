package sources

import (
	"context"
	"sort"
	"strings"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// PestFilter narrows a pest alert request. Date keeps alerts issued on or
// after that day; PestName matches as a case-insensitive substring.
type PestFilter struct {
	Crop     string
	District string
	Date     string
	PestName string
}

func (f PestFilter) matches(a models.PestAlert) bool {
	if f.Crop != "" && !models.EqualFold(a.Crop, f.Crop) {
		return false
	}
	if f.District != "" && !models.EqualFold(a.District, f.District) {
		return false
	}
	if f.PestName != "" && !strings.Contains(strings.ToLower(a.Pest), strings.ToLower(strings.TrimSpace(f.PestName))) {
		return false
	}
	if f.Date != "" {
		since, ok := parseDate(f.Date)
		if !ok {
			return true
		}
		issued, ok := parseDate(a.Date)
		if !ok || issued.Before(since) {
			return false
		}
	}
	return true
}

// FetchPestAlerts returns Kerala pest and disease alerts, most severe first.
func (c *Client) FetchPestAlerts(ctx context.Context, filter PestFilter) models.Dataset[models.PestAlert] {
	rows, provenance := c.tiered(ctx, SourcePestAlerts,
		func(ctx context.Context) ([]record, error) {
			return c.getJSONRecords(ctx, SourcePestAlerts, c.config.PestAlerts.URL)
		},
		func(ctx context.Context) ([]record, error) {
			return c.getCSVRecords(ctx, SourcePestAlerts, c.config.PestAlerts.CSVURL)
		},
	)

	if provenance == models.ProvenanceFallback {
		return models.Dataset[models.PestAlert]{
			Items:      c.fallbackPestAlerts(filter),
			Provenance: provenance,
		}
	}

	source := "kerala-agriculture"
	if provenance == models.ProvenanceSecondary {
		source = "csv"
	}
	alerts := make([]models.PestAlert, 0, len(rows))
	for _, row := range rows {
		a, ok := c.normalizePestAlert(row, source)
		if !ok || !filter.matches(a) {
			continue
		}
		alerts = append(alerts, a)
	}
	sortPestAlerts(alerts)
	return models.Dataset[models.PestAlert]{Items: alerts, Provenance: provenance}
}

func (c *Client) normalizePestAlert(row record, source string) (models.PestAlert, bool) {
	pest := row.get("pest_name", "pest", "disease", "name")
	if pest == "" {
		return models.PestAlert{}, false
	}
	crop := row.get("crop", "crop_name", "commodity")
	district := row.get("district", "location", "region")
	date := normalizeDate(row.get("date", "issued_on", "issue_date", "reported_date"))
	if date == "" {
		date = c.today()
	}
	id := row.get("id", "alert_id")
	if id == "" {
		id = fallbackID("pest", pest, crop, district, date)
	}
	return models.PestAlert{
		ID:                id,
		Pest:              pest,
		PestLabel:         models.MalayalamLabel(pest),
		Crop:              crop,
		CropLabel:         models.MalayalamLabel(crop),
		District:          district,
		Severity:          models.ParseSeverity(row.get("severity", "risk", "level")),
		Description:       row.get("description", "details", "symptoms"),
		RecommendedAction: row.get("recommended_action", "recommendation", "action", "control_measures"),
		Date:              date,
		Source:            source,
	}, true
}

// sortPestAlerts orders by severity, then newest first.
func sortPestAlerts(alerts []models.PestAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].Severity.Rank(), alerts[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return alerts[i].Date > alerts[j].Date
	})
}
