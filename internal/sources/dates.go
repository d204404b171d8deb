package sources

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2 Jan 2006",
	"02 Jan 2006",
}

// parseDate reads the date formats seen in Indian government feeds.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeDate rewrites a recognised date as YYYY-MM-DD and leaves
// anything else untouched.
func normalizeDate(s string) string {
	if t, ok := parseDate(s); ok {
		return t.Format("2006-01-02")
	}
	return strings.TrimSpace(s)
}
