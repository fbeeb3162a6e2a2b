package feed

import (
	"sort"
	"strings"
	"time"

	"github.com/statusplus/portal-api/internal/models"
)

// The portal serves one school, so the civil day is fixed to its timezone.
const civilTimezone = "Europe/Vilnius"

var vilnius = mustLoadLocation(civilTimezone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CutoffDate returns the current civil date key (YYYY-MM-DD) in the school's
// timezone. Announcements dated strictly before this key are stale.
func CutoffDate(now time.Time) string {
	return now.In(vilnius).Format("2006-01-02")
}

// ApplyCutoff drops announcements whose date is strictly before today.
// Undated announcements never expire. ISO date keys compare correctly as
// strings, which also tolerates malformed dates the way the upstream does.
func ApplyCutoff(items []models.Announcement, today string) []models.Announcement {
	result := make([]models.Announcement, 0, len(items))
	for _, a := range items {
		date := strings.TrimSpace(a.Date)
		if date == "" || date >= today {
			result = append(result, a)
		}
	}
	return result
}

// SortNewestFirst orders announcements by effective timestamp descending.
// The sort is stable so repeated fetches of the same set always yield the
// same ordering regardless of upstream arrival order.
func SortNewestFirst(items []models.Announcement) {
	sort.SliceStable(items, func(i, j int) bool {
		return effectiveTime(items[i]).After(effectiveTime(items[j]))
	})
}

// effectiveTime prefers createdAt and falls back to the announcement date.
// Unparseable values sort last.
func effectiveTime(a models.Announcement) time.Time {
	for _, raw := range []string{a.CreatedAt, a.Date} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
