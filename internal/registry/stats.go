package registry

import (
	"sort"
	"time"

	"github.com/rahulsiiitm/kaizen-eparchi/pkg/types"
)

const recentPatientLimit = 5

// DayActivity is one bar of the last-seven-days activity chart.
type DayActivity struct {
	Label string // narrow weekday label ("M", "T", ...)
	Date  string // YYYY-MM-DD
	Count int
	Today bool
}

// VisitStats is the dashboard summary derived from the patient registry.
// Every count keys off each patient's best-available visit date.
type VisitStats struct {
	Today  int
	Month  int
	Total  int
	Week   []DayActivity
	Recent []types.Patient
}

// DeriveVisitStats computes the dashboard view of a patient collection at a
// given instant: visits today, visits this calendar month, total patients,
// per-day counts for the last seven days, and the five most recently seen
// patients. Patients with no parseable date count toward the total only and
// sort to the back of the recent list.
func DeriveVisitStats(patients []types.Patient, now time.Time) VisitStats {
	stats := VisitStats{Total: len(patients)}
	today := now.Format("2006-01-02")

	times := make(map[string]time.Time, len(patients))
	for _, p := range patients {
		t, ok := p.EffectiveVisitTime()
		if !ok {
			continue
		}
		times[p.ID] = t
		if t.Format("2006-01-02") == today {
			stats.Today++
		}
		if t.Year() == now.Year() && t.Month() == now.Month() {
			stats.Month++
		}
	}

	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		dayStr := day.Format("2006-01-02")
		count := 0
		for _, t := range times {
			if t.Format("2006-01-02") == dayStr {
				count++
			}
		}
		stats.Week = append(stats.Week, DayActivity{
			Label: day.Weekday().String()[:1],
			Date:  dayStr,
			Count: count,
			Today: i == 0,
		})
	}

	recent := make([]types.Patient, len(patients))
	copy(recent, patients)
	sort.SliceStable(recent, func(i, j int) bool {
		return times[recent[i].ID].After(times[recent[j].ID])
	})
	if len(recent) > recentPatientLimit {
		recent = recent[:recentPatientLimit]
	}
	stats.Recent = recent
	return stats
}
