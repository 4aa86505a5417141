package matching

import (
	"time"

	"peerview/internal/models"
)

// FindCommonRanges finds the contiguous date ranges inside [startDate, endDate]
// where every given reviewer is simultaneously available (AVAILABLE or
// TENTATIVE), dropping ranges shorter than minDays.
//
// Each reviewer's calendar days are materialized and intersected, then merged
// into maximal contiguous ranges. The naive O(reviewers × days) walk is fine
// at the scales involved (team-sized groups, at most a year of days).
func FindCommonRanges(reviewers []models.ReviewerProfile, startDate, endDate time.Time, minDays int) []models.DateRange {
	if len(reviewers) == 0 {
		return []models.DateRange{}
	}
	if minDays < 1 {
		minDays = 1
	}

	start := dateOnly(startDate)
	end := dateOnly(endDate)
	if end.Before(start) {
		start, end = end, start
	}

	common := availableDays(&reviewers[0], start, end)
	for i := 1; i < len(reviewers); i++ {
		days := availableDays(&reviewers[i], start, end)
		for day := range common {
			if !days[day] {
				delete(common, day)
			}
		}
		if len(common) == 0 {
			return []models.DateRange{}
		}
	}

	ranges := []models.DateRange{}
	var rangeStart *time.Time
	var prev time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if common[day] {
			if rangeStart == nil {
				d := day
				rangeStart = &d
			}
			prev = day
			continue
		}
		if rangeStart != nil {
			appendIfLongEnough(&ranges, *rangeStart, prev, minDays)
			rangeStart = nil
		}
	}
	if rangeStart != nil {
		appendIfLongEnough(&ranges, *rangeStart, prev, minDays)
	}

	return ranges
}

// availableDays collects the calendar days in [start, end] on which the
// reviewer is AVAILABLE or TENTATIVE.
func availableDays(reviewer *models.ReviewerProfile, start, end time.Time) map[time.Time]bool {
	days := make(map[time.Time]bool)
	for i := range reviewer.Availability {
		p := &reviewer.Availability[i]
		if p.Type != models.AvailabilityAvailable && p.Type != models.AvailabilityTentative {
			continue
		}
		pStart := dateOnly(p.StartDate)
		pEnd := dateOnly(p.EndDate)
		if pStart.Before(start) {
			pStart = start
		}
		if pEnd.After(end) {
			pEnd = end
		}
		for day := pStart; !day.After(pEnd); day = day.AddDate(0, 0, 1) {
			days[day] = true
		}
	}
	return days
}

func appendIfLongEnough(ranges *[]models.DateRange, start, end time.Time, minDays int) {
	r := newDateRange(start, end)
	if r.Days >= minDays {
		*ranges = append(*ranges, r)
	}
}
