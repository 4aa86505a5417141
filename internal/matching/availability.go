package matching

import (
	"time"

	"peerview/internal/models"
)

// dateOnly truncates a timestamp to its calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysInRange counts the days in an inclusive date range.
func daysInRange(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

// periodCoversDay reports whether day falls inside the period's date range.
func periodCoversDay(p *models.AvailabilityPeriod, day time.Time) bool {
	return !day.Before(dateOnly(p.StartDate)) && !day.After(dateOnly(p.EndDate))
}

// Coverage determines how well a reviewer's declared availability covers the
// requested date range.
//
// The range is walked day by day, inclusive on both ends; a day counts as
// covered when it falls inside at least one AVAILABLE period. A zero-length
// range (start == end) is a single-day range. TENTATIVE periods contribute at
// half weight to WeightedRatio for dashboard statistics, but never to Ratio
// or FullyCovered. The result is independent of the stored period order.
func Coverage(reviewer *models.ReviewerProfile, startDate, endDate time.Time) models.CoverageResult {
	start := dateOnly(startDate)
	end := dateOnly(endDate)
	if end.Before(start) {
		start, end = end, start
	}

	totalDays := daysInRange(start, end)
	coveredDays := 0
	weighted := 0.0

	var gaps []models.DateRange
	var gapStart *time.Time

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		available := false
		tentative := false
		for i := range reviewer.Availability {
			p := &reviewer.Availability[i]
			if !periodCoversDay(p, day) {
				continue
			}
			switch p.Type {
			case models.AvailabilityAvailable:
				available = true
			case models.AvailabilityTentative:
				tentative = true
			}
		}

		switch {
		case available:
			coveredDays++
			weighted += 1.0
		case tentative:
			weighted += 0.5
		}

		if available {
			if gapStart != nil {
				gaps = append(gaps, newDateRange(*gapStart, day.AddDate(0, 0, -1)))
				gapStart = nil
			}
		} else if gapStart == nil {
			d := day
			gapStart = &d
		}
	}
	if gapStart != nil {
		gaps = append(gaps, newDateRange(*gapStart, end))
	}

	ratio := float64(coveredDays) / float64(totalDays)
	return models.CoverageResult{
		FullyCovered:  coveredDays == totalDays,
		Ratio:         ratio,
		WeightedRatio: weighted / float64(totalDays),
		Gaps:          gaps,
	}
}

// HasFullCoveringPeriod reports whether a single AVAILABLE period spans the
// whole requested range. The team-building score uses this binary check; the
// continuous ratio from Coverage feeds the per-member report.
func HasFullCoveringPeriod(reviewer *models.ReviewerProfile, startDate, endDate time.Time) bool {
	start := dateOnly(startDate)
	end := dateOnly(endDate)
	if end.Before(start) {
		start, end = end, start
	}
	for i := range reviewer.Availability {
		p := &reviewer.Availability[i]
		if p.Type != models.AvailabilityAvailable {
			continue
		}
		if !dateOnly(p.StartDate).After(start) && !dateOnly(p.EndDate).Before(end) {
			return true
		}
	}
	return false
}

// PeriodsOverlap reports whether two inclusive date ranges share at least one day.
func PeriodsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !dateOnly(aStart).After(dateOnly(bEnd)) && !dateOnly(bStart).After(dateOnly(aEnd))
}

func newDateRange(start, end time.Time) models.DateRange {
	return models.DateRange{
		Start: start,
		End:   end,
		Days:  daysInRange(start, end),
	}
}
