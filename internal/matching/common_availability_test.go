package matching

import (
	"testing"
	"time"

	"peerview/internal/models"
)

func TestFindCommonRangesIntersection(t *testing.T) {
	// A: Jan 1-8, B: Jan 3-10, C: Jan 1-10. Intersection is Jan 3-8.
	reviewers := []models.ReviewerProfile{
		*withAvailability(testReviewer(1, 10), models.AvailabilityAvailable, date(2026, time.January, 1), date(2026, time.January, 8)),
		*withAvailability(testReviewer(2, 11), models.AvailabilityAvailable, date(2026, time.January, 3), date(2026, time.January, 10)),
		*withAvailability(testReviewer(3, 12), models.AvailabilityAvailable, date(2026, time.January, 1), date(2026, time.January, 10)),
	}

	ranges := FindCommonRanges(reviewers, date(2026, time.January, 1), date(2026, time.January, 10), 3)
	if len(ranges) != 1 {
		t.Fatalf("Expected exactly one common range, got %v", ranges)
	}
	r := ranges[0]
	if !r.Start.Equal(date(2026, time.January, 3)) || !r.End.Equal(date(2026, time.January, 8)) {
		t.Errorf("Expected Jan 3 to Jan 8, got %s to %s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	if r.Days != 6 {
		t.Errorf("Expected 6 days inclusive, got %d", r.Days)
	}
}

func TestFindCommonRangesMinDaysFilter(t *testing.T) {
	// Two common windows: Jan 1-2 (2 days) and Jan 5-9 (5 days). Only the
	// second survives a 3-day minimum.
	a := withAvailability(testReviewer(1, 10), models.AvailabilityAvailable, date(2026, time.January, 1), date(2026, time.January, 9))
	b := withAvailability(testReviewer(2, 11), models.AvailabilityAvailable, date(2026, time.January, 1), date(2026, time.January, 2))
	b = withAvailability(b, models.AvailabilityAvailable, date(2026, time.January, 5), date(2026, time.January, 9))

	ranges := FindCommonRanges([]models.ReviewerProfile{*a, *b}, date(2026, time.January, 1), date(2026, time.January, 10), 3)
	if len(ranges) != 1 {
		t.Fatalf("Expected the short window to be dropped, got %v", ranges)
	}
	if !ranges[0].Start.Equal(date(2026, time.January, 5)) || ranges[0].Days != 5 {
		t.Errorf("Expected Jan 5-9 (5 days), got %+v", ranges[0])
	}
}

func TestFindCommonRangesTentativeCounts(t *testing.T) {
	reviewers := []models.ReviewerProfile{
		*withAvailability(testReviewer(1, 10), models.AvailabilityAvailable, date(2026, time.March, 1), date(2026, time.March, 5)),
		*withAvailability(testReviewer(2, 11), models.AvailabilityTentative, date(2026, time.March, 1), date(2026, time.March, 5)),
	}

	ranges := FindCommonRanges(reviewers, date(2026, time.March, 1), date(2026, time.March, 5), 1)
	if len(ranges) != 1 || ranges[0].Days != 5 {
		t.Errorf("TENTATIVE periods count toward common availability, got %v", ranges)
	}
}

func TestFindCommonRangesUnavailableExcluded(t *testing.T) {
	a := withAvailability(testReviewer(1, 10), models.AvailabilityAvailable, date(2026, time.March, 1), date(2026, time.March, 10))
	b := withAvailability(testReviewer(2, 11), models.AvailabilityAvailable, date(2026, time.March, 1), date(2026, time.March, 10))
	b = withAvailability(b, models.AvailabilityOnAssignment, date(2026, time.March, 4), date(2026, time.March, 6))

	// ON_ASSIGNMENT does not grant availability by itself, but here it overlaps
	// an AVAILABLE period, which still covers those days.
	ranges := FindCommonRanges([]models.ReviewerProfile{*a, *b}, date(2026, time.March, 1), date(2026, time.March, 10), 1)
	if len(ranges) != 1 || ranges[0].Days != 10 {
		t.Errorf("Expected one 10-day range, got %v", ranges)
	}

	// Without the underlying AVAILABLE period the assignment days are gaps.
	c := withAvailability(testReviewer(3, 12), models.AvailabilityAvailable, date(2026, time.March, 1), date(2026, time.March, 3))
	c = withAvailability(c, models.AvailabilityOnAssignment, date(2026, time.March, 4), date(2026, time.March, 6))
	c = withAvailability(c, models.AvailabilityAvailable, date(2026, time.March, 7), date(2026, time.March, 10))

	ranges = FindCommonRanges([]models.ReviewerProfile{*a, *c}, date(2026, time.March, 1), date(2026, time.March, 10), 1)
	if len(ranges) != 2 {
		t.Fatalf("Expected two ranges split around the assignment, got %v", ranges)
	}
	if ranges[0].Days != 3 || ranges[1].Days != 4 {
		t.Errorf("Expected 3-day and 4-day ranges, got %v", ranges)
	}
}

func TestFindCommonRangesNoOverlap(t *testing.T) {
	reviewers := []models.ReviewerProfile{
		*withAvailability(testReviewer(1, 10), models.AvailabilityAvailable, date(2026, time.April, 1), date(2026, time.April, 5)),
		*withAvailability(testReviewer(2, 11), models.AvailabilityAvailable, date(2026, time.April, 10), date(2026, time.April, 15)),
	}

	ranges := FindCommonRanges(reviewers, date(2026, time.April, 1), date(2026, time.April, 30), 1)
	if len(ranges) != 0 {
		t.Errorf("Disjoint calendars have no common range, got %v", ranges)
	}
}

func TestFindCommonRangesEmptyPool(t *testing.T) {
	ranges := FindCommonRanges(nil, date(2026, time.April, 1), date(2026, time.April, 30), 1)
	if ranges == nil || len(ranges) != 0 {
		t.Errorf("Empty pool should yield an empty, non-nil slice, got %v", ranges)
	}
}
