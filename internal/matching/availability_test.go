package matching

import (
	"math/rand"
	"testing"
	"time"

	"peerview/internal/models"
)

func TestCoverageFullRange(t *testing.T) {
	reviewer := withAvailability(testReviewer(1, 10),
		models.AvailabilityAvailable, date(2026, time.March, 1), date(2026, time.March, 31))

	result := Coverage(reviewer, date(2026, time.March, 10), date(2026, time.March, 20))
	if !result.FullyCovered {
		t.Error("Range inside an AVAILABLE period should be fully covered")
	}
	if result.Ratio != 1 {
		t.Errorf("Expected ratio 1, got %f", result.Ratio)
	}
	if len(result.Gaps) != 0 {
		t.Errorf("Expected no gaps, got %d", len(result.Gaps))
	}
}

func TestCoveragePartialWithGaps(t *testing.T) {
	// Available Mar 1-5 and Mar 8-10 over a Mar 1-10 request: 8 of 10 days.
	reviewer := testReviewer(1, 10)
	withAvailability(reviewer, models.AvailabilityAvailable, date(2026, time.March, 1), date(2026, time.March, 5))
	withAvailability(reviewer, models.AvailabilityAvailable, date(2026, time.March, 8), date(2026, time.March, 10))

	result := Coverage(reviewer, date(2026, time.March, 1), date(2026, time.March, 10))
	if result.FullyCovered {
		t.Error("Range with a gap should not be fully covered")
	}
	if result.Ratio != 0.8 {
		t.Errorf("Expected ratio 0.8, got %f", result.Ratio)
	}
	if len(result.Gaps) != 1 {
		t.Fatalf("Expected one gap, got %d", len(result.Gaps))
	}
	gap := result.Gaps[0]
	if !gap.Start.Equal(date(2026, time.March, 6)) || !gap.End.Equal(date(2026, time.March, 7)) || gap.Days != 2 {
		t.Errorf("Expected gap Mar 6-7 (2 days), got %+v", gap)
	}
}

func TestCoverageZeroLengthRange(t *testing.T) {
	reviewer := withAvailability(testReviewer(1, 10),
		models.AvailabilityAvailable, date(2026, time.March, 5), date(2026, time.March, 5))

	result := Coverage(reviewer, date(2026, time.March, 5), date(2026, time.March, 5))
	if !result.FullyCovered || result.Ratio != 1 {
		t.Errorf("Zero-length range should be a covered single day, got %+v", result)
	}

	uncovered := Coverage(reviewer, date(2026, time.March, 6), date(2026, time.March, 6))
	if uncovered.FullyCovered || uncovered.Ratio != 0 {
		t.Errorf("Uncovered single day should have ratio 0, got %+v", uncovered)
	}
}

func TestCoverageTentativeHalfWeight(t *testing.T) {
	// Tentative days count half toward the weighted ratio only.
	reviewer := testReviewer(1, 10)
	withAvailability(reviewer, models.AvailabilityAvailable, date(2026, time.March, 1), date(2026, time.March, 5))
	withAvailability(reviewer, models.AvailabilityTentative, date(2026, time.March, 6), date(2026, time.March, 10))

	result := Coverage(reviewer, date(2026, time.March, 1), date(2026, time.March, 10))
	if result.FullyCovered {
		t.Error("Tentative periods must never count toward fullyCovered")
	}
	if result.Ratio != 0.5 {
		t.Errorf("Expected ratio 0.5, got %f", result.Ratio)
	}
	if result.WeightedRatio != 0.75 {
		t.Errorf("Expected weighted ratio 0.75, got %f", result.WeightedRatio)
	}
}

func TestCoverageOrderIndependent(t *testing.T) {
	reviewer := testReviewer(1, 10)
	withAvailability(reviewer, models.AvailabilityAvailable, date(2026, time.March, 1), date(2026, time.March, 4))
	withAvailability(reviewer, models.AvailabilityTentative, date(2026, time.March, 5), date(2026, time.March, 7))
	withAvailability(reviewer, models.AvailabilityAvailable, date(2026, time.March, 8), date(2026, time.March, 12))
	withAvailability(reviewer, models.AvailabilityUnavailable, date(2026, time.March, 13), date(2026, time.March, 20))

	reference := Coverage(reviewer, date(2026, time.March, 1), date(2026, time.March, 20))

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 10; trial++ {
		rng.Shuffle(len(reviewer.Availability), func(i, j int) {
			reviewer.Availability[i], reviewer.Availability[j] = reviewer.Availability[j], reviewer.Availability[i]
		})
		result := Coverage(reviewer, date(2026, time.March, 1), date(2026, time.March, 20))
		if result.Ratio != reference.Ratio || result.FullyCovered != reference.FullyCovered ||
			result.WeightedRatio != reference.WeightedRatio {
			t.Fatalf("Coverage changed after permuting periods: %+v vs %+v", result, reference)
		}
	}
}

func TestCoverageIgnoresNonAvailableTypes(t *testing.T) {
	reviewer := testReviewer(1, 10)
	withAvailability(reviewer, models.AvailabilityUnavailable, date(2026, time.March, 1), date(2026, time.March, 10))
	withAvailability(reviewer, models.AvailabilityOnAssignment, date(2026, time.March, 1), date(2026, time.March, 10))

	result := Coverage(reviewer, date(2026, time.March, 1), date(2026, time.March, 10))
	if result.Ratio != 0 || result.WeightedRatio != 0 {
		t.Errorf("UNAVAILABLE and ON_ASSIGNMENT periods should not cover days, got %+v", result)
	}
}

func TestHasFullCoveringPeriod(t *testing.T) {
	reviewer := testReviewer(1, 10)
	withAvailability(reviewer, models.AvailabilityAvailable, date(2026, time.March, 1), date(2026, time.March, 5))
	withAvailability(reviewer, models.AvailabilityAvailable, date(2026, time.March, 6), date(2026, time.March, 10))

	// Two adjacent periods jointly cover the range, but no single one does.
	if HasFullCoveringPeriod(reviewer, date(2026, time.March, 1), date(2026, time.March, 10)) {
		t.Error("No single period covers Mar 1-10")
	}
	if !HasFullCoveringPeriod(reviewer, date(2026, time.March, 2), date(2026, time.March, 4)) {
		t.Error("Mar 2-4 is inside the first period")
	}

	tentative := withAvailability(testReviewer(2, 10),
		models.AvailabilityTentative, date(2026, time.March, 1), date(2026, time.March, 31))
	if HasFullCoveringPeriod(tentative, date(2026, time.March, 5), date(2026, time.March, 10)) {
		t.Error("Tentative periods must not satisfy the full-cover check")
	}
}

func TestPeriodsOverlap(t *testing.T) {
	tests := []struct {
		name           string
		aStart, aEnd   time.Time
		bStart, bEnd   time.Time
		expectsOverlap bool
	}{
		{"disjoint", date(2026, 1, 1), date(2026, 1, 5), date(2026, 1, 10), date(2026, 1, 15), false},
		{"touching endpoints", date(2026, 1, 1), date(2026, 1, 5), date(2026, 1, 5), date(2026, 1, 10), true},
		{"contained", date(2026, 1, 1), date(2026, 1, 31), date(2026, 1, 10), date(2026, 1, 15), true},
		{"partial", date(2026, 1, 1), date(2026, 1, 12), date(2026, 1, 10), date(2026, 1, 20), true},
	}

	for _, tc := range tests {
		if got := PeriodsOverlap(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.expectsOverlap {
			t.Errorf("%s: expected overlap=%v, got %v", tc.name, tc.expectsOverlap, got)
		}
	}
}
