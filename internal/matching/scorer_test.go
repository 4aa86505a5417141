package matching

import (
	"reflect"
	"testing"
	"time"

	"peerview/internal/models"
)

func scoringCriteria() models.MatchCriteria {
	return models.MatchCriteria{
		TargetOrganizationID: 20,
		StartDate:            date(2026, time.May, 1),
		EndDate:              date(2026, time.May, 14),
		RequiredExpertise:    []models.ExpertiseArea{models.AreaATS, models.AreaCNS},
		PreferredExpertise:   []models.ExpertiseArea{models.AreaSMS},
		RequiredLanguages:    []string{models.LanguageEnglish},
		PreferredLanguages:   []string{models.LanguageFrench},
	}
}

func TestScoreFullMatch(t *testing.T) {
	reviewer := testReviewer(1, 10)
	withExpertise(reviewer, models.AreaATS, models.AreaCNS, models.AreaSMS)
	withLanguages(reviewer, models.LanguageEnglish, models.LanguageFrench)
	withAvailability(reviewer, models.AvailabilityAvailable, date(2026, time.April, 1), date(2026, time.June, 1))
	reviewer.ReviewsCompleted = 20

	result := Score(reviewer, scoringCriteria(), DefaultWeights())
	if result.Total != 100 {
		t.Errorf("Full match should score 100, got %f", result.Total)
	}
	if result.Breakdown.Expertise != 100 || result.Breakdown.Language != 100 ||
		result.Breakdown.Availability != 100 || result.Breakdown.Experience != 100 {
		t.Errorf("All factors should be 100, got %+v", result.Breakdown)
	}
	if !result.Eligible {
		t.Error("Conflict-free SELECTED reviewer should be eligible")
	}
}

func TestScorePartialExpertise(t *testing.T) {
	reviewer := withExpertise(testReviewer(1, 10), models.AreaATS)

	result := Score(reviewer, scoringCriteria(), DefaultWeights())
	// 1 of 2 required (x80) and 0 of 1 preferred (x20).
	if result.Breakdown.Expertise != 40 {
		t.Errorf("Expected expertise factor 40, got %f", result.Breakdown.Expertise)
	}
	if !reflect.DeepEqual(result.MatchedExpertise, []models.ExpertiseArea{models.AreaATS}) {
		t.Errorf("Expected matched [ATS], got %v", result.MatchedExpertise)
	}
	if !reflect.DeepEqual(result.UnmatchedExpertise, []models.ExpertiseArea{models.AreaCNS}) {
		t.Errorf("Expected unmatched [CNS], got %v", result.UnmatchedExpertise)
	}
}

func TestScoreEmptyRequirementSetsContributeZero(t *testing.T) {
	// An empty requirement set must not be rewarded as full credit.
	reviewer := withExpertise(testReviewer(1, 10), models.AreaATS)
	criteria := models.MatchCriteria{
		TargetOrganizationID: 20,
		StartDate:            date(2026, time.May, 1),
		EndDate:              date(2026, time.May, 14),
	}

	result := Score(reviewer, criteria, DefaultWeights())
	if result.Breakdown.Expertise != 0 {
		t.Errorf("Empty expertise requirements should contribute 0, got %f", result.Breakdown.Expertise)
	}
	if result.Breakdown.Language != 0 {
		t.Errorf("Empty language requirements should contribute 0, got %f", result.Breakdown.Language)
	}
}

func TestScoreAvailabilityIsBinary(t *testing.T) {
	// Two adjacent periods jointly cover the range; the binary factor still
	// demands a single fully covering period, while the continuous ratio
	// reports full coverage.
	reviewer := testReviewer(1, 10)
	withAvailability(reviewer, models.AvailabilityAvailable, date(2026, time.May, 1), date(2026, time.May, 7))
	withAvailability(reviewer, models.AvailabilityAvailable, date(2026, time.May, 8), date(2026, time.May, 14))

	result := Score(reviewer, scoringCriteria(), DefaultWeights())
	if result.Breakdown.Availability != 0 {
		t.Errorf("Binary availability factor should be 0 without a single covering period, got %f", result.Breakdown.Availability)
	}
	if result.AvailabilityRatio != 1 {
		t.Errorf("Continuous availability ratio should be 1, got %f", result.AvailabilityRatio)
	}
}

func TestScoreExperienceSaturation(t *testing.T) {
	reviewer := testReviewer(1, 10)
	reviewer.ReviewsCompleted = 10

	result := Score(reviewer, scoringCriteria(), DefaultWeights())
	if result.Breakdown.Experience != 50 {
		t.Errorf("10 completed reviews should score 50, got %f", result.Breakdown.Experience)
	}

	reviewer.ReviewsCompleted = 60
	result = Score(reviewer, scoringCriteria(), DefaultWeights())
	if result.Breakdown.Experience != 100 {
		t.Errorf("Experience factor should saturate at 100, got %f", result.Breakdown.Experience)
	}
}

func TestScoreDeterministic(t *testing.T) {
	reviewer := testReviewer(1, 10)
	withExpertise(reviewer, models.AreaATS, models.AreaSMS)
	withLanguages(reviewer, models.LanguageEnglish)
	withAvailability(reviewer, models.AvailabilityAvailable, date(2026, time.May, 1), date(2026, time.May, 14))
	reviewer.ReviewsCompleted = 7

	first := Score(reviewer, scoringCriteria(), DefaultWeights())
	second := Score(reviewer, scoringCriteria(), DefaultWeights())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Score must be deterministic:\n%+v\n%+v", first, second)
	}
}

func TestScoreHardBlockMarksIneligible(t *testing.T) {
	reviewer := testReviewer(1, 20) // home org is the target

	result := Score(reviewer, scoringCriteria(), DefaultWeights())
	if result.Eligible {
		t.Error("Hard-blocked reviewer must not be eligible")
	}
	if result.Conflict.Severity != models.SeverityHardBlock {
		t.Errorf("Expected HARD_BLOCK conflict, got %+v", result.Conflict)
	}
}

func TestSortResultsTieBreaks(t *testing.T) {
	results := []models.MatchResult{
		{ReviewerID: 3, Total: 50, ReviewsCompleted: 5},
		{ReviewerID: 1, Total: 50, ReviewsCompleted: 5},
		{ReviewerID: 2, Total: 50, ReviewsCompleted: 5, IsLeadQualified: true},
		{ReviewerID: 4, Total: 50, ReviewsCompleted: 9},
		{ReviewerID: 5, Total: 80},
	}

	SortResults(results)

	got := make([]uint, len(results))
	for i, r := range results {
		got[i] = r.ReviewerID
	}
	// Highest total first; then more reviews, then lead flag, then id.
	want := []uint{5, 4, 2, 1, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected order %v, got %v", want, got)
	}
}

func TestWeightsValidate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Errorf("Default weights should validate: %v", err)
	}
	bad := ScoringWeights{Expertise: 50, Language: 30, Availability: 30, Experience: 10}
	if err := bad.Validate(); err == nil {
		t.Error("Weights not summing to 100 should fail validation")
	}
	negative := ScoringWeights{Expertise: -10, Language: 60, Availability: 30, Experience: 20}
	if err := negative.Validate(); err == nil {
		t.Error("Negative weights should fail validation")
	}
}
