package matching

import (
	"fmt"
	"sort"

	"peerview/internal/models"
)

// ScoringWeights are the per-factor weights of the match score. They must sum
// to 100 and are passed explicitly so tests and deployments can vary them.
type ScoringWeights struct {
	Expertise    int `json:"expertise"`
	Language     int `json:"language"`
	Availability int `json:"availability"`
	Experience   int `json:"experience"`
}

// DefaultWeights returns the standard weighting used by the platform.
func DefaultWeights() ScoringWeights {
	return ScoringWeights{
		Expertise:    35,
		Language:     25,
		Availability: 25,
		Experience:   15,
	}
}

// Validate checks that the weights sum to 100 and are non-negative.
func (w ScoringWeights) Validate() error {
	if w.Expertise < 0 || w.Language < 0 || w.Availability < 0 || w.Experience < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if sum := w.Expertise + w.Language + w.Availability + w.Experience; sum != 100 {
		return fmt.Errorf("scoring weights must sum to 100, got %d", sum)
	}
	return nil
}

// experienceSaturation is the completed-review count at which the experience
// factor reaches its maximum.
const experienceSaturation = 20

// Score evaluates one reviewer against the match criteria and returns the
// full per-factor breakdown.
//
// Each of the expertise and language factors combines a required-match ratio
// at 80% with a preferred-match ratio at 20%. An empty requirement set
// contributes 0 to its term rather than full credit, so reviews without
// stated requirements do not inflate every candidate to a perfect factor.
//
// The availability factor is binary: 100 when a single AVAILABLE period
// covers the whole requested range, 0 otherwise. The continuous coverage
// ratio is reported separately in AvailabilityRatio.
func Score(reviewer *models.ReviewerProfile, criteria models.MatchCriteria, weights ScoringWeights) models.MatchResult {
	result := models.MatchResult{
		ReviewerID:       reviewer.ID,
		IsLeadQualified:  reviewer.IsLeadQualified,
		ReviewsCompleted: reviewer.ReviewsCompleted,
	}

	reviewerAreas := make(map[models.ExpertiseArea]bool, len(reviewer.Expertise))
	for _, e := range reviewer.Expertise {
		reviewerAreas[e.Area] = true
	}
	reviewerLanguages := make(map[string]bool, len(reviewer.Languages))
	for _, l := range reviewer.Languages {
		reviewerLanguages[l.Language] = true
	}

	requiredExpertiseRatio := 0.0
	for _, area := range criteria.RequiredExpertise {
		if reviewerAreas[area] {
			result.MatchedExpertise = append(result.MatchedExpertise, area)
		} else {
			result.UnmatchedExpertise = append(result.UnmatchedExpertise, area)
		}
	}
	if n := len(criteria.RequiredExpertise); n > 0 {
		requiredExpertiseRatio = float64(len(result.MatchedExpertise)) / float64(n)
	}
	preferredExpertiseRatio := matchRatioAreas(reviewerAreas, criteria.PreferredExpertise)
	result.Breakdown.Expertise = requiredExpertiseRatio*80 + preferredExpertiseRatio*20

	requiredLanguageRatio := 0.0
	for _, lang := range criteria.RequiredLanguages {
		if reviewerLanguages[lang] {
			result.MatchedLanguages = append(result.MatchedLanguages, lang)
		} else {
			result.UnmatchedLanguages = append(result.UnmatchedLanguages, lang)
		}
	}
	if n := len(criteria.RequiredLanguages); n > 0 {
		requiredLanguageRatio = float64(len(result.MatchedLanguages)) / float64(n)
	}
	preferredLanguageRatio := matchRatioLanguages(reviewerLanguages, criteria.PreferredLanguages)
	result.Breakdown.Language = requiredLanguageRatio*80 + preferredLanguageRatio*20

	if HasFullCoveringPeriod(reviewer, criteria.StartDate, criteria.EndDate) {
		result.Breakdown.Availability = 100
	}
	result.AvailabilityRatio = Coverage(reviewer, criteria.StartDate, criteria.EndDate).Ratio

	experience := float64(reviewer.ReviewsCompleted) / experienceSaturation
	if experience > 1 {
		experience = 1
	}
	result.Breakdown.Experience = experience * 100

	result.Total = (result.Breakdown.Expertise*float64(weights.Expertise) +
		result.Breakdown.Language*float64(weights.Language) +
		result.Breakdown.Availability*float64(weights.Availability) +
		result.Breakdown.Experience*float64(weights.Experience)) / 100

	result.Conflict = CheckConflict(reviewer, criteria.TargetOrganizationID)
	result.Eligible = reviewer.SelectionStatus == models.StatusSelected &&
		!(result.Conflict.HasConflict && result.Conflict.Severity == models.SeverityHardBlock)

	return result
}

// SortResults orders match results by descending total score with a
// deterministic tie-break: more completed reviews first, then lead
// qualification, then ascending reviewer id.
func SortResults(results []models.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.ReviewsCompleted != b.ReviewsCompleted {
			return a.ReviewsCompleted > b.ReviewsCompleted
		}
		if a.IsLeadQualified != b.IsLeadQualified {
			return a.IsLeadQualified
		}
		return a.ReviewerID < b.ReviewerID
	})
}

func matchRatioAreas(have map[models.ExpertiseArea]bool, wanted []models.ExpertiseArea) float64 {
	if len(wanted) == 0 {
		return 0
	}
	matched := 0
	for _, area := range wanted {
		if have[area] {
			matched++
		}
	}
	return float64(matched) / float64(len(wanted))
}

func matchRatioLanguages(have map[string]bool, wanted []string) float64 {
	if len(wanted) == 0 {
		return 0
	}
	matched := 0
	for _, lang := range wanted {
		if have[lang] {
			matched++
		}
	}
	return float64(matched) / float64(len(wanted))
}
