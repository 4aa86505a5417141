package matching

import (
	"fmt"

	"peerview/internal/models"
)

// BuildTeam assembles a review team from a reviewer pool using a greedy
// weighted set-cover pass over the scored candidates.
//
// The candidate pool is reduced by the hard constraints first; a must-include
// reviewer failing a hard constraint aborts with HardConstraintViolationError.
// When a lead reviewer is required, the highest-scoring lead-qualified
// candidate is seeded first; if none exists the result is non-viable with an
// explicit reason. Remaining slots prefer candidates contributing uncovered
// required expertise or languages; once everything required is covered, the
// next-highest score fills the slot. A short team is returned as a non-viable
// result rather than padded with ineligible reviewers.
func BuildTeam(pool []models.ReviewerProfile, criteria models.TeamCriteria, weights ScoringWeights) (*models.TeamBuildResult, error) {
	if criteria.TeamSize <= 0 {
		return nil, fmt.Errorf("team size must be positive, got %d", criteria.TeamSize)
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	candidates, err := FilterEligible(pool, models.EligibilityCriteria{
		TargetOrganizationID: criteria.TargetOrganizationID,
		StartDate:            criteria.StartDate,
		EndDate:              criteria.EndDate,
		FilterByAvailability: true,
		MustIncludeIDs:       criteria.MustIncludeIDs,
		ExcludeReviewerIDs:   criteria.ExcludeReviewerIDs,
	})
	if err != nil {
		return nil, err
	}

	profiles := make(map[uint]*models.ReviewerProfile, len(candidates))
	results := make([]models.MatchResult, 0, len(candidates))
	for i := range candidates {
		profiles[candidates[i].ID] = &candidates[i]
		results = append(results, Score(&candidates[i], criteria.MatchCriteria, weights))
	}
	SortResults(results)

	build := &models.TeamBuildResult{
		Members:          []models.TeamMemberResult{},
		Warnings:         []string{},
		CandidatesScored: len(results),
	}

	selected := make(map[uint]bool)
	addMember := func(r *models.MatchResult, role models.TeamRole) {
		build.Members = append(build.Members, models.TeamMemberResult{
			ReviewerID:        r.ReviewerID,
			Role:              role,
			Score:             r.Total,
			AvailabilityRatio: r.AvailabilityRatio,
		})
		selected[r.ReviewerID] = true
	}

	if criteria.RequireLeadReviewer {
		lead := highestScoringLead(results)
		if lead == nil {
			build.IsViable = false
			build.NonViableReason = "no lead-qualified reviewer available"
			build.Coverage = coverageReport(build, profiles, criteria)
			return build, nil
		}
		addMember(lead, models.RoleLeadReviewer)
	}

	// Must-include reviewers occupy slots before the greedy pass.
	for _, id := range criteria.MustIncludeIDs {
		if selected[id] || len(build.Members) >= criteria.TeamSize {
			continue
		}
		for i := range results {
			if results[i].ReviewerID == id {
				addMember(&results[i], models.RoleReviewer)
				break
			}
		}
	}

	covered := coveredByTeam(build, profiles)
	for len(build.Members) < criteria.TeamSize {
		next := pickNext(results, selected, covered, criteria)
		if next == nil {
			break
		}
		addMember(next, models.RoleReviewer)
		mergeCoverage(covered, profiles[next.ReviewerID])
	}

	build.Coverage = coverageReport(build, profiles, criteria)
	for _, id := range build.Coverage.MembersWithWarnings {
		build.Warnings = append(build.Warnings,
			fmt.Sprintf("reviewer %d has a soft-warning conflict of interest against the host organization", id))
	}
	for _, m := range build.Members {
		if m.AvailabilityRatio < 1 {
			build.Warnings = append(build.Warnings,
				fmt.Sprintf("reviewer %d covers only %.0f%% of the review dates", m.ReviewerID, m.AvailabilityRatio*100))
		}
	}

	build.IsViable = len(build.Members) == criteria.TeamSize
	if !build.IsViable {
		build.NonViableReason = fmt.Sprintf("insufficient eligible candidates: %d of %d team slots filled",
			len(build.Members), criteria.TeamSize)
	}

	return build, nil
}

// highestScoringLead returns the best-ranked lead-qualified result, relying
// on the results already being sorted.
func highestScoringLead(results []models.MatchResult) *models.MatchResult {
	for i := range results {
		if results[i].IsLeadQualified {
			return &results[i]
		}
	}
	return nil
}

// teamCoverage tracks which requirements the team-so-far satisfies.
type teamCoverage struct {
	areas     map[models.ExpertiseArea]bool
	languages map[string]bool
}

func coveredByTeam(build *models.TeamBuildResult, profiles map[uint]*models.ReviewerProfile) *teamCoverage {
	cov := &teamCoverage{
		areas:     make(map[models.ExpertiseArea]bool),
		languages: make(map[string]bool),
	}
	for _, m := range build.Members {
		mergeCoverage(cov, profiles[m.ReviewerID])
	}
	return cov
}

func mergeCoverage(cov *teamCoverage, profile *models.ReviewerProfile) {
	if profile == nil {
		return
	}
	for _, e := range profile.Expertise {
		cov.areas[e.Area] = true
	}
	for _, l := range profile.Languages {
		cov.languages[l.Language] = true
	}
}

// pickNext returns the highest-ranked unselected candidate that contributes
// uncovered required expertise or languages. When nothing required remains
// uncovered, or no candidate can add coverage, the next-highest score wins:
// remaining slots admit any candidate while the team is below size.
func pickNext(results []models.MatchResult, selected map[uint]bool, cov *teamCoverage, criteria models.TeamCriteria) *models.MatchResult {
	var fallback *models.MatchResult
	for i := range results {
		r := &results[i]
		if selected[r.ReviewerID] {
			continue
		}
		if fallback == nil {
			fallback = r
		}
		if addsNewCoverage(r, cov, criteria) {
			return r
		}
	}
	return fallback
}

func addsNewCoverage(r *models.MatchResult, cov *teamCoverage, criteria models.TeamCriteria) bool {
	for _, area := range r.MatchedExpertise {
		if !cov.areas[area] {
			return true
		}
	}
	for _, lang := range r.MatchedLanguages {
		if !cov.languages[lang] {
			return true
		}
	}
	return false
}

// coverageReport compares the assembled team against the review requirements.
func coverageReport(build *models.TeamBuildResult, profiles map[uint]*models.ReviewerProfile, criteria models.TeamCriteria) models.CoverageReport {
	report := models.CoverageReport{
		CoveredExpertise:    []models.ExpertiseArea{},
		UncoveredExpertise:  []models.ExpertiseArea{},
		CoveredLanguages:    []string{},
		UncoveredLanguages:  []string{},
		MembersWithWarnings: []uint{},
	}

	cov := coveredByTeam(build, profiles)
	for _, area := range criteria.RequiredExpertise {
		if cov.areas[area] {
			report.CoveredExpertise = append(report.CoveredExpertise, area)
		} else {
			report.UncoveredExpertise = append(report.UncoveredExpertise, area)
		}
	}
	for _, lang := range criteria.RequiredLanguages {
		if cov.languages[lang] {
			report.CoveredLanguages = append(report.CoveredLanguages, lang)
		} else {
			report.UncoveredLanguages = append(report.UncoveredLanguages, lang)
		}
	}

	if n := len(criteria.RequiredExpertise); n > 0 {
		report.ExpertisePercent = float64(len(report.CoveredExpertise)) / float64(n) * 100
	} else {
		report.ExpertisePercent = 100
	}
	if n := len(criteria.RequiredLanguages); n > 0 {
		report.LanguagePercent = float64(len(report.CoveredLanguages)) / float64(n) * 100
	} else {
		report.LanguagePercent = 100
	}

	for _, m := range build.Members {
		profile := profiles[m.ReviewerID]
		if profile == nil {
			continue
		}
		if profile.IsLeadQualified {
			report.HasLeadQualified = true
		}
		conflict := CheckConflict(profile, criteria.TargetOrganizationID)
		if conflict.HasConflict && conflict.Severity == models.SeveritySoftWarning {
			report.MembersWithWarnings = append(report.MembersWithWarnings, m.ReviewerID)
		}
	}

	return report
}
