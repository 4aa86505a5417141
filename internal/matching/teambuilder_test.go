package matching

import (
	"testing"
	"time"

	"peerview/internal/models"
)

func teamCriteria(teamSize int, requireLead bool) models.TeamCriteria {
	return models.TeamCriteria{
		MatchCriteria: models.MatchCriteria{
			TargetOrganizationID: 20,
			StartDate:            date(2026, time.June, 1),
			EndDate:              date(2026, time.June, 14),
			RequiredExpertise:    []models.ExpertiseArea{models.AreaATS, models.AreaCNS},
			RequiredLanguages:    []string{models.LanguageEnglish},
		},
		TeamSize:            teamSize,
		RequireLeadReviewer: requireLead,
	}
}

func availableAll(r *models.ReviewerProfile) *models.ReviewerProfile {
	return withAvailability(r, models.AvailabilityAvailable, date(2026, time.May, 1), date(2026, time.July, 1))
}

func TestBuildTeamExcludesHostOrganizationReviewer(t *testing.T) {
	// Five SELECTED reviewers, one from the host organization: that reviewer
	// never enters candidate scoring, and the expertise only they held shows
	// up as an explicit gap.
	pool := []models.ReviewerProfile{
		*availableAll(withLanguages(withExpertise(testReviewer(1, 10), models.AreaATS), models.LanguageEnglish)),
		*availableAll(withLanguages(withExpertise(testReviewer(2, 11), models.AreaATS), models.LanguageEnglish)),
		*availableAll(withLanguages(withExpertise(testReviewer(3, 12), models.AreaSMS), models.LanguageEnglish)),
		*availableAll(withLanguages(withExpertise(testReviewer(4, 13), models.AreaAIM), models.LanguageEnglish)),
		*availableAll(withLanguages(withExpertise(testReviewer(5, 20), models.AreaCNS), models.LanguageEnglish)), // host org
	}
	pool[0].IsLeadQualified = true

	result, err := BuildTeam(pool, teamCriteria(3, true), DefaultWeights())
	if err != nil {
		t.Fatalf("BuildTeam failed: %v", err)
	}

	for _, m := range result.Members {
		if m.ReviewerID == 5 {
			t.Error("Reviewer from the host organization must never be on the team")
		}
	}
	if result.CandidatesScored != 4 {
		t.Errorf("Host-org reviewer should be excluded before scoring, got %d candidates", result.CandidatesScored)
	}
	if len(result.Coverage.UncoveredExpertise) != 1 || result.Coverage.UncoveredExpertise[0] != models.AreaCNS {
		t.Errorf("CNS gap should be reported explicitly, got %v", result.Coverage.UncoveredExpertise)
	}
}

func TestBuildTeamNoLeadQualified(t *testing.T) {
	pool := []models.ReviewerProfile{
		*availableAll(withExpertise(testReviewer(1, 10), models.AreaATS)),
		*availableAll(withExpertise(testReviewer(2, 11), models.AreaCNS)),
	}

	result, err := BuildTeam(pool, teamCriteria(2, true), DefaultWeights())
	if err != nil {
		t.Fatalf("BuildTeam failed: %v", err)
	}
	if result.IsViable {
		t.Error("Team without a lead-qualified reviewer must not be viable")
	}
	if result.NonViableReason != "no lead-qualified reviewer available" {
		t.Errorf("Expected explicit lead failure reason, got %q", result.NonViableReason)
	}
	if len(result.Members) != 0 {
		t.Errorf("Lead failure is hard: no members expected, got %d", len(result.Members))
	}
}

func TestBuildTeamLeadSelectedFirst(t *testing.T) {
	pool := []models.ReviewerProfile{
		*availableAll(withLanguages(withExpertise(testReviewer(1, 10), models.AreaATS, models.AreaCNS), models.LanguageEnglish)),
		*availableAll(withLanguages(withExpertise(testReviewer(2, 11), models.AreaATS), models.LanguageEnglish)),
	}
	pool[1].IsLeadQualified = true

	result, err := BuildTeam(pool, teamCriteria(2, true), DefaultWeights())
	if err != nil {
		t.Fatalf("BuildTeam failed: %v", err)
	}
	if len(result.Members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(result.Members))
	}
	// The lead slot goes to the best lead-qualified candidate even when a
	// non-lead candidate scores higher overall.
	if result.Members[0].ReviewerID != 2 || result.Members[0].Role != models.RoleLeadReviewer {
		t.Errorf("Expected reviewer 2 as LEAD_REVIEWER first, got %+v", result.Members[0])
	}
	if !result.Coverage.HasLeadQualified {
		t.Error("Coverage report should record the lead qualification")
	}
}

func TestBuildTeamGreedyPrefersNewCoverage(t *testing.T) {
	// Reviewer 2 scores higher (more experience, both required areas) but
	// duplicates reviewer 1's coverage; reviewer 3 uniquely contributes CNS.
	pool := []models.ReviewerProfile{
		*availableAll(withLanguages(withExpertise(testReviewer(1, 10), models.AreaATS), models.LanguageEnglish)),
		*availableAll(withLanguages(withExpertise(testReviewer(2, 11), models.AreaATS), models.LanguageEnglish)),
		*availableAll(withLanguages(withExpertise(testReviewer(3, 12), models.AreaCNS), models.LanguageEnglish)),
	}
	pool[0].IsLeadQualified = true
	pool[0].ReviewsCompleted = 20
	pool[1].ReviewsCompleted = 10

	result, err := BuildTeam(pool, teamCriteria(2, true), DefaultWeights())
	if err != nil {
		t.Fatalf("BuildTeam failed: %v", err)
	}
	if len(result.Members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(result.Members))
	}
	if result.Members[1].ReviewerID != 3 {
		t.Errorf("Second slot should prefer the CNS contributor, got reviewer %d", result.Members[1].ReviewerID)
	}
	if len(result.Coverage.UncoveredExpertise) != 0 {
		t.Errorf("Both required areas should be covered, got gaps %v", result.Coverage.UncoveredExpertise)
	}
}

func TestBuildTeamFillsByScoreOnceCovered(t *testing.T) {
	// Once required coverage is met, remaining slots admit the next-highest
	// scoring candidate even without new coverage.
	pool := []models.ReviewerProfile{
		*availableAll(withLanguages(withExpertise(testReviewer(1, 10), models.AreaATS, models.AreaCNS), models.LanguageEnglish)),
		*availableAll(withLanguages(withExpertise(testReviewer(2, 11), models.AreaATS), models.LanguageEnglish)),
		*availableAll(withLanguages(withExpertise(testReviewer(3, 12), models.AreaATS), models.LanguageEnglish)),
	}
	pool[1].ReviewsCompleted = 15

	result, err := BuildTeam(pool, teamCriteria(3, false), DefaultWeights())
	if err != nil {
		t.Fatalf("BuildTeam failed: %v", err)
	}
	if len(result.Members) != 3 {
		t.Fatalf("Expected a full team of 3, got %d", len(result.Members))
	}
	if !result.IsViable {
		t.Errorf("Full team without hard blocks should be viable: %+v", result)
	}
}

func TestBuildTeamInsufficientCandidates(t *testing.T) {
	pool := []models.ReviewerProfile{
		*availableAll(withLanguages(withExpertise(testReviewer(1, 10), models.AreaATS), models.LanguageEnglish)),
	}

	result, err := BuildTeam(pool, teamCriteria(3, false), DefaultWeights())
	if err != nil {
		t.Fatalf("Insufficient candidates is a structured result, not an error: %v", err)
	}
	if result.IsViable {
		t.Error("Short team must not be viable")
	}
	if len(result.Members) != 1 {
		t.Errorf("Partial team should still be returned, got %d members", len(result.Members))
	}
	if result.NonViableReason == "" {
		t.Error("Shortfall must carry an explicit reason")
	}
}

func TestBuildTeamMustIncludeHardFailure(t *testing.T) {
	pool := []models.ReviewerProfile{
		*availableAll(withExpertise(testReviewer(1, 10), models.AreaATS)),
		*availableAll(withExpertise(testReviewer(2, 20), models.AreaCNS)), // host org
	}

	criteria := teamCriteria(2, false)
	criteria.MustIncludeIDs = []uint{2}

	_, err := BuildTeam(pool, criteria, DefaultWeights())
	if !IsHardConstraintViolation(err) {
		t.Errorf("Must-include host-org reviewer should fail the build, got %v", err)
	}
}

func TestBuildTeamSoftWarningSurfacedNotExcluding(t *testing.T) {
	pool := []models.ReviewerProfile{
		*availableAll(withLanguages(withExpertise(testReviewer(1, 10), models.AreaATS), models.LanguageEnglish)),
		*availableAll(withDeclaration(
			withLanguages(withExpertise(testReviewer(2, 11), models.AreaCNS), models.LanguageEnglish),
			20, models.COIFormerEmployment, true)),
	}

	result, err := BuildTeam(pool, teamCriteria(2, false), DefaultWeights())
	if err != nil {
		t.Fatalf("BuildTeam failed: %v", err)
	}
	if len(result.Members) != 2 {
		t.Fatalf("Soft warning must not exclude, expected 2 members, got %d", len(result.Members))
	}
	if !result.IsViable {
		t.Error("Team with only soft warnings remains viable")
	}
	found := false
	for _, id := range result.Coverage.MembersWithWarnings {
		if id == 2 {
			found = true
		}
	}
	if !found {
		t.Error("Reviewer 2's soft warning should be surfaced in the coverage report")
	}
	if len(result.Warnings) == 0 {
		t.Error("Soft warning should produce a build warning")
	}
}

func TestBuildTeamInvalidParameters(t *testing.T) {
	pool := []models.ReviewerProfile{*availableAll(testReviewer(1, 10))}

	if _, err := BuildTeam(pool, teamCriteria(0, false), DefaultWeights()); err == nil {
		t.Error("Zero team size should be rejected")
	}

	bad := ScoringWeights{Expertise: 90, Language: 5, Availability: 4, Experience: 2}
	if _, err := BuildTeam(pool, teamCriteria(1, false), bad); err == nil {
		t.Error("Invalid weights should be rejected")
	}
}

func TestBuildTeamHonorsExclusionList(t *testing.T) {
	// Reviewer 1 is the strongest candidate but already assigned elsewhere;
	// the exclusion list keeps it out before scoring.
	pool := []models.ReviewerProfile{
		*availableAll(withLanguages(withExpertise(testReviewer(1, 10), models.AreaATS, models.AreaCNS), models.LanguageEnglish)),
		*availableAll(withLanguages(withExpertise(testReviewer(2, 11), models.AreaATS), models.LanguageEnglish)),
		*availableAll(withLanguages(withExpertise(testReviewer(3, 12), models.AreaCNS), models.LanguageEnglish)),
	}
	pool[1].IsLeadQualified = true

	criteria := teamCriteria(2, true)
	criteria.ExcludeReviewerIDs = []uint{1}

	result, err := BuildTeam(pool, criteria, DefaultWeights())
	if err != nil {
		t.Fatalf("BuildTeam failed: %v", err)
	}

	if result.CandidatesScored != 2 {
		t.Errorf("Excluded reviewer should not be scored, got %d candidates", result.CandidatesScored)
	}
	for _, m := range result.Members {
		if m.ReviewerID == 1 {
			t.Error("Excluded reviewer must never be on the team")
		}
	}
}
