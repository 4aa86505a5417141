package service_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"peerview/internal/matching"
	"peerview/internal/models"
	"peerview/internal/repository"
	"peerview/internal/service"
	"peerview/internal/testutil"
)

type services struct {
	reviewers    *service.ReviewerService
	reviews      *service.ReviewService
	availability *service.AvailabilityService
	matching     *service.MatchingService
}

func setupServices(t *testing.T, containers *testutil.TestContainers) *services {
	t.Helper()

	reviewerRepo := repository.NewReviewerRepository(containers.DB)
	reviewRepo := repository.NewReviewRepository(containers.DB)
	orgRepo := repository.NewOrganizationRepository(containers.DB)
	availabilityRepo := repository.NewAvailabilityRepository(containers.DB)
	auditSvc := service.NewAuditService(repository.NewAuditRepository(containers.DB))

	matchingSvc, err := service.NewMatchingService(reviewerRepo, reviewRepo, orgRepo, auditSvc, matching.DefaultWeights())
	if err != nil {
		t.Fatalf("Failed to create matching service: %v", err)
	}

	return &services{
		reviewers:    service.NewReviewerService(reviewerRepo, orgRepo, auditSvc),
		reviews:      service.NewReviewService(reviewRepo, orgRepo, reviewerRepo, auditSvc),
		availability: service.NewAvailabilityService(availabilityRepo, reviewerRepo, auditSvc),
		matching:     matchingSvc,
	}
}

// seedCandidate creates a SELECTED reviewer with ATS expertise, both working
// languages and an open availability window.
func seedCandidate(t *testing.T, fixtures *testutil.Fixtures, email string, homeOrgID uint, leadQualified bool, start, end time.Time) *models.ReviewerProfile {
	t.Helper()

	user := fixtures.CreateUser(t, email)
	profile := fixtures.CreateReviewerProfile(t, user.ID, homeOrgID, models.StatusSelected, leadQualified)
	fixtures.AddExpertise(t, profile.ID, models.AreaATS, models.ProficiencyExpert, 10)
	fixtures.AddLanguage(t, profile.ID, models.LanguageEnglish, models.ProficiencyAdvanced)
	fixtures.AddLanguage(t, profile.ID, models.LanguageFrench, models.ProficiencyAdvanced)
	fixtures.AddAvailability(t, profile.ID, start, end, models.AvailabilityAvailable)
	return profile
}

// TestTeamAssignmentFlow walks a review from planning through team assignment
// and back: candidates are scored, a team is proposed and assigned, assignment
// blocks reserve the reviewers' calendars, and unassigning releases them.
func TestTeamAssignmentFlow(t *testing.T) {
	containers := testutil.SetupPostgresOnly(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := setupServices(t, containers)

	start := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	windowStart := start.AddDate(0, -1, 0)
	windowEnd := end.AddDate(0, 1, 0)

	lead := seedCandidate(t, fixtures, "lead@test.aero", fixtures.HomeOrgA.ID, true, windowStart, windowEnd)
	member := seedCandidate(t, fixtures, "member@test.aero", fixtures.HomeOrgB.ID, false, windowStart, windowEnd)

	review := &models.Review{
		HostOrganizationID: fixtures.HostOrg.ID,
		Title:              "LFFF ANS Peer Review 2026",
		StartDate:          start,
		EndDate:            end,
		RequiredExpertise:  []models.ExpertiseArea{models.AreaATS},
		RequiredLanguages:  []string{models.LanguageEnglish},
		TeamSize:           2,
	}
	if err := svc.reviews.Create(review, fixtures.CoordinatorUser.ID); err != nil {
		t.Fatalf("Failed to create review: %v", err)
	}
	if review.Status != models.ReviewPlanning {
		t.Fatalf("New review should be in PLANNING, got %s", review.Status)
	}

	// Both reviewers cover the window, speak the required language and carry
	// the required expertise, so both should be eligible.
	candidates, err := svc.matching.GetCandidates(review.ID)
	if err != nil {
		t.Fatalf("Failed to get candidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}
	for _, c := range candidates {
		if !c.Eligible {
			t.Errorf("Candidate %d should be eligible: %s", c.ReviewerID, c.Conflict.Reason)
		}
		if len(c.UnmatchedExpertise) != 0 {
			t.Errorf("Candidate %d has unmatched expertise %v", c.ReviewerID, c.UnmatchedExpertise)
		}
		if c.Breakdown.Availability != 100 {
			t.Errorf("Candidate %d availability score = %.1f, want 100", c.ReviewerID, c.Breakdown.Availability)
		}
	}

	proposal, err := svc.matching.ProposeTeam(review.ID, true, nil)
	if err != nil {
		t.Fatalf("Failed to propose team: %v", err)
	}
	if !proposal.IsViable {
		t.Fatalf("Proposal should be viable: %s", proposal.NonViableReason)
	}
	if len(proposal.Members) != 2 {
		t.Fatalf("Expected team of 2, got %d", len(proposal.Members))
	}
	foundLead := false
	for _, m := range proposal.Members {
		if m.Role == models.RoleLeadReviewer {
			foundLead = true
			if m.ReviewerID != lead.ID {
				t.Errorf("Lead role went to reviewer %d, expected %d", m.ReviewerID, lead.ID)
			}
		}
	}
	if !foundLead {
		t.Error("Proposal has no lead reviewer")
	}

	team := []models.ReviewTeamMember{
		{ReviewerID: lead.ID, Role: models.RoleLeadReviewer},
		{ReviewerID: member.ID, Role: models.RoleReviewer},
	}
	if err := svc.matching.AssignTeam(review.ID, team, fixtures.CoordinatorUser.ID); err != nil {
		t.Fatalf("Failed to assign team: %v", err)
	}

	assigned, err := svc.reviews.GetByID(review.ID)
	if err != nil {
		t.Fatalf("Failed to reload review: %v", err)
	}
	if assigned.Status != models.ReviewScheduled {
		t.Errorf("Review should be SCHEDULED after assignment, got %s", assigned.Status)
	}
	if len(assigned.TeamMembers) != 2 {
		t.Errorf("Expected 2 persisted team members, got %d", len(assigned.TeamMembers))
	}

	var blocks int
	err = containers.DB.QueryRow(`
		SELECT COUNT(*) FROM availability_periods
		WHERE review_id = $1 AND type = $2
	`, review.ID, models.AvailabilityOnAssignment).Scan(&blocks)
	if err != nil {
		t.Fatalf("Failed to count assignment blocks: %v", err)
	}
	if blocks != 2 {
		t.Errorf("Expected 2 assignment blocks, got %d", blocks)
	}

	// Assigned reviewers drop out of the candidate pool for this review.
	remaining, err := svc.matching.GetCandidates(review.ID)
	if err != nil {
		t.Fatalf("Failed to get candidates after assignment: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Assigned reviewers should be excluded from candidates, got %d", len(remaining))
	}

	// The lead is now booked for the review window. A leave declaration over
	// the same dates must be rejected as an overlap.
	leave := &models.AvailabilityPeriod{
		ReviewerID: lead.ID,
		StartDate:  start.AddDate(0, 0, 2),
		EndDate:    start.AddDate(0, 0, 5),
		Type:       models.AvailabilityUnavailable,
	}
	err = svc.availability.DeclarePeriod(leave, lead.UserID)
	if !matching.IsOverlapConflict(err) {
		t.Errorf("Expected overlap conflict for leave during assignment, got %v", err)
	}

	// A second assignment attempt must fail, the review left PLANNING.
	err = svc.matching.AssignTeam(review.ID, team, fixtures.CoordinatorUser.ID)
	if !errors.Is(err, repository.ErrReviewNotPlanning) {
		t.Errorf("Expected ErrReviewNotPlanning on reassignment, got %v", err)
	}

	if err := svc.matching.UnassignTeam(review.ID, fixtures.CoordinatorUser.ID); err != nil {
		t.Fatalf("Failed to unassign team: %v", err)
	}

	unassigned, err := svc.reviews.GetByID(review.ID)
	if err != nil {
		t.Fatalf("Failed to reload review: %v", err)
	}
	if unassigned.Status != models.ReviewPlanning {
		t.Errorf("Review should return to PLANNING, got %s", unassigned.Status)
	}
	err = containers.DB.QueryRow(`
		SELECT COUNT(*) FROM availability_periods
		WHERE review_id = $1 AND type = $2
	`, review.ID, models.AvailabilityOnAssignment).Scan(&blocks)
	if err != nil {
		t.Fatalf("Failed to count assignment blocks: %v", err)
	}
	if blocks != 0 {
		t.Errorf("Assignment blocks should be released, found %d", blocks)
	}

	// With the blocks gone the leave declaration goes through.
	if err := svc.availability.DeclarePeriod(leave, lead.UserID); err != nil {
		t.Errorf("Leave declaration should succeed after unassignment: %v", err)
	}
}

// TestHomeOrganizationHardBlock verifies that a reviewer whose home
// organization hosts the review is never eligible and cannot be forced onto
// the team.
func TestHomeOrganizationHardBlock(t *testing.T) {
	containers := testutil.SetupPostgresOnly(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := setupServices(t, containers)

	start := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 11, 13, 0, 0, 0, 0, time.UTC)

	insider := seedCandidate(t, fixtures, "insider@test.aero", fixtures.HostOrg.ID, true,
		start.AddDate(0, -1, 0), end.AddDate(0, 1, 0))

	review := fixtures.CreateReview(t, fixtures.HostOrg.ID, "Self-Hosted Review", start, end, 1,
		[]models.ExpertiseArea{models.AreaATS}, []string{models.LanguageEnglish})

	candidates, err := svc.matching.GetCandidates(review.ID)
	if err != nil {
		t.Fatalf("Failed to get candidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got %d", len(candidates))
	}
	c := candidates[0]
	if c.Eligible {
		t.Error("Reviewer from the host organization should not be eligible")
	}
	if !c.Conflict.HasConflict || c.Conflict.Severity != models.SeverityHardBlock {
		t.Errorf("Expected a hard-block conflict, got %+v", c.Conflict)
	}

	err = svc.matching.AssignTeam(review.ID, []models.ReviewTeamMember{
		{ReviewerID: insider.ID, Role: models.RoleLeadReviewer},
	}, fixtures.CoordinatorUser.ID)
	if !matching.IsHardConstraintViolation(err) {
		t.Errorf("Expected hard constraint violation on assignment, got %v", err)
	}
}

// TestNominationRequiresLanguages verifies the EN and FR language requirement
// at nomination time.
func TestNominationRequiresLanguages(t *testing.T) {
	containers := testutil.SetupPostgresOnly(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := setupServices(t, containers)

	user := fixtures.CreateUser(t, "nominee@test.aero")

	_, err := svc.reviewers.Nominate(service.NominationInput{
		UserID:             user.ID,
		HomeOrganizationID: fixtures.HomeOrgA.ID,
		Languages: []models.LanguageRecord{
			{Language: models.LanguageEnglish, Proficiency: models.ProficiencyAdvanced},
		},
	}, fixtures.CoordinatorUser.ID)
	if !errors.Is(err, service.ErrMissingLanguages) {
		t.Errorf("Expected ErrMissingLanguages without French, got %v", err)
	}

	profile, err := svc.reviewers.Nominate(service.NominationInput{
		UserID:             user.ID,
		HomeOrganizationID: fixtures.HomeOrgA.ID,
		Languages: []models.LanguageRecord{
			{Language: models.LanguageEnglish, Proficiency: models.ProficiencyAdvanced},
			{Language: models.LanguageFrench, Proficiency: models.ProficiencyWorking},
		},
	}, fixtures.CoordinatorUser.ID)
	if err != nil {
		t.Fatalf("Failed to nominate with both languages: %v", err)
	}
	if profile.SelectionStatus != models.StatusNominated {
		t.Errorf("New nominee should be NOMINATED, got %s", profile.SelectionStatus)
	}
}

// TestSelectionPoolCapacity fills the SELECTED pool to its cap and verifies
// the next selection is refused while other transitions still work.
func TestSelectionPoolCapacity(t *testing.T) {
	containers := testutil.SetupPostgresOnly(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := setupServices(t, containers)

	for i := 0; i < matching.SelectedCapacity; i++ {
		user := fixtures.CreateUser(t, fmt.Sprintf("pool%02d@test.aero", i))
		fixtures.CreateReviewerProfile(t, user.ID, fixtures.HomeOrgA.ID, models.StatusSelected, false)
	}

	waiting := fixtures.CreateUser(t, "waiting@test.aero")
	profile := fixtures.CreateReviewerProfile(t, waiting.ID, fixtures.HomeOrgB.ID, models.StatusUnderReview, false)

	err := svc.reviewers.TransitionStatus(profile.ID, models.StatusSelected, fixtures.CoordinatorUser.ID)
	if !matching.IsCapacityExceeded(err) {
		t.Errorf("Expected capacity exceeded for reviewer %d, got %v", matching.SelectedCapacity+1, err)
	}

	// Rejection is unaffected by the cap.
	if err := svc.reviewers.TransitionStatus(profile.ID, models.StatusRejected, fixtures.CoordinatorUser.ID); err != nil {
		t.Errorf("Rejection should not be blocked by the cap: %v", err)
	}

	// A freed slot admits the waiting reviewer.
	var freedID uint
	err = containers.DB.QueryRow(`
		SELECT id FROM reviewer_profiles WHERE selection_status = $1 LIMIT 1
	`, models.StatusSelected).Scan(&freedID)
	if err != nil {
		t.Fatalf("Failed to pick a selected reviewer: %v", err)
	}
	if err := svc.reviewers.TransitionStatus(freedID, models.StatusWithdrawn, fixtures.CoordinatorUser.ID); err != nil {
		t.Fatalf("Failed to withdraw reviewer %d: %v", freedID, err)
	}
	if err := svc.reviewers.TransitionStatus(profile.ID, models.StatusNominated, fixtures.CoordinatorUser.ID); err != nil {
		t.Fatalf("Failed to renominate: %v", err)
	}
	if err := svc.reviewers.TransitionStatus(profile.ID, models.StatusUnderReview, fixtures.CoordinatorUser.ID); err != nil {
		t.Fatalf("Failed to move back under review: %v", err)
	}
	if err := svc.reviewers.TransitionStatus(profile.ID, models.StatusSelected, fixtures.CoordinatorUser.ID); err != nil {
		t.Errorf("Selection should succeed once a slot is free: %v", err)
	}

	// The state machine still rejects jumps outside the transition table.
	err = svc.reviewers.TransitionStatus(profile.ID, models.StatusNominated, fixtures.CoordinatorUser.ID)
	if !matching.IsInvalidTransition(err) {
		t.Errorf("Expected invalid transition SELECTED to NOMINATED, got %v", err)
	}
}

// TestSelectionPoolCapacityConcurrent races two reviewers for the last free
// SELECTED slot on separate connections. Exactly one admission may win; row
// locks alone would let both count a free slot.
func TestSelectionPoolCapacityConcurrent(t *testing.T) {
	containers := testutil.SetupPostgresOnly(t)
	defer containers.Cleanup(t)

	fixtures := testutil.SetupFixtures(t, containers.DB)
	svc := setupServices(t, containers)

	for i := 0; i < matching.SelectedCapacity-1; i++ {
		user := fixtures.CreateUser(t, fmt.Sprintf("seat%02d@test.aero", i))
		fixtures.CreateReviewerProfile(t, user.ID, fixtures.HomeOrgA.ID, models.StatusSelected, false)
	}

	userA := fixtures.CreateUser(t, "contender-a@test.aero")
	userB := fixtures.CreateUser(t, "contender-b@test.aero")
	contenderA := fixtures.CreateReviewerProfile(t, userA.ID, fixtures.HomeOrgA.ID, models.StatusUnderReview, false)
	contenderB := fixtures.CreateReviewerProfile(t, userB.ID, fixtures.HomeOrgB.ID, models.StatusInactive, false)

	start := make(chan struct{})
	results := make(chan error, 2)
	for _, reviewerID := range []uint{contenderA.ID, contenderB.ID} {
		go func(id uint) {
			<-start
			results <- svc.reviewers.TransitionStatus(id, models.StatusSelected, fixtures.CoordinatorUser.ID)
		}(reviewerID)
	}
	close(start)

	admitted, refused := 0, 0
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			admitted++
		case matching.IsCapacityExceeded(err):
			refused++
		default:
			t.Fatalf("Unexpected transition error: %v", err)
		}
	}
	if admitted != 1 || refused != 1 {
		t.Errorf("Expected one admission and one capacity refusal, got %d admitted, %d refused", admitted, refused)
	}

	var selected int
	err := containers.DB.QueryRow(`
		SELECT COUNT(*) FROM reviewer_profiles WHERE selection_status = $1
	`, models.StatusSelected).Scan(&selected)
	if err != nil {
		t.Fatalf("Failed to count selected reviewers: %v", err)
	}
	if selected != matching.SelectedCapacity {
		t.Errorf("Pool holds %d reviewers, cap is %d", selected, matching.SelectedCapacity)
	}
}
