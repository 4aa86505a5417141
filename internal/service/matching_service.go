package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"peerview/internal/matching"
	"peerview/internal/models"
	"peerview/internal/repository"
)

var (
	ErrTeamNotViable    = errors.New("proposed team is not viable")
	ErrEmptyTeam        = errors.New("team must have at least one member")
	ErrDuplicateMember  = errors.New("reviewer appears twice in the proposed team")
	ErrReviewerNotReady = errors.New("reviewer is not in the SELECTED pool")
)

// MatchingService orchestrates candidate scoring, team assembly, and team
// assignment for reviews. The pure calculations live in the matching package;
// this layer loads the pool, applies the configured weights, and persists the
// outcome.
type MatchingService struct {
	reviewerRepo *repository.ReviewerRepository
	reviewRepo   *repository.ReviewRepository
	orgRepo      *repository.OrganizationRepository
	auditSvc     *AuditService
	weights      matching.ScoringWeights
}

// NewMatchingService creates a new matching service
func NewMatchingService(
	reviewerRepo *repository.ReviewerRepository,
	reviewRepo *repository.ReviewRepository,
	orgRepo *repository.OrganizationRepository,
	auditSvc *AuditService,
	weights matching.ScoringWeights,
) (*MatchingService, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring weights: %w", err)
	}

	return &MatchingService{
		reviewerRepo: reviewerRepo,
		reviewRepo:   reviewRepo,
		orgRepo:      orgRepo,
		auditSvc:     auditSvc,
		weights:      weights,
	}, nil
}

// GetCandidates scores the SELECTED pool against a review and returns the
// ranked results, ineligible reviewers included so the coordinator sees why
// someone is excluded. Reviewers already on the review's team are omitted.
func (s *MatchingService) GetCandidates(reviewID uint) ([]models.MatchResult, error) {
	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		return nil, err
	}

	pool, err := s.selectedPool()
	if err != nil {
		return nil, err
	}

	criteria := criteriaForReview(review)
	assigned := assignedReviewerIDs(review)
	results := make([]models.MatchResult, 0, len(pool))
	for i := range pool {
		if assigned[pool[i].ID] {
			continue
		}
		results = append(results, matching.Score(&pool[i], criteria, s.weights))
	}
	matching.SortResults(results)

	return results, nil
}

// ProposeTeam assembles a team for a review without persisting anything
func (s *MatchingService) ProposeTeam(reviewID uint, requireLead bool, mustInclude []uint) (*models.TeamBuildResult, error) {
	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		return nil, err
	}

	pool, err := s.selectedPool()
	if err != nil {
		return nil, err
	}

	excluded := make([]uint, 0, len(review.TeamMembers))
	for _, m := range review.TeamMembers {
		excluded = append(excluded, m.ReviewerID)
	}

	criteria := models.TeamCriteria{
		MatchCriteria:       criteriaForReview(review),
		TeamSize:            review.TeamSize,
		RequireLeadReviewer: requireLead,
		MustIncludeIDs:      mustInclude,
		ExcludeReviewerIDs:  excluded,
	}

	result, err := matching.BuildTeam(pool, criteria, s.weights)
	if err != nil {
		return nil, err
	}

	slog.Info("Team proposed", "review_id", reviewID, "viable", result.IsViable,
		"members", len(result.Members), "candidates_scored", result.CandidatesScored)
	return result, nil
}

// AssignTeam persists a team on a review. Every member must be in the
// SELECTED pool and free of hard conflicts against the host organization; the
// membership rows, the ON_ASSIGNMENT blocks, and the status change commit in
// one transaction.
func (s *MatchingService) AssignTeam(reviewID uint, members []models.ReviewTeamMember, assignedBy uint) error {
	if len(members) == 0 {
		return ErrEmptyTeam
	}

	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		return err
	}

	seen := make(map[uint]bool, len(members))
	for _, m := range members {
		if seen[m.ReviewerID] {
			return ErrDuplicateMember
		}
		seen[m.ReviewerID] = true

		profile, err := s.reviewerRepo.GetByID(m.ReviewerID)
		if err != nil {
			return err
		}
		if profile.SelectionStatus != models.StatusSelected {
			return fmt.Errorf("%w: reviewer %d is %s", ErrReviewerNotReady, m.ReviewerID, profile.SelectionStatus)
		}

		conflict := matching.CheckConflict(profile, review.HostOrganizationID)
		if conflict.HasConflict && conflict.Severity == models.SeverityHardBlock {
			return &matching.HardConstraintViolationError{
				ReviewerID: m.ReviewerID,
				Reason:     conflict.Reason,
			}
		}
	}

	if err := s.reviewRepo.AssignTeam(reviewID, members, assignedBy); err != nil {
		return err
	}

	s.auditSvc.Log(assignedBy, "review.assign_team", "reviews",
		fmt.Sprintf("team of %d assigned to review %d", len(members), reviewID))
	slog.Info("Team assigned", "review_id", reviewID, "members", len(members))
	return nil
}

// UnassignTeam removes a review's team and releases its assignment blocks
func (s *MatchingService) UnassignTeam(reviewID uint, actorID uint) error {
	if err := s.reviewRepo.UnassignTeam(reviewID); err != nil {
		return err
	}

	s.auditSvc.Log(actorID, "review.unassign_team", "reviews",
		fmt.Sprintf("team removed from review %d", reviewID))
	slog.Info("Team unassigned", "review_id", reviewID)
	return nil
}

// CommonAvailability finds the date windows where all given reviewers are
// simultaneously available
func (s *MatchingService) CommonAvailability(reviewerIDs []uint, start, end time.Time, minDays int) ([]models.DateRange, error) {
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}

	reviewers := make([]models.ReviewerProfile, 0, len(reviewerIDs))
	for _, id := range reviewerIDs {
		profile, err := s.reviewerRepo.GetByID(id)
		if err != nil {
			return nil, err
		}
		reviewers = append(reviewers, *profile)
	}

	return matching.FindCommonRanges(reviewers, start, end, minDays), nil
}

// Weights returns the configured scoring weights
func (s *MatchingService) Weights() matching.ScoringWeights {
	return s.weights
}

func (s *MatchingService) selectedPool() ([]models.ReviewerProfile, error) {
	return s.reviewerRepo.GetAll(repository.ReviewerFilters{
		SelectionStatus: models.StatusSelected,
	})
}

// assignedReviewerIDs collects the review's current team members, who are
// excluded from candidate pools.
func assignedReviewerIDs(review *models.Review) map[uint]bool {
	assigned := make(map[uint]bool, len(review.TeamMembers))
	for _, m := range review.TeamMembers {
		assigned[m.ReviewerID] = true
	}
	return assigned
}

func criteriaForReview(review *models.Review) models.MatchCriteria {
	return models.MatchCriteria{
		TargetOrganizationID: review.HostOrganizationID,
		StartDate:            review.StartDate,
		EndDate:              review.EndDate,
		RequiredExpertise:    review.RequiredExpertise,
		PreferredExpertise:   review.PreferredExpertise,
		RequiredLanguages:    review.RequiredLanguages,
		PreferredLanguages:   review.PreferredLanguages,
	}
}
