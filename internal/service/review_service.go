package service

import (
	"errors"
	"fmt"

	"peerview/internal/models"
	"peerview/internal/repository"
)

var (
	ErrInvalidTeamSize   = errors.New("team size must be positive")
	ErrUnknownLanguage   = errors.New("unknown required language")
	ErrInactiveHost      = errors.New("host organization is inactive")
	ErrReviewHasTeam     = errors.New("review team must be unassigned first")
	ErrInvalidReviewArea = errors.New("unknown expertise area in review requirements")
)

// ReviewService handles review lifecycle outside of team matching
type ReviewService struct {
	reviewRepo   *repository.ReviewRepository
	orgRepo      *repository.OrganizationRepository
	reviewerRepo *repository.ReviewerRepository
	auditSvc     *AuditService
}

// NewReviewService creates a new review service
func NewReviewService(
	reviewRepo *repository.ReviewRepository,
	orgRepo *repository.OrganizationRepository,
	reviewerRepo *repository.ReviewerRepository,
	auditSvc *AuditService,
) *ReviewService {
	return &ReviewService{
		reviewRepo:   reviewRepo,
		orgRepo:      orgRepo,
		reviewerRepo: reviewerRepo,
		auditSvc:     auditSvc,
	}
}

// Create plans a new review for a host organization
func (s *ReviewService) Create(review *models.Review, actorID uint) error {
	if err := s.validate(review); err != nil {
		return err
	}

	review.Status = models.ReviewPlanning
	if err := s.reviewRepo.Create(review); err != nil {
		return err
	}

	s.auditSvc.Log(actorID, "review.create", "reviews",
		fmt.Sprintf("review %d planned for organization %d", review.ID, review.HostOrganizationID))
	return nil
}

// GetByID retrieves a review with its team
func (s *ReviewService) GetByID(id uint) (*models.Review, error) {
	return s.reviewRepo.GetByID(id)
}

// GetAll lists reviews, optionally filtered by status
func (s *ReviewService) GetAll(status models.ReviewStatus) ([]models.Review, error) {
	return s.reviewRepo.GetAll(status)
}

// Update modifies a planned review. Reviews with an assigned team keep their
// dates and requirements frozen until the team is unassigned.
func (s *ReviewService) Update(review *models.Review, actorID uint) error {
	existing, err := s.reviewRepo.GetByID(review.ID)
	if err != nil {
		return err
	}
	if len(existing.TeamMembers) > 0 {
		return ErrReviewHasTeam
	}

	if err := s.validate(review); err != nil {
		return err
	}
	review.Status = existing.Status

	if err := s.reviewRepo.Update(review); err != nil {
		return err
	}

	s.auditSvc.Log(actorID, "review.update", "reviews",
		fmt.Sprintf("review %d updated", review.ID))
	return nil
}

// Complete closes a review and credits every team member's experience counters
func (s *ReviewService) Complete(reviewID uint, actorID uint) error {
	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		return err
	}

	if err := s.reviewRepo.UpdateStatus(reviewID, models.ReviewCompleted); err != nil {
		return err
	}

	for _, m := range review.TeamMembers {
		asLead := m.Role == models.RoleLeadReviewer
		if err := s.reviewerRepo.IncrementReviewCounts(m.ReviewerID, asLead); err != nil {
			return fmt.Errorf("failed to credit reviewer %d: %w", m.ReviewerID, err)
		}
	}

	s.auditSvc.Log(actorID, "review.complete", "reviews",
		fmt.Sprintf("review %d completed with %d team members", reviewID, len(review.TeamMembers)))
	return nil
}

// Cancel cancels a review
func (s *ReviewService) Cancel(reviewID uint, actorID uint) error {
	if err := s.reviewRepo.UpdateStatus(reviewID, models.ReviewCancelled); err != nil {
		return err
	}
	s.auditSvc.Log(actorID, "review.cancel", "reviews",
		fmt.Sprintf("review %d cancelled", reviewID))
	return nil
}

func (s *ReviewService) validate(review *models.Review) error {
	org, err := s.orgRepo.GetByID(review.HostOrganizationID)
	if err != nil {
		return err
	}
	if !org.IsActive {
		return ErrInactiveHost
	}

	if review.TeamSize <= 0 {
		return ErrInvalidTeamSize
	}
	if review.EndDate.Before(review.StartDate) {
		return ErrInvalidDateRange
	}

	for _, area := range review.RequiredExpertise {
		if !models.ValidExpertiseArea(area) {
			return fmt.Errorf("%w: %s", ErrInvalidReviewArea, area)
		}
	}
	for _, area := range review.PreferredExpertise {
		if !models.ValidExpertiseArea(area) {
			return fmt.Errorf("%w: %s", ErrInvalidReviewArea, area)
		}
	}

	return nil
}
