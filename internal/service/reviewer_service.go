package service

import (
	"errors"
	"fmt"
	"log/slog"

	"peerview/internal/matching"
	"peerview/internal/models"
	"peerview/internal/repository"
)

var (
	ErrMissingLanguages    = errors.New("nominee must hold English and French language records")
	ErrUnknownOrganization = errors.New("home organization does not exist or is inactive")
	ErrInvalidExpertise    = errors.New("unknown expertise area")
)

// ReviewerService handles reviewer pool business logic: nomination, the
// selection lifecycle, and profile maintenance.
type ReviewerService struct {
	reviewerRepo *repository.ReviewerRepository
	orgRepo      *repository.OrganizationRepository
	auditSvc     *AuditService
}

// NewReviewerService creates a new reviewer service
func NewReviewerService(
	reviewerRepo *repository.ReviewerRepository,
	orgRepo *repository.OrganizationRepository,
	auditSvc *AuditService,
) *ReviewerService {
	return &ReviewerService{
		reviewerRepo: reviewerRepo,
		orgRepo:      orgRepo,
		auditSvc:     auditSvc,
	}
}

// NominationInput carries everything needed to nominate a reviewer
type NominationInput struct {
	UserID             uint
	HomeOrganizationID uint
	Expertise          []models.ExpertiseRecord
	Languages          []models.LanguageRecord
	IsLeadQualified    bool
}

// Nominate creates a reviewer profile in NOMINATED status. The nominee's home
// organization must exist and be active, and the profile must carry language
// records for both English and French before it enters the pool.
func (s *ReviewerService) Nominate(input NominationInput, nominatedBy uint) (*models.ReviewerProfile, error) {
	org, err := s.orgRepo.GetByID(input.HomeOrganizationID)
	if err != nil {
		return nil, ErrUnknownOrganization
	}
	if !org.IsActive {
		return nil, ErrUnknownOrganization
	}

	hasEnglish, hasFrench := false, false
	for _, lang := range input.Languages {
		switch lang.Language {
		case models.LanguageEnglish:
			hasEnglish = true
		case models.LanguageFrench:
			hasFrench = true
		}
	}
	if !hasEnglish || !hasFrench {
		return nil, ErrMissingLanguages
	}

	for _, exp := range input.Expertise {
		if !models.ValidExpertiseArea(exp.Area) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidExpertise, exp.Area)
		}
	}

	profile := &models.ReviewerProfile{
		UserID:             input.UserID,
		HomeOrganizationID: input.HomeOrganizationID,
		SelectionStatus:    models.StatusNominated,
		IsLeadQualified:    input.IsLeadQualified,
		IsAvailable:        true,
	}
	if err := s.reviewerRepo.Create(profile); err != nil {
		return nil, err
	}

	for i := range input.Expertise {
		input.Expertise[i].ReviewerID = profile.ID
		if err := s.reviewerRepo.UpsertExpertise(&input.Expertise[i]); err != nil {
			return nil, err
		}
	}
	for i := range input.Languages {
		input.Languages[i].ReviewerID = profile.ID
		if err := s.reviewerRepo.UpsertLanguage(&input.Languages[i]); err != nil {
			return nil, err
		}
	}

	s.auditSvc.Log(nominatedBy, "reviewer.nominate", "reviewer_profiles",
		fmt.Sprintf("nominated reviewer %d for organization %d", profile.ID, input.HomeOrganizationID))
	slog.Info("Reviewer nominated", "reviewer_id", profile.ID, "organization_id", input.HomeOrganizationID)

	return s.reviewerRepo.GetByID(profile.ID)
}

// GetByID retrieves a reviewer profile with all sub-records
func (s *ReviewerService) GetByID(id uint) (*models.ReviewerProfile, error) {
	return s.reviewerRepo.GetByID(id)
}

// GetByUserID retrieves the reviewer profile owned by a user
func (s *ReviewerService) GetByUserID(userID uint) (*models.ReviewerProfile, error) {
	return s.reviewerRepo.GetByUserID(userID)
}

// GetPool retrieves reviewer profiles matching the filters
func (s *ReviewerService) GetPool(filters repository.ReviewerFilters) ([]models.ReviewerProfile, error) {
	return s.reviewerRepo.GetAll(filters)
}

// TransitionStatus moves a reviewer through the selection lifecycle. The
// state machine and the SELECTED pool cap are enforced atomically in the
// repository; this layer adds the audit trail.
func (s *ReviewerService) TransitionStatus(reviewerID uint, to models.SelectionStatus, actorID uint) error {
	if err := s.reviewerRepo.UpdateSelectionStatus(reviewerID, to); err != nil {
		if matching.IsCapacityExceeded(err) {
			slog.Warn("Selection pool at capacity", "reviewer_id", reviewerID)
		}
		return err
	}

	s.auditSvc.Log(actorID, "reviewer.transition", "reviewer_profiles",
		fmt.Sprintf("reviewer %d moved to %s", reviewerID, to))
	slog.Info("Reviewer status changed", "reviewer_id", reviewerID, "status", to)
	return nil
}

// PoolStatus summarizes the SELECTED pool against its cap
type PoolStatus struct {
	Selected    int `json:"selected"`
	Capacity    int `json:"capacity"`
	SlotsFree   int `json:"slots_free"`
	Nominated   int `json:"nominated"`
	UnderReview int `json:"under_review"`
}

// GetPoolStatus reports pool occupancy per lifecycle stage
func (s *ReviewerService) GetPoolStatus() (*PoolStatus, error) {
	selected, err := s.reviewerRepo.CountByStatus(models.StatusSelected)
	if err != nil {
		return nil, err
	}
	nominated, err := s.reviewerRepo.CountByStatus(models.StatusNominated)
	if err != nil {
		return nil, err
	}
	underReview, err := s.reviewerRepo.CountByStatus(models.StatusUnderReview)
	if err != nil {
		return nil, err
	}

	return &PoolStatus{
		Selected:    selected,
		Capacity:    matching.SelectedCapacity,
		SlotsFree:   matching.SelectedCapacity - selected,
		Nominated:   nominated,
		UnderReview: underReview,
	}, nil
}

// SetLeadQualification flips the lead qualification flag
func (s *ReviewerService) SetLeadQualification(reviewerID uint, qualified bool, actorID uint) error {
	if err := s.reviewerRepo.UpdateLeadQualification(reviewerID, qualified); err != nil {
		return err
	}
	s.auditSvc.Log(actorID, "reviewer.lead_qualification", "reviewer_profiles",
		fmt.Sprintf("reviewer %d lead qualification set to %t", reviewerID, qualified))
	return nil
}

// UpsertExpertise adds or updates one expertise record on a profile
func (s *ReviewerService) UpsertExpertise(record *models.ExpertiseRecord) error {
	if !models.ValidExpertiseArea(record.Area) {
		return fmt.Errorf("%w: %s", ErrInvalidExpertise, record.Area)
	}
	return s.reviewerRepo.UpsertExpertise(record)
}

// RemoveExpertise deletes one expertise record from a profile
func (s *ReviewerService) RemoveExpertise(reviewerID uint, area models.ExpertiseArea) error {
	return s.reviewerRepo.DeleteExpertise(reviewerID, area)
}

// UpsertLanguage adds or updates one language record on a profile
func (s *ReviewerService) UpsertLanguage(record *models.LanguageRecord) error {
	return s.reviewerRepo.UpsertLanguage(record)
}

// AddCertification records a professional certification
func (s *ReviewerService) AddCertification(cert *models.Certification) error {
	return s.reviewerRepo.AddCertification(cert)
}

// RecordReviewCompletion bumps the experience counters after a review closes
func (s *ReviewerService) RecordReviewCompletion(reviewerID uint, asLead bool) error {
	return s.reviewerRepo.IncrementReviewCounts(reviewerID, asLead)
}
