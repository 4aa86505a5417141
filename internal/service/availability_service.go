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
	ErrInvalidDateRange = errors.New("start date must not be after end date")
	ErrNotPeriodOwner   = errors.New("availability period belongs to another reviewer")
	ErrReservedType     = errors.New("ON_ASSIGNMENT periods are managed through team assignment")
)

// AvailabilityService handles declared availability periods and derived
// coverage calculations.
type AvailabilityService struct {
	availabilityRepo *repository.AvailabilityRepository
	reviewerRepo     *repository.ReviewerRepository
	auditSvc         *AuditService
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(
	availabilityRepo *repository.AvailabilityRepository,
	reviewerRepo *repository.ReviewerRepository,
	auditSvc *AuditService,
) *AvailabilityService {
	return &AvailabilityService{
		availabilityRepo: availabilityRepo,
		reviewerRepo:     reviewerRepo,
		auditSvc:         auditSvc,
	}
}

// DeclarePeriod records a new availability period for a reviewer. Assignment
// blocks cannot be declared directly, and a period overlapping an existing
// block is refused with OverlapConflictError.
func (s *AvailabilityService) DeclarePeriod(period *models.AvailabilityPeriod, actorID uint) error {
	if period.Type == models.AvailabilityOnAssignment {
		return ErrReservedType
	}
	if period.EndDate.Before(period.StartDate) {
		return ErrInvalidDateRange
	}

	if err := s.availabilityRepo.Create(period); err != nil {
		if matching.IsOverlapConflict(err) {
			slog.Warn("Availability period rejected, overlaps assignment block",
				"reviewer_id", period.ReviewerID)
		}
		return err
	}

	s.auditSvc.Log(actorID, "availability.declare", "availability_periods",
		fmt.Sprintf("reviewer %d declared %s period %s to %s", period.ReviewerID, period.Type,
			period.StartDate.Format("2006-01-02"), period.EndDate.Format("2006-01-02")))
	return nil
}

// UpdatePeriod modifies a declared period, re-checking assignment overlaps
func (s *AvailabilityService) UpdatePeriod(period *models.AvailabilityPeriod, actorID uint) error {
	if period.Type == models.AvailabilityOnAssignment {
		return ErrReservedType
	}
	if period.EndDate.Before(period.StartDate) {
		return ErrInvalidDateRange
	}

	existing, err := s.availabilityRepo.GetByID(period.ID)
	if err != nil {
		return err
	}
	if existing.ReviewerID != period.ReviewerID {
		return ErrNotPeriodOwner
	}

	if err := s.availabilityRepo.Update(period); err != nil {
		return err
	}

	s.auditSvc.Log(actorID, "availability.update", "availability_periods",
		fmt.Sprintf("period %d updated for reviewer %d", period.ID, period.ReviewerID))
	return nil
}

// DeletePeriod removes a declared period
func (s *AvailabilityService) DeletePeriod(periodID, reviewerID, actorID uint) error {
	existing, err := s.availabilityRepo.GetByID(periodID)
	if err != nil {
		return err
	}
	if existing.ReviewerID != reviewerID {
		return ErrNotPeriodOwner
	}

	if err := s.availabilityRepo.Delete(periodID); err != nil {
		return err
	}

	s.auditSvc.Log(actorID, "availability.delete", "availability_periods",
		fmt.Sprintf("period %d deleted for reviewer %d", periodID, reviewerID))
	return nil
}

// GetByReviewer lists every period declared by a reviewer
func (s *AvailabilityService) GetByReviewer(reviewerID uint) ([]models.AvailabilityPeriod, error) {
	return s.availabilityRepo.GetByReviewer(reviewerID)
}

// Coverage computes how a reviewer's calendar covers a date range
func (s *AvailabilityService) Coverage(reviewerID uint, start, end time.Time) (*models.CoverageResult, error) {
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}

	profile, err := s.reviewerRepo.GetByID(reviewerID)
	if err != nil {
		return nil, err
	}

	result := matching.Coverage(profile, start, end)
	return &result, nil
}

// RefreshAvailabilityFlags recomputes the coarse is_available flag for every
// reviewer from their calendar over the next 180 days. The scheduler runs
// this nightly; a reviewer with no AVAILABLE or TENTATIVE day in the window
// is flagged unavailable.
func (s *AvailabilityService) RefreshAvailabilityFlags() (int, error) {
	profiles, err := s.reviewerRepo.GetAll(repository.ReviewerFilters{})
	if err != nil {
		return 0, err
	}

	now := time.Now()
	horizon := now.AddDate(0, 0, 180)

	updated := 0
	for i := range profiles {
		available := false
		for _, p := range profiles[i].Availability {
			if p.Type != models.AvailabilityAvailable && p.Type != models.AvailabilityTentative {
				continue
			}
			if matching.PeriodsOverlap(p.StartDate, p.EndDate, now, horizon) {
				available = true
				break
			}
		}

		if available == profiles[i].IsAvailable {
			continue
		}
		if err := s.reviewerRepo.UpdateAvailabilityFlag(profiles[i].ID, available); err != nil {
			slog.Error("Failed to refresh availability flag", "error", err, "reviewer_id", profiles[i].ID)
			continue
		}
		updated++
	}

	if updated > 0 {
		slog.Info("Availability flags refreshed", "updated", updated)
	}
	return updated, nil
}
