package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"peerview/internal/matching"
	"peerview/internal/models"
)

var ErrAvailabilityNotFound = errors.New("availability period not found")

// AvailabilityRepository handles availability period database operations.
// ON_ASSIGNMENT blocks are authoritative: they are only created and removed
// through team assignment, and every other write is checked against them.
type AvailabilityRepository struct {
	db *sql.DB
}

// NewAvailabilityRepository creates a new availability repository
func NewAvailabilityRepository(db *sql.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Create inserts a declared availability period. The reviewer's ON_ASSIGNMENT
// blocks are checked inside the same transaction; an overlap aborts the insert
// with OverlapConflictError.
func (r *AvailabilityRepository) Create(period *models.AvailabilityPeriod) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin availability insert: %w", err)
	}
	defer tx.Rollback()

	var blockID uint
	err = tx.QueryRow(`
		SELECT id FROM availability_periods
		WHERE reviewer_id = $1 AND type = $2 AND start_date <= $3 AND end_date >= $4
		LIMIT 1
	`, period.ReviewerID, models.AvailabilityOnAssignment, period.EndDate, period.StartDate).Scan(&blockID)
	if err == nil {
		return &matching.OverlapConflictError{ReviewerID: period.ReviewerID, BlockID: blockID}
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check assignment blocks: %w", err)
	}

	now := time.Now()
	err = tx.QueryRow(`
		INSERT INTO availability_periods (reviewer_id, review_id, start_date, end_date, type, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`, period.ReviewerID, period.ReviewID, period.StartDate, period.EndDate,
		period.Type, period.Notes, now).Scan(&period.ID)
	if err != nil {
		return fmt.Errorf("failed to create availability period: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit availability insert: %w", err)
	}

	period.CreatedAt = now
	period.UpdatedAt = now
	return nil
}

// GetByID retrieves an availability period
func (r *AvailabilityRepository) GetByID(id uint) (*models.AvailabilityPeriod, error) {
	query := `
		SELECT id, reviewer_id, review_id, start_date, end_date, type, notes, created_at, updated_at
		FROM availability_periods
		WHERE id = $1
	`

	p := &models.AvailabilityPeriod{}
	err := r.db.QueryRow(query, id).Scan(
		&p.ID, &p.ReviewerID, &p.ReviewID, &p.StartDate, &p.EndDate,
		&p.Type, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrAvailabilityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability period: %w", err)
	}

	return p, nil
}

// GetByReviewer retrieves every period declared by a reviewer
func (r *AvailabilityRepository) GetByReviewer(reviewerID uint) ([]models.AvailabilityPeriod, error) {
	query := `
		SELECT id, reviewer_id, review_id, start_date, end_date, type, notes, created_at, updated_at
		FROM availability_periods
		WHERE reviewer_id = $1
		ORDER BY start_date ASC
	`

	rows, err := r.db.Query(query, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get availability periods: %w", err)
	}
	defer rows.Close()

	periods := []models.AvailabilityPeriod{}
	for rows.Next() {
		var p models.AvailabilityPeriod
		if err := rows.Scan(&p.ID, &p.ReviewerID, &p.ReviewID, &p.StartDate, &p.EndDate,
			&p.Type, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan availability period: %w", err)
		}
		periods = append(periods, p)
	}

	return periods, rows.Err()
}

// Update modifies a declared period. ON_ASSIGNMENT periods cannot be edited
// this way, and the new dates are re-checked against assignment blocks.
func (r *AvailabilityRepository) Update(period *models.AvailabilityPeriod) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin availability update: %w", err)
	}
	defer tx.Rollback()

	var currentType models.AvailabilityType
	err = tx.QueryRow(
		`SELECT type FROM availability_periods WHERE id = $1 FOR UPDATE`,
		period.ID,
	).Scan(&currentType)
	if err == sql.ErrNoRows {
		return ErrAvailabilityNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock availability period: %w", err)
	}
	if currentType == models.AvailabilityOnAssignment {
		return fmt.Errorf("assignment blocks are managed through team assignment")
	}

	var blockID uint
	err = tx.QueryRow(`
		SELECT id FROM availability_periods
		WHERE reviewer_id = $1 AND type = $2 AND start_date <= $3 AND end_date >= $4 AND id <> $5
		LIMIT 1
	`, period.ReviewerID, models.AvailabilityOnAssignment, period.EndDate, period.StartDate, period.ID).Scan(&blockID)
	if err == nil {
		return &matching.OverlapConflictError{ReviewerID: period.ReviewerID, BlockID: blockID}
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check assignment blocks: %w", err)
	}

	period.UpdatedAt = time.Now()
	_, err = tx.Exec(`
		UPDATE availability_periods
		SET start_date = $1, end_date = $2, type = $3, notes = $4, updated_at = $5
		WHERE id = $6
	`, period.StartDate, period.EndDate, period.Type, period.Notes, period.UpdatedAt, period.ID)
	if err != nil {
		return fmt.Errorf("failed to update availability period: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit availability update: %w", err)
	}

	return nil
}

// Delete removes a declared period. ON_ASSIGNMENT blocks are refused.
func (r *AvailabilityRepository) Delete(id uint) error {
	result, err := r.db.Exec(
		`DELETE FROM availability_periods WHERE id = $1 AND type <> $2`,
		id, models.AvailabilityOnAssignment,
	)
	if err != nil {
		return fmt.Errorf("failed to delete availability period: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

// CreateAssignmentBlocks inserts ON_ASSIGNMENT blocks for the given reviewers
// within an existing transaction, one block per reviewer spanning the review
// dates.
func CreateAssignmentBlocks(tx *sql.Tx, reviewID uint, reviewerIDs []uint, start, end time.Time) error {
	query := `
		INSERT INTO availability_periods (reviewer_id, review_id, start_date, end_date, type, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '', $6, $6)
	`

	now := time.Now()
	for _, reviewerID := range reviewerIDs {
		if _, err := tx.Exec(query, reviewerID, reviewID, start, end,
			models.AvailabilityOnAssignment, now); err != nil {
			return fmt.Errorf("failed to create assignment block for reviewer %d: %w", reviewerID, err)
		}
	}
	return nil
}

// DeleteAssignmentBlocks removes the ON_ASSIGNMENT blocks created for a review
// within an existing transaction.
func DeleteAssignmentBlocks(tx *sql.Tx, reviewID uint) error {
	_, err := tx.Exec(
		`DELETE FROM availability_periods WHERE review_id = $1 AND type = $2`,
		reviewID, models.AvailabilityOnAssignment,
	)
	if err != nil {
		return fmt.Errorf("failed to delete assignment blocks: %w", err)
	}
	return nil
}
