package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"peerview/internal/models"
)

var (
	ErrDeclarationNotFound = errors.New("COI declaration not found")
	ErrDeclarationExists   = errors.New("active COI declaration of this type already exists")
)

// COIRepository handles conflict-of-interest declaration database operations
type COIRepository struct {
	db *sql.DB
}

// NewCOIRepository creates a new COI repository
func NewCOIRepository(db *sql.DB) *COIRepository {
	return &COIRepository{db: db}
}

// Create inserts a declaration. A partial unique index enforces at most one
// active declaration per (reviewer, organization, type).
func (r *COIRepository) Create(d *models.COIDeclaration) error {
	query := `
		INSERT INTO coi_declarations (reviewer_id, organization_id, type, severity, is_active,
		       end_date, encrypted_details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		d.ReviewerID,
		d.OrganizationID,
		d.Type,
		d.Severity,
		d.IsActive,
		d.EndDate,
		d.EncryptedDetails,
		now,
	).Scan(&d.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDeclarationExists
		}
		return fmt.Errorf("failed to create COI declaration: %w", err)
	}

	d.CreatedAt = now
	d.UpdatedAt = now
	return nil
}

// GetByID retrieves a declaration
func (r *COIRepository) GetByID(id uint) (*models.COIDeclaration, error) {
	query := `
		SELECT id, reviewer_id, organization_id, type, severity, is_active, end_date,
		       encrypted_details, verified_by, verified_at, created_at, updated_at
		FROM coi_declarations
		WHERE id = $1
	`

	d := &models.COIDeclaration{}
	err := r.db.QueryRow(query, id).Scan(
		&d.ID, &d.ReviewerID, &d.OrganizationID, &d.Type, &d.Severity,
		&d.IsActive, &d.EndDate, &d.EncryptedDetails, &d.VerifiedBy, &d.VerifiedAt,
		&d.CreatedAt, &d.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrDeclarationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get COI declaration: %w", err)
	}

	return d, nil
}

// GetByReviewer retrieves every declaration made by a reviewer
func (r *COIRepository) GetByReviewer(reviewerID uint, activeOnly bool) ([]models.COIDeclaration, error) {
	query := `
		SELECT id, reviewer_id, organization_id, type, severity, is_active, end_date,
		       encrypted_details, verified_by, verified_at, created_at, updated_at
		FROM coi_declarations
		WHERE reviewer_id = $1
	`
	if activeOnly {
		query += ` AND is_active = true`
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.Query(query, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get COI declarations: %w", err)
	}
	defer rows.Close()

	declarations := []models.COIDeclaration{}
	for rows.Next() {
		var d models.COIDeclaration
		if err := rows.Scan(&d.ID, &d.ReviewerID, &d.OrganizationID, &d.Type, &d.Severity,
			&d.IsActive, &d.EndDate, &d.EncryptedDetails, &d.VerifiedBy, &d.VerifiedAt,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan COI declaration: %w", err)
		}
		declarations = append(declarations, d)
	}

	return declarations, rows.Err()
}

// Verify records a coordinator's review of a declaration
func (r *COIRepository) Verify(id uint, verifiedBy uint) error {
	now := time.Now()
	result, err := r.db.Exec(`
		UPDATE coi_declarations
		SET verified_by = $1, verified_at = $2, updated_at = $2
		WHERE id = $3
	`, verifiedBy, now, id)
	if err != nil {
		return fmt.Errorf("failed to verify COI declaration: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check verify result: %w", err)
	}
	if affected == 0 {
		return ErrDeclarationNotFound
	}
	return nil
}

// Deactivate marks a declaration inactive
func (r *COIRepository) Deactivate(id uint) error {
	result, err := r.db.Exec(`
		UPDATE coi_declarations
		SET is_active = false, updated_at = $1
		WHERE id = $2
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate COI declaration: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivate result: %w", err)
	}
	if affected == 0 {
		return ErrDeclarationNotFound
	}
	return nil
}

// DeactivateExpired marks every active declaration whose end date has passed
// as inactive and returns how many rows changed. The scheduler runs this
// nightly.
func (r *COIRepository) DeactivateExpired(asOf time.Time) (int64, error) {
	result, err := r.db.Exec(`
		UPDATE coi_declarations
		SET is_active = false, updated_at = $1
		WHERE is_active = true AND end_date IS NOT NULL AND end_date < $2
	`, time.Now(), asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired COI declarations: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deactivated declarations: %w", err)
	}
	return affected, nil
}

// Delete removes a declaration
func (r *COIRepository) Delete(id uint) error {
	_, err := r.db.Exec(`DELETE FROM coi_declarations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete COI declaration: %w", err)
	}
	return nil
}
