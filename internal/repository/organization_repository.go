package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"peerview/internal/models"
)

var ErrOrganizationNotFound = errors.New("organization not found")

// OrganizationRepository handles organization database operations
type OrganizationRepository struct {
	db *sql.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create creates a new organization
func (r *OrganizationRepository) Create(org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, icao_code, country, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		org.Name,
		org.ICAOCode,
		org.Country,
		org.IsActive,
		now,
		now,
	).Scan(&org.ID)

	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	org.CreatedAt = now
	org.UpdatedAt = now
	return nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(id uint) (*models.Organization, error) {
	query := `
		SELECT id, name, icao_code, country, is_active, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	org := &models.Organization{}
	err := r.db.QueryRow(query, id).Scan(
		&org.ID,
		&org.Name,
		&org.ICAOCode,
		&org.Country,
		&org.IsActive,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// GetByICAOCode retrieves an organization by its ICAO code
func (r *OrganizationRepository) GetByICAOCode(code string) (*models.Organization, error) {
	query := `
		SELECT id, name, icao_code, country, is_active, created_at, updated_at
		FROM organizations
		WHERE icao_code = $1
	`

	org := &models.Organization{}
	err := r.db.QueryRow(query, code).Scan(
		&org.ID,
		&org.Name,
		&org.ICAOCode,
		&org.Country,
		&org.IsActive,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization by ICAO code: %w", err)
	}

	return org, nil
}

// GetAll retrieves all organizations ordered by name
func (r *OrganizationRepository) GetAll(activeOnly bool) ([]models.Organization, error) {
	query := `
		SELECT id, name, icao_code, country, is_active, created_at, updated_at
		FROM organizations
	`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get organizations: %w", err)
	}
	defer rows.Close()

	orgs := []models.Organization{}
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(
			&org.ID,
			&org.Name,
			&org.ICAOCode,
			&org.Country,
			&org.IsActive,
			&org.CreatedAt,
			&org.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	return orgs, nil
}

// Update updates an organization
func (r *OrganizationRepository) Update(org *models.Organization) error {
	query := `
		UPDATE organizations
		SET name = $1, icao_code = $2, country = $3, is_active = $4, updated_at = $5
		WHERE id = $6
	`

	org.UpdatedAt = time.Now()
	result, err := r.db.Exec(
		query,
		org.Name,
		org.ICAOCode,
		org.Country,
		org.IsActive,
		org.UpdatedAt,
		org.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrOrganizationNotFound
	}

	return nil
}

// Delete deletes an organization
func (r *OrganizationRepository) Delete(id uint) error {
	query := `DELETE FROM organizations WHERE id = $1`
	_, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	return nil
}
