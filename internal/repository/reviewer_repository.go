package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"peerview/internal/matching"
	"peerview/internal/models"
)

var (
	ErrReviewerNotFound = errors.New("reviewer not found")
	ErrReviewerExists   = errors.New("reviewer profile already exists for this user")
)

// ReviewerRepository handles reviewer profile database operations.
// Profiles are assembled from their owned sub-tables (expertise, languages,
// certifications, availability, COI declarations) into a complete DTO graph.
type ReviewerRepository struct {
	db *sql.DB
}

// NewReviewerRepository creates a new reviewer repository
func NewReviewerRepository(db *sql.DB) *ReviewerRepository {
	return &ReviewerRepository{db: db}
}

// Create creates a new reviewer profile in NOMINATED status
func (r *ReviewerRepository) Create(profile *models.ReviewerProfile) error {
	query := `
		INSERT INTO reviewer_profiles (user_id, home_organization_id, selection_status,
		       is_lead_qualified, is_available, reviews_completed, reviews_as_lead, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		profile.UserID,
		profile.HomeOrganizationID,
		profile.SelectionStatus,
		profile.IsLeadQualified,
		profile.IsAvailable,
		profile.ReviewsCompleted,
		profile.ReviewsAsLead,
		now,
		now,
	).Scan(&profile.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrReviewerExists
		}
		return fmt.Errorf("failed to create reviewer profile: %w", err)
	}

	profile.CreatedAt = now
	profile.UpdatedAt = now
	return nil
}

// GetByID retrieves a reviewer profile with all sub-records loaded
func (r *ReviewerRepository) GetByID(id uint) (*models.ReviewerProfile, error) {
	query := `
		SELECT id, user_id, home_organization_id, selection_status, is_lead_qualified,
		       is_available, reviews_completed, reviews_as_lead, created_at, updated_at
		FROM reviewer_profiles
		WHERE id = $1
	`

	profile := &models.ReviewerProfile{}
	err := r.db.QueryRow(query, id).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.HomeOrganizationID,
		&profile.SelectionStatus,
		&profile.IsLeadQualified,
		&profile.IsAvailable,
		&profile.ReviewsCompleted,
		&profile.ReviewsAsLead,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrReviewerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reviewer profile: %w", err)
	}

	if err := r.loadSubRecords(profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// GetByUserID retrieves the reviewer profile owned by a user
func (r *ReviewerRepository) GetByUserID(userID uint) (*models.ReviewerProfile, error) {
	query := `SELECT id FROM reviewer_profiles WHERE user_id = $1`

	var id uint
	err := r.db.QueryRow(query, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ErrReviewerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reviewer profile by user: %w", err)
	}

	return r.GetByID(id)
}

// ReviewerFilters holds filter parameters for pool queries
type ReviewerFilters struct {
	SelectionStatus    models.SelectionStatus
	HomeOrganizationID uint
	LeadQualifiedOnly  bool
	AvailableOnly      bool
}

// GetAll retrieves reviewer profiles matching the filters, sub-records included.
// The pool is small (tens of reviewers), so per-profile sub-record loads are fine.
func (r *ReviewerRepository) GetAll(filters ReviewerFilters) ([]models.ReviewerProfile, error) {
	query := `
		SELECT id, user_id, home_organization_id, selection_status, is_lead_qualified,
		       is_available, reviews_completed, reviews_as_lead, created_at, updated_at
		FROM reviewer_profiles
		WHERE 1=1
	`

	args := []interface{}{}
	argPos := 1

	if filters.SelectionStatus != "" {
		query += fmt.Sprintf(` AND selection_status = $%d`, argPos)
		args = append(args, filters.SelectionStatus)
		argPos++
	}
	if filters.HomeOrganizationID != 0 {
		query += fmt.Sprintf(` AND home_organization_id = $%d`, argPos)
		args = append(args, filters.HomeOrganizationID)
		argPos++
	}
	if filters.LeadQualifiedOnly {
		query += ` AND is_lead_qualified = true`
	}
	if filters.AvailableOnly {
		query += ` AND is_available = true`
	}

	query += ` ORDER BY id ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviewer profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.ReviewerProfile{}
	for rows.Next() {
		var profile models.ReviewerProfile
		if err := rows.Scan(
			&profile.ID,
			&profile.UserID,
			&profile.HomeOrganizationID,
			&profile.SelectionStatus,
			&profile.IsLeadQualified,
			&profile.IsAvailable,
			&profile.ReviewsCompleted,
			&profile.ReviewsAsLead,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reviewer profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviewer profiles: %w", err)
	}

	for i := range profiles {
		if err := r.loadSubRecords(&profiles[i]); err != nil {
			return nil, err
		}
	}

	return profiles, nil
}

// selectionPoolLockID keys the advisory lock that serializes admissions into
// the SELECTED pool. Locking only the transitioning reviewer's row is not
// enough: two transactions admitting different reviewers would lock different
// rows and both count a free slot.
const selectionPoolLockID = 450001

// UpdateSelectionStatus transitions a reviewer between selection statuses.
// The transition is validated against the lifecycle state machine and, when
// entering the SELECTED pool, the cap count and the status write happen under
// a transaction-scoped advisory lock so concurrent admissions serialize.
func (r *ReviewerRepository) UpdateSelectionStatus(reviewerID uint, to models.SelectionStatus) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin status transition: %w", err)
	}
	defer tx.Rollback()

	var from models.SelectionStatus
	err = tx.QueryRow(
		`SELECT selection_status FROM reviewer_profiles WHERE id = $1 FOR UPDATE`,
		reviewerID,
	).Scan(&from)
	if err == sql.ErrNoRows {
		return ErrReviewerNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock reviewer profile: %w", err)
	}

	if err := matching.ValidateStatusTransition(from, to); err != nil {
		return err
	}

	if matching.EntersSelectedPool(from, to) {
		// Held until commit or rollback; the next admission's count sees
		// this transaction's write.
		if _, err := tx.Exec(`SELECT pg_advisory_xact_lock($1)`, selectionPoolLockID); err != nil {
			return fmt.Errorf("failed to acquire selection pool lock: %w", err)
		}

		var selected int
		err = tx.QueryRow(
			`SELECT COUNT(*) FROM reviewer_profiles WHERE selection_status = $1`,
			models.StatusSelected,
		).Scan(&selected)
		if err != nil {
			return fmt.Errorf("failed to count selected reviewers: %w", err)
		}
		if selected >= matching.SelectedCapacity {
			return &matching.CapacityExceededError{Current: selected}
		}
	}

	_, err = tx.Exec(
		`UPDATE reviewer_profiles SET selection_status = $1, updated_at = $2 WHERE id = $3`,
		to, time.Now(), reviewerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update selection status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status transition: %w", err)
	}

	return nil
}

// CountByStatus returns the number of reviewers in a selection status
func (r *ReviewerRepository) CountByStatus(status models.SelectionStatus) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM reviewer_profiles WHERE selection_status = $1`,
		status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviewers by status: %w", err)
	}
	return count, nil
}

// UpdateLeadQualification sets the lead qualification flag
func (r *ReviewerRepository) UpdateLeadQualification(reviewerID uint, qualified bool) error {
	result, err := r.db.Exec(
		`UPDATE reviewer_profiles SET is_lead_qualified = $1, updated_at = $2 WHERE id = $3`,
		qualified, time.Now(), reviewerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead qualification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrReviewerNotFound
	}
	return nil
}

// UpdateAvailabilityFlag sets the coarse availability flag
func (r *ReviewerRepository) UpdateAvailabilityFlag(reviewerID uint, available bool) error {
	_, err := r.db.Exec(
		`UPDATE reviewer_profiles SET is_available = $1, updated_at = $2 WHERE id = $3`,
		available, time.Now(), reviewerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update availability flag: %w", err)
	}
	return nil
}

// IncrementReviewCounts bumps the completed-review counters after a review closes
func (r *ReviewerRepository) IncrementReviewCounts(reviewerID uint, asLead bool) error {
	query := `
		UPDATE reviewer_profiles
		SET reviews_completed = reviews_completed + 1, updated_at = $1
		WHERE id = $2
	`
	if asLead {
		query = `
			UPDATE reviewer_profiles
			SET reviews_completed = reviews_completed + 1, reviews_as_lead = reviews_as_lead + 1, updated_at = $1
			WHERE id = $2
		`
	}

	_, err := r.db.Exec(query, time.Now(), reviewerID)
	if err != nil {
		return fmt.Errorf("failed to increment review counts: %w", err)
	}
	return nil
}

// UpsertExpertise creates or updates the reviewer's record for one expertise area
func (r *ReviewerRepository) UpsertExpertise(record *models.ExpertiseRecord) error {
	query := `
		INSERT INTO reviewer_expertise (reviewer_id, area, proficiency, years_in_area, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (reviewer_id, area)
		DO UPDATE SET proficiency = EXCLUDED.proficiency, years_in_area = EXCLUDED.years_in_area, updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		record.ReviewerID,
		record.Area,
		record.Proficiency,
		record.YearsInArea,
		now,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert expertise record: %w", err)
	}

	record.UpdatedAt = now
	return nil
}

// DeleteExpertise removes the reviewer's record for one expertise area
func (r *ReviewerRepository) DeleteExpertise(reviewerID uint, area models.ExpertiseArea) error {
	_, err := r.db.Exec(
		`DELETE FROM reviewer_expertise WHERE reviewer_id = $1 AND area = $2`,
		reviewerID, area,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expertise record: %w", err)
	}
	return nil
}

// UpsertLanguage creates or updates the reviewer's record for one language
func (r *ReviewerRepository) UpsertLanguage(record *models.LanguageRecord) error {
	query := `
		INSERT INTO reviewer_languages (reviewer_id, language, proficiency, is_native,
		       can_conduct_interviews, icao_level, certified_at, cert_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (reviewer_id, language)
		DO UPDATE SET proficiency = EXCLUDED.proficiency, is_native = EXCLUDED.is_native,
		       can_conduct_interviews = EXCLUDED.can_conduct_interviews, icao_level = EXCLUDED.icao_level,
		       certified_at = EXCLUDED.certified_at, cert_expires_at = EXCLUDED.cert_expires_at,
		       updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		record.ReviewerID,
		record.Language,
		record.Proficiency,
		record.IsNative,
		record.CanConductInterviews,
		record.ICAOLevel,
		record.CertifiedAt,
		record.CertExpiresAt,
		now,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert language record: %w", err)
	}

	record.UpdatedAt = now
	return nil
}

// AddCertification records a professional certification
func (r *ReviewerRepository) AddCertification(cert *models.Certification) error {
	query := `
		INSERT INTO reviewer_certifications (reviewer_id, name, issued_by, issued_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		cert.ReviewerID,
		cert.Name,
		cert.IssuedBy,
		cert.IssuedAt,
		cert.ExpiresAt,
		now,
	).Scan(&cert.ID)
	if err != nil {
		return fmt.Errorf("failed to add certification: %w", err)
	}

	cert.CreatedAt = now
	return nil
}

// Delete removes a reviewer profile and all owned sub-records
func (r *ReviewerRepository) Delete(id uint) error {
	_, err := r.db.Exec(`DELETE FROM reviewer_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reviewer profile: %w", err)
	}
	return nil
}

func (r *ReviewerRepository) loadSubRecords(profile *models.ReviewerProfile) error {
	var err error
	if profile.Expertise, err = r.expertiseFor(profile.ID); err != nil {
		return err
	}
	if profile.Languages, err = r.languagesFor(profile.ID); err != nil {
		return err
	}
	if profile.Certifications, err = r.certificationsFor(profile.ID); err != nil {
		return err
	}
	if profile.Availability, err = r.availabilityFor(profile.ID); err != nil {
		return err
	}
	if profile.Declarations, err = r.declarationsFor(profile.ID); err != nil {
		return err
	}
	return nil
}

func (r *ReviewerRepository) expertiseFor(reviewerID uint) ([]models.ExpertiseRecord, error) {
	query := `
		SELECT id, reviewer_id, area, proficiency, years_in_area, created_at, updated_at
		FROM reviewer_expertise
		WHERE reviewer_id = $1
		ORDER BY area ASC
	`

	rows, err := r.db.Query(query, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get expertise records: %w", err)
	}
	defer rows.Close()

	records := []models.ExpertiseRecord{}
	for rows.Next() {
		var rec models.ExpertiseRecord
		if err := rows.Scan(&rec.ID, &rec.ReviewerID, &rec.Area, &rec.Proficiency,
			&rec.YearsInArea, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expertise record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *ReviewerRepository) languagesFor(reviewerID uint) ([]models.LanguageRecord, error) {
	query := `
		SELECT id, reviewer_id, language, proficiency, is_native, can_conduct_interviews,
		       icao_level, certified_at, cert_expires_at, created_at, updated_at
		FROM reviewer_languages
		WHERE reviewer_id = $1
		ORDER BY language ASC
	`

	rows, err := r.db.Query(query, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get language records: %w", err)
	}
	defer rows.Close()

	records := []models.LanguageRecord{}
	for rows.Next() {
		var rec models.LanguageRecord
		if err := rows.Scan(&rec.ID, &rec.ReviewerID, &rec.Language, &rec.Proficiency,
			&rec.IsNative, &rec.CanConductInterviews, &rec.ICAOLevel,
			&rec.CertifiedAt, &rec.CertExpiresAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan language record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *ReviewerRepository) certificationsFor(reviewerID uint) ([]models.Certification, error) {
	query := `
		SELECT id, reviewer_id, name, issued_by, issued_at, expires_at, created_at
		FROM reviewer_certifications
		WHERE reviewer_id = $1
		ORDER BY issued_at DESC
	`

	rows, err := r.db.Query(query, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get certifications: %w", err)
	}
	defer rows.Close()

	certs := []models.Certification{}
	for rows.Next() {
		var cert models.Certification
		if err := rows.Scan(&cert.ID, &cert.ReviewerID, &cert.Name, &cert.IssuedBy,
			&cert.IssuedAt, &cert.ExpiresAt, &cert.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan certification: %w", err)
		}
		certs = append(certs, cert)
	}

	return certs, rows.Err()
}

func (r *ReviewerRepository) availabilityFor(reviewerID uint) ([]models.AvailabilityPeriod, error) {
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

func (r *ReviewerRepository) declarationsFor(reviewerID uint) ([]models.COIDeclaration, error) {
	query := `
		SELECT id, reviewer_id, organization_id, type, severity, is_active, end_date,
		       encrypted_details, verified_by, verified_at, created_at, updated_at
		FROM coi_declarations
		WHERE reviewer_id = $1
		ORDER BY id ASC
	`

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
