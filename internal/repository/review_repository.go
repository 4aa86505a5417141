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
	ErrReviewNotFound    = errors.New("review not found")
	ErrTeamAlreadySet    = errors.New("review already has an assigned team")
	ErrNoTeamAssigned    = errors.New("review has no assigned team")
	ErrReviewNotPlanning = errors.New("review is not in a plannable status")
)

// ReviewRepository handles review and team membership database operations
type ReviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create creates a new review in PLANNING status
func (r *ReviewRepository) Create(review *models.Review) error {
	query := `
		INSERT INTO reviews (host_organization_id, title, status, start_date, end_date,
		       required_expertise, preferred_expertise, required_languages, preferred_languages,
		       team_size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		review.HostOrganizationID,
		review.Title,
		review.Status,
		review.StartDate,
		review.EndDate,
		pq.Array(expertiseStrings(review.RequiredExpertise)),
		pq.Array(expertiseStrings(review.PreferredExpertise)),
		pq.Array(review.RequiredLanguages),
		pq.Array(review.PreferredLanguages),
		review.TeamSize,
		now,
	).Scan(&review.ID)

	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}

	review.CreatedAt = now
	review.UpdatedAt = now
	return nil
}

// GetByID retrieves a review with its team members
func (r *ReviewRepository) GetByID(id uint) (*models.Review, error) {
	query := `
		SELECT id, host_organization_id, title, status, start_date, end_date,
		       required_expertise, preferred_expertise, required_languages, preferred_languages,
		       team_size, created_at, updated_at
		FROM reviews
		WHERE id = $1
	`

	review := &models.Review{}
	var requiredExp, preferredExp, requiredLang, preferredLang []string
	err := r.db.QueryRow(query, id).Scan(
		&review.ID,
		&review.HostOrganizationID,
		&review.Title,
		&review.Status,
		&review.StartDate,
		&review.EndDate,
		pq.Array(&requiredExp),
		pq.Array(&preferredExp),
		pq.Array(&requiredLang),
		pq.Array(&preferredLang),
		&review.TeamSize,
		&review.CreatedAt,
		&review.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	review.RequiredExpertise = expertiseAreas(requiredExp)
	review.PreferredExpertise = expertiseAreas(preferredExp)
	review.RequiredLanguages = requiredLang
	review.PreferredLanguages = preferredLang

	members, err := r.teamMembersFor(id)
	if err != nil {
		return nil, err
	}
	review.TeamMembers = members

	return review, nil
}

// GetAll retrieves reviews, optionally filtered by status
func (r *ReviewRepository) GetAll(status models.ReviewStatus) ([]models.Review, error) {
	query := `
		SELECT id, host_organization_id, title, status, start_date, end_date,
		       required_expertise, preferred_expertise, required_languages, preferred_languages,
		       team_size, created_at, updated_at
		FROM reviews
	`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY start_date ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var review models.Review
		var requiredExp, preferredExp, requiredLang, preferredLang []string
		if err := rows.Scan(
			&review.ID,
			&review.HostOrganizationID,
			&review.Title,
			&review.Status,
			&review.StartDate,
			&review.EndDate,
			pq.Array(&requiredExp),
			pq.Array(&preferredExp),
			pq.Array(&requiredLang),
			pq.Array(&preferredLang),
			&review.TeamSize,
			&review.CreatedAt,
			&review.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		review.RequiredExpertise = expertiseAreas(requiredExp)
		review.PreferredExpertise = expertiseAreas(preferredExp)
		review.RequiredLanguages = requiredLang
		review.PreferredLanguages = preferredLang
		reviews = append(reviews, review)
	}

	return reviews, rows.Err()
}

// Update modifies review fields outside the team assignment path
func (r *ReviewRepository) Update(review *models.Review) error {
	query := `
		UPDATE reviews
		SET host_organization_id = $1, title = $2, status = $3, start_date = $4, end_date = $5,
		    required_expertise = $6, preferred_expertise = $7, required_languages = $8,
		    preferred_languages = $9, team_size = $10, updated_at = $11
		WHERE id = $12
	`

	review.UpdatedAt = time.Now()
	result, err := r.db.Exec(
		query,
		review.HostOrganizationID,
		review.Title,
		review.Status,
		review.StartDate,
		review.EndDate,
		pq.Array(expertiseStrings(review.RequiredExpertise)),
		pq.Array(expertiseStrings(review.PreferredExpertise)),
		pq.Array(review.RequiredLanguages),
		pq.Array(review.PreferredLanguages),
		review.TeamSize,
		review.UpdatedAt,
		review.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// AssignTeam writes the team membership for a review in one transaction:
// member rows, one ON_ASSIGNMENT block per member spanning the review dates,
// and the status change to SCHEDULED. The review row is locked first; a review
// that already has members or left PLANNING status is refused.
func (r *ReviewRepository) AssignTeam(reviewID uint, members []models.ReviewTeamMember, assignedBy uint) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin team assignment: %w", err)
	}
	defer tx.Rollback()

	var status models.ReviewStatus
	var start, end time.Time
	err = tx.QueryRow(
		`SELECT status, start_date, end_date FROM reviews WHERE id = $1 FOR UPDATE`,
		reviewID,
	).Scan(&status, &start, &end)
	if err == sql.ErrNoRows {
		return ErrReviewNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock review: %w", err)
	}
	if status != models.ReviewPlanning {
		return ErrReviewNotPlanning
	}

	var existing int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM review_team_members WHERE review_id = $1`,
		reviewID,
	).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to check existing team: %w", err)
	}
	if existing > 0 {
		return ErrTeamAlreadySet
	}

	now := time.Now()
	reviewerIDs := make([]uint, 0, len(members))
	for i := range members {
		err = tx.QueryRow(`
			INSERT INTO review_team_members (review_id, reviewer_id, role, assigned_at, assigned_by)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, reviewID, members[i].ReviewerID, members[i].Role, now, assignedBy).Scan(&members[i].ID)
		if err != nil {
			return fmt.Errorf("failed to add team member: %w", err)
		}
		members[i].ReviewID = reviewID
		members[i].AssignedAt = now
		reviewerIDs = append(reviewerIDs, members[i].ReviewerID)
	}

	if err := CreateAssignmentBlocks(tx, reviewID, reviewerIDs, start, end); err != nil {
		return err
	}

	_, err = tx.Exec(
		`UPDATE reviews SET status = $1, updated_at = $2 WHERE id = $3`,
		models.ReviewScheduled, now, reviewID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit team assignment: %w", err)
	}

	return nil
}

// UnassignTeam removes the team and its ON_ASSIGNMENT blocks and returns the
// review to PLANNING, all in one transaction.
func (r *ReviewRepository) UnassignTeam(reviewID uint) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin team unassignment: %w", err)
	}
	defer tx.Rollback()

	var status models.ReviewStatus
	err = tx.QueryRow(
		`SELECT status FROM reviews WHERE id = $1 FOR UPDATE`,
		reviewID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrReviewNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock review: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM review_team_members WHERE review_id = $1`, reviewID)
	if err != nil {
		return fmt.Errorf("failed to remove team members: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check unassignment result: %w", err)
	}
	if affected == 0 {
		return ErrNoTeamAssigned
	}

	if err := DeleteAssignmentBlocks(tx, reviewID); err != nil {
		return err
	}

	_, err = tx.Exec(
		`UPDATE reviews SET status = $1, updated_at = $2 WHERE id = $3`,
		models.ReviewPlanning, time.Now(), reviewID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit team unassignment: %w", err)
	}

	return nil
}

// UpdateStatus moves a review between workflow statuses
func (r *ReviewRepository) UpdateStatus(reviewID uint, status models.ReviewStatus) error {
	result, err := r.db.Exec(
		`UPDATE reviews SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), reviewID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update result: %w", err)
	}
	if affected == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// Delete removes a review and its team membership rows
func (r *ReviewRepository) Delete(id uint) error {
	_, err := r.db.Exec(`DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}

func (r *ReviewRepository) teamMembersFor(reviewID uint) ([]models.ReviewTeamMember, error) {
	query := `
		SELECT id, review_id, reviewer_id, role, assigned_at, assigned_by
		FROM review_team_members
		WHERE review_id = $1
		ORDER BY role ASC, reviewer_id ASC
	`

	rows, err := r.db.Query(query, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team members: %w", err)
	}
	defer rows.Close()

	members := []models.ReviewTeamMember{}
	for rows.Next() {
		var m models.ReviewTeamMember
		if err := rows.Scan(&m.ID, &m.ReviewID, &m.ReviewerID, &m.Role,
			&m.AssignedAt, &m.AssignedBy); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

func expertiseStrings(areas []models.ExpertiseArea) []string {
	out := make([]string, len(areas))
	for i, a := range areas {
		out[i] = string(a)
	}
	return out
}

func expertiseAreas(values []string) []models.ExpertiseArea {
	out := make([]models.ExpertiseArea, len(values))
	for i, v := range values {
		out[i] = models.ExpertiseArea(v)
	}
	return out
}
