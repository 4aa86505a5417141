package testutil

import (
	"database/sql"
	"testing"
	"time"

	"peerview/internal/models"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures holds test data
type Fixtures struct {
	DB              *sql.DB
	AdminUser       *models.User
	CoordinatorUser *models.User
	ReviewerUser    *models.User
	HostOrg         *models.Organization
	HomeOrgA        *models.Organization
	HomeOrgB        *models.Organization
}

// SetupFixtures creates the base test data set: three users with the seeded
// roles and three active organizations
func SetupFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()

	fixtures := &Fixtures{
		DB: db,
	}

	adminRole := getRole(t, db, "admin")
	coordinatorRole := getRole(t, db, "coordinator")
	reviewerRole := getRole(t, db, "reviewer")

	fixtures.AdminUser = createUser(t, db, "admin@test.aero", "Admin", "User", []uint{adminRole.ID})
	fixtures.CoordinatorUser = createUser(t, db, "coordinator@test.aero", "Coordinator", "User", []uint{coordinatorRole.ID})
	fixtures.ReviewerUser = createUser(t, db, "reviewer@test.aero", "Reviewer", "User", []uint{reviewerRole.ID})

	fixtures.HostOrg = createOrganization(t, db, "Host ANSP", "LFFF", "France")
	fixtures.HomeOrgA = createOrganization(t, db, "Home ANSP A", "EDDF", "Germany")
	fixtures.HomeOrgB = createOrganization(t, db, "Home ANSP B", "EGLL", "United Kingdom")

	return fixtures
}

// getRole looks up one of the roles seeded by the migrations
func getRole(t *testing.T, db *sql.DB, name string) *models.Role {
	t.Helper()

	var role models.Role
	err := db.QueryRow(
		"SELECT id, name, description, created_at FROM roles WHERE name = $1",
		name,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to get role %s: %v", name, err)
	}

	return &role
}

// createUser creates a user with the specified roles
func createUser(t *testing.T, db *sql.DB, email, firstName, lastName string, roleIDs []uint) *models.User {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	var user models.User
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, first_name, last_name, is_active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING id, email, first_name, last_name, is_active, created_at, updated_at
	`, email, string(hashedPassword), firstName, lastName).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}

	for _, roleID := range roleIDs {
		_, err := db.Exec("INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)", user.ID, roleID)
		if err != nil {
			t.Fatalf("Failed to assign role %d to user %s: %v", roleID, email, err)
		}
	}

	return &user
}

// createOrganization creates an active organization
func createOrganization(t *testing.T, db *sql.DB, name, icaoCode, country string) *models.Organization {
	t.Helper()

	var org models.Organization
	err := db.QueryRow(`
		INSERT INTO organizations (name, icao_code, country, is_active)
		VALUES ($1, $2, $3, true)
		RETURNING id, name, icao_code, country, is_active, created_at, updated_at
	`, name, icaoCode, country).Scan(
		&org.ID, &org.Name, &org.ICAOCode, &org.Country,
		&org.IsActive, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to create organization %s: %v", name, err)
	}

	return &org
}

// CreateUser creates an extra user with the reviewer role
func (f *Fixtures) CreateUser(t *testing.T, email string) *models.User {
	t.Helper()

	role := getRole(t, f.DB, "reviewer")
	return createUser(t, f.DB, email, "Test", "User", []uint{role.ID})
}

// CreateReviewerProfile creates a reviewer profile for a user
func (f *Fixtures) CreateReviewerProfile(t *testing.T, userID, homeOrgID uint, status models.SelectionStatus, leadQualified bool) *models.ReviewerProfile {
	t.Helper()

	var profile models.ReviewerProfile
	err := f.DB.QueryRow(`
		INSERT INTO reviewer_profiles (user_id, home_organization_id, selection_status, is_lead_qualified, is_available)
		VALUES ($1, $2, $3, $4, false)
		RETURNING id, user_id, home_organization_id, selection_status, is_lead_qualified,
			is_available, reviews_completed, reviews_as_lead, created_at, updated_at
	`, userID, homeOrgID, status, leadQualified).Scan(
		&profile.ID, &profile.UserID, &profile.HomeOrganizationID, &profile.SelectionStatus,
		&profile.IsLeadQualified, &profile.IsAvailable, &profile.ReviewsCompleted,
		&profile.ReviewsAsLead, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to create reviewer profile for user %d: %v", userID, err)
	}

	return &profile
}

// AddExpertise records a review-domain expertise for a reviewer
func (f *Fixtures) AddExpertise(t *testing.T, reviewerID uint, area models.ExpertiseArea, proficiency models.ProficiencyLevel, years int) {
	t.Helper()

	_, err := f.DB.Exec(`
		INSERT INTO reviewer_expertise (reviewer_id, area, proficiency, years_in_area)
		VALUES ($1, $2, $3, $4)
	`, reviewerID, area, proficiency, years)
	if err != nil {
		t.Fatalf("Failed to add expertise %s for reviewer %d: %v", area, reviewerID, err)
	}
}

// AddLanguage records a working language for a reviewer
func (f *Fixtures) AddLanguage(t *testing.T, reviewerID uint, language string, proficiency models.ProficiencyLevel) {
	t.Helper()

	_, err := f.DB.Exec(`
		INSERT INTO reviewer_languages (reviewer_id, language, proficiency, is_native, can_conduct_interviews)
		VALUES ($1, $2, $3, false, true)
	`, reviewerID, language, proficiency)
	if err != nil {
		t.Fatalf("Failed to add language %s for reviewer %d: %v", language, reviewerID, err)
	}
}

// AddAvailability declares an availability period for a reviewer
func (f *Fixtures) AddAvailability(t *testing.T, reviewerID uint, start, end time.Time, periodType models.AvailabilityType) *models.AvailabilityPeriod {
	t.Helper()

	var period models.AvailabilityPeriod
	err := f.DB.QueryRow(`
		INSERT INTO availability_periods (reviewer_id, start_date, end_date, type, notes)
		VALUES ($1, $2, $3, $4, '')
		RETURNING id, reviewer_id, review_id, start_date, end_date, type, notes, created_at, updated_at
	`, reviewerID, start, end, periodType).Scan(
		&period.ID, &period.ReviewerID, &period.ReviewID, &period.StartDate,
		&period.EndDate, &period.Type, &period.Notes, &period.CreatedAt, &period.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to add availability for reviewer %d: %v", reviewerID, err)
	}

	return &period
}

// CreateReview creates a review in PLANNING for the host organization
func (f *Fixtures) CreateReview(t *testing.T, hostOrgID uint, title string, start, end time.Time, teamSize int, requiredExpertise []models.ExpertiseArea, requiredLanguages []string) *models.Review {
	t.Helper()

	areas := make([]string, len(requiredExpertise))
	for i, a := range requiredExpertise {
		areas[i] = string(a)
	}

	var review models.Review
	err := f.DB.QueryRow(`
		INSERT INTO reviews (host_organization_id, title, status, start_date, end_date,
			required_expertise, required_languages, team_size)
		VALUES ($1, $2, 'PLANNING', $3, $4, $5, $6, $7)
		RETURNING id, host_organization_id, title, status, start_date, end_date, team_size, created_at, updated_at
	`, hostOrgID, title, start, end, pq.Array(areas), pq.Array(requiredLanguages), teamSize).Scan(
		&review.ID, &review.HostOrganizationID, &review.Title, &review.Status,
		&review.StartDate, &review.EndDate, &review.TeamSize, &review.CreatedAt, &review.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to create review %s: %v", title, err)
	}

	review.RequiredExpertise = requiredExpertise
	review.RequiredLanguages = requiredLanguages
	return &review
}

// CreateCOIDeclaration declares an active conflict of interest without
// encrypted details
func (f *Fixtures) CreateCOIDeclaration(t *testing.T, reviewerID, organizationID uint, coiType models.COIType) *models.COIDeclaration {
	t.Helper()

	severity := models.SeverityForCOIType(coiType)

	var decl models.COIDeclaration
	err := f.DB.QueryRow(`
		INSERT INTO coi_declarations (reviewer_id, organization_id, type, severity, is_active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING id, reviewer_id, organization_id, type, severity, is_active, created_at, updated_at
	`, reviewerID, organizationID, coiType, severity).Scan(
		&decl.ID, &decl.ReviewerID, &decl.OrganizationID, &decl.Type,
		&decl.Severity, &decl.IsActive, &decl.CreatedAt, &decl.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to create COI declaration for reviewer %d: %v", reviewerID, err)
	}

	return &decl
}

// Cleanup removes all test data
func (f *Fixtures) Cleanup(t *testing.T) {
	t.Helper()

	// Cleanup is handled by container termination
	// Data is not persisted between tests
}
