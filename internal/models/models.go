package models

import (
	"time"
)

// SelectionStatus is the lifecycle status of a reviewer in the pool
type SelectionStatus string

const (
	StatusNominated   SelectionStatus = "NOMINATED"
	StatusUnderReview SelectionStatus = "UNDER_REVIEW"
	StatusSelected    SelectionStatus = "SELECTED"
	StatusInactive    SelectionStatus = "INACTIVE"
	StatusWithdrawn   SelectionStatus = "WITHDRAWN"
	StatusRejected    SelectionStatus = "REJECTED"
)

// AvailabilityType classifies a declared availability period
type AvailabilityType string

const (
	AvailabilityAvailable    AvailabilityType = "AVAILABLE"
	AvailabilityTentative    AvailabilityType = "TENTATIVE"
	AvailabilityUnavailable  AvailabilityType = "UNAVAILABLE"
	AvailabilityOnAssignment AvailabilityType = "ON_ASSIGNMENT"
)

// COIType classifies a conflict-of-interest declaration
type COIType string

const (
	COIHomeOrganization   COIType = "HOME_ORGANIZATION"
	COIFamilyRelationship COIType = "FAMILY_RELATIONSHIP"
	COIFormerEmployment   COIType = "FORMER_EMPLOYMENT"
	COIFinancialInterest  COIType = "FINANCIAL_INTEREST"
	COIProfessionalTie    COIType = "PROFESSIONAL_TIE"
	COIOther              COIType = "OTHER"
)

// COISeverity is the severity of a conflict-of-interest declaration
type COISeverity string

const (
	SeverityHardBlock   COISeverity = "HARD_BLOCK"
	SeveritySoftWarning COISeverity = "SOFT_WARNING"
)

// SeverityForCOIType derives the severity from the declaration type.
// Home-organization affiliation and family relationships always hard-block;
// everything else is a warning surfaced to the coordinator.
func SeverityForCOIType(coiType COIType) COISeverity {
	switch coiType {
	case COIHomeOrganization, COIFamilyRelationship:
		return SeverityHardBlock
	default:
		return SeveritySoftWarning
	}
}

// ExpertiseArea is one of the fixed review domains covered during fieldwork
type ExpertiseArea string

const (
	AreaATS ExpertiseArea = "ATS" // Air Traffic Services
	AreaCNS ExpertiseArea = "CNS" // Communication, Navigation, Surveillance
	AreaAIM ExpertiseArea = "AIM" // Aeronautical Information Management
	AreaMET ExpertiseArea = "MET" // Meteorological Services
	AreaSAR ExpertiseArea = "SAR" // Search and Rescue
	AreaSMS ExpertiseArea = "SMS" // Safety Management Systems
	AreaPEL ExpertiseArea = "PEL" // Personnel Licensing
	AreaAGA ExpertiseArea = "AGA" // Aerodromes and Ground Aids
)

// ExpertiseAreas lists every valid review domain
var ExpertiseAreas = []ExpertiseArea{AreaATS, AreaCNS, AreaAIM, AreaMET, AreaSAR, AreaSMS, AreaPEL, AreaAGA}

// ValidExpertiseArea reports whether area is one of the fixed review domains
func ValidExpertiseArea(area ExpertiseArea) bool {
	for _, a := range ExpertiseAreas {
		if a == area {
			return true
		}
	}
	return false
}

// ProficiencyLevel grades expertise and language proficiency
type ProficiencyLevel string

const (
	ProficiencyBasic    ProficiencyLevel = "BASIC"
	ProficiencyWorking  ProficiencyLevel = "WORKING"
	ProficiencyAdvanced ProficiencyLevel = "ADVANCED"
	ProficiencyExpert   ProficiencyLevel = "EXPERT"
)

// Languages every reviewer must hold a record for before entering the pool
const (
	LanguageEnglish = "EN"
	LanguageFrench  = "FR"
)

// Organization represents an air navigation service provider
type Organization struct {
	ID        uint      `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ICAOCode  string    `json:"icao_code" db:"icao_code"`
	Country   string    `json:"country" db:"country"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ReviewerProfile is a candidate reviewer together with all owned sub-records
type ReviewerProfile struct {
	ID                 uint            `json:"id" db:"id"`
	UserID             uint            `json:"user_id" db:"user_id"`
	HomeOrganizationID uint            `json:"home_organization_id" db:"home_organization_id"`
	SelectionStatus    SelectionStatus `json:"selection_status" db:"selection_status"`
	IsLeadQualified    bool            `json:"is_lead_qualified" db:"is_lead_qualified"`
	IsAvailable        bool            `json:"is_available" db:"is_available"`
	ReviewsCompleted   int             `json:"reviews_completed" db:"reviews_completed"`
	ReviewsAsLead      int             `json:"reviews_as_lead" db:"reviews_as_lead"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`

	Expertise      []ExpertiseRecord    `json:"expertise,omitempty"`
	Languages      []LanguageRecord     `json:"languages,omitempty"`
	Certifications []Certification      `json:"certifications,omitempty"`
	Availability   []AvailabilityPeriod `json:"availability,omitempty"`
	Declarations   []COIDeclaration     `json:"coi_declarations,omitempty"`
}

// ExpertiseRecord records a reviewer's proficiency in one review domain.
// Set semantics: at most one record per (reviewer, area).
type ExpertiseRecord struct {
	ID          uint             `json:"id" db:"id"`
	ReviewerID  uint             `json:"reviewer_id" db:"reviewer_id"`
	Area        ExpertiseArea    `json:"area" db:"area"`
	Proficiency ProficiencyLevel `json:"proficiency" db:"proficiency"`
	YearsInArea int              `json:"years_in_area" db:"years_in_area"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// LanguageRecord records a reviewer's working language.
// At most one record per (reviewer, language).
type LanguageRecord struct {
	ID                   uint             `json:"id" db:"id"`
	ReviewerID           uint             `json:"reviewer_id" db:"reviewer_id"`
	Language             string           `json:"language" db:"language"`
	Proficiency          ProficiencyLevel `json:"proficiency" db:"proficiency"`
	IsNative             bool             `json:"is_native" db:"is_native"`
	CanConductInterviews bool             `json:"can_conduct_interviews" db:"can_conduct_interviews"`
	ICAOLevel            *int             `json:"icao_level,omitempty" db:"icao_level"`
	CertifiedAt          *time.Time       `json:"certified_at,omitempty" db:"certified_at"`
	CertExpiresAt        *time.Time       `json:"cert_expires_at,omitempty" db:"cert_expires_at"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" db:"updated_at"`
}

// Certification is a professional certification held by a reviewer
type Certification struct {
	ID         uint       `json:"id" db:"id"`
	ReviewerID uint       `json:"reviewer_id" db:"reviewer_id"`
	Name       string     `json:"name" db:"name"`
	IssuedBy   string     `json:"issued_by" db:"issued_by"`
	IssuedAt   time.Time  `json:"issued_at" db:"issued_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// AvailabilityPeriod is a declared availability window.
// ON_ASSIGNMENT periods are authoritative blocks created by team assignment;
// no newly created period of any other type may overlap one.
type AvailabilityPeriod struct {
	ID         uint             `json:"id" db:"id"`
	ReviewerID uint             `json:"reviewer_id" db:"reviewer_id"`
	ReviewID   *uint            `json:"review_id,omitempty" db:"review_id"`
	StartDate  time.Time        `json:"start_date" db:"start_date"`
	EndDate    time.Time        `json:"end_date" db:"end_date"`
	Type       AvailabilityType `json:"type" db:"type"`
	Notes      string           `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

// COIDeclaration is a declared conflict of interest against an organization.
// At most one active declaration per (reviewer, organization, type).
// Details holds the decrypted declaration notes; only the transit ciphertext
// in EncryptedDetails is persisted.
type COIDeclaration struct {
	ID               uint        `json:"id" db:"id"`
	ReviewerID       uint        `json:"reviewer_id" db:"reviewer_id"`
	OrganizationID   uint        `json:"organization_id" db:"organization_id"`
	Type             COIType     `json:"type" db:"type"`
	Severity         COISeverity `json:"severity" db:"severity"`
	IsActive         bool        `json:"is_active" db:"is_active"`
	EndDate          *time.Time  `json:"end_date,omitempty" db:"end_date"`
	Details          string      `json:"details,omitempty" db:"-"`
	EncryptedDetails *string     `json:"-" db:"encrypted_details"`
	VerifiedBy       *uint       `json:"verified_by,omitempty" db:"verified_by"`
	VerifiedAt       *time.Time  `json:"verified_at,omitempty" db:"verified_at"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// ReviewStatus is the lifecycle status of a review
type ReviewStatus string

const (
	ReviewPlanning   ReviewStatus = "PLANNING"
	ReviewScheduled  ReviewStatus = "SCHEDULED"
	ReviewInProgress ReviewStatus = "IN_PROGRESS"
	ReviewCompleted  ReviewStatus = "COMPLETED"
	ReviewCancelled  ReviewStatus = "CANCELLED"
)

// Review is a peer review of a host organization. The matching core consumes
// it as a plain record; workflow beyond team assembly lives elsewhere.
type Review struct {
	ID                 uint            `json:"id" db:"id"`
	HostOrganizationID uint            `json:"host_organization_id" db:"host_organization_id"`
	Title              string          `json:"title" db:"title"`
	Status             ReviewStatus    `json:"status" db:"status"`
	StartDate          time.Time       `json:"start_date" db:"start_date"`
	EndDate            time.Time       `json:"end_date" db:"end_date"`
	RequiredExpertise  []ExpertiseArea `json:"required_expertise"`
	PreferredExpertise []ExpertiseArea `json:"preferred_expertise"`
	RequiredLanguages  []string        `json:"required_languages"`
	PreferredLanguages []string        `json:"preferred_languages"`
	TeamSize           int             `json:"team_size" db:"team_size"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`

	TeamMembers []ReviewTeamMember `json:"team_members,omitempty"`
}

// TeamRole is the role a reviewer holds on a review team
type TeamRole string

const (
	RoleLeadReviewer TeamRole = "LEAD_REVIEWER"
	RoleReviewer     TeamRole = "REVIEWER"
)

// ReviewTeamMember ties a reviewer to a review team
type ReviewTeamMember struct {
	ID         uint      `json:"id" db:"id"`
	ReviewID   uint      `json:"review_id" db:"review_id"`
	ReviewerID uint      `json:"reviewer_id" db:"reviewer_id"`
	Role       TeamRole  `json:"role" db:"role"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
	AssignedBy *uint     `json:"assigned_by,omitempty" db:"assigned_by"`
}

// DateRange is an inclusive calendar date range
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// ConflictResult is the outcome of a COI check for one reviewer/organization pair
type ConflictResult struct {
	HasConflict bool        `json:"has_conflict"`
	Severity    COISeverity `json:"severity,omitempty"`
	Reason      string      `json:"reason,omitempty"`
}

// CoverageResult describes how well a reviewer's availability covers a range.
// WeightedRatio counts TENTATIVE days at half weight and feeds dashboard
// statistics only; FullyCovered and Ratio consider AVAILABLE periods alone.
type CoverageResult struct {
	FullyCovered  bool        `json:"fully_covered"`
	Ratio         float64     `json:"ratio"`
	WeightedRatio float64     `json:"weighted_ratio"`
	Gaps          []DateRange `json:"gaps"`
}

// EligibilityCriteria are the hard constraints applied to a candidate pool
type EligibilityCriteria struct {
	TargetOrganizationID uint      `json:"target_organization_id"`
	StartDate            time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	RequireLeadQualified bool      `json:"require_lead_qualified"`
	FilterByAvailability bool      `json:"filter_by_availability"`
	ExcludeReviewerIDs   []uint    `json:"exclude_reviewer_ids"`
	MustIncludeIDs       []uint    `json:"must_include_ids"`
}

// MatchCriteria drive candidate scoring against a target review
type MatchCriteria struct {
	TargetOrganizationID uint            `json:"target_organization_id"`
	StartDate            time.Time       `json:"start_date"`
	EndDate              time.Time       `json:"end_date"`
	RequiredExpertise    []ExpertiseArea `json:"required_expertise"`
	PreferredExpertise   []ExpertiseArea `json:"preferred_expertise"`
	RequiredLanguages    []string        `json:"required_languages"`
	PreferredLanguages   []string        `json:"preferred_languages"`
}

// TeamCriteria extend MatchCriteria with team assembly parameters
type TeamCriteria struct {
	MatchCriteria
	TeamSize            int    `json:"team_size"`
	RequireLeadReviewer bool   `json:"require_lead_reviewer"`
	MustIncludeIDs      []uint `json:"must_include_ids"`
	ExcludeReviewerIDs  []uint `json:"exclude_reviewer_ids"`
}

// ScoreBreakdown holds the per-factor components of a match score
type ScoreBreakdown struct {
	Expertise    float64 `json:"expertise"`
	Language     float64 `json:"language"`
	Availability float64 `json:"availability"`
	Experience   float64 `json:"experience"`
}

// MatchResult is the scored evaluation of one reviewer against a review.
// Derived, never persisted.
type MatchResult struct {
	ReviewerID         uint            `json:"reviewer_id"`
	Total              float64         `json:"total"`
	Breakdown          ScoreBreakdown  `json:"breakdown"`
	MatchedExpertise   []ExpertiseArea `json:"matched_expertise"`
	UnmatchedExpertise []ExpertiseArea `json:"unmatched_expertise"`
	MatchedLanguages   []string        `json:"matched_languages"`
	UnmatchedLanguages []string        `json:"unmatched_languages"`
	AvailabilityRatio  float64         `json:"availability_ratio"`
	Conflict           ConflictResult  `json:"conflict"`
	Eligible           bool            `json:"eligible"`
	IsLeadQualified    bool            `json:"is_lead_qualified"`
	ReviewsCompleted   int             `json:"reviews_completed"`
}

// TeamMemberResult is one selected reviewer with role and coverage context
type TeamMemberResult struct {
	ReviewerID        uint     `json:"reviewer_id"`
	Role              TeamRole `json:"role"`
	Score             float64  `json:"score"`
	AvailabilityRatio float64  `json:"availability_ratio"`
}

// CoverageReport summarizes how a team covers the review requirements
type CoverageReport struct {
	CoveredExpertise    []ExpertiseArea `json:"covered_expertise"`
	UncoveredExpertise  []ExpertiseArea `json:"uncovered_expertise"`
	CoveredLanguages    []string        `json:"covered_languages"`
	UncoveredLanguages  []string        `json:"uncovered_languages"`
	ExpertisePercent    float64         `json:"expertise_percent"`
	LanguagePercent     float64         `json:"language_percent"`
	HasLeadQualified    bool            `json:"has_lead_qualified"`
	MembersWithWarnings []uint          `json:"members_with_warnings"`
}

// TeamBuildResult is the outcome of team assembly. Derived, never persisted.
// A non-viable result is still returned so the coordinator sees the shortfall
// instead of a silently padded team.
type TeamBuildResult struct {
	Members          []TeamMemberResult `json:"members"`
	Coverage         CoverageReport     `json:"coverage"`
	Warnings         []string           `json:"warnings"`
	IsViable         bool               `json:"is_viable"`
	NonViableReason  string             `json:"non_viable_reason,omitempty"`
	CandidatesScored int                `json:"candidates_scored"`
}

// User represents a platform user account
type User struct {
	ID           uint      `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Role represents a user role (admin, coordinator, reviewer)
type Role struct {
	ID          uint      `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Session tracks an issued token so it can be invalidated on logout
type Session struct {
	ID             string    `json:"id" db:"id"`
	UserID         uint      `json:"user_id" db:"user_id"`
	JTI            string    `json:"jti" db:"jti"`
	TokenType      string    `json:"token_type" db:"token_type"` // "access" or "refresh"
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        uint      `json:"id" db:"id"`
	UserID    *uint     `json:"user_id,omitempty" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	Resource  string    `json:"resource" db:"resource"`
	Details   string    `json:"details,omitempty" db:"details"`
	IPAddress string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
