package service

import (
	"fmt"
	"log/slog"
	"time"

	"peerview/internal/matching"
	"peerview/internal/models"
	"peerview/internal/repository"
	"peerview/internal/vault"
)

// COIService handles conflict-of-interest declarations. Declaration details
// never touch the database in plaintext; they are encrypted through Vault's
// transit engine with the declaration's reviewer and organization bound in as
// AAD context.
type COIService struct {
	coiRepo      *repository.COIRepository
	reviewerRepo *repository.ReviewerRepository
	orgRepo      *repository.OrganizationRepository
	vaultClient  *vault.Client
	auditSvc     *AuditService
}

// NewCOIService creates a new COI service
func NewCOIService(
	coiRepo *repository.COIRepository,
	reviewerRepo *repository.ReviewerRepository,
	orgRepo *repository.OrganizationRepository,
	vaultClient *vault.Client,
	auditSvc *AuditService,
) *COIService {
	return &COIService{
		coiRepo:      coiRepo,
		reviewerRepo: reviewerRepo,
		orgRepo:      orgRepo,
		vaultClient:  vaultClient,
		auditSvc:     auditSvc,
	}
}

// Declare records a new conflict-of-interest declaration. Severity is derived
// from the declaration type, never accepted from the caller.
func (s *COIService) Declare(d *models.COIDeclaration, actorID uint) error {
	if _, err := s.reviewerRepo.GetByID(d.ReviewerID); err != nil {
		return err
	}
	if _, err := s.orgRepo.GetByID(d.OrganizationID); err != nil {
		return err
	}

	d.Severity = models.SeverityForCOIType(d.Type)
	d.IsActive = true

	if d.Details != "" {
		ciphertext, err := s.vaultClient.Encrypt(vault.COIDetailsKey, []byte(d.Details), s.encryptionContext(d))
		if err != nil {
			return fmt.Errorf("failed to encrypt declaration details: %w", err)
		}
		d.EncryptedDetails = &ciphertext
	}

	if err := s.coiRepo.Create(d); err != nil {
		return err
	}

	s.auditSvc.Log(actorID, "coi.declare", "coi_declarations",
		fmt.Sprintf("reviewer %d declared %s conflict against organization %d", d.ReviewerID, d.Type, d.OrganizationID))
	slog.Info("COI declared", "reviewer_id", d.ReviewerID, "organization_id", d.OrganizationID,
		"type", d.Type, "severity", d.Severity)
	return nil
}

// GetByReviewer lists a reviewer's declarations with details decrypted
func (s *COIService) GetByReviewer(reviewerID uint, activeOnly bool) ([]models.COIDeclaration, error) {
	declarations, err := s.coiRepo.GetByReviewer(reviewerID, activeOnly)
	if err != nil {
		return nil, err
	}

	for i := range declarations {
		if err := s.decryptDetails(&declarations[i]); err != nil {
			slog.Error("Failed to decrypt COI details", "error", err, "declaration_id", declarations[i].ID)
			// Leave details empty rather than fail the whole listing
		}
	}

	return declarations, nil
}

// GetByID retrieves a single declaration with details decrypted
func (s *COIService) GetByID(id uint) (*models.COIDeclaration, error) {
	d, err := s.coiRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.decryptDetails(d); err != nil {
		return nil, fmt.Errorf("failed to decrypt declaration details: %w", err)
	}
	return d, nil
}

// Verify records a coordinator's review of a declaration
func (s *COIService) Verify(id uint, verifiedBy uint) error {
	if err := s.coiRepo.Verify(id, verifiedBy); err != nil {
		return err
	}
	s.auditSvc.Log(verifiedBy, "coi.verify", "coi_declarations",
		fmt.Sprintf("declaration %d verified", id))
	return nil
}

// Deactivate marks a declaration inactive
func (s *COIService) Deactivate(id uint, actorID uint) error {
	if err := s.coiRepo.Deactivate(id); err != nil {
		return err
	}
	s.auditSvc.Log(actorID, "coi.deactivate", "coi_declarations",
		fmt.Sprintf("declaration %d deactivated", id))
	return nil
}

// CheckConflict evaluates one reviewer against a target organization
func (s *COIService) CheckConflict(reviewerID, targetOrgID uint) (*models.ConflictResult, error) {
	profile, err := s.reviewerRepo.GetByID(reviewerID)
	if err != nil {
		return nil, err
	}

	result := matching.CheckConflict(profile, targetOrgID)
	return &result, nil
}

// SweepExpired deactivates every declaration whose end date has passed. The
// scheduler runs this nightly.
func (s *COIService) SweepExpired() (int64, error) {
	expired, err := s.coiRepo.DeactivateExpired(time.Now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		slog.Info("Expired COI declarations deactivated", "count", expired)
	}
	return expired, nil
}

func (s *COIService) decryptDetails(d *models.COIDeclaration) error {
	if d.EncryptedDetails == nil {
		return nil
	}

	plaintext, err := s.vaultClient.Decrypt(vault.COIDetailsKey, *d.EncryptedDetails, s.encryptionContext(d))
	if err != nil {
		return err
	}

	d.Details = string(plaintext)
	return nil
}

func (s *COIService) encryptionContext(d *models.COIDeclaration) map[string]string {
	return map[string]string{
		"reviewer_id":     fmt.Sprintf("%d", d.ReviewerID),
		"organization_id": fmt.Sprintf("%d", d.OrganizationID),
	}
}
