package matching

import (
	"testing"

	"peerview/internal/models"
)

func TestCheckConflictHomeOrganizationImplicitBlock(t *testing.T) {
	// No stored declaration at all: the self-review prohibition must still
	// hard-block a reviewer against their own organization.
	reviewer := testReviewer(1, 10)

	result := CheckConflict(reviewer, 10)
	if !result.HasConflict {
		t.Fatal("Reviewer from the target organization should have a conflict")
	}
	if result.Severity != models.SeverityHardBlock {
		t.Errorf("Expected HARD_BLOCK, got %s", result.Severity)
	}
}

func TestCheckConflictHardBlockDeclaration(t *testing.T) {
	reviewer := withDeclaration(testReviewer(1, 10), 20, models.COIFamilyRelationship, true)

	result := CheckConflict(reviewer, 20)
	if !result.HasConflict || result.Severity != models.SeverityHardBlock {
		t.Errorf("Family relationship declaration should hard-block, got %+v", result)
	}
}

func TestCheckConflictSoftWarningDeclaration(t *testing.T) {
	reviewer := withDeclaration(testReviewer(1, 10), 20, models.COIFormerEmployment, true)

	result := CheckConflict(reviewer, 20)
	if !result.HasConflict {
		t.Fatal("Former employment declaration should report a conflict")
	}
	if result.Severity != models.SeveritySoftWarning {
		t.Errorf("Expected SOFT_WARNING, got %s", result.Severity)
	}
}

func TestCheckConflictHardBlockWinsOverWarning(t *testing.T) {
	reviewer := testReviewer(1, 10)
	withDeclaration(reviewer, 20, models.COIFormerEmployment, true)
	withDeclaration(reviewer, 20, models.COIFamilyRelationship, true)

	result := CheckConflict(reviewer, 20)
	if result.Severity != models.SeverityHardBlock {
		t.Errorf("Hard block should take precedence over soft warning, got %s", result.Severity)
	}
}

func TestCheckConflictIgnoresInactiveDeclarations(t *testing.T) {
	reviewer := withDeclaration(testReviewer(1, 10), 20, models.COIFamilyRelationship, false)

	result := CheckConflict(reviewer, 20)
	if result.HasConflict {
		t.Errorf("Inactive declarations should not be consulted, got %+v", result)
	}
}

func TestCheckConflictIgnoresOtherOrganizations(t *testing.T) {
	reviewer := withDeclaration(testReviewer(1, 10), 30, models.COIFamilyRelationship, true)

	result := CheckConflict(reviewer, 20)
	if result.HasConflict {
		t.Errorf("Declaration against a different organization should not match, got %+v", result)
	}
}

func TestSeverityDerivation(t *testing.T) {
	hard := []models.COIType{models.COIHomeOrganization, models.COIFamilyRelationship}
	for _, coiType := range hard {
		if sev := models.SeverityForCOIType(coiType); sev != models.SeverityHardBlock {
			t.Errorf("%s should derive HARD_BLOCK, got %s", coiType, sev)
		}
	}
	soft := []models.COIType{models.COIFormerEmployment, models.COIFinancialInterest, models.COIProfessionalTie, models.COIOther}
	for _, coiType := range soft {
		if sev := models.SeverityForCOIType(coiType); sev != models.SeveritySoftWarning {
			t.Errorf("%s should derive SOFT_WARNING, got %s", coiType, sev)
		}
	}
}
