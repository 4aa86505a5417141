package matching

import (
	"testing"

	"peerview/internal/models"
)

func TestFilterEligibleBasicConstraints(t *testing.T) {
	pool := []models.ReviewerProfile{
		*testReviewer(1, 10),
		*testReviewer(2, 20), // home org is the target
		*testReviewer(3, 10),
	}
	pool[2].SelectionStatus = models.StatusNominated

	candidates, err := FilterEligible(pool, models.EligibilityCriteria{TargetOrganizationID: 20})
	if err != nil {
		t.Fatalf("FilterEligible failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != 1 {
		t.Errorf("Expected only reviewer 1 to be eligible, got %d candidates", len(candidates))
	}
}

func TestFilterEligibleHardBlockDeclaration(t *testing.T) {
	pool := []models.ReviewerProfile{
		*withDeclaration(testReviewer(1, 10), 20, models.COIFamilyRelationship, true),
		*withDeclaration(testReviewer(2, 10), 20, models.COIFormerEmployment, true),
	}

	candidates, err := FilterEligible(pool, models.EligibilityCriteria{TargetOrganizationID: 20})
	if err != nil {
		t.Fatalf("FilterEligible failed: %v", err)
	}
	// Soft warnings never auto-exclude; hard blocks always do.
	if len(candidates) != 1 || candidates[0].ID != 2 {
		t.Errorf("Expected reviewer 2 (soft warning only), got %d candidates", len(candidates))
	}
}

func TestFilterEligibleExclusionList(t *testing.T) {
	pool := []models.ReviewerProfile{*testReviewer(1, 10), *testReviewer(2, 10)}

	candidates, err := FilterEligible(pool, models.EligibilityCriteria{
		TargetOrganizationID: 20,
		ExcludeReviewerIDs:   []uint{1},
	})
	if err != nil {
		t.Fatalf("FilterEligible failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != 2 {
		t.Errorf("Excluded reviewer should be dropped, got %d candidates", len(candidates))
	}
}

func TestFilterEligibleAvailabilityFlag(t *testing.T) {
	pool := []models.ReviewerProfile{*testReviewer(1, 10), *testReviewer(2, 10)}
	pool[1].IsAvailable = false

	candidates, err := FilterEligible(pool, models.EligibilityCriteria{
		TargetOrganizationID: 20,
		FilterByAvailability: true,
	})
	if err != nil {
		t.Fatalf("FilterEligible failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != 1 {
		t.Errorf("Unavailable reviewer should be filtered, got %d candidates", len(candidates))
	}
}

func TestFilterEligibleMustIncludeBypassesSoftFilters(t *testing.T) {
	pool := []models.ReviewerProfile{*testReviewer(1, 10)}
	pool[0].IsAvailable = false

	candidates, err := FilterEligible(pool, models.EligibilityCriteria{
		TargetOrganizationID: 20,
		FilterByAvailability: true,
		MustIncludeIDs:       []uint{1},
	})
	if err != nil {
		t.Fatalf("FilterEligible failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Errorf("Must-include reviewer should bypass the availability filter, got %d candidates", len(candidates))
	}
}

func TestFilterEligibleMustIncludeFailsHardConstraint(t *testing.T) {
	// A must-include reviewer from the target organization must abort the
	// filtering explicitly instead of being silently dropped.
	pool := []models.ReviewerProfile{*testReviewer(1, 20)}

	_, err := FilterEligible(pool, models.EligibilityCriteria{
		TargetOrganizationID: 20,
		MustIncludeIDs:       []uint{1},
	})
	if err == nil {
		t.Fatal("Must-include reviewer failing the self-review prohibition should fail the build")
	}
	if !IsHardConstraintViolation(err) {
		t.Errorf("Expected HardConstraintViolationError, got %T: %v", err, err)
	}
}

func TestFilterEligibleMustIncludeNotSelected(t *testing.T) {
	pool := []models.ReviewerProfile{*testReviewer(1, 10)}
	pool[0].SelectionStatus = models.StatusWithdrawn

	_, err := FilterEligible(pool, models.EligibilityCriteria{
		TargetOrganizationID: 20,
		MustIncludeIDs:       []uint{1},
	})
	if !IsHardConstraintViolation(err) {
		t.Errorf("Must-include reviewer without SELECTED status should fail hard, got %v", err)
	}
}

func TestFilterEligibleMustIncludeOnExclusionList(t *testing.T) {
	// Contradictory criteria: a must-include id that is also excluded fails
	// the build explicitly rather than quietly dropping the reviewer.
	pool := []models.ReviewerProfile{*testReviewer(1, 10), *testReviewer(2, 10)}

	_, err := FilterEligible(pool, models.EligibilityCriteria{
		TargetOrganizationID: 20,
		ExcludeReviewerIDs:   []uint{1},
		MustIncludeIDs:       []uint{1},
	})
	if !IsHardConstraintViolation(err) {
		t.Errorf("Must-include reviewer on the exclusion list should fail hard, got %v", err)
	}
}
