package matching

import (
	"testing"

	"peerview/internal/models"
)

func TestValidStatusTransitions(t *testing.T) {
	valid := []struct {
		from models.SelectionStatus
		to   models.SelectionStatus
	}{
		{models.StatusNominated, models.StatusUnderReview},
		{models.StatusNominated, models.StatusWithdrawn},
		{models.StatusNominated, models.StatusRejected},
		{models.StatusUnderReview, models.StatusSelected},
		{models.StatusUnderReview, models.StatusNominated},
		{models.StatusUnderReview, models.StatusRejected},
		{models.StatusSelected, models.StatusInactive},
		{models.StatusSelected, models.StatusWithdrawn},
		{models.StatusInactive, models.StatusSelected},
		{models.StatusInactive, models.StatusWithdrawn},
		{models.StatusRejected, models.StatusNominated},
	}

	for _, tc := range valid {
		if err := ValidateStatusTransition(tc.from, tc.to); err != nil {
			t.Errorf("Transition %s -> %s should be valid, got error: %v", tc.from, tc.to, err)
		}
	}
}

func TestInvalidStatusTransitions(t *testing.T) {
	invalid := []struct {
		from models.SelectionStatus
		to   models.SelectionStatus
	}{
		{models.StatusNominated, models.StatusSelected},
		{models.StatusNominated, models.StatusInactive},
		{models.StatusSelected, models.StatusNominated},
		{models.StatusSelected, models.StatusRejected},
		{models.StatusSelected, models.StatusUnderReview},
		{models.StatusInactive, models.StatusNominated},
		{models.StatusWithdrawn, models.StatusNominated},
		{models.StatusWithdrawn, models.StatusSelected},
		{models.StatusRejected, models.StatusSelected},
		{models.StatusRejected, models.StatusUnderReview},
	}

	for _, tc := range invalid {
		err := ValidateStatusTransition(tc.from, tc.to)
		if err == nil {
			t.Errorf("Transition %s -> %s should be rejected", tc.from, tc.to)
			continue
		}
		if !IsInvalidTransition(err) {
			t.Errorf("Transition %s -> %s should fail with InvalidTransitionError, got %T", tc.from, tc.to, err)
		}
	}
}

func TestWithdrawnIsTerminal(t *testing.T) {
	targets := []models.SelectionStatus{
		models.StatusNominated, models.StatusUnderReview, models.StatusSelected,
		models.StatusInactive, models.StatusRejected,
	}
	for _, to := range targets {
		if err := ValidateStatusTransition(models.StatusWithdrawn, to); err == nil {
			t.Errorf("WITHDRAWN should be terminal, but transition to %s was allowed", to)
		}
	}
}

func TestEntersSelectedPool(t *testing.T) {
	if !EntersSelectedPool(models.StatusUnderReview, models.StatusSelected) {
		t.Error("UNDER_REVIEW -> SELECTED should enter the selected pool")
	}
	if !EntersSelectedPool(models.StatusInactive, models.StatusSelected) {
		t.Error("INACTIVE -> SELECTED should enter the selected pool")
	}
	if EntersSelectedPool(models.StatusSelected, models.StatusInactive) {
		t.Error("SELECTED -> INACTIVE should not enter the selected pool")
	}
}
