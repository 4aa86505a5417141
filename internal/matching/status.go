package matching

import (
	"peerview/internal/models"
)

// statusTransitions is the selection-status state machine. Absence from the
// map means the status is terminal.
var statusTransitions = map[models.SelectionStatus][]models.SelectionStatus{
	models.StatusNominated:   {models.StatusUnderReview, models.StatusWithdrawn, models.StatusRejected},
	models.StatusUnderReview: {models.StatusSelected, models.StatusNominated, models.StatusRejected},
	models.StatusSelected:    {models.StatusInactive, models.StatusWithdrawn},
	models.StatusInactive:    {models.StatusSelected, models.StatusWithdrawn},
	models.StatusWithdrawn:   {},
	models.StatusRejected:    {models.StatusNominated},
}

// ValidateStatusTransition checks a selection-status change against the state
// machine and returns an InvalidTransitionError when the pair is not allowed.
func ValidateStatusTransition(from, to models.SelectionStatus) error {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// EntersSelectedPool reports whether the transition moves a reviewer into the
// SELECTED pool, which is subject to the capacity cap.
func EntersSelectedPool(from, to models.SelectionStatus) bool {
	return to == models.StatusSelected && from != models.StatusSelected
}
