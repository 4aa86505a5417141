package matching

import (
	"errors"
	"fmt"

	"peerview/internal/models"
)

// SelectedCapacity is the hard cap on reviewers holding SELECTED status.
const SelectedCapacity = 45

// InvalidTransitionError reports a selection-status change not permitted by
// the state machine.
type InvalidTransitionError struct {
	From models.SelectionStatus
	To   models.SelectionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid selection status transition from %s to %s", e.From, e.To)
}

// CapacityExceededError reports that the SELECTED pool would exceed the cap.
type CapacityExceededError struct {
	Current int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("selected reviewer capacity exceeded: %d of %d slots in use", e.Current, SelectedCapacity)
}

// HardConstraintViolationError reports a must-include reviewer failing a hard
// COI or self-review exclusion during team building.
type HardConstraintViolationError struct {
	ReviewerID uint
	Reason     string
}

func (e *HardConstraintViolationError) Error() string {
	return fmt.Sprintf("must-include reviewer %d violates hard constraint: %s", e.ReviewerID, e.Reason)
}

// OverlapConflictError reports an availability period overlapping an existing
// ON_ASSIGNMENT block for the same reviewer.
type OverlapConflictError struct {
	ReviewerID uint
	BlockID    uint
}

func (e *OverlapConflictError) Error() string {
	return fmt.Sprintf("availability period for reviewer %d overlaps assignment block %d", e.ReviewerID, e.BlockID)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsCapacityExceeded reports whether err is a CapacityExceededError.
func IsCapacityExceeded(err error) bool {
	var target *CapacityExceededError
	return errors.As(err, &target)
}

// IsHardConstraintViolation reports whether err is a HardConstraintViolationError.
func IsHardConstraintViolation(err error) bool {
	var target *HardConstraintViolationError
	return errors.As(err, &target)
}

// IsOverlapConflict reports whether err is an OverlapConflictError.
func IsOverlapConflict(err error) bool {
	var target *OverlapConflictError
	return errors.As(err, &target)
}
