package matching

import (
	"peerview/internal/models"
)

// FilterEligible applies the hard constraints to a reviewer pool and returns
// the candidates that may be considered for the target review.
//
// A candidate is eligible iff it holds SELECTED status, is flagged available
// (when availability filtering is requested), is not affiliated with the
// target organization, carries no active HARD_BLOCK declaration against it,
// and is not on the exclusion list.
//
// Must-include ids bypass the soft filters (availability, lead qualification)
// but never the hard constraints: a must-include reviewer that fails a hard
// block, lacks SELECTED status, or sits on the exclusion list aborts the
// whole filtering with a HardConstraintViolationError instead of being
// silently dropped.
func FilterEligible(pool []models.ReviewerProfile, criteria models.EligibilityCriteria) ([]models.ReviewerProfile, error) {
	mustInclude := make(map[uint]bool, len(criteria.MustIncludeIDs))
	for _, id := range criteria.MustIncludeIDs {
		mustInclude[id] = true
	}
	excluded := make(map[uint]bool, len(criteria.ExcludeReviewerIDs))
	for _, id := range criteria.ExcludeReviewerIDs {
		excluded[id] = true
	}

	candidates := []models.ReviewerProfile{}
	for i := range pool {
		r := &pool[i]

		// Hard constraints apply to everyone, must-include or not.
		conflict := CheckConflict(r, criteria.TargetOrganizationID)
		if conflict.HasConflict && conflict.Severity == models.SeverityHardBlock {
			if mustInclude[r.ID] {
				return nil, &HardConstraintViolationError{ReviewerID: r.ID, Reason: conflict.Reason}
			}
			continue
		}
		if r.SelectionStatus != models.StatusSelected {
			if mustInclude[r.ID] {
				return nil, &HardConstraintViolationError{
					ReviewerID: r.ID,
					Reason:     "reviewer does not hold SELECTED status",
				}
			}
			continue
		}
		if excluded[r.ID] {
			if mustInclude[r.ID] {
				return nil, &HardConstraintViolationError{
					ReviewerID: r.ID,
					Reason:     "reviewer is on the exclusion list",
				}
			}
			continue
		}

		if mustInclude[r.ID] {
			candidates = append(candidates, *r)
			continue
		}

		// Soft filters, bypassed for must-include reviewers.
		if criteria.FilterByAvailability && !r.IsAvailable {
			continue
		}
		if criteria.RequireLeadQualified && !r.IsLeadQualified {
			continue
		}

		candidates = append(candidates, *r)
	}

	return candidates, nil
}
