package matching

import (
	"fmt"

	"peerview/internal/models"
)

// CheckConflict determines whether a reviewer has a conflict of interest
// against the target organization.
//
// A reviewer whose home organization equals the target is an implicit
// HARD_BLOCK regardless of stored declarations (self-review prohibition).
// Otherwise the active declarations against the target are consulted:
// any HARD_BLOCK excludes the reviewer categorically; a SOFT_WARNING is
// surfaced to the coordinator without auto-excluding.
func CheckConflict(reviewer *models.ReviewerProfile, targetOrgID uint) models.ConflictResult {
	if reviewer.HomeOrganizationID == targetOrgID {
		return models.ConflictResult{
			HasConflict: true,
			Severity:    models.SeverityHardBlock,
			Reason:      "reviewer's home organization is the review target",
		}
	}

	var warning *models.COIDeclaration
	for i := range reviewer.Declarations {
		d := &reviewer.Declarations[i]
		if !d.IsActive || d.OrganizationID != targetOrgID {
			continue
		}
		if d.Severity == models.SeverityHardBlock {
			return models.ConflictResult{
				HasConflict: true,
				Severity:    models.SeverityHardBlock,
				Reason:      fmt.Sprintf("active %s declaration against target organization", d.Type),
			}
		}
		if warning == nil {
			warning = d
		}
	}

	if warning != nil {
		return models.ConflictResult{
			HasConflict: true,
			Severity:    models.SeveritySoftWarning,
			Reason:      fmt.Sprintf("active %s declaration against target organization", warning.Type),
		}
	}

	return models.ConflictResult{}
}
