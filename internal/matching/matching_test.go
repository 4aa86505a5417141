package matching

import (
	"time"

	"peerview/internal/models"
)

// Test fixture helpers shared across the package tests.

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testReviewer(id, homeOrg uint) *models.ReviewerProfile {
	return &models.ReviewerProfile{
		ID:                 id,
		UserID:             id,
		HomeOrganizationID: homeOrg,
		SelectionStatus:    models.StatusSelected,
		IsAvailable:        true,
	}
}

func withExpertise(r *models.ReviewerProfile, areas ...models.ExpertiseArea) *models.ReviewerProfile {
	for _, area := range areas {
		r.Expertise = append(r.Expertise, models.ExpertiseRecord{
			ReviewerID:  r.ID,
			Area:        area,
			Proficiency: models.ProficiencyAdvanced,
			YearsInArea: 5,
		})
	}
	return r
}

func withLanguages(r *models.ReviewerProfile, languages ...string) *models.ReviewerProfile {
	for _, lang := range languages {
		r.Languages = append(r.Languages, models.LanguageRecord{
			ReviewerID:  r.ID,
			Language:    lang,
			Proficiency: models.ProficiencyWorking,
		})
	}
	return r
}

func withAvailability(r *models.ReviewerProfile, periodType models.AvailabilityType, start, end time.Time) *models.ReviewerProfile {
	r.Availability = append(r.Availability, models.AvailabilityPeriod{
		ReviewerID: r.ID,
		StartDate:  start,
		EndDate:    end,
		Type:       periodType,
	})
	return r
}

func withDeclaration(r *models.ReviewerProfile, orgID uint, coiType models.COIType, active bool) *models.ReviewerProfile {
	r.Declarations = append(r.Declarations, models.COIDeclaration{
		ReviewerID:     r.ID,
		OrganizationID: orgID,
		Type:           coiType,
		Severity:       models.SeverityForCOIType(coiType),
		IsActive:       active,
	})
	return r
}
