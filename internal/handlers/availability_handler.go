package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"peerview/internal/matching"
	"peerview/internal/middleware"
	"peerview/internal/models"
	"peerview/internal/repository"
	"peerview/internal/service"
)

// AvailabilityHandler handles availability period requests
type AvailabilityHandler struct {
	availabilityService *service.AvailabilityService
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(availabilityService *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{
		availabilityService: availabilityService,
	}
}

// DeclarePeriod declares an availability period
// @Summary Declare availability period
// @Description Declare an AVAILABLE, TENTATIVE, or UNAVAILABLE period for a reviewer
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.AvailabilityPeriod true "Availability period"
// @Success 201 {object} models.AvailabilityPeriod "Declared period"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "Overlaps an assignment block"
// @Router /availability/declare [post]
func (h *AvailabilityHandler) DeclarePeriod(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var period models.AvailabilityPeriod
	if err := json.NewDecoder(r.Body).Decode(&period); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.availabilityService.DeclarePeriod(&period, actorID); err != nil {
		switch {
		case matching.IsOverlapConflict(err):
			respondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidDateRange), errors.Is(err, service.ErrReservedType):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrReviewerNotFound):
			respondWithError(w, http.StatusNotFound, ErrMsgReviewerNotFound)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to declare availability")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, period)
}

// UpdatePeriod updates an availability period
// @Summary Update availability period
// @Description Update a declared availability period
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.AvailabilityPeriod true "Availability period"
// @Success 200 {object} models.AvailabilityPeriod "Updated period"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "Overlaps an assignment block"
// @Router /availability/update [post]
func (h *AvailabilityHandler) UpdatePeriod(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var period models.AvailabilityPeriod
	if err := json.NewDecoder(r.Body).Decode(&period); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.availabilityService.UpdatePeriod(&period, actorID); err != nil {
		switch {
		case matching.IsOverlapConflict(err):
			respondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidDateRange),
			errors.Is(err, service.ErrReservedType),
			errors.Is(err, service.ErrNotPeriodOwner):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrAvailabilityNotFound):
			respondWithError(w, http.StatusNotFound, "Availability period not found")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to update availability")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, period)
}

// DeletePeriod deletes an availability period
// @Summary Delete availability period
// @Description Delete a declared availability period. Assignment blocks cannot be deleted here.
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Param id query int true "Period ID"
// @Param reviewer_id query int true "Reviewer ID"
// @Success 200 {object} map[string]string "Period deleted"
// @Failure 404 {object} map[string]string "Period not found"
// @Router /availability/delete [delete]
func (h *AvailabilityHandler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	periodID, err := queryUint(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid period ID")
		return
	}
	reviewerID, err := queryUint(r, "reviewer_id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewerID)
		return
	}

	if err := h.availabilityService.DeletePeriod(periodID, reviewerID, actorID); err != nil {
		switch {
		case errors.Is(err, repository.ErrAvailabilityNotFound):
			respondWithError(w, http.StatusNotFound, "Availability period not found")
		case errors.Is(err, service.ErrNotPeriodOwner):
			respondWithError(w, http.StatusForbidden, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to delete availability")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Availability period deleted",
	})
}

// ListPeriods lists a reviewer's availability periods
// @Summary List availability periods
// @Description List all declared periods for a reviewer
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Param reviewer_id query int true "Reviewer ID"
// @Success 200 {array} models.AvailabilityPeriod "Availability periods"
// @Router /availability/list [get]
func (h *AvailabilityHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	reviewerID, err := queryUint(r, "reviewer_id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewerID)
		return
	}

	periods, err := h.availabilityService.GetByReviewer(reviewerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list availability")
		return
	}

	respondWithJSON(w, http.StatusOK, periods)
}

// GetCoverage computes a reviewer's availability coverage for a date range
// @Summary Get availability coverage
// @Description Compute how a reviewer's declared availability covers a date range
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Param reviewer_id query int true "Reviewer ID"
// @Param start query string true "Range start (YYYY-MM-DD)"
// @Param end query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} models.CoverageResult "Coverage result"
// @Failure 400 {object} map[string]string "Invalid parameters"
// @Router /availability/coverage [get]
func (h *AvailabilityHandler) GetCoverage(w http.ResponseWriter, r *http.Request) {
	reviewerID, err := queryUint(r, "reviewer_id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewerID)
		return
	}

	start, err := queryDate(r, "start")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid start date, expected YYYY-MM-DD")
		return
	}
	end, err := queryDate(r, "end")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid end date, expected YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		respondWithError(w, http.StatusBadRequest, "End date must not precede start date")
		return
	}

	coverage, err := h.availabilityService.Coverage(reviewerID, start, end)
	if err != nil {
		if errors.Is(err, repository.ErrReviewerNotFound) {
			respondWithError(w, http.StatusNotFound, ErrMsgReviewerNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to compute coverage")
		return
	}

	respondWithJSON(w, http.StatusOK, coverage)
}

// queryDate parses a required YYYY-MM-DD query parameter
func queryDate(r *http.Request, name string) (time.Time, error) {
	return time.Parse("2006-01-02", r.URL.Query().Get(name))
}
