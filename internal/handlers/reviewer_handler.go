package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"peerview/internal/matching"
	"peerview/internal/middleware"
	"peerview/internal/models"
	"peerview/internal/repository"
	"peerview/internal/service"
)

// ReviewerHandler handles reviewer pool requests
type ReviewerHandler struct {
	reviewerService *service.ReviewerService
	auditMw         *middleware.AuditMiddleware
}

// NewReviewerHandler creates a new reviewer handler
func NewReviewerHandler(reviewerService *service.ReviewerService, auditMw *middleware.AuditMiddleware) *ReviewerHandler {
	return &ReviewerHandler{
		reviewerService: reviewerService,
		auditMw:         auditMw,
	}
}

// NominateRequest represents a reviewer nomination request
type NominateRequest struct {
	UserID             uint                     `json:"user_id" validate:"required"`
	HomeOrganizationID uint                     `json:"home_organization_id" validate:"required"`
	IsLeadQualified    bool                     `json:"is_lead_qualified"`
	Expertise          []models.ExpertiseRecord `json:"expertise"`
	Languages          []models.LanguageRecord  `json:"languages"`
}

// Nominate nominates a user into the reviewer pool
// @Summary Nominate a reviewer
// @Description Create a reviewer profile in NOMINATED status
// @Tags Reviewers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body NominateRequest true "Nomination details"
// @Success 201 {object} models.ReviewerProfile "Reviewer nominated"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "Profile already exists"
// @Router /reviewers/nominate [post]
func (h *ReviewerHandler) Nominate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req NominateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	profile, err := h.reviewerService.Nominate(service.NominationInput{
		UserID:             req.UserID,
		HomeOrganizationID: req.HomeOrganizationID,
		Expertise:          req.Expertise,
		Languages:          req.Languages,
		IsLeadQualified:    req.IsLeadQualified,
	}, actorID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReviewerExists):
			respondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrUnknownOrganization),
			errors.Is(err, service.ErrMissingLanguages),
			errors.Is(err, service.ErrInvalidExpertise):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to nominate reviewer")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, profile)
}

// GetReviewer gets a reviewer profile by ID
// @Summary Get reviewer
// @Description Get a reviewer profile with all sub-records
// @Tags Reviewers
// @Produce json
// @Security BearerAuth
// @Param id query int true "Reviewer ID"
// @Success 200 {object} models.ReviewerProfile "Reviewer profile"
// @Failure 404 {object} map[string]string "Reviewer not found"
// @Router /reviewers/get [get]
func (h *ReviewerHandler) GetReviewer(w http.ResponseWriter, r *http.Request) {
	id, err := queryUint(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewerID)
		return
	}

	profile, err := h.reviewerService.GetByID(id)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgReviewerNotFound)
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

// GetMyProfile gets the reviewer profile of the authenticated user
// @Summary Get own reviewer profile
// @Description Get the reviewer profile belonging to the authenticated user
// @Tags Reviewers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.ReviewerProfile "Reviewer profile"
// @Failure 404 {object} map[string]string "No reviewer profile"
// @Router /reviewers/me [get]
func (h *ReviewerHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	profile, err := h.reviewerService.GetByUserID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgReviewerNotFound)
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

// ListPool lists reviewer profiles with optional filters
// @Summary List reviewer pool
// @Description List reviewer profiles filtered by status, organization, or qualification
// @Tags Reviewers
// @Produce json
// @Security BearerAuth
// @Param status query string false "Selection status filter"
// @Param organization_id query int false "Home organization filter"
// @Param lead_only query bool false "Only lead-qualified reviewers"
// @Param available_only query bool false "Only available reviewers"
// @Success 200 {array} models.ReviewerProfile "Reviewer profiles"
// @Router /reviewers/list [get]
func (h *ReviewerHandler) ListPool(w http.ResponseWriter, r *http.Request) {
	filters := repository.ReviewerFilters{}

	if status := r.URL.Query().Get("status"); status != "" {
		s := models.SelectionStatus(status)
		filters.SelectionStatus = s
	}
	if orgStr := r.URL.Query().Get("organization_id"); orgStr != "" {
		orgID, err := strconv.ParseUint(orgStr, 10, 32)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
			return
		}
		id := uint(orgID)
		filters.HomeOrganizationID = id
	}
	if leadStr := r.URL.Query().Get("lead_only"); leadStr != "" {
		filters.LeadQualifiedOnly, _ = strconv.ParseBool(leadStr)
	}
	if availStr := r.URL.Query().Get("available_only"); availStr != "" {
		filters.AvailableOnly, _ = strconv.ParseBool(availStr)
	}

	profiles, err := h.reviewerService.GetPool(filters)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list reviewers")
		return
	}

	respondWithJSON(w, http.StatusOK, profiles)
}

// GetPoolStatus reports selected pool occupancy
// @Summary Get pool status
// @Description Report SELECTED pool occupancy against capacity
// @Tags Reviewers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.PoolStatus "Pool occupancy"
// @Router /reviewers/pool-status [get]
func (h *ReviewerHandler) GetPoolStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.reviewerService.GetPoolStatus()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to compute pool status")
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

// TransitionStatus moves a reviewer through the selection lifecycle
// @Summary Transition reviewer status
// @Description Move a reviewer to a new selection status, enforcing the lifecycle and pool capacity
// @Tags Reviewers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "reviewer_id and status"
// @Success 200 {object} models.ReviewerProfile "Updated profile"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "Invalid transition or pool full"
// @Router /reviewers/status [post]
func (h *ReviewerHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req struct {
		ReviewerID uint                   `json:"reviewer_id"`
		Status     models.SelectionStatus `json:"status"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.reviewerService.TransitionStatus(req.ReviewerID, req.Status, actorID); err != nil {
		switch {
		case matching.IsInvalidTransition(err), matching.IsCapacityExceeded(err):
			respondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, repository.ErrReviewerNotFound):
			respondWithError(w, http.StatusNotFound, ErrMsgReviewerNotFound)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to transition status")
		}
		return
	}

	profile, err := h.reviewerService.GetByID(req.ReviewerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to reload reviewer")
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

// SetLeadQualification sets a reviewer's lead qualification flag
// @Summary Set lead qualification
// @Description Grant or revoke lead reviewer qualification
// @Tags Reviewers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "reviewer_id and is_lead_qualified"
// @Success 200 {object} map[string]string "Qualification updated"
// @Router /reviewers/lead-qualification [post]
func (h *ReviewerHandler) SetLeadQualification(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req struct {
		ReviewerID      uint `json:"reviewer_id"`
		IsLeadQualified bool `json:"is_lead_qualified"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.reviewerService.SetLeadQualification(req.ReviewerID, req.IsLeadQualified, actorID); err != nil {
		if errors.Is(err, repository.ErrReviewerNotFound) {
			respondWithError(w, http.StatusNotFound, ErrMsgReviewerNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to update lead qualification")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Lead qualification updated",
	})
}

// UpsertExpertise creates or updates an expertise record
// @Summary Upsert expertise
// @Description Create or update a reviewer's expertise record for one domain
// @Tags Reviewers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ExpertiseRecord true "Expertise record"
// @Success 200 {object} models.ExpertiseRecord "Stored record"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /reviewers/expertise [post]
func (h *ReviewerHandler) UpsertExpertise(w http.ResponseWriter, r *http.Request) {
	var record models.ExpertiseRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.reviewerService.UpsertExpertise(&record); err != nil {
		if errors.Is(err, service.ErrInvalidExpertise) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to store expertise")
		return
	}

	respondWithJSON(w, http.StatusOK, record)
}

// RemoveExpertise deletes an expertise record
// @Summary Remove expertise
// @Description Delete a reviewer's expertise record for one domain
// @Tags Reviewers
// @Produce json
// @Security BearerAuth
// @Param reviewer_id query int true "Reviewer ID"
// @Param area query string true "Expertise area"
// @Success 200 {object} map[string]string "Record removed"
// @Router /reviewers/expertise/delete [delete]
func (h *ReviewerHandler) RemoveExpertise(w http.ResponseWriter, r *http.Request) {
	reviewerID, err := queryUint(r, "reviewer_id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewerID)
		return
	}

	area := models.ExpertiseArea(r.URL.Query().Get("area"))
	if area == "" {
		respondWithError(w, http.StatusBadRequest, "Expertise area is required")
		return
	}

	if err := h.reviewerService.RemoveExpertise(reviewerID, area); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to remove expertise")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Expertise removed",
	})
}

// UpsertLanguage creates or updates a language record
// @Summary Upsert language
// @Description Create or update a reviewer's working language record
// @Tags Reviewers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.LanguageRecord true "Language record"
// @Success 200 {object} models.LanguageRecord "Stored record"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /reviewers/languages [post]
func (h *ReviewerHandler) UpsertLanguage(w http.ResponseWriter, r *http.Request) {
	var record models.LanguageRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if record.Language == "" {
		respondWithError(w, http.StatusBadRequest, "Language is required")
		return
	}

	if err := h.reviewerService.UpsertLanguage(&record); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to store language")
		return
	}

	respondWithJSON(w, http.StatusOK, record)
}

// AddCertification records a professional certification
// @Summary Add certification
// @Description Record a professional certification for a reviewer
// @Tags Reviewers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.Certification true "Certification"
// @Success 201 {object} models.Certification "Stored certification"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /reviewers/certifications [post]
func (h *ReviewerHandler) AddCertification(w http.ResponseWriter, r *http.Request) {
	var cert models.Certification
	if err := json.NewDecoder(r.Body).Decode(&cert); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if cert.Name == "" {
		respondWithError(w, http.StatusBadRequest, "Certification name is required")
		return
	}

	if err := h.reviewerService.AddCertification(&cert); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to store certification")
		return
	}

	respondWithJSON(w, http.StatusCreated, cert)
}

// queryUint parses a required uint query parameter
func queryUint(r *http.Request, name string) (uint, error) {
	v, err := strconv.ParseUint(r.URL.Query().Get(name), 10, 32)
	return uint(v), err
}
