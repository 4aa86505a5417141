package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"peerview/internal/middleware"
	"peerview/internal/models"
	"peerview/internal/repository"
	"peerview/internal/service"
)

// COIHandler handles conflict of interest declaration requests
type COIHandler struct {
	coiService *service.COIService
	auditMw    *middleware.AuditMiddleware
}

// NewCOIHandler creates a new COI handler
func NewCOIHandler(coiService *service.COIService, auditMw *middleware.AuditMiddleware) *COIHandler {
	return &COIHandler{
		coiService: coiService,
		auditMw:    auditMw,
	}
}

// Declare records a conflict of interest declaration
// @Summary Declare conflict of interest
// @Description Declare a conflict of interest between a reviewer and an organization
// @Tags COI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.COIDeclaration true "Declaration"
// @Success 201 {object} models.COIDeclaration "Recorded declaration"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "Active declaration already exists"
// @Router /coi/declare [post]
func (h *COIHandler) Declare(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var declaration models.COIDeclaration
	if err := json.NewDecoder(r.Body).Decode(&declaration); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.coiService.Declare(&declaration, actorID); err != nil {
		switch {
		case errors.Is(err, repository.ErrDeclarationExists):
			respondWithError(w, http.StatusConflict, "An active declaration of this type already exists")
		case errors.Is(err, repository.ErrReviewerNotFound):
			respondWithError(w, http.StatusNotFound, ErrMsgReviewerNotFound)
		case errors.Is(err, repository.ErrOrganizationNotFound):
			respondWithError(w, http.StatusNotFound, "Organization not found")
		default:
			respondWithError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.auditMw.LogRequest(r, "coi.declare", "coi_declaration",
		fmt.Sprintf("Declared %s against organization %d for reviewer %d",
			declaration.Type, declaration.OrganizationID, declaration.ReviewerID))

	respondWithJSON(w, http.StatusCreated, declaration)
}

// ListDeclarations lists a reviewer's COI declarations
// @Summary List COI declarations
// @Description List declarations for a reviewer, optionally only active ones
// @Tags COI
// @Produce json
// @Security BearerAuth
// @Param reviewer_id query int true "Reviewer ID"
// @Param active_only query bool false "Only active declarations"
// @Success 200 {array} models.COIDeclaration "Declarations"
// @Router /coi/list [get]
func (h *COIHandler) ListDeclarations(w http.ResponseWriter, r *http.Request) {
	reviewerID, err := queryUint(r, "reviewer_id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewerID)
		return
	}

	activeOnly := r.URL.Query().Get("active_only") == "true"

	declarations, err := h.coiService.GetByReviewer(reviewerID, activeOnly)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list declarations")
		return
	}

	respondWithJSON(w, http.StatusOK, declarations)
}

// Verify marks a COI declaration as verified
// @Summary Verify COI declaration
// @Description Mark a declaration as verified by a coordinator
// @Tags COI
// @Produce json
// @Security BearerAuth
// @Param id query int true "Declaration ID"
// @Success 200 {object} map[string]string "Declaration verified"
// @Failure 404 {object} map[string]string "Declaration not found"
// @Router /coi/verify [post]
func (h *COIHandler) Verify(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	declarationID, err := queryUint(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid declaration ID")
		return
	}

	if err := h.coiService.Verify(declarationID, actorID); err != nil {
		if errors.Is(err, repository.ErrDeclarationNotFound) {
			respondWithError(w, http.StatusNotFound, "Declaration not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to verify declaration")
		return
	}

	h.auditMw.LogRequest(r, "coi.verify", "coi_declaration",
		fmt.Sprintf("Verified declaration %d", declarationID))

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Declaration verified",
	})
}

// Deactivate deactivates a COI declaration
// @Summary Deactivate COI declaration
// @Description Deactivate a declaration so it no longer affects matching
// @Tags COI
// @Produce json
// @Security BearerAuth
// @Param id query int true "Declaration ID"
// @Success 200 {object} map[string]string "Declaration deactivated"
// @Failure 404 {object} map[string]string "Declaration not found"
// @Router /coi/deactivate [post]
func (h *COIHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	declarationID, err := queryUint(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid declaration ID")
		return
	}

	if err := h.coiService.Deactivate(declarationID, actorID); err != nil {
		if errors.Is(err, repository.ErrDeclarationNotFound) {
			respondWithError(w, http.StatusNotFound, "Declaration not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to deactivate declaration")
		return
	}

	h.auditMw.LogRequest(r, "coi.deactivate", "coi_declaration",
		fmt.Sprintf("Deactivated declaration %d", declarationID))

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Declaration deactivated",
	})
}

// CheckConflict checks a reviewer against a host organization
// @Summary Check conflict of interest
// @Description Evaluate whether a reviewer has conflicts with a host organization
// @Tags COI
// @Produce json
// @Security BearerAuth
// @Param reviewer_id query int true "Reviewer ID"
// @Param organization_id query int true "Host organization ID"
// @Success 200 {object} models.ConflictResult "Conflict evaluation"
// @Failure 404 {object} map[string]string "Reviewer not found"
// @Router /coi/check [get]
func (h *COIHandler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	reviewerID, err := queryUint(r, "reviewer_id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewerID)
		return
	}
	organizationID, err := queryUint(r, "organization_id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	result, err := h.coiService.CheckConflict(reviewerID, organizationID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewerNotFound) {
			respondWithError(w, http.StatusNotFound, ErrMsgReviewerNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to check conflicts")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
