package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"peerview/internal/middleware"
	"peerview/internal/models"
	"peerview/internal/repository"
	"peerview/pkg/validator"
)

// OrganizationHandler handles organization management requests
type OrganizationHandler struct {
	orgRepo *repository.OrganizationRepository
	auditMw *middleware.AuditMiddleware
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(orgRepo *repository.OrganizationRepository, auditMw *middleware.AuditMiddleware) *OrganizationHandler {
	return &OrganizationHandler{
		orgRepo: orgRepo,
		auditMw: auditMw,
	}
}

// OrganizationRequest is the payload for creating or updating an organization
type OrganizationRequest struct {
	Name     string `json:"name" validate:"required"`
	ICAOCode string `json:"icao_code" validate:"required,min=3"`
	Country  string `json:"country" validate:"required"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// CreateOrganization creates an organization
// @Summary Create organization
// @Description Register an air navigation service provider (admin only)
// @Tags Organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body OrganizationRequest true "Organization data"
// @Success 201 {object} models.Organization "Created organization"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "ICAO code already registered"
// @Router /organizations/create [post]
func (h *OrganizationHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req OrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	code := strings.ToUpper(validator.SanitizeString(req.ICAOCode))
	if existing, err := h.orgRepo.GetByICAOCode(code); err == nil && existing != nil {
		respondWithError(w, http.StatusConflict, "An organization with this ICAO code already exists")
		return
	}

	org := &models.Organization{
		Name:     validator.SanitizeString(req.Name),
		ICAOCode: code,
		Country:  validator.SanitizeString(req.Country),
		IsActive: true,
	}
	if req.IsActive != nil {
		org.IsActive = *req.IsActive
	}

	if err := h.orgRepo.Create(org); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create organization")
		return
	}

	h.auditMw.LogAction(&actorID, "organization.create", "organization",
		fmt.Sprintf("Created organization %s (%s)", org.Name, org.ICAOCode), getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusCreated, org)
}

// GetOrganization retrieves an organization by ID
// @Summary Get organization
// @Description Retrieve an organization by ID
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param id query int true "Organization ID"
// @Success 200 {object} models.Organization "Organization"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/get [get]
func (h *OrganizationHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := queryUint(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	org, err := h.orgRepo.GetByID(orgID)
	if err != nil {
		if errors.Is(err, repository.ErrOrganizationNotFound) {
			respondWithError(w, http.StatusNotFound, "Organization not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get organization")
		return
	}

	respondWithJSON(w, http.StatusOK, org)
}

// ListOrganizations lists organizations
// @Summary List organizations
// @Description List registered organizations ordered by name
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param active_only query bool false "Only active organizations"
// @Success 200 {array} models.Organization "Organizations"
// @Router /organizations/list [get]
func (h *OrganizationHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"

	orgs, err := h.orgRepo.GetAll(activeOnly)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list organizations")
		return
	}

	respondWithJSON(w, http.StatusOK, orgs)
}

// UpdateOrganization updates an organization
// @Summary Update organization
// @Description Update an organization's details (admin only)
// @Tags Organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id query int true "Organization ID"
// @Param request body OrganizationRequest true "Organization data"
// @Success 200 {object} models.Organization "Updated organization"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/update [put]
func (h *OrganizationHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	orgID, err := queryUint(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	var req OrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	org, err := h.orgRepo.GetByID(orgID)
	if err != nil {
		if errors.Is(err, repository.ErrOrganizationNotFound) {
			respondWithError(w, http.StatusNotFound, "Organization not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get organization")
		return
	}

	code := strings.ToUpper(validator.SanitizeString(req.ICAOCode))
	if code != org.ICAOCode {
		if existing, err := h.orgRepo.GetByICAOCode(code); err == nil && existing != nil {
			respondWithError(w, http.StatusConflict, "An organization with this ICAO code already exists")
			return
		}
	}

	org.Name = validator.SanitizeString(req.Name)
	org.ICAOCode = code
	org.Country = validator.SanitizeString(req.Country)
	if req.IsActive != nil {
		org.IsActive = *req.IsActive
	}

	if err := h.orgRepo.Update(org); err != nil {
		if errors.Is(err, repository.ErrOrganizationNotFound) {
			respondWithError(w, http.StatusNotFound, "Organization not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to update organization")
		return
	}

	h.auditMw.LogAction(&actorID, "organization.update", "organization",
		fmt.Sprintf("Updated organization %d", org.ID), getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, org)
}

// DeleteOrganization deletes an organization
// @Summary Delete organization
// @Description Delete an organization (admin only)
// @Tags Organizations
// @Produce json
// @Security BearerAuth
// @Param id query int true "Organization ID"
// @Success 200 {object} map[string]string "Organization deleted"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/delete [delete]
func (h *OrganizationHandler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	orgID, err := queryUint(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid organization ID")
		return
	}

	if _, err := h.orgRepo.GetByID(orgID); err != nil {
		if errors.Is(err, repository.ErrOrganizationNotFound) {
			respondWithError(w, http.StatusNotFound, "Organization not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get organization")
		return
	}

	if err := h.orgRepo.Delete(orgID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete organization")
		return
	}

	h.auditMw.LogAction(&actorID, "organization.delete", "organization",
		fmt.Sprintf("Deleted organization %d", orgID), getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Organization deleted",
	})
}
