package handlers

import (
	"net/http"
	"strconv"

	"peerview/internal/repository"
)

// AuditHandler handles audit log requests
type AuditHandler struct {
	auditRepo *repository.AuditRepository
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditRepo *repository.AuditRepository) *AuditHandler {
	return &AuditHandler{
		auditRepo: auditRepo,
	}
}

// parsePagination reads page/limit query parameters with sane bounds
func parsePagination(r *http.Request, defaultLimit, maxLimit int) (page, limit, offset int) {
	page = 1
	limit = defaultLimit

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= maxLimit {
		limit = l
	}

	return page, limit, (page - 1) * limit
}

// ListAuditLogs lists all audit logs with pagination (admin only)
// @Summary List audit logs
// @Description Get a paginated list of all audit logs (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(50)
// @Param user_id query int false "Filter by user ID"
// @Param action query string false "Filter by action (e.g. review.assign_team, coi.declare)"
// @Param resource query string false "Filter by resource"
// @Param sort_by query string false "Sort by field (id, user_id, action, resource, created_at)"
// @Param sort_order query string false "Sort order (asc, desc)" default(desc)
// @Success 200 {object} map[string]interface{} "Paginated audit logs"
// @Failure 400 {object} map[string]string "Invalid parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden - admin only"
// @Router /admin/audit-logs/list [get]
func (h *AuditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := parsePagination(r, 50, 100)

	filters := repository.AuditFilters{
		Action:    r.URL.Query().Get("action"),
		Resource:  r.URL.Query().Get("resource"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}

	if userID, err := queryUint(r, "user_id"); err == nil && userID > 0 {
		filters.UserID = &userID
	}

	totalCount, err := h.auditRepo.CountWithFilters(filters)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to count audit logs")
		return
	}

	logs, err := h.auditRepo.GetAllWithFilters(filters, limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve audit logs")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"logs":        logs,
		"total":       totalCount,
		"page":        page,
		"limit":       limit,
		"total_pages": (totalCount + limit - 1) / limit,
	})
}
