package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"peerview/internal/matching"
	"peerview/internal/middleware"
	"peerview/internal/models"
	"peerview/internal/repository"
	"peerview/internal/service"
)

// ReviewHandler handles peer review lifecycle and team matching requests
type ReviewHandler struct {
	reviewService   *service.ReviewService
	matchingService *service.MatchingService
	auditMw         *middleware.AuditMiddleware
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *service.ReviewService, matchingService *service.MatchingService, auditMw *middleware.AuditMiddleware) *ReviewHandler {
	return &ReviewHandler{
		reviewService:   reviewService,
		matchingService: matchingService,
		auditMw:         auditMw,
	}
}

// CreateReview creates a peer review
// @Summary Create review
// @Description Create a peer review in PLANNING state
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.Review true "Review data"
// @Success 201 {object} models.Review "Created review"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /reviews/create [post]
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var review models.Review
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.reviewService.Create(&review, actorID); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrganizationNotFound):
			respondWithError(w, http.StatusNotFound, "Host organization not found")
		case errors.Is(err, service.ErrInvalidTeamSize),
			errors.Is(err, service.ErrInvalidDateRange),
			errors.Is(err, service.ErrUnknownLanguage),
			errors.Is(err, service.ErrInactiveHost),
			errors.Is(err, service.ErrInvalidReviewArea):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to create review")
		}
		return
	}

	h.auditMw.LogAction(&actorID, "review.create", "review",
		fmt.Sprintf("Created review %q for organization %d", review.Title, review.HostOrganizationID),
		getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusCreated, review)
}

// GetReview retrieves a review with its team
// @Summary Get review
// @Description Retrieve a review by ID including assigned team members
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id query int true "Review ID"
// @Success 200 {object} models.Review "Review"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/get [get]
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	reviewID, err := queryUint(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewID)
		return
	}

	review, err := h.reviewService.GetByID(reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			respondWithError(w, http.StatusNotFound, ErrMsgReviewNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get review")
		return
	}

	respondWithJSON(w, http.StatusOK, review)
}

// ListReviews lists reviews
// @Summary List reviews
// @Description List reviews, optionally filtered by status
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param status query string false "Review status filter"
// @Success 200 {array} models.Review "Reviews"
// @Router /reviews/list [get]
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	status := models.ReviewStatus(r.URL.Query().Get("status"))

	reviews, err := h.reviewService.GetAll(status)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list reviews")
		return
	}

	respondWithJSON(w, http.StatusOK, reviews)
}

// UpdateReview updates a review
// @Summary Update review
// @Description Update a review's details while it is still in PLANNING
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.Review true "Review data"
// @Success 200 {object} models.Review "Updated review"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 409 {object} map[string]string "Review already has a team"
// @Router /reviews/update [put]
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var review models.Review
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.reviewService.Update(&review, actorID); err != nil {
		switch {
		case errors.Is(err, repository.ErrReviewNotFound):
			respondWithError(w, http.StatusNotFound, ErrMsgReviewNotFound)
		case errors.Is(err, service.ErrReviewHasTeam), errors.Is(err, repository.ErrReviewNotPlanning):
			respondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidTeamSize),
			errors.Is(err, service.ErrInvalidDateRange),
			errors.Is(err, service.ErrUnknownLanguage),
			errors.Is(err, service.ErrInvalidReviewArea):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to update review")
		}
		return
	}

	h.auditMw.LogAction(&actorID, "review.update", "review",
		fmt.Sprintf("Updated review %d", review.ID), getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, review)
}

// CompleteReview marks a review as completed
// @Summary Complete review
// @Description Mark an in-progress review as completed and credit its team members
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id query int true "Review ID"
// @Success 200 {object} map[string]string "Review completed"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 409 {object} map[string]string "Review not in a completable state"
// @Router /reviews/complete [post]
func (h *ReviewHandler) CompleteReview(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	reviewID, err := queryUint(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewID)
		return
	}

	if err := h.reviewService.Complete(reviewID, actorID); err != nil {
		switch {
		case errors.Is(err, repository.ErrReviewNotFound):
			respondWithError(w, http.StatusNotFound, ErrMsgReviewNotFound)
		case matching.IsInvalidTransition(err):
			respondWithError(w, http.StatusConflict, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to complete review")
		}
		return
	}

	h.auditMw.LogAction(&actorID, "review.complete", "review",
		fmt.Sprintf("Completed review %d", reviewID), getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Review completed",
	})
}

// CancelReview cancels a review
// @Summary Cancel review
// @Description Cancel a review and release its team members
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id query int true "Review ID"
// @Success 200 {object} map[string]string "Review cancelled"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 409 {object} map[string]string "Review not in a cancellable state"
// @Router /reviews/cancel [post]
func (h *ReviewHandler) CancelReview(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	reviewID, err := queryUint(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewID)
		return
	}

	if err := h.reviewService.Cancel(reviewID, actorID); err != nil {
		switch {
		case errors.Is(err, repository.ErrReviewNotFound):
			respondWithError(w, http.StatusNotFound, ErrMsgReviewNotFound)
		case matching.IsInvalidTransition(err):
			respondWithError(w, http.StatusConflict, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to cancel review")
		}
		return
	}

	h.auditMw.LogAction(&actorID, "review.cancel", "review",
		fmt.Sprintf("Cancelled review %d", reviewID), getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Review cancelled",
	})
}

// GetCandidates scores eligible candidates for a review
// @Summary Get candidates
// @Description Score all eligible reviewers against a review's requirements
// @Tags Matching
// @Produce json
// @Security BearerAuth
// @Param id query int true "Review ID"
// @Success 200 {array} models.MatchResult "Ranked candidates"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/candidates [get]
func (h *ReviewHandler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	reviewID, err := queryUint(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewID)
		return
	}

	candidates, err := h.matchingService.GetCandidates(reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			respondWithError(w, http.StatusNotFound, ErrMsgReviewNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to score candidates")
		return
	}

	respondWithJSON(w, http.StatusOK, candidates)
}

// ProposeTeamRequest is the payload for a team proposal
type ProposeTeamRequest struct {
	ReviewID    uint   `json:"review_id" validate:"required"`
	RequireLead bool   `json:"require_lead"`
	MustInclude []uint `json:"must_include,omitempty"`
}

// ProposeTeam proposes a review team
// @Summary Propose team
// @Description Build a team proposal for a review. A non-viable proposal is still returned with its reason.
// @Tags Matching
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProposeTeamRequest true "Proposal parameters"
// @Success 200 {object} models.TeamBuildResult "Team proposal"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/propose-team [post]
func (h *ReviewHandler) ProposeTeam(w http.ResponseWriter, r *http.Request) {
	var req ProposeTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if req.ReviewID == 0 {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewID)
		return
	}

	result, err := h.matchingService.ProposeTeam(req.ReviewID, req.RequireLead, req.MustInclude)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReviewNotFound):
			respondWithError(w, http.StatusNotFound, ErrMsgReviewNotFound)
		case errors.Is(err, repository.ErrReviewerNotFound):
			respondWithError(w, http.StatusNotFound, ErrMsgReviewerNotFound)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to propose team")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// AssignTeamRequest is the payload for a team assignment
type AssignTeamRequest struct {
	ReviewID uint                `json:"review_id" validate:"required"`
	Members  []AssignTeamMember  `json:"members" validate:"required,min=1"`
}

// AssignTeamMember is one reviewer and role in an assignment request
type AssignTeamMember struct {
	ReviewerID uint            `json:"reviewer_id" validate:"required"`
	Role       models.TeamRole `json:"role" validate:"required"`
}

// AssignTeam assigns a team to a review
// @Summary Assign team
// @Description Assign a reviewer team to a review and move it to SCHEDULED
// @Tags Matching
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AssignTeamRequest true "Team assignment"
// @Success 200 {object} models.Review "Review with assigned team"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 409 {object} map[string]string "Review already has a team"
// @Failure 422 {object} map[string]string "Hard constraint violated"
// @Router /reviews/assign-team [post]
func (h *ReviewHandler) AssignTeam(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req AssignTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if req.ReviewID == 0 {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewID)
		return
	}

	members := make([]models.ReviewTeamMember, 0, len(req.Members))
	for _, m := range req.Members {
		members = append(members, models.ReviewTeamMember{
			ReviewID:   req.ReviewID,
			ReviewerID: m.ReviewerID,
			Role:       m.Role,
		})
	}

	if err := h.matchingService.AssignTeam(req.ReviewID, members, actorID); err != nil {
		switch {
		case errors.Is(err, repository.ErrReviewNotFound):
			respondWithError(w, http.StatusNotFound, ErrMsgReviewNotFound)
		case errors.Is(err, repository.ErrReviewerNotFound):
			respondWithError(w, http.StatusNotFound, ErrMsgReviewerNotFound)
		case errors.Is(err, repository.ErrTeamAlreadySet), errors.Is(err, repository.ErrReviewNotPlanning):
			respondWithError(w, http.StatusConflict, err.Error())
		case matching.IsHardConstraintViolation(err), errors.Is(err, service.ErrReviewerNotReady):
			respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrEmptyTeam), errors.Is(err, service.ErrDuplicateMember):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to assign team")
		}
		return
	}

	h.auditMw.LogAction(&actorID, "review.assign_team", "review",
		fmt.Sprintf("Assigned %d members to review %d", len(members), req.ReviewID),
		getIP(r), r.UserAgent())

	review, err := h.reviewService.GetByID(req.ReviewID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get review")
		return
	}

	respondWithJSON(w, http.StatusOK, review)
}

// UnassignTeam removes a review's team
// @Summary Unassign team
// @Description Remove all team members from a review and return it to PLANNING
// @Tags Matching
// @Produce json
// @Security BearerAuth
// @Param id query int true "Review ID"
// @Success 200 {object} map[string]string "Team removed"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 409 {object} map[string]string "No team assigned"
// @Router /reviews/unassign-team [post]
func (h *ReviewHandler) UnassignTeam(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	reviewID, err := queryUint(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewID)
		return
	}

	if err := h.matchingService.UnassignTeam(reviewID, actorID); err != nil {
		switch {
		case errors.Is(err, repository.ErrReviewNotFound):
			respondWithError(w, http.StatusNotFound, ErrMsgReviewNotFound)
		case errors.Is(err, repository.ErrNoTeamAssigned):
			respondWithError(w, http.StatusConflict, err.Error())
		case matching.IsInvalidTransition(err):
			respondWithError(w, http.StatusConflict, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to unassign team")
		}
		return
	}

	h.auditMw.LogAction(&actorID, "review.unassign_team", "review",
		fmt.Sprintf("Removed team from review %d", reviewID), getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Team removed",
	})
}

// CommonAvailability finds windows where all listed reviewers are available
// @Summary Common availability
// @Description Find date windows of at least min_days where every listed reviewer is available
// @Tags Matching
// @Produce json
// @Security BearerAuth
// @Param reviewer_ids query string true "Comma-separated reviewer IDs"
// @Param start query string true "Range start (YYYY-MM-DD)"
// @Param end query string true "Range end (YYYY-MM-DD)"
// @Param min_days query int false "Minimum window length in days (default 1)"
// @Success 200 {array} models.DateRange "Common windows"
// @Failure 400 {object} map[string]string "Invalid parameters"
// @Router /reviews/common-availability [get]
func (h *ReviewHandler) CommonAvailability(w http.ResponseWriter, r *http.Request) {
	rawIDs := r.URL.Query().Get("reviewer_ids")
	if rawIDs == "" {
		respondWithError(w, http.StatusBadRequest, "reviewer_ids is required")
		return
	}

	var reviewerIDs []uint
	for _, part := range strings.Split(rawIDs, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, ErrMsgInvalidReviewerID)
			return
		}
		reviewerIDs = append(reviewerIDs, uint(id))
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

	minDays := 1
	if raw := r.URL.Query().Get("min_days"); raw != "" {
		minDays, err = strconv.Atoi(raw)
		if err != nil || minDays < 1 {
			respondWithError(w, http.StatusBadRequest, "Invalid min_days")
			return
		}
	}

	windows, err := h.matchingService.CommonAvailability(reviewerIDs, start, end, minDays)
	if err != nil {
		if errors.Is(err, repository.ErrReviewerNotFound) {
			respondWithError(w, http.StatusNotFound, ErrMsgReviewerNotFound)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to compute common availability")
		return
	}

	respondWithJSON(w, http.StatusOK, windows)
}

// GetWeights returns the active scoring weights
// @Summary Get scoring weights
// @Description Return the normalized weights used to score candidates
// @Tags Matching
// @Produce json
// @Security BearerAuth
// @Success 200 {object} matching.ScoringWeights "Scoring weights"
// @Router /reviews/weights [get]
func (h *ReviewHandler) GetWeights(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.matchingService.Weights())
}
