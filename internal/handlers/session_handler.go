package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"peerview/internal/middleware"
	"peerview/internal/repository"
	"peerview/internal/service"
)

// SessionHandler handles session management requests
type SessionHandler struct {
	sessionRepo *repository.SessionRepository
	authService *service.AuthService
	auditMw     *middleware.AuditMiddleware
	db          *sql.DB
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	sessionRepo *repository.SessionRepository,
	authService *service.AuthService,
	auditMw *middleware.AuditMiddleware,
	db *sql.DB,
) *SessionHandler {
	return &SessionHandler{
		sessionRepo: sessionRepo,
		authService: authService,
		auditMw:     auditMw,
		db:          db,
	}
}

// GetMySessions gets the current user's active sessions
// @Summary Get user sessions
// @Description Get all active sessions for the authenticated user
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} object "List of active sessions"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /users/sessions [get]
func (h *SessionHandler) GetMySessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	sessions, err := h.sessionRepo.GetByUserID(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get sessions")
		return
	}

	result := []map[string]interface{}{}
	for _, session := range sessions {
		result = append(result, map[string]interface{}{
			"id":               session.ID,
			"token_type":       session.TokenType,
			"created_at":       session.CreatedAt,
			"last_activity_at": session.LastActivityAt,
			"expires_at":       session.ExpiresAt,
		})
	}

	respondWithJSON(w, http.StatusOK, result)
}

// DeleteMySession deletes a specific session for the current user
// @Summary Delete user session
// @Description Delete a specific session by id
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id query string true "Session ID to delete"
// @Success 200 {object} map[string]string "Session deleted successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /users/sessions/delete [delete]
func (h *SessionHandler) DeleteMySession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	sessionID := r.URL.Query().Get("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	// Verify session belongs to user
	sessions, err := h.sessionRepo.GetByUserID(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to verify session")
		return
	}

	found := false
	for _, session := range sessions {
		if session.ID == sessionID {
			found = true
			break
		}
	}

	if !found {
		respondWithError(w, http.StatusForbidden, "Session not found or access denied")
		return
	}

	if err := h.sessionRepo.Delete(sessionID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	_ = h.auditMw.LogAction(&userID, "session.delete", "sessions", "User deleted their own session", getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Session deleted successfully",
	})
}

// DeleteAllMySessions deletes all sessions except the current one
// @Summary Delete all user sessions except current
// @Description Delete all active sessions for the user except the current one
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "All other sessions deleted"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /users/sessions/delete-all [delete]
func (h *SessionHandler) DeleteAllMySessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		respondWithError(w, http.StatusUnauthorized, "No authorization header")
		return
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	currentJTI, err := h.authService.ExtractJTI(token)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	sessions, err := h.sessionRepo.GetByUserID(userID)
	if err != nil {
		_ = h.auditMw.LogAction(&userID, "session.get.error", "sessions", "Get sessions failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to get sessions")
		return
	}

	// Keep the session carrying the current access token
	for _, session := range sessions {
		if session.JTI != currentJTI {
			_ = h.sessionRepo.Delete(session.ID)
		}
	}

	_ = h.auditMw.LogAction(&userID, "session.delete_all_others", "sessions", "User deleted all other sessions", getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "All other sessions deleted successfully",
	})
}

// GetAllSessions gets all active sessions (admin only)
// @Summary Get all sessions
// @Description Get all active sessions for all users (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} object "List of all active sessions"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /admin/sessions [get]
func (h *SessionHandler) GetAllSessions(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT s.id, s.user_id, s.token_type, s.created_at, s.last_activity_at, s.expires_at,
			u.email, u.first_name, u.last_name
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.expires_at > NOW()
		ORDER BY s.last_activity_at DESC
	`

	rows, err := h.db.Query(query)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get sessions")
		return
	}
	defer rows.Close()

	sessions := []map[string]interface{}{}
	for rows.Next() {
		var id, tokenType, email, firstName, lastName string
		var userID uint
		var createdAt, lastActivityAt, expiresAt time.Time

		if err := rows.Scan(&id, &userID, &tokenType, &createdAt, &lastActivityAt, &expiresAt, &email, &firstName, &lastName); err != nil {
			continue
		}

		sessions = append(sessions, map[string]interface{}{
			"id":               id,
			"user_id":          userID,
			"user_email":       email,
			"user_name":        firstName + " " + lastName,
			"token_type":       tokenType,
			"created_at":       createdAt,
			"last_activity_at": lastActivityAt,
			"expires_at":       expiresAt,
		})
	}

	respondWithJSON(w, http.StatusOK, sessions)
}

// DeleteAllUserSessions deletes all sessions for a specific user (admin only)
// @Summary Delete all sessions for a user
// @Description Delete all active sessions for a specific user (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param user_id query int true "User ID"
// @Success 200 {object} map[string]string "All user sessions deleted"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /admin/sessions/delete-all [delete]
func (h *SessionHandler) DeleteAllUserSessions(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	userIDStr := r.URL.Query().Get("user_id")
	if userIDStr == "" {
		respondWithError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	userID, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.sessionRepo.DeleteAllUserSessions(uint(userID)); err != nil {
		_ = h.auditMw.LogAction(&adminID, "admin.session.delete_all_user.error", "sessions", "Delete all user sessions failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to delete sessions")
		return
	}

	_ = h.auditMw.LogAction(&adminID, "admin.session.delete_all_user", "sessions", "Admin deleted all sessions for user ID: "+userIDStr, getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "All user sessions deleted successfully",
	})
}
