package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"peerview/internal/config"
	"peerview/internal/middleware"
	"peerview/internal/models"
	"peerview/internal/service"
	"peerview/pkg/validator"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *service.AuthService
	auditMw     *middleware.AuditMiddleware
	config      *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, auditMw *middleware.AuditMiddleware, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		auditMw:     auditMw,
		config:      cfg,
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a new user account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} map[string]interface{} "Registration successful"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	// Check if registration is enabled (allow if no users exist)
	if !h.config.App.EnableRegistration {
		userCount, err := h.authService.CountAllUsers()
		if err != nil || userCount > 0 {
			respondWithError(w, http.StatusForbidden, "Registration is disabled")
			return
		}
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Register(validator.SanitizeEmail(req.Email), req.Password, req.FirstName, req.LastName)
	if err != nil {
		slog.Error("Registration failed", "email", req.Email, "error", err)
		_ = h.auditMw.LogAction(nil, "user.register.error", "users", "Registration failed for "+req.Email+": "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	_ = h.auditMw.LogAction(&user.ID, "user.register", "users", "User registered", getIP(r), r.UserAgent())

	// Auto-login after registration
	accessToken, refreshToken, accessJTI, refreshJTI, err := h.authService.GenerateTokensForUser(user)
	if err != nil {
		_ = h.auditMw.LogAction(&user.ID, "user.register.token.error", "users", "Token generation failed after registration", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	if err := h.authService.CreateSession(user.ID, refreshJTI, "refresh", time.Now().Add(7*24*time.Hour)); err != nil {
		_ = h.auditMw.LogAction(&user.ID, "user.register.session.error", "users", "Session creation failed", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	_ = h.authService.CreateSession(user.ID, accessJTI, "access", time.Now().Add(24*time.Hour))

	setRefreshCookie(w, r, refreshToken)

	roles, _ := h.authService.GetUserRoles(user.ID)

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    86400,
		"user":          userPayload(user, roles),
	})
}

// Login handles user login
// @Summary User login
// @Description Authenticate user and return JWT tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{} "Login successful with tokens"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	accessToken, refreshToken, accessJTI, refreshJTI, user, err := h.authService.Login(validator.SanitizeEmail(req.Email), req.Password)
	if err != nil {
		slog.Warn("Login failed", "email", req.Email, "error", err, "ip", getIP(r))
		_ = h.auditMw.LogAction(nil, "user.login.failed", "users", "Failed login attempt for "+req.Email, getIP(r), r.UserAgent())
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	slog.Info("User logged in successfully", "user_id", user.ID, "email", user.Email, "ip", getIP(r))
	_ = h.auditMw.LogAction(&user.ID, "user.login", "users", "User logged in", getIP(r), r.UserAgent())

	if err := h.authService.CreateSession(user.ID, refreshJTI, "refresh", time.Now().Add(7*24*time.Hour)); err != nil {
		_ = h.auditMw.LogAction(&user.ID, "user.login.session.error", "users", "Session creation failed during login", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	_ = h.authService.CreateSession(user.ID, accessJTI, "access", time.Now().Add(24*time.Hour))

	setRefreshCookie(w, r, refreshToken)

	roles, _ := h.authService.GetUserRoles(user.ID)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    86400,
		"user":          userPayload(user, roles),
	})
}

// RefreshToken handles token refresh requests
// @Summary Refresh access token
// @Description Get a new access token using refresh token from cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "New access token"
// @Failure 401 {object} map[string]string "Invalid refresh token"
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refresh_token")
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	accessToken, newRefreshToken, user, err := h.authService.RefreshToken(cookie.Value)
	if err != nil {
		_ = h.auditMw.LogAction(nil, "user.token.refresh.error", "users", "Token refresh failed: "+err.Error(), getIP(r), r.UserAgent())
		// Clear invalid cookie
		http.SetCookie(w, &http.Cookie{
			Name:     "refresh_token",
			Value:    "",
			Path:     AuthAPIBasePath,
			MaxAge:   -1,
			HttpOnly: true,
		})
		respondWithError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	setRefreshCookie(w, r, newRefreshToken)

	roles, _ := h.authService.GetUserRoles(user.ID)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": newRefreshToken,
		"token_type":    "Bearer",
		"expires_in":    86400,
		"user":          userPayload(user, roles),
	})
}

// Logout handles user logout
// @Summary User logout
// @Description Clear refresh token cookie and invalidate session
// @Tags Authentication
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, hasUserID := middleware.GetUserID(r)

	cookie, err := r.Cookie("refresh_token")
	if err == nil && cookie.Value != "" {
		if err := h.authService.InvalidateSessionByToken(cookie.Value); err != nil {
			slog.Error("Failed to invalidate session during logout", "error", err)
			if hasUserID {
				_ = h.auditMw.LogAction(&userID, "user.logout.error", "users", "Failed to invalidate session: "+err.Error(), getIP(r), r.UserAgent())
			}
		}
	}

	if hasUserID {
		slog.Info("User logged out", "user_id", userID, "ip", getIP(r))
		_ = h.auditMw.LogAction(&userID, "user.logout", "users", "User logged out", getIP(r), r.UserAgent())
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     AuthAPIBasePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// Helper functions

func setRefreshCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    token,
		Path:     AuthAPIBasePath,
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func userPayload(user *models.User, roles []models.Role) map[string]interface{} {
	return map[string]interface{}{
		"id":         user.ID,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"is_active":  user.IsActive,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
		"roles":      roles,
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.WriteHeader(code)
	if err := JSONResponse(w, payload); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error"}`))
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func getIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return forwarded
	}
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
