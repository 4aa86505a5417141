package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"peerview/internal/middleware"
	"peerview/internal/models"
	"peerview/internal/repository"
	"peerview/internal/service"
)

// UserHandler handles user management requests
type UserHandler struct {
	userRepo *repository.UserRepository
	roleRepo *repository.RoleRepository
	auditMw  *middleware.AuditMiddleware
	authSvc  *service.AuthService
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	userRepo *repository.UserRepository,
	roleRepo *repository.RoleRepository,
	auditMw *middleware.AuditMiddleware,
	authSvc *service.AuthService,
) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
		roleRepo: roleRepo,
		auditMw:  auditMw,
		authSvc:  authSvc,
	}
}

// GetProfile gets the current user's profile
// @Summary Get user profile
// @Description Get authenticated user's profile information
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "User profile with roles"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/profile [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	roles, _ := h.userRepo.GetUserRoles(userID)

	respondWithJSON(w, http.StatusOK, userPayload(user, roles))
}

// UpdateProfile updates the current user's profile
// @Summary Update user profile
// @Description Update authenticated user's profile information
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "Profile update (first_name, last_name)"
// @Success 200 {object} map[string]interface{} "Profile updated successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /users/profile/update [post]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName

	if err := h.userRepo.Update(user); err != nil {
		_ = h.auditMw.LogAction(&userID, "user.profile.update.error", "users", "Profile update failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	_ = h.auditMw.LogAction(&userID, "user.profile.update", "users", "Profile updated", getIP(r), r.UserAgent())

	roles, _ := h.userRepo.GetUserRoles(userID)

	respondWithJSON(w, http.StatusOK, userPayload(user, roles))
}

// ChangePassword allows a user to change their own password
// @Summary Change password
// @Description Change the authenticated user's password
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "Current and new password"
// @Success 200 {object} map[string]string "Password changed successfully"
// @Failure 400 {object} map[string]string "Invalid request or password too short"
// @Failure 401 {object} map[string]string "Unauthorized or incorrect current password"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/password/change [post]
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if len(req.NewPassword) < 8 {
		respondWithError(w, http.StatusBadRequest, "New password must be at least 8 characters long")
		return
	}

	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		_ = h.auditMw.LogAction(&userID, "user.password.change.failed", "users", "Incorrect current password", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		_ = h.auditMw.LogAction(&userID, "user.password.change.error", "users", "Password hash failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, ErrMsgFailedToHashPassword)
		return
	}

	if err := h.userRepo.UpdatePassword(userID, string(hashedBytes)); err != nil {
		_ = h.auditMw.LogAction(&userID, "user.password.change.error", "users", "Password update failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	_ = h.auditMw.LogAction(&userID, "user.password.change", "users", "Password changed successfully", getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed successfully",
	})
}

// CreateUser creates a new user (admin only)
// @Summary Create a new user
// @Description Create a new user account (admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body map[string]interface{} true "User details"
// @Success 201 {object} map[string]interface{} "User created successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /admin/users/create [post]
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		IsActive  bool   `json:"is_active"`
		RoleIDs   []uint `json:"role_ids"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if req.Email == "" || req.FirstName == "" || req.LastName == "" {
		respondWithError(w, http.StatusBadRequest, "Email, first name, and last name are required")
		return
	}

	adminUserID, _ := middleware.GetUserID(r)

	existingUser, _ := h.userRepo.GetByEmail(req.Email)
	if existingUser != nil {
		_ = h.auditMw.LogAction(&adminUserID, "user.create.error", "users",
			fmt.Sprintf("Failed to create user %s: email already exists", req.Email), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusBadRequest, "User with this email already exists")
		return
	}

	var passwordHash string
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, ErrMsgFailedToHashPassword)
			return
		}
		passwordHash = string(hash)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsActive:     req.IsActive,
	}

	if err := h.userRepo.Create(user); err != nil {
		_ = h.auditMw.LogAction(&adminUserID, "user.create.error", "users",
			fmt.Sprintf("Failed to create user %s: %v", req.Email, err), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	for _, roleID := range req.RoleIDs {
		if err := h.userRepo.AssignRole(user.ID, roleID); err != nil {
			_ = h.auditMw.LogAction(&adminUserID, "user.role.assign.error", "users",
				fmt.Sprintf("Failed to assign role %d to user %s", roleID, req.Email), getIP(r), r.UserAgent())
		}
	}

	_ = h.auditMw.LogAction(&adminUserID, "user.create", "users",
		fmt.Sprintf("User created: %s (ID: %d)", req.Email, user.ID), getIP(r), r.UserAgent())

	roles, _ := h.userRepo.GetUserRoles(user.ID)

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"user":    userPayload(user, roles),
	})
}

// GetUser gets a user by ID (admin only)
// @Summary Get user by ID
// @Description Get any user's information by ID (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id query int true "User ID"
// @Success 200 {object} map[string]interface{} "User information with roles"
// @Failure 400 {object} map[string]string "Invalid user ID"
// @Failure 404 {object} map[string]string "User not found"
// @Router /admin/users/get [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.userRepo.GetByID(uint(id))
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	roles, _ := h.userRepo.GetUserRoles(uint(id))

	respondWithJSON(w, http.StatusOK, userPayload(user, roles))
}

// UpdateUserActiveStatus toggles a user's active status (admin only)
// @Summary Update user active status
// @Description Toggle a user's active/inactive status (admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "User ID and active status"
// @Success 200 {object} map[string]string "Status updated successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "User not found"
// @Router /admin/users/update-status [post]
func (h *UserHandler) UpdateUserActiveStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   uint `json:"user_id"`
		IsActive bool `json:"is_active"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	user, err := h.userRepo.GetByID(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	actorID, _ := middleware.GetUserID(r)

	if !req.IsActive {
		isLastAdmin, err := h.userRepo.IsLastActiveAdmin(req.UserID)
		if err != nil {
			_ = h.auditMw.LogAction(&actorID, "user.status.update.error", "users", "Failed to check admin status: "+err.Error(), getIP(r), r.UserAgent())
			respondWithError(w, http.StatusInternalServerError, "Failed to verify admin status")
			return
		}
		if isLastAdmin {
			respondWithError(w, http.StatusBadRequest, "Cannot deactivate the last active admin")
			return
		}
	}

	if err := h.userRepo.UpdateActiveStatus(req.UserID, req.IsActive); err != nil {
		_ = h.auditMw.LogAction(&actorID, "user.status.update.error", "users", "User status update failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to update user status")
		return
	}

	statusStr := "inactive"
	if req.IsActive {
		statusStr = "active"
	}
	_ = h.auditMw.LogAction(&actorID, "user.status.update", "users",
		"User "+user.Email+" status changed to "+statusStr, getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "User status updated successfully",
	})
}

// AssignRole assigns a role to a user (admin only)
// @Summary Assign role to user
// @Description Assign a role to a user (admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "user_id and role_id"
// @Success 200 {object} map[string]string "Role assigned successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "User or role not found"
// @Router /admin/users/assign-role [post]
func (h *UserHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uint `json:"user_id"`
		RoleID uint `json:"role_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	// Admins cannot change their own roles
	adminID, _ := middleware.GetUserID(r)
	if adminID == req.UserID {
		_ = h.auditMw.LogAction(&adminID, "user.role.assign.error", "users", "Attempted to assign role to self", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusForbidden, "Cannot modify your own roles")
		return
	}

	if _, err := h.userRepo.GetByID(req.UserID); err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	if _, err := h.roleRepo.GetByID(req.RoleID); err != nil {
		respondWithError(w, http.StatusNotFound, "Role not found")
		return
	}

	if err := h.userRepo.AssignRole(req.UserID, req.RoleID); err != nil {
		_ = h.auditMw.LogAction(&adminID, "user.role.assign.error", "users", "Role assignment failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to assign role")
		return
	}

	_ = h.auditMw.LogAction(&adminID, "user.role.assign", "users", "Role assigned to user", getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Role assigned successfully",
	})
}

// RemoveRole removes a role from a user (admin only)
// @Summary Remove role from user
// @Description Remove a role from a user (admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "user_id and role_id"
// @Success 200 {object} map[string]string "Role removed successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /admin/users/remove-role [post]
func (h *UserHandler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uint `json:"user_id"`
		RoleID uint `json:"role_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	adminID, _ := middleware.GetUserID(r)
	if adminID == req.UserID {
		_ = h.auditMw.LogAction(&adminID, "user.role.remove.error", "users", "Attempted to remove role from self", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusForbidden, "Cannot modify your own roles")
		return
	}

	role, err := h.roleRepo.GetByID(req.RoleID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Role not found")
		return
	}

	if role.Name == "admin" {
		isLastAdmin, err := h.userRepo.IsLastActiveAdmin(req.UserID)
		if err != nil {
			_ = h.auditMw.LogAction(&adminID, "user.role.remove.error", "users", "Failed to check admin status: "+err.Error(), getIP(r), r.UserAgent())
			respondWithError(w, http.StatusInternalServerError, "Failed to verify admin status")
			return
		}
		if isLastAdmin {
			respondWithError(w, http.StatusBadRequest, "Cannot remove admin role from the last active admin")
			return
		}
	}

	if err := h.userRepo.RemoveRole(req.UserID, req.RoleID); err != nil {
		_ = h.auditMw.LogAction(&adminID, "user.role.remove.error", "users", "Role removal failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to remove role")
		return
	}

	_ = h.auditMw.LogAction(&adminID, "user.role.remove", "users", "Role removed from user", getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Role removed successfully",
	})
}

// ListUsers lists all users with pagination (admin only)
// @Summary List all users
// @Description Get a paginated list of all users (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} map[string]interface{} "List of users"
// @Router /admin/users/list [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := parsePagination(r, 20, 100)

	totalCount, err := h.userRepo.CountAll()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to count users")
		return
	}

	users, err := h.userRepo.GetAll(limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}

	userList := []map[string]interface{}{}
	for i := range users {
		roles, err := h.userRepo.GetUserRoles(users[i].ID)
		if err != nil {
			roles = []models.Role{}
		}
		userList = append(userList, userPayload(&users[i], roles))
	}

	totalPages := (totalCount + limit - 1) / limit

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"users":       userList,
		"total":       totalCount,
		"page":        page,
		"limit":       limit,
		"total_pages": totalPages,
	})
}

// ListRoles lists all available roles (admin only)
// @Summary List all roles
// @Description Get a list of all available roles (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Role "List of roles"
// @Router /admin/roles/list [get]
func (h *UserHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleRepo.GetAll()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve roles")
		return
	}

	respondWithJSON(w, http.StatusOK, roles)
}

// DeleteUser deletes a user (admin only)
// @Summary Delete user
// @Description Delete a user from the system (admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "User ID"
// @Success 200 {object} map[string]string "User deleted successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "User not found"
// @Router /admin/users/delete [post]
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uint `json:"user_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	user, err := h.userRepo.GetByID(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrMsgUserNotFound)
		return
	}

	actorID, _ := middleware.GetUserID(r)
	if actorID == req.UserID {
		respondWithError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	isLastAdmin, err := h.userRepo.IsLastActiveAdmin(req.UserID)
	if err != nil {
		_ = h.auditMw.LogAction(&actorID, "user.delete.error", "users", "Failed to check admin status: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to verify admin status")
		return
	}
	if isLastAdmin {
		respondWithError(w, http.StatusBadRequest, "Cannot delete the last active admin")
		return
	}

	if err := h.userRepo.Delete(req.UserID); err != nil {
		_ = h.auditMw.LogAction(&actorID, "user.delete.error", "users", "User deletion failed: "+err.Error(), getIP(r), r.UserAgent())
		respondWithError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	_ = h.auditMw.LogAction(&actorID, "user.delete", "users",
		"Deleted user "+user.Email, getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "User deleted successfully",
	})
}
