package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"peerview/internal/auth"
	"peerview/internal/models"
	"peerview/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is inactive")
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo    *repository.UserRepository
	roleRepo    *repository.RoleRepository
	sessionRepo *repository.SessionRepository
	authSvc     *auth.Service
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo *repository.UserRepository,
	roleRepo *repository.RoleRepository,
	sessionRepo *repository.SessionRepository,
	authSvc *auth.Service,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		roleRepo:    roleRepo,
		sessionRepo: sessionRepo,
		authSvc:     authSvc,
	}
}

// Register registers a new user. The first user in the system becomes admin;
// everyone else starts as reviewer.
func (s *AuthService) Register(email, password, firstName, lastName string) (*models.User, error) {
	existing, _ := s.userRepo.GetByEmail(email)
	if existing != nil {
		return nil, repository.ErrUserExists
	}

	passwordHash, err := s.authSvc.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	userCount, err := s.userRepo.CountAll()
	if err != nil {
		slog.Error("Failed to count users", "error", err)
	}

	roleName := "reviewer"
	if userCount == 1 {
		roleName = "admin"
		slog.Info("Assigning admin role to first user", "email", email)
	}

	role, err := s.roleRepo.GetByName(roleName)
	if err == nil {
		if err := s.userRepo.AssignRole(user.ID, role.ID); err != nil {
			slog.Error("Failed to assign role", "role", roleName, "user_id", user.ID, "error", err)
		}
	} else {
		slog.Error("Failed to find role", "role", roleName, "error", err)
	}

	return user, nil
}

// Login authenticates a user and returns JWT tokens with their JTIs
func (s *AuthService) Login(email, password string) (accessToken, refreshToken, accessJTI, refreshJTI string, user *models.User, err error) {
	user, err = s.userRepo.GetByEmail(email)
	if err != nil {
		return "", "", "", "", nil, ErrInvalidCredentials
	}

	if err := s.authSvc.VerifyPassword(user.PasswordHash, password); err != nil {
		return "", "", "", "", nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", "", "", "", nil, ErrUserInactive
	}

	accessToken, accessJTI, err = s.authSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", "", "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshJTI, err = s.authSvc.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return "", "", "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, accessJTI, refreshJTI, user, nil
}

// GenerateTokensForUser issues a fresh access and refresh token pair
func (s *AuthService) GenerateTokensForUser(user *models.User) (accessToken, refreshToken, accessJTI, refreshJTI string, err error) {
	accessToken, accessJTI, err = s.authSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, refreshJTI, err = s.authSvc.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return accessToken, refreshToken, accessJTI, refreshJTI, nil
}

// CountAllUsers returns the total number of registered users
func (s *AuthService) CountAllUsers() (int, error) {
	return s.userRepo.CountAll()
}

// CreateSession records an issued token so it can be revoked later
func (s *AuthService) CreateSession(userID uint, jti, tokenType string, expiresAt time.Time) error {
	id, err := auth.RandomToken(16)
	if err != nil {
		return fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &models.Session{
		ID:             id,
		UserID:         userID,
		JTI:            jti,
		TokenType:      tokenType,
		ExpiresAt:      expiresAt,
		LastActivityAt: time.Now(),
		CreatedAt:      time.Now(),
	}

	return s.sessionRepo.Create(session)
}

// RefreshToken rotates a refresh token and issues a new access token
func (s *AuthService) RefreshToken(refreshToken string) (accessToken, newRefreshToken string, user *models.User, err error) {
	claims, err := s.authSvc.ValidateToken(refreshToken)
	if err != nil {
		return "", "", nil, fmt.Errorf("invalid refresh token: %w", err)
	}
	if claims.ID == "" {
		return "", "", nil, errors.New("token missing JTI")
	}

	session, err := s.sessionRepo.GetByJTI(claims.ID)
	if err != nil {
		return "", "", nil, fmt.Errorf("session not found or expired: %w", err)
	}
	if session.UserID != claims.UserID {
		return "", "", nil, errors.New("session user mismatch")
	}
	if session.TokenType != "refresh" {
		return "", "", nil, errors.New("invalid token type")
	}

	user, err = s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return "", "", nil, fmt.Errorf("user not found: %w", err)
	}

	// Rotate: the old refresh session is gone before new tokens exist
	_ = s.sessionRepo.DeleteByJTI(claims.ID)

	accessToken, accessJTI, err := s.authSvc.GenerateToken(claims.UserID, claims.Email)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	var refreshJTI string
	newRefreshToken, refreshJTI, err = s.authSvc.GenerateRefreshToken(claims.UserID, claims.Email)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.CreateSession(claims.UserID, refreshJTI, "refresh", time.Now().Add(7*24*time.Hour)); err != nil {
		return "", "", nil, fmt.Errorf("failed to create refresh session: %w", err)
	}
	if err := s.CreateSession(claims.UserID, accessJTI, "access", time.Now().Add(24*time.Hour)); err != nil {
		slog.Warn("Failed to create access token session", "error", err)
	}

	return accessToken, newRefreshToken, user, nil
}

// InvalidateSessionByToken invalidates a session by extracting JTI from token
// Note: We extract JTI without validation to allow logout even with expired tokens
func (s *AuthService) InvalidateSessionByToken(token string) error {
	jti, err := s.authSvc.ExtractJTI(token)
	if err != nil {
		return err
	}
	if jti == "" {
		return errors.New("token missing JTI")
	}
	return s.sessionRepo.DeleteByJTI(jti)
}

// ExtractJTI extracts the JTI claim from a token without validating it
func (s *AuthService) ExtractJTI(token string) (string, error) {
	return s.authSvc.ExtractJTI(token)
}

// InvalidateAllUserSessions invalidates all sessions for a user
func (s *AuthService) InvalidateAllUserSessions(userID uint) error {
	return s.sessionRepo.DeleteAllUserSessions(userID)
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	return s.userRepo.GetByID(userID)
}

// GetUserRoles retrieves all roles for a user
func (s *AuthService) GetUserRoles(userID uint) ([]models.Role, error) {
	return s.userRepo.GetUserRoles(userID)
}

// CleanupExpiredSessions removes expired session rows. The scheduler runs
// this nightly.
func (s *AuthService) CleanupExpiredSessions() error {
	return s.sessionRepo.DeleteExpiredSessions()
}
