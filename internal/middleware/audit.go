package middleware

import (
	"database/sql"
	"net/http"

	"peerview/internal/models"
	"peerview/internal/repository"
)

// AuditMiddleware records security-relevant actions with request context
type AuditMiddleware struct {
	auditRepo *repository.AuditRepository
}

// NewAuditMiddleware creates a new audit middleware
func NewAuditMiddleware(db *sql.DB) *AuditMiddleware {
	return &AuditMiddleware{
		auditRepo: repository.NewAuditRepository(db),
	}
}

// LogAction records an action with explicit actor and request metadata
func (m *AuditMiddleware) LogAction(userID *uint, action, resource, details, ipAddress, userAgent string) error {
	return m.auditRepo.Create(&models.AuditLog{
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Details:   details,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}

// LogRequest records an action, taking actor and metadata from the request.
// Errors are ignored so auditing never fails the operation itself.
func (m *AuditMiddleware) LogRequest(r *http.Request, action, resource, details string) {
	var userID *uint
	if id, ok := GetUserID(r); ok {
		userID = &id
	}
	_ = m.LogAction(userID, action, resource, details, getIP(r), r.UserAgent())
}
