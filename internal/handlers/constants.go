package handlers

// Common error message constants shared across handlers
const (
	ErrMsgUserNotFound         = "User not found"
	ErrMsgInvalidRequestBody   = "Invalid request body"
	ErrMsgFailedToHashPassword = "Failed to hash password"
	ErrMsgUnauthorized         = "Unauthorized"
	ErrMsgUserIDNotFound       = "User ID not found"
	ErrMsgInvalidReviewerID    = "Invalid reviewer ID"
	ErrMsgInvalidReviewID      = "Invalid review ID"
	ErrMsgReviewerNotFound     = "Reviewer not found"
	ErrMsgReviewNotFound       = "Review not found"
)

// API path constants
const (
	AuthAPIBasePath = "/api/v1/auth"
)
