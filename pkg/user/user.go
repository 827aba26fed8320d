package user

import "time"

// User represents the domain model for an account holder.
type User struct {
	ID             string
	Email          string
	GoogleID       string
	EmailConfirmed bool
	Credits        int64
	CreatedAt      time.Time
}

// AuthResult is the outcome of a successful sign-in or sign-up: a live
// session the HTTP layer turns into a cookie.
type AuthResult struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// SignUpRequest is an email/password registration request.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LogInRequest is an email/password sign-in request.
type LogInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleSignInRequest carries a Google-issued ID token.
type GoogleSignInRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// Profile is the authenticated user's own view of their account.
type Profile struct {
	ID      string `json:"id"`
	Email   string `json:"email,omitzero"`
	Credits int64  `json:"credits"`
}
