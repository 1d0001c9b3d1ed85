package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest opens a session for a known username. Department optionally
// scopes a lecturer session to one department.
type LoginRequest struct {
	Username   string `json:"username" validate:"required"`
	Department string `json:"department,omitempty"`
}

// LoginResponse returns the issued token and the session it encodes.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	Session     Session   `json:"session"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Session is the immutable identity every query runs under.
type Session struct {
	UserID     string   `json:"userId"`
	Username   string   `json:"username"`
	FullName   string   `json:"fullName"`
	Role       UserRole `json:"role"`
	RelatedID  string   `json:"relatedId,omitempty"`
	Department string   `json:"department,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	Username   string   `json:"username"`
	FullName   string   `json:"full_name"`
	Role       UserRole `json:"role"`
	RelatedID  string   `json:"related_id,omitempty"`
	Department string   `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// Session projects the claims onto the session value.
func (c *JWTClaims) Session() Session {
	return Session{
		UserID:     c.UserID,
		Username:   c.Username,
		FullName:   c.FullName,
		Role:       c.Role,
		RelatedID:  c.RelatedID,
		Department: c.Department,
	}
}

// IsStudent reports whether the session belongs to a student account.
func (s Session) IsStudent() bool {
	return s.Role == RoleStudent
}

// CanAccessStudent reports whether the session may read studentID's records.
// Students are restricted to their own record.
func (s Session) CanAccessStudent(studentID string) bool {
	if s.Role != RoleStudent {
		return true
	}
	return s.RelatedID != "" && s.RelatedID == studentID
}
