// Package models provides shared data models for the studentauth public API.
package models

import (
	"time"

	"github.com/student-auth/studentauth/internal/scoring"
	"github.com/student-auth/studentauth/internal/validation"
)

// RegisterRequest is the registration form. Tags are checked after the
// mobile and passout year form rules have passed.
type RegisterRequest struct {
	Name        string               `json:"name" yaml:"name" validate:"required,max=100"`
	Email       string               `json:"email" yaml:"email" validate:"required,email,max=254"`
	Password    string               `json:"password" yaml:"password" validate:"required,min=8,maxbytes=72"`
	Mobile      string               `json:"mobile" yaml:"mobile" validate:"mobile"`
	College     string               `json:"college" yaml:"college" validate:"required,max=200"`
	PassoutYear validation.YearInput `json:"passout_year" yaml:"passout_year" validate:"passout_year"`
	Branch      string               `json:"branch" yaml:"branch" validate:"required,max=100"`
}

// StudentInfo is the API representation of a registered student.
// The password hash never leaves the server.
type StudentInfo struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Mobile      string    `json:"mobile"`
	College     string    `json:"college"`
	PassoutYear int       `json:"passout_year"`
	Branch      string    `json:"branch"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoginRequest is the API request for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the API response for a successful login.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Student   StudentInfo `json:"student"`
}

// ValidateRequest is the API request for checking the registration form
// before it is submitted.
type ValidateRequest struct {
	Mobile      string               `json:"mobile"`
	PassoutYear validation.YearInput `json:"passout_year"`
}

// ValidateResponse is the API response for a form check.
type ValidateResponse = validation.Result

// StudentList is the API response for the admin student listing.
type StudentList struct {
	Students []StudentInfo `json:"students"`
	Count    int           `json:"count"`
}

// ScoreRequest is the API request for scoring a submission.
type ScoreRequest = scoring.Submission

// ScoreResponse is the API response for a scored submission.
type ScoreResponse = scoring.Breakdown

// ErrorResponse is the API error body.
type ErrorResponse struct {
	Error      string `json:"error"`
	Field      string `json:"field,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// HealthInfo is the API response for health and readiness checks.
type HealthInfo struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}
