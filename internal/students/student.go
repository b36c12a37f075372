// Package students holds the registered student model.
package students

import (
	"strings"
	"time"

	"github.com/student-auth/studentauth/pkg/models"
)

// Student is a registered participant.
type Student struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	Mobile       string
	College      string
	PassoutYear  int
	Branch       string
	CreatedAt    time.Time
}

// Info returns the public representation of s.
func (s *Student) Info() models.StudentInfo {
	return models.StudentInfo{
		ID:          s.ID,
		Name:        s.Name,
		Email:       s.Email,
		Mobile:      s.Mobile,
		College:     s.College,
		PassoutYear: s.PassoutYear,
		Branch:      s.Branch,
		CreatedAt:   s.CreatedAt,
	}
}

// Clone returns a deep copy of s.
func (s *Student) Clone() *Student {
	c := *s
	c.PasswordHash = append([]byte(nil), s.PasswordHash...)
	return &c
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DefaultListLimit caps List results when the filter sets no limit.
const DefaultListLimit = 100

// Filter narrows a student listing. Zero values match everything.
type Filter struct {
	PassoutYear int
	Branch      string

	// Search matches name, email, college or branch, case-insensitively.
	Search string

	Limit int
}

// EffectiveLimit returns the limit to apply.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > DefaultListLimit {
		return DefaultListLimit
	}
	return f.Limit
}

// Matches reports whether s passes the filter.
func (f Filter) Matches(s *Student) bool {
	if f.PassoutYear != 0 && s.PassoutYear != f.PassoutYear {
		return false
	}
	if f.Branch != "" && !strings.EqualFold(s.Branch, f.Branch) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		for _, field := range []string{s.Name, s.Email, s.College, s.Branch} {
			if strings.Contains(strings.ToLower(field), q) {
				return true
			}
		}
		return false
	}
	return true
}
