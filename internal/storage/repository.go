// Package storage provides persistence for registered students.
package storage

import (
	"context"

	"github.com/student-auth/studentauth/internal/students"
)

// StudentRepository defines the interface for student persistence.
// All implementations must be:
// - Thread-safe
// - Context-aware (respecting cancellation/timeout)
// - Explicit about errors (never swallow)
type StudentRepository interface {
	// Create stores a new student and sets its ID and CreatedAt.
	// Returns an error if:
	// - Email is already registered (errors.ErrEmailTaken)
	// - Context is cancelled
	Create(ctx context.Context, student *students.Student) error

	// Get retrieves a student by ID.
	// Returns errors.ErrStudentNotFound if no such student exists.
	Get(ctx context.Context, id int64) (*students.Student, error)

	// GetByEmail retrieves a student by email, case-insensitively.
	// Returns errors.ErrStudentNotFound if no such student exists.
	GetByEmail(ctx context.Context, email string) (*students.Student, error)

	// ExistsByEmail checks if a student with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// List returns students matching the filter, ordered by ID.
	// Returns empty slice (not nil) if nothing matches.
	List(ctx context.Context, filter students.Filter) ([]*students.Student, error)

	// CheckConnectivity verifies the store is reachable.
	CheckConnectivity(ctx context.Context) error
}
