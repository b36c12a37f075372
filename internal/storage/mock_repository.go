package storage

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/student-auth/studentauth/internal/errors"
	"github.com/student-auth/studentauth/internal/students"
)

// MockRepository is an in-memory implementation of StudentRepository for
// tests and dev mode. It is thread-safe and respects context cancellation.
type MockRepository struct {
	mu      sync.RWMutex
	byID    map[int64]*students.Student
	byEmail map[string]int64
	nextID  int64

	connectivityFailure bool
	persistenceFailure  bool
}

// NewMockRepository creates a new mock repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		byID:    make(map[int64]*students.Student),
		byEmail: make(map[string]int64),
	}
}

// checkContext verifies the context is not cancelled or timed out.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Create stores a new student.
func (r *MockRepository) Create(ctx context.Context, s *students.Student) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.persistenceFailure {
		return errors.NewDatabaseUnavailable("persistence failure (simulated)")
	}

	email := students.NormalizeEmail(s.Email)
	if _, exists := r.byEmail[email]; exists {
		return errors.NewEmailTaken(email)
	}

	r.nextID++
	s.ID = r.nextID
	s.Email = email
	s.CreatedAt = time.Now().UTC()

	r.byID[s.ID] = s.Clone()
	r.byEmail[email] = s.ID
	return nil
}

// Get retrieves a student by ID.
func (r *MockRepository) Get(ctx context.Context, id int64) (*students.Student, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, errors.NewStudentNotFound(strconv.FormatInt(id, 10))
	}
	return s.Clone(), nil
}

// GetByEmail retrieves a student by email.
func (r *MockRepository) GetByEmail(ctx context.Context, email string) (*students.Student, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	email = students.NormalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, errors.NewStudentNotFound(email)
	}
	return r.byID[id].Clone(), nil
}

// ExistsByEmail checks if a student with the given email exists.
func (r *MockRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[students.NormalizeEmail(email)]
	return ok, nil
}

// List returns students matching the filter, ordered by ID.
func (r *MockRepository) List(ctx context.Context, filter students.Filter) ([]*students.Student, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.EffectiveLimit()
	result := make([]*students.Student, 0)
	// IDs are dense and ascending, so walking them in order keeps ID order.
	for id := int64(1); id <= r.nextID && len(result) < limit; id++ {
		s, ok := r.byID[id]
		if ok && filter.Matches(s) {
			result = append(result, s.Clone())
		}
	}
	return result, nil
}

// CheckConnectivity always succeeds for the mock unless a failure is simulated.
func (r *MockRepository) CheckConnectivity(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.connectivityFailure {
		return errors.NewDatabaseUnavailable("connectivity failure (simulated)")
	}
	return nil
}

// SimulateConnectivityFailure makes CheckConnectivity fail.
func (r *MockRepository) SimulateConnectivityFailure(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectivityFailure = fail
}

// SimulatePersistenceFailure makes Create fail.
func (r *MockRepository) SimulatePersistenceFailure(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistenceFailure = fail
}
