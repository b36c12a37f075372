package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/student-auth/studentauth/internal/errors"
	"github.com/student-auth/studentauth/internal/students"
)

const studentColumns = `id, name, email, password_hash, mobile, college, passout_year, branch, created_at`

// SQLRepository implements StudentRepository on PostgreSQL or SQLite.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLRepository creates a new SQL repository. Run the migrations first.
func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

// Dialect returns the repository's SQL dialect.
func (r *SQLRepository) Dialect() Dialect {
	return r.dialect
}

// DB returns the underlying pool.
func (r *SQLRepository) DB() *sql.DB {
	return r.db
}

// Create stores a new student.
func (r *SQLRepository) Create(ctx context.Context, s *students.Student) error {
	email := students.NormalizeEmail(s.Email)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT EXISTS(SELECT 1 FROM students WHERE email = ?)`),
		email,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return errors.NewEmailTaken(email)
	}

	createdAt := time.Now().UTC().Truncate(time.Microsecond)
	var id int64
	err = tx.QueryRowContext(ctx,
		r.dialect.Rebind(`INSERT INTO students (name, email, password_hash, mobile, college, passout_year, branch, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		s.Name, email, s.PasswordHash, s.Mobile, s.College, s.PassoutYear, s.Branch, createdAt,
	).Scan(&id)
	if err != nil {
		if r.dialect.isUniqueViolation(err) {
			return errors.NewEmailTaken(email)
		}
		return fmt.Errorf("failed to insert student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if r.dialect.isUniqueViolation(err) {
			return errors.NewEmailTaken(email)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.ID = id
	s.Email = email
	s.CreatedAt = createdAt
	return nil
}

// Get retrieves a student by ID.
func (r *SQLRepository) Get(ctx context.Context, id int64) (*students.Student, error) {
	row := r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT `+studentColumns+` FROM students WHERE id = ?`),
		id,
	)
	s, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewStudentNotFound(strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

// GetByEmail retrieves a student by email.
func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*students.Student, error) {
	email = students.NormalizeEmail(email)
	row := r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT `+studentColumns+` FROM students WHERE email = ?`),
		email,
	)
	s, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewStudentNotFound(email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student by email: %w", err)
	}
	return s, nil
}

// ExistsByEmail checks if a student with the given email exists.
func (r *SQLRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT EXISTS(SELECT 1 FROM students WHERE email = ?)`),
		students.NormalizeEmail(email),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// List returns students matching the filter.
func (r *SQLRepository) List(ctx context.Context, filter students.Filter) ([]*students.Student, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.PassoutYear != 0 {
		where = append(where, "passout_year = ?")
		args = append(args, filter.PassoutYear)
	}
	if filter.Branch != "" {
		where = append(where, "LOWER(branch) = ?")
		args = append(args, strings.ToLower(filter.Branch))
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(college) LIKE ? OR LOWER(branch) LIKE ?)")
		args = append(args, pattern, pattern, pattern, pattern)
	}

	query := `SELECT ` + studentColumns + ` FROM students`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, filter.EffectiveLimit())

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	result := make([]*students.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating students: %w", err)
	}
	return result, nil
}

// CheckConnectivity verifies database connectivity.
func (r *SQLRepository) CheckConnectivity(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return errors.NewDatabaseUnavailable(err.Error())
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row rowScanner) (*students.Student, error) {
	var s students.Student
	err := row.Scan(
		&s.ID, &s.Name, &s.Email, &s.PasswordHash, &s.Mobile,
		&s.College, &s.PassoutYear, &s.Branch, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
