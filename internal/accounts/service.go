// Package accounts implements student registration, login and the admin
// listing on top of the student repository and the session manager.
package accounts

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/student-auth/studentauth/internal/errors"
	"github.com/student-auth/studentauth/internal/observability"
	"github.com/student-auth/studentauth/internal/session"
	"github.com/student-auth/studentauth/internal/storage"
	"github.com/student-auth/studentauth/internal/students"
	"github.com/student-auth/studentauth/internal/validation"
	"github.com/student-auth/studentauth/pkg/models"
)

// Service coordinates the student store, sessions and audit log.
type Service struct {
	repo     storage.StudentRepository
	sessions *session.Manager
	audit    observability.EventLogger
	log      *zap.Logger
	hashCost int

	// dummyHash is compared against when the email is unknown so both
	// login failures take about the same time.
	dummyHash []byte
}

// Option configures a Service.
type Option func(*Service)

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// NewService creates an accounts service. audit and log may be nil.
func NewService(repo storage.StudentRepository, sessions *session.Manager, audit observability.EventLogger, log *zap.Logger, opts ...Option) *Service {
	if audit == nil {
		audit = observability.NewNoopEventLogger()
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		repo:     repo,
		sessions: sessions,
		audit:    audit,
		log:      log.Named("accounts"),
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("studentauth-dummy-password"), s.hashCost)
	return s
}

// Validate applies the form rules to a mobile number and passout year and
// records the outcome.
func (s *Service) Validate(ctx context.Context, mobile, passoutYear string) validation.Result {
	start := time.Now()
	result := validation.Check(mobile, passoutYear)
	entry := observability.EventLogEntry{Action: observability.ActionValidate, Outcome: observability.OutcomeAccepted}
	if !result.OK {
		entry.Outcome = observability.OutcomeRejected
		entry.Field = result.Field
		entry.Error = result.Message
	}
	s.record(ctx, entry, start)
	return result
}

// Register creates a student account. The mobile number and passout year
// are checked first, then the remaining fields, then email uniqueness.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*students.Student, error) {
	start := time.Now()
	student, err := s.register(ctx, req)
	s.recordResult(ctx, observability.ActionRegister, students.NormalizeEmail(req.Email), start, err)
	return student, err
}

func (s *Service) register(ctx context.Context, req models.RegisterRequest) (*students.Student, error) {
	if r := validation.Check(req.Mobile, string(req.PassoutYear)); !r.OK {
		return nil, errors.NewFieldInvalid(r.Field, r.Message)
	}
	if err := validation.Fields(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewEmailTaken(students.NormalizeEmail(req.Email))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if stderrors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, errors.NewFieldInvalid("password", "password must be at most 72 bytes")
	}
	if err != nil {
		return nil, err
	}

	// Check accepted the year, so Int cannot fail here.
	year, _ := req.PassoutYear.Int()
	student := &students.Student{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Mobile:       req.Mobile,
		College:      strings.TrimSpace(req.College),
		PassoutYear:  year,
		Branch:       strings.TrimSpace(req.Branch),
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, err
	}

	s.log.Info("student registered",
		zap.Int64("student_id", student.ID),
		zap.Int("passout_year", student.PassoutYear),
	)
	return student, nil
}

// Login checks the credentials and issues a session token. An unknown
// email and a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (session.Token, *students.Student, error) {
	start := time.Now()
	tok, student, err := s.login(ctx, email, password)
	s.recordResult(ctx, observability.ActionLogin, students.NormalizeEmail(email), start, err)
	return tok, student, err
}

func (s *Service) login(ctx context.Context, email, password string) (session.Token, *students.Student, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return session.Token{}, nil, errors.NewInvalidCredentials()
	}

	student, err := s.repo.GetByEmail(ctx, email)
	var notFound *errors.ErrStudentNotFound
	if stderrors.As(err, &notFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return session.Token{}, nil, errors.NewInvalidCredentials()
	}
	if err != nil {
		return session.Token{}, nil, err
	}

	if err := bcrypt.CompareHashAndPassword(student.PasswordHash, []byte(password)); err != nil {
		return session.Token{}, nil, errors.NewInvalidCredentials()
	}

	tok, err := s.sessions.Issue(student.ID)
	if err != nil {
		return session.Token{}, nil, err
	}
	return tok, student, nil
}

// Logout revokes the session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	start := time.Now()
	err := s.sessions.Revoke(ctx, token)
	s.recordResult(ctx, observability.ActionLogout, "", start, err)
	return err
}

// Current returns the student the session token belongs to.
func (s *Service) Current(ctx context.Context, token string) (*students.Student, error) {
	claims, err := s.sessions.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	id, err := claims.StudentID()
	if err != nil {
		return nil, errors.NewAuthFailed("invalid session subject")
	}

	student, err := s.repo.Get(ctx, id)
	var notFound *errors.ErrStudentNotFound
	if stderrors.As(err, &notFound) {
		return nil, errors.NewAuthFailed("session refers to an unknown student")
	}
	return student, err
}

// List returns registered students matching the filter.
func (s *Service) List(ctx context.Context, filter students.Filter) ([]*students.Student, error) {
	return s.repo.List(ctx, filter)
}

// AuditSummary returns the aggregated audit statistics.
func (s *Service) AuditSummary(ctx context.Context) (*observability.AuditSummary, error) {
	return s.audit.GetAuditSummary(ctx)
}

// CheckConnectivity reports whether the student store is reachable.
func (s *Service) CheckConnectivity(ctx context.Context) error {
	return s.repo.CheckConnectivity(ctx)
}

// recordResult maps err to an audit outcome and records it.
func (s *Service) recordResult(ctx context.Context, action, subject string, start time.Time, err error) {
	entry := observability.EventLogEntry{
		Action:  action,
		Subject: subject,
		Outcome: observability.OutcomeAccepted,
	}
	if err != nil {
		entry.Outcome = observability.OutcomeError
		entry.Error = err.Error()
		if appErr, ok := errors.From(err); ok {
			entry.Error = appErr.Message
			switch appErr.Code {
			case errors.CodeValidation, errors.CodeAuth, errors.CodeConflict:
				entry.Outcome = observability.OutcomeRejected
			}
		}
		var fieldErr *errors.ErrFieldInvalid
		if stderrors.As(err, &fieldErr) {
			entry.Field = fieldErr.Field
		}
	}
	s.record(ctx, entry, start)
}

// record writes the audit entry. Audit failures are logged and never fail
// the request.
func (s *Service) record(ctx context.Context, entry observability.EventLogEntry, start time.Time) {
	entry.RequestID = observability.RequestIDFromContext(ctx)
	entry.Duration = time.Since(start)
	if err := s.audit.LogEvent(ctx, entry); err != nil {
		s.log.Warn("failed to record audit event",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
