package accounts

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
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

type fixture struct {
	svc   *Service
	repo  *storage.MockRepository
	audit *observability.ZapEventLogger
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	sessions, err := session.NewManager("test-secret", time.Hour, session.NewMemoryRevoker())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	repo := storage.NewMockRepository()
	audit := observability.NewZapEventLogger(zap.NewNop())
	return fixture{
		svc:   NewService(repo, sessions, audit, nil, WithHashCost(bcrypt.MinCost)),
		repo:  repo,
		audit: audit,
	}
}

func validRequest() models.RegisterRequest {
	return models.RegisterRequest{
		Name:        "Asha Rao",
		Email:       "Asha@Example.com",
		Password:    "correct-horse",
		Mobile:      "9876543210",
		College:     "Govt College of Engineering",
		PassoutYear: "2025",
		Branch:      "CSE",
	}
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.svc.Register(ctx, validRequest())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if s.ID == 0 || s.Email != "asha@example.com" || s.PassoutYear != 2025 {
		t.Errorf("unexpected student: %+v", s)
	}
	if bcrypt.CompareHashAndPassword(s.PasswordHash, []byte("correct-horse")) != nil {
		t.Error("password hash does not match the password")
	}

	stored, err := f.repo.GetByEmail(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("student not stored: %v", err)
	}
	if string(stored.PasswordHash) == "correct-horse" {
		t.Error("password stored in plain text")
	}
}

func TestRegister_FormRulesRunFirst(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*models.RegisterRequest)
		wantField string
		wantMsg   string
	}{
		{
			name:      "short mobile",
			mutate:    func(r *models.RegisterRequest) { r.Mobile = "98765" },
			wantField: validation.FieldMobile,
			wantMsg:   validation.MsgInvalidMobile,
		},
		{
			name: "bad mobile reported before bad year and empty name",
			mutate: func(r *models.RegisterRequest) {
				r.Mobile = "98765abcde"
				r.PassoutYear = "1999"
				r.Name = ""
			},
			wantField: validation.FieldMobile,
			wantMsg:   validation.MsgInvalidMobile,
		},
		{
			name:      "year below range",
			mutate:    func(r *models.RegisterRequest) { r.PassoutYear = "1999" },
			wantField: validation.FieldPassoutYear,
			wantMsg:   validation.MsgInvalidPassoutYear,
		},
		{
			name:      "year above range",
			mutate:    func(r *models.RegisterRequest) { r.PassoutYear = "2029" },
			wantField: validation.FieldPassoutYear,
			wantMsg:   validation.MsgInvalidPassoutYear,
		},
		{
			name:      "year not a number",
			mutate:    func(r *models.RegisterRequest) { r.PassoutYear = "twenty" },
			wantField: validation.FieldPassoutYear,
			wantMsg:   validation.MsgInvalidPassoutYear,
		},
		{
			name:      "year checked before other fields",
			mutate:    func(r *models.RegisterRequest) { r.PassoutYear = ""; r.Email = "not-an-email" },
			wantField: validation.FieldPassoutYear,
			wantMsg:   validation.MsgInvalidPassoutYear,
		},
		{
			name:      "bad email after form rules pass",
			mutate:    func(r *models.RegisterRequest) { r.Email = "not-an-email" },
			wantField: "email",
			wantMsg:   "Enter a valid email address!",
		},
		{
			name:      "short password",
			mutate:    func(r *models.RegisterRequest) { r.Password = "short" },
			wantField: "password",
		},
		{
			name:      "multi-byte password over 72 bytes",
			mutate:    func(r *models.RegisterRequest) { r.Password = strings.Repeat("é", 40) },
			wantField: "password",
			wantMsg:   "password must be at most 72 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validRequest()
			tt.mutate(&req)

			_, err := f.svc.Register(context.Background(), req)
			var fieldErr *errors.ErrFieldInvalid
			if !stderrors.As(err, &fieldErr) {
				t.Fatalf("expected ErrFieldInvalid, got %v", err)
			}
			if fieldErr.Field != tt.wantField {
				t.Errorf("field = %s, want %s", fieldErr.Field, tt.wantField)
			}
			if tt.wantMsg != "" && fieldErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", fieldErr.Message, tt.wantMsg)
			}

			all, _ := f.repo.List(context.Background(), students.Filter{})
			if len(all) != 0 {
				t.Error("rejected registration must not be stored")
			}
		})
	}
}

func TestRegister_PasswordByteLimit(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.Password = strings.Repeat("é", 36) // exactly 72 bytes
	if _, err := f.svc.Register(context.Background(), req); err != nil {
		t.Fatalf("72-byte password: %v", err)
	}

	req = validRequest()
	req.Email = "other@example.com"
	req.Password = strings.Repeat("é", 37)
	_, err := f.svc.Register(context.Background(), req)
	if got := errors.HTTPStatus(err); got != 400 {
		t.Fatalf("HTTPStatus = %d, want 400 (err %v)", got, err)
	}
}

func TestRegister_BoundaryYears(t *testing.T) {
	f := newFixture(t)
	for i, year := range []validation.YearInput{"2000", "2028"} {
		req := validRequest()
		req.Email = strings.Replace(req.Email, "Asha", "asha"+string(rune('a'+i)), 1)
		req.PassoutYear = year
		if _, err := f.svc.Register(context.Background(), req); err != nil {
			t.Errorf("year %s: %v", year, err)
		}
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, validRequest()); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	req := validRequest()
	req.Email = "ASHA@example.COM"
	_, err := f.svc.Register(ctx, req)

	var taken *errors.ErrEmailTaken
	if !stderrors.As(err, &taken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if taken.Message != "Email already registered!" {
		t.Errorf("unexpected message %q", taken.Message)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, validRequest()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tok, s, err := f.svc.Login(ctx, "asha@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.Value == "" || s.Email != "asha@example.com" {
		t.Errorf("unexpected login result: %+v %+v", tok, s)
	}

	for _, tc := range []struct{ email, password string }{
		{"asha@example.com", "wrong-password"},
		{"nobody@example.com", "correct-horse"},
		{"", "correct-horse"},
		{"asha@example.com", ""},
	} {
		_, _, err := f.svc.Login(ctx, tc.email, tc.password)
		var authErr *errors.ErrAuthFailed
		if !stderrors.As(err, &authErr) {
			t.Fatalf("Login(%q, %q): expected ErrAuthFailed, got %v", tc.email, tc.password, err)
		}
		if authErr.Message != "Invalid credentials" {
			t.Errorf("Login(%q, %q): message %q", tc.email, tc.password, authErr.Message)
		}
	}
}

func TestCurrentAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered, err := f.svc.Register(ctx, validRequest())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	tok, _, err := f.svc.Login(ctx, "asha@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	current, err := f.svc.Current(ctx, tok.Value)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.ID != registered.ID {
		t.Errorf("Current returned id %d, want %d", current.ID, registered.ID)
	}

	if err := f.svc.Logout(ctx, tok.Value); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	var authErr *errors.ErrAuthFailed
	if _, err := f.svc.Current(ctx, tok.Value); !stderrors.As(err, &authErr) {
		t.Errorf("Current after logout: expected ErrAuthFailed, got %v", err)
	}
}

func TestValidate_RecordsAudit(t *testing.T) {
	f := newFixture(t)
	ctx := observability.ContextWithRequestID(context.Background(), "req-1")

	if r := f.svc.Validate(ctx, "9876543210", "2025"); !r.OK {
		t.Errorf("expected valid, got %+v", r)
	}
	r := f.svc.Validate(ctx, "12345", "2025")
	if r.OK || r.Field != validation.FieldMobile || r.Message != validation.MsgInvalidMobile {
		t.Errorf("unexpected result %+v", r)
	}

	summary, err := f.svc.AuditSummary(ctx)
	if err != nil {
		t.Fatalf("AuditSummary: %v", err)
	}
	if summary.AcceptedCount != 1 || summary.RejectedCount != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if len(summary.TopRejectionReasons) != 1 || summary.TopRejectionReasons[0].Reason != validation.MsgInvalidMobile {
		t.Errorf("unexpected reasons %+v", summary.TopRejectionReasons)
	}
}

func TestRegister_StoreFailureIsAnError(t *testing.T) {
	f := newFixture(t)
	f.repo.SimulatePersistenceFailure(true)

	_, err := f.svc.Register(context.Background(), validRequest())
	var unavailable *errors.ErrDatabaseUnavailable
	if !stderrors.As(err, &unavailable) {
		t.Fatalf("expected ErrDatabaseUnavailable, got %v", err)
	}

	summary, _ := f.svc.AuditSummary(context.Background())
	if summary.ErrorCount != 1 {
		t.Errorf("expected one error event, got %+v", summary)
	}
}
