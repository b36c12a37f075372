package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/student-auth/studentauth/internal/accounts"
	"github.com/student-auth/studentauth/internal/auth"
	"github.com/student-auth/studentauth/internal/observability"
	"github.com/student-auth/studentauth/internal/session"
	"github.com/student-auth/studentauth/internal/storage"
	"github.com/student-auth/studentauth/internal/validation"
	"github.com/student-auth/studentauth/pkg/api"
	"github.com/student-auth/studentauth/pkg/models"
)

const testAdminToken = "test-admin-token"

type testServer struct {
	*Server
	repo *storage.MockRepository
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	sessions, err := session.NewManager("test-secret", time.Hour, session.NewMemoryRevoker())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	repo := storage.NewMockRepository()
	svc := accounts.NewService(repo, sessions, observability.NewZapEventLogger(zap.NewNop()), nil,
		accounts.WithHashCost(bcrypt.MinCost))

	admin := auth.NewStaticTokenAuthenticator()
	admin.RegisterToken(testAdminToken, &auth.Principal{ID: "ops", Roles: []string{auth.RoleAdmin}})

	srv, err := New(svc, admin, nil, nil, Config{Version: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return testServer{Server: srv, repo: repo}
}

func (ts testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(api.HeaderContentType, api.ContentTypeJSON)
	if token != "" {
		req.Header.Set(api.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

const registerBody = `{
	"name": "Asha Rao",
	"email": "asha@example.com",
	"password": "correct-horse",
	"mobile": "9876543210",
	"college": "Govt College of Engineering",
	"passout_year": 2025,
	"branch": "CSE"
}`

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(nil, auth.NewStaticTokenAuthenticator(), nil, nil, Config{}); err == nil {
		t.Error("expected error without accounts service")
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, api.EndpointHealth, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	var health models.HealthInfo
	decodeBody(t, rec, &health)
	if health.Status != "healthy" || health.Version != "test" {
		t.Errorf("unexpected health %+v", health)
	}
	if rec.Header().Get(api.HeaderRequestID) == "" {
		t.Error("expected a request id header")
	}

	rec = ts.do(t, http.MethodGet, api.EndpointReady, "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("readyz: expected 200, got %d", rec.Code)
	}

	ts.repo.SimulateConnectivityFailure(true)
	rec = ts.do(t, http.MethodGet, api.EndpointReady, "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing store: expected 503, got %d", rec.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name      string
		body      string
		wantOK    bool
		wantField string
		wantMsg   string
	}{
		{"valid numeric year", `{"mobile":"9876543210","passout_year":2024}`, true, "", ""},
		{"valid string year", `{"mobile":"9876543210","passout_year":"2028"}`, true, "", ""},
		{"short mobile", `{"mobile":"98765","passout_year":2024}`, false, validation.FieldMobile, validation.MsgInvalidMobile},
		{"both invalid", `{"mobile":"abc","passout_year":1999}`, false, validation.FieldMobile, validation.MsgInvalidMobile},
		{"year too late", `{"mobile":"9876543210","passout_year":2029}`, false, validation.FieldPassoutYear, validation.MsgInvalidPassoutYear},
		{"year missing", `{"mobile":"9876543210"}`, false, validation.FieldPassoutYear, validation.MsgInvalidPassoutYear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, api.EndpointValidate, "", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var got models.ValidateResponse
			decodeBody(t, rec, &got)
			if got.OK != tt.wantOK || got.Field != tt.wantField || got.Message != tt.wantMsg {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestRegisterLoginMeLogout(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, api.EndpointRegister, "", registerBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]interface{}
	decodeBody(t, rec, &created)
	if _, leaked := created["password_hash"]; leaked {
		t.Error("response must not include the password hash")
	}
	if created["email"] != "asha@example.com" {
		t.Errorf("unexpected student %v", created)
	}

	rec = ts.do(t, http.MethodPost, api.EndpointRegister, "", registerBody)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", rec.Code)
	}
	var conflict models.ErrorResponse
	decodeBody(t, rec, &conflict)
	if conflict.Error != "Email already registered!" {
		t.Errorf("unexpected error %+v", conflict)
	}

	rec = ts.do(t, http.MethodPost, api.EndpointLogin, "", models.LoginRequest{Email: "asha@example.com", Password: "wrong-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login: expected 401, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, api.EndpointLogin, "", models.LoginRequest{Email: "asha@example.com", Password: "correct-horse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var login models.LoginResponse
	decodeBody(t, rec, &login)
	if login.Token == "" || login.Student.Email != "asha@example.com" {
		t.Fatalf("unexpected login response %+v", login)
	}

	rec = ts.do(t, http.MethodGet, api.EndpointMe, login.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	var me models.StudentInfo
	decodeBody(t, rec, &me)
	if me.ID != login.Student.ID {
		t.Errorf("me returned %d, want %d", me.ID, login.Student.ID)
	}

	rec = ts.do(t, http.MethodPost, api.EndpointLogout, login.Token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, api.EndpointMe, login.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: expected 401, got %d", rec.Code)
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"bad mobile", `{"name":"A","email":"a@example.com","password":"correct-horse","mobile":"12","college":"C","passout_year":2025,"branch":"CSE"}`, validation.FieldMobile},
		{"bad year", `{"name":"A","email":"a@example.com","password":"correct-horse","mobile":"9876543210","college":"C","passout_year":"1999","branch":"CSE"}`, validation.FieldPassoutYear},
		{"missing college", `{"name":"A","email":"a@example.com","password":"correct-horse","mobile":"9876543210","passout_year":2025,"branch":"CSE"}`, "college"},
		{"unknown field", `{"name":"A","nickname":"x"}`, "body"},
		{"empty body", ``, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, api.EndpointRegister, "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			var body models.ErrorResponse
			decodeBody(t, rec, &body)
			if body.Field != tt.wantField {
				t.Errorf("field = %q, want %q (%+v)", body.Field, tt.wantField, body)
			}
		})
	}
}

func TestSessionRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path, token string }{
		{http.MethodGet, api.EndpointMe, ""},
		{http.MethodPost, api.EndpointLogout, ""},
		{http.MethodGet, api.EndpointMe, "not-a-jwt"},
	} {
		rec := ts.do(t, tc.method, tc.path, tc.token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with token %q: expected 401, got %d", tc.method, tc.path, tc.token, rec.Code)
		}
	}
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, http.MethodPost, api.EndpointRegister, "", registerBody); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}

	if rec := ts.do(t, http.MethodGet, api.EndpointStudents, "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("students without token: expected 401, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, api.EndpointStudents, "wrong", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("students with wrong token: expected 401, got %d", rec.Code)
	}

	rec := ts.do(t, http.MethodGet, api.EndpointStudents+"?passout_year=2025&branch=cse", testAdminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("students: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var list models.StudentList
	decodeBody(t, rec, &list)
	if list.Count != 1 || list.Students[0].Email != "asha@example.com" {
		t.Errorf("unexpected list %+v", list)
	}

	rec = ts.do(t, http.MethodGet, api.EndpointStudents+"?passout_year=2024", testAdminToken, nil)
	decodeBody(t, rec, &list)
	if list.Count != 0 {
		t.Errorf("expected no students for 2024, got %d", list.Count)
	}

	if rec := ts.do(t, http.MethodGet, api.EndpointStudents+"?passout_year=soon", testAdminToken, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter: expected 400, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, api.EndpointAuditSummary, testAdminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit summary: expected 200, got %d", rec.Code)
	}
	var summary observability.AuditSummary
	decodeBody(t, rec, &summary)
	if summary.AcceptedCount != 1 {
		t.Errorf("expected one accepted registration, got %+v", summary)
	}
}

func TestScoreEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, api.EndpointScore, "", `{
		"correct": true,
		"inferred_complexity": "O(n)",
		"expected_complexity": "O(n)",
		"const_c": 1,
		"mem_limit_mb": 256
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("score: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var b models.ScoreResponse
	decodeBody(t, rec, &b)
	if b.Score < 99.999 || b.Score > 100.001 {
		t.Errorf("expected score 100, got %v", b.Score)
	}

	rec = ts.do(t, http.MethodPost, api.EndpointScore, "", `{"correct":true,"inferred_complexity":"O(n)","expected_complexity":"O(n^4)"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown complexity: expected 400, got %d", rec.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, api.EndpointHealth, nil)
	req.Header.Set(api.HeaderRequestID, "caller-id")
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	if got := rec.Header().Get(api.HeaderRequestID); got != "caller-id" {
		t.Errorf("request id = %q, want caller-id", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, http.MethodGet, "/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, api.EndpointRegister, "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
