package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/student-auth/studentauth/internal/errors"
	"github.com/student-auth/studentauth/internal/observability"
	"github.com/student-auth/studentauth/internal/scoring"
	"github.com/student-auth/studentauth/internal/students"
	"github.com/student-auth/studentauth/pkg/api"
	"github.com/student-auth/studentauth/pkg/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthInfo{Status: "healthy", Version: s.config.Version})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	report := s.checker.Check(r.Context())
	info := models.HealthInfo{Status: "ready", Version: s.config.Version, Components: report.Messages()}
	code := http.StatusOK
	if !report.Ready {
		info.Status = "not ready"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, info)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.accounts.Validate(r.Context(), req.Mobile, string(req.PassoutYear)))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	student, err := s.accounts.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, student.Info())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tok, student, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:     tok.Value,
		ExpiresAt: tok.ExpiresAt,
		Student:   student.Info(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Logout(r.Context(), sessionToken(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	student, err := s.accounts.Current(r.Context(), sessionToken(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student.Info())
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req models.ScoreRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	breakdown, err := scoring.FinalScore(req)
	if err != nil {
		s.writeError(w, r, errors.NewFieldInvalid("submission", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, models.ScoreResponse(breakdown))
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.accounts.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := models.StudentList{Students: make([]models.StudentInfo, 0, len(list)), Count: len(list)}
	for _, st := range list {
		resp.Students = append(resp.Students, st.Info())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAuditSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.accounts.AuditSummary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func parseFilter(r *http.Request) (students.Filter, error) {
	q := r.URL.Query()
	filter := students.Filter{
		Branch: q.Get(api.ParamBranch),
		Search: q.Get(api.ParamSearch),
	}
	if v := q.Get(api.ParamPassoutYear); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return filter, errors.NewFieldInvalid(api.ParamPassoutYear, "passout_year must be a number")
		}
		filter.PassoutYear = year
	}
	if v := q.Get(api.ParamLimit); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, errors.NewFieldInvalid(api.ParamLimit, "limit must be a non-negative number")
		}
		filter.Limit = limit
	}
	return filter, nil
}

// decode reads a single JSON object from the request body.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return errors.NewFieldInvalid("body", "request body is required")
		}
		return errors.NewFieldInvalid("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	if dec.More() {
		return errors.NewFieldInvalid("body", "request body must hold a single JSON object")
	}
	return nil
}

// writeError maps err to its HTTP status and writes the JSON error body.
// Internal errors are logged and their details withheld.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.HTTPStatus(err)
	appErr, ok := errors.From(err)
	if !ok || code == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("request_id", observability.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error", "", ""))
			return
		}
	}

	body := errorBody(appErr.Message, appErr.Reason, appErr.Suggestion)
	var fieldErr *errors.ErrFieldInvalid
	if stderrors.As(err, &fieldErr) {
		body.Field = fieldErr.Field
	}
	writeJSON(w, code, body)
}

func errorBody(msg, reason, suggestion string) models.ErrorResponse {
	return models.ErrorResponse{Error: msg, Reason: reason, Suggestion: suggestion}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set(api.HeaderContentType, api.ContentTypeJSON)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
