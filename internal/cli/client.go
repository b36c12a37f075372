package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/student-auth/studentauth/internal/errors"
	"github.com/student-auth/studentauth/internal/observability"
	"github.com/student-auth/studentauth/internal/students"
	"github.com/student-auth/studentauth/pkg/api"
	"github.com/student-auth/studentauth/pkg/models"
)

// Client is the HTTP client for a running studentauth server. Commands that
// read server state go through it rather than opening the database.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for endpoint. token is sent as a bearer
// credential when non-empty.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Endpoint returns the configured server endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Health calls the liveness endpoint.
func (c *Client) Health(ctx context.Context) (*models.HealthInfo, error) {
	var info models.HealthInfo
	if err := c.get(ctx, api.EndpointHealth, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Ready calls the readiness endpoint. A not-ready server is reported in the
// result, not as an error.
func (c *Client) Ready(ctx context.Context) (*models.HealthInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, api.EndpointReady, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, c.parseErrorResponse(resp)
	}
	var info models.HealthInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &info, nil
}

// ListStudents calls the admin student listing.
func (c *Client) ListStudents(ctx context.Context, filter students.Filter) (*models.StudentList, error) {
	q := url.Values{}
	if filter.PassoutYear != 0 {
		q.Set(api.ParamPassoutYear, strconv.Itoa(filter.PassoutYear))
	}
	if filter.Branch != "" {
		q.Set(api.ParamBranch, filter.Branch)
	}
	if filter.Search != "" {
		q.Set(api.ParamSearch, filter.Search)
	}
	if filter.Limit != 0 {
		q.Set(api.ParamLimit, strconv.Itoa(filter.Limit))
	}
	path := api.EndpointStudents
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list models.StudentList
	if err := c.get(ctx, path, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// AuditSummary calls the admin audit summary.
func (c *Client) AuditSummary(ctx context.Context) (*observability.AuditSummary, error) {
	var summary observability.AuditSummary
	if err := c.get(ctx, api.EndpointAuditSummary, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Validate asks the server to check a mobile number and passout year.
func (c *Client) Validate(ctx context.Context, mobile, passoutYear string) (*models.ValidateResponse, error) {
	body, err := json.Marshal(map[string]string{"mobile": mobile, "passout_year": passoutYear})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, api.EndpointValidate, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}
	var result models.ValidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if c.endpoint == "" {
		return nil, errors.NewServerUnavailable("", "no server endpoint configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(api.HeaderContentType, api.ContentTypeJSON)
	if c.token != "" {
		req.Header.Set(api.HeaderAuthorization, "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewServerUnavailable(c.endpoint, err.Error())
	}
	return resp, nil
}

// parseErrorResponse turns an error body back into an AppError so the CLI
// exits with the same code the server's status implies.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp models.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &errors.AppError{
			Code:    codeForStatus(resp.StatusCode),
			Message: fmt.Sprintf("server error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return &errors.AppError{
		Code:       codeForStatus(resp.StatusCode),
		Message:    errResp.Error,
		Reason:     errResp.Reason,
		Suggestion: errResp.Suggestion,
	}
}

func codeForStatus(status int) errors.ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return errors.CodeValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CodeAuth
	case http.StatusConflict:
		return errors.CodeConflict
	case http.StatusNotFound:
		return errors.CodeNotFound
	default:
		return errors.CodeInternal
	}
}
