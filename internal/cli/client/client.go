// Package client implements the HTTP client for the Davomat API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AuthCheckTimeout bounds the persisted-token validation call. Startup must
// not hang on a slow server, so the check fails closed after this long.
const AuthCheckTimeout = 10 * time.Second

// APIError is a non-2xx response from the server. Detail carries the
// user-facing message from the response body.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// Client represents an HTTP client for the Davomat API
type Client struct {
	baseURL    string
	httpClient *http.Client

	// At most one credential is set; the server honors them in this order
	initData string
	token    string
	devMode  bool
}

// New creates a new API client. Server URLs without a scheme get https.
func New(serverURL string) *Client {
	baseURL := strings.TrimRight(serverURL, "/")
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SetInitData makes requests authenticate with Telegram Mini App init data
func (c *Client) SetInitData(initData string) {
	c.initData = initData
}

// SetBearerToken makes requests authenticate with a login token
func (c *Client) SetBearerToken(token string) {
	c.token = token
}

// SetDevMode makes requests carry the dev-mode marker. The server ignores it
// unless it runs with DEV_MODE=true.
func (c *Client) SetDevMode(enabled bool) {
	c.devMode = enabled
}

// do sends one API request and decodes the response into out (when non-nil).
// Non-2xx responses become an *APIError carrying the body's detail message.
func (c *Client) do(ctx context.Context, method, path string, reqBody, out interface{}) error {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	switch {
	case c.initData != "":
		req.Header.Set("X-Telegram-Init-Data", c.initData)
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.devMode:
		req.Header.Set("X-Dev-Mode", "true")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Detail string `json:"detail"`
		}
		raw, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(raw, &errBody)
		return &APIError{StatusCode: resp.StatusCode, Detail: errBody.Detail}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// User is an employee account as returned by the API
type User struct {
	ID         string `json:"id"`
	TelegramID *int64 `json:"telegram_id,omitempty"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name,omitempty"`
	Status     string `json:"status"`
	IsAdmin    bool   `json:"is_admin"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Login authenticates with username and password and returns a JWT token
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register requests a new browser account and returns the server's
// confirmation message
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username}
	if password != "" {
		body["password"] = password
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// AuthCheckResponse reports whether a persisted token is still usable
type AuthCheckResponse struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}

// AuthCheck validates the client's bearer token against the server. The call
// is bounded by AuthCheckTimeout regardless of the parent context.
func (c *Client) AuthCheck(ctx context.Context) (*AuthCheckResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, AuthCheckTimeout)
	defer cancel()

	var resp AuthCheckResponse
	if err := c.do(ctx, http.MethodGet, "/auth/check", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentUser returns the authenticated user's profile
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// IsAdmin reports whether the authenticated user is an admin
func (c *Client) IsAdmin(ctx context.Context) (bool, error) {
	var resp struct {
		IsAdmin bool `json:"is_admin"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/is-admin", nil, &resp); err != nil {
		return false, err
	}
	return resp.IsAdmin, nil
}

// WorkSession is one day's attendance record
type WorkSession struct {
	ID                 string  `json:"id"`
	Date               string  `json:"date"`
	StartTime          string  `json:"start_time"`
	EndTime            *string `json:"end_time"`
	Status             string  `json:"status"`
	TotalOnlineMinutes int     `json:"total_online_minutes"`
	TotalOfficeMinutes int     `json:"total_office_minutes"`
	LateArrivalMinutes int     `json:"late_arrival_minutes"`
	EarlyLeaveMinutes  int     `json:"early_leave_minutes"`
}

// StartSession starts (or reopens) today's work session
func (c *Client) StartSession(ctx context.Context) (*WorkSession, error) {
	var session WorkSession
	if err := c.do(ctx, http.MethodPost, "/sessions/start", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// EndSession ends today's work session
func (c *Client) EndSession(ctx context.Context) (*WorkSession, error) {
	var session WorkSession
	if err := c.do(ctx, http.MethodPost, "/sessions/end", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// TodaySession returns today's session, or nil if none has been started
func (c *Client) TodaySession(ctx context.Context) (*WorkSession, error) {
	var resp struct {
		Session *WorkSession `json:"session"`
	}
	if err := c.do(ctx, http.MethodGet, "/sessions/today", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Session, nil
}

// SessionHistory returns the user's sessions in a date range
func (c *Client) SessionHistory(ctx context.Context, startDate, endDate string) ([]WorkSession, error) {
	var sessions []WorkSession
	err := c.do(ctx, http.MethodPost, "/sessions/history", map[string]string{
		"start_date": startDate,
		"end_date":   endDate,
	}, &sessions)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// ShouldTrack reports whether clients should currently sample location
func (c *Client) ShouldTrack(ctx context.Context) (bool, error) {
	var resp struct {
		ShouldTrack bool `json:"should_track"`
	}
	if err := c.do(ctx, http.MethodGet, "/sessions/should-track", nil, &resp); err != nil {
		return false, err
	}
	return resp.ShouldTrack, nil
}

// RecordLocationResult is the outcome of a location sample. Recorded is
// false when the server skipped the sample (outside work hours).
type RecordLocationResult struct {
	Recorded       *bool  `json:"recorded"`
	Message        string `json:"message"`
	IsInsideOffice bool   `json:"is_inside_office"`
}

// WasRecorded reports whether the sample was stored
func (r *RecordLocationResult) WasRecorded() bool {
	return r.Recorded == nil || *r.Recorded
}

// RecordLocation submits one geolocation sample for today's session
func (c *Client) RecordLocation(ctx context.Context, latitude, longitude float64) (*RecordLocationResult, error) {
	var result RecordLocationResult
	err := c.do(ctx, http.MethodPost, "/locations/record", map[string]float64{
		"latitude":  latitude,
		"longitude": longitude,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Report is a daily work report
type Report struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Date        string `json:"date"`
	Content     string `json:"content"`
	SubmittedAt string `json:"submitted_at"`
}

// SubmitReport submits (or overwrites) the daily report. An empty date means
// today.
func (c *Client) SubmitReport(ctx context.Context, content, date string) (*Report, error) {
	body := map[string]string{"content": content}
	if date != "" {
		body["date"] = date
	}

	var report Report
	if err := c.do(ctx, http.MethodPost, "/reports/submit", body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// TodayReport returns today's report and whether one has been submitted
func (c *Client) TodayReport(ctx context.Context) (*Report, bool, error) {
	var resp struct {
		Report    *Report `json:"report"`
		Submitted bool    `json:"submitted"`
	}
	if err := c.do(ctx, http.MethodGet, "/reports/today", nil, &resp); err != nil {
		return nil, false, err
	}
	return resp.Report, resp.Submitted, nil
}

// ReportStatus reports whether today's report has been submitted
func (c *Client) ReportStatus(ctx context.Context) (bool, error) {
	var resp struct {
		Submitted bool `json:"submitted"`
	}
	if err := c.do(ctx, http.MethodGet, "/reports/status", nil, &resp); err != nil {
		return false, err
	}
	return resp.Submitted, nil
}

// ReportHistory returns the user's reports, newest first
func (c *Client) ReportHistory(ctx context.Context) ([]Report, error) {
	var history []Report
	if err := c.do(ctx, http.MethodGet, "/reports/history", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// AllReports returns every user's report for a date (admin only)
func (c *Client) AllReports(ctx context.Context, date string) ([]Report, error) {
	var all []Report
	if err := c.do(ctx, http.MethodGet, "/reports/all/"+date, nil, &all); err != nil {
		return nil, err
	}
	return all, nil
}

// Summary is aggregated attendance over a date range
type Summary struct {
	UserID                 string  `json:"user_id"`
	StartDate              string  `json:"start_date"`
	EndDate                string  `json:"end_date"`
	TotalDays              int     `json:"total_days"`
	TotalOnlineMinutes     int     `json:"total_online_minutes"`
	TotalOfficeMinutes     int     `json:"total_office_minutes"`
	TotalLateMinutes       int     `json:"total_late_minutes"`
	TotalEarlyLeaveMinutes int     `json:"total_early_leave_minutes"`
	AverageOnlineMinutes   float64 `json:"average_online_minutes"`
	AttendanceRate         float64 `json:"attendance_rate"`
}

// UserSummary pairs a user with their statistics (admin listing)
type UserSummary struct {
	User       User    `json:"user"`
	Statistics Summary `json:"statistics"`
}

// MyStatistics returns the user's own statistics over a date range
func (c *Client) MyStatistics(ctx context.Context, startDate, endDate string) (*Summary, error) {
	var summary Summary
	err := c.do(ctx, http.MethodPost, "/statistics/me", map[string]string{
		"start_date": startDate,
		"end_date":   endDate,
	}, &summary)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// AllStatistics returns per-user statistics over a range (admin only)
func (c *Client) AllStatistics(ctx context.Context, startDate, endDate string) ([]UserSummary, error) {
	var summaries []UserSummary
	err := c.do(ctx, http.MethodPost, "/statistics/all", map[string]string{
		"start_date": startDate,
		"end_date":   endDate,
	}, &summaries)
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// Geofence is the office location circle
type Geofence struct {
	CenterLat    float64 `json:"center_lat"`
	CenterLng    float64 `json:"center_lng"`
	RadiusMeters float64 `json:"radius_meters"`
}

// Settings is the server-wide attendance configuration
type Settings struct {
	WorkStart        string   `json:"work_start"`
	WorkEnd          string   `json:"work_end"`
	LunchStart       string   `json:"lunch_start"`
	LunchEnd         string   `json:"lunch_end"`
	Geofence         Geofence `json:"geofence"`
	ReminderSchedule string   `json:"reminder_schedule"`
}

// SettingsUpdate carries a partial settings change; nil fields are left as is
type SettingsUpdate struct {
	WorkStart        *string   `json:"work_start,omitempty"`
	WorkEnd          *string   `json:"work_end,omitempty"`
	LunchStart       *string   `json:"lunch_start,omitempty"`
	LunchEnd         *string   `json:"lunch_end,omitempty"`
	Geofence         *Geofence `json:"geofence,omitempty"`
	ReminderSchedule *string   `json:"reminder_schedule,omitempty"`
}

// Settings returns the attendance configuration
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	var settings Settings
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings applies a partial settings change (admin only) and returns
// the resulting configuration
func (c *Client) UpdateSettings(ctx context.Context, update *SettingsUpdate) (*Settings, error) {
	var settings Settings
	if err := c.do(ctx, http.MethodPut, "/settings", update, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// ListUsers returns all accounts (admin only)
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListPendingUsers returns accounts waiting for approval (admin only)
func (c *Client) ListPendingUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/users/pending", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUserStatus changes an account's status (admin only). The user is
// addressed by Telegram ID or account ID.
func (c *Client) UpdateUserStatus(ctx context.Context, userRef, status string) error {
	return c.do(ctx, http.MethodPut, "/users/"+userRef+"/status", map[string]string{
		"status": status,
	}, nil)
}
