// Package client is a thin HTTP client for the taskclock API, shared by the
// CLI and the TUI.
package client

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

	"github.com/fentz26/taskclock/internal/identity"
	"github.com/fentz26/taskclock/internal/models"
)

// DefaultTimeout is the default timeout for API requests.
const DefaultTimeout = 10 * time.Second

// Credentials identify the caller to the API. Token is sent as a bearer
// token; UserID and Email as identity headers.
type Credentials struct {
	UserID string
	Email  string
	Token  string
}

// Error is a failed API call.
type Error struct {
	Status int
	Kind   string
	Msg    string
	Fields map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("API error (%d): %s", e.Status, e.Msg)
	}
	return fmt.Sprintf("API error (%d): %s %v", e.Status, e.Msg, e.Fields)
}

// Client wraps HTTP calls to the taskclock API.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
}

// New creates a client with the default timeout.
func New(baseURL string, creds Credentials) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// TaskView is a task with its logged total.
type TaskView struct {
	Task         models.Task `json:"task"`
	TotalMinutes int         `json:"total_minutes"`
}

// MonthlyTotal is the caller's logged time in the previous calendar month.
type MonthlyTotal struct {
	UserID       string `json:"user_id"`
	From         string `json:"from"`
	To           string `json:"to"`
	TotalMinutes int    `json:"total_minutes"`
}

// Upload is an issued attachment upload.
type Upload struct {
	Attachment models.Attachment `json:"attachment"`
	UploadURL  string            `json:"upload_url"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// Health matches the server's /healthz body.
type Health struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// Health checks whether the server is up.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListTasks returns tasks, optionally filtered by status.
func (c *Client) ListTasks(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	path := "/tasks"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var resp struct {
		Tasks []models.Task `json:"tasks"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Tasks, err
}

// SearchTasks matches query against task titles.
func (c *Client) SearchTasks(ctx context.Context, query string) ([]models.Task, error) {
	var resp struct {
		Tasks []models.Task `json:"tasks"`
	}
	err := c.do(ctx, http.MethodGet, "/tasks/search?q="+url.QueryEscape(query), nil, &resp)
	return resp.Tasks, err
}

// GetTask fetches a single task and its logged total.
func (c *Client) GetTask(ctx context.Context, id string) (*TaskView, error) {
	var v TaskView
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateTask creates a new task.
func (c *Client) CreateTask(ctx context.Context, title, description string) (*models.Task, error) {
	return c.taskCall(ctx, http.MethodPost, "/tasks", map[string]string{"title": title, "description": description})
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// AssignTask sets the owner of a task.
func (c *Client) AssignTask(ctx context.Context, id, userID string) (*models.Task, error) {
	return c.taskCall(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/assign", map[string]string{"user_id": userID})
}

// CompleteTask marks a task completed.
func (c *Client) CompleteTask(ctx context.Context, id string) (*models.Task, error) {
	return c.taskCall(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/complete", nil)
}

// TransitionTask moves a task to status.
func (c *Client) TransitionTask(ctx context.Context, id string, status models.TaskStatus) (*models.Task, error) {
	return c.taskCall(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/transition", map[string]string{"status": string(status)})
}

// AddComment comments on a task as the caller.
func (c *Client) AddComment(ctx context.Context, id, text string) (*models.Comment, error) {
	var resp struct {
		Comment models.Comment `json:"comment"`
	}
	if err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/comment", map[string]string{"text": text}, &resp); err != nil {
		return nil, err
	}
	return &resp.Comment, nil
}

// Comments lists the comments of a task.
func (c *Client) Comments(ctx context.Context, id string) ([]models.Comment, error) {
	var resp struct {
		Comments []models.Comment `json:"comments"`
	}
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id)+"/comments", nil, &resp)
	return resp.Comments, err
}

// StartTimer starts the caller's timer on a task and returns the entry id.
func (c *Client) StartTimer(ctx context.Context, id string) (string, error) {
	var resp struct {
		TimeLogID string `json:"time_log_id"`
	}
	err := c.do(ctx, http.MethodPost, "/timelog/"+url.PathEscape(id)+"/start", nil, &resp)
	return resp.TimeLogID, err
}

// FinishTimer stops the caller's timer on a task and returns its minutes.
func (c *Client) FinishTimer(ctx context.Context, id string) (int, error) {
	var resp struct {
		DurationMinutes int `json:"duration_minutes"`
	}
	err := c.do(ctx, http.MethodPost, "/timelog/"+url.PathEscape(id)+"/finish", nil, &resp)
	return resp.DurationMinutes, err
}

// LogTime records a finished session for the caller.
func (c *Client) LogTime(ctx context.Context, id string, startedAt time.Time, minutes int) (*models.TimeLogEntry, error) {
	var resp struct {
		TimeLog models.TimeLogEntry `json:"time_log"`
	}
	body := map[string]any{"started_at": startedAt, "minutes": minutes}
	if err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/log-time", body, &resp); err != nil {
		return nil, err
	}
	return &resp.TimeLog, nil
}

// TimeLogs lists the time entries of a task.
func (c *Client) TimeLogs(ctx context.Context, id string) ([]models.TimeLogEntry, error) {
	var resp struct {
		TimeLogs []models.TimeLogEntry `json:"time_logs"`
	}
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id)+"/timelogs", nil, &resp)
	return resp.TimeLogs, err
}

// TopByLoggedTime returns the n tasks with the most logged minutes.
func (c *Client) TopByLoggedTime(ctx context.Context, n int) ([]models.TaskTotal, error) {
	var resp struct {
		Tasks []models.TaskTotal `json:"tasks"`
	}
	err := c.do(ctx, http.MethodGet, "/tasks/top-by-logged-time/"+strconv.Itoa(n), nil, &resp)
	return resp.Tasks, err
}

// PrevMonthTime returns the caller's total for the previous month.
func (c *Client) PrevMonthTime(ctx context.Context) (*MonthlyTotal, error) {
	var m MonthlyTotal
	if err := c.do(ctx, http.MethodGet, "/tasks/prev-month-time", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// RequestUpload asks for a presigned upload URL for fileName.
func (c *Client) RequestUpload(ctx context.Context, id, fileName string) (*Upload, error) {
	var up Upload
	if err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/attachments", map[string]string{"file_name": fileName}, &up); err != nil {
		return nil, err
	}
	return &up, nil
}

// Attachments lists the attachments of a task.
func (c *Client) Attachments(ctx context.Context, id string) ([]models.Attachment, error) {
	var resp struct {
		Attachments []models.Attachment `json:"attachments"`
	}
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id)+"/attachments", nil, &resp)
	return resp.Attachments, err
}

func (c *Client) taskCall(ctx context.Context, method, path string, body any) (*models.Task, error) {
	var resp struct {
		Task models.Task `json:"task"`
	}
	if err := c.do(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds.UserID != "" {
		req.Header.Set(identity.HeaderUserID, c.creds.UserID)
	}
	if c.creds.Email != "" {
		req.Header.Set(identity.HeaderUserEmail, c.creds.Email)
	}
	if c.creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode}
		var payload struct {
			Error  string            `json:"error"`
			Kind   string            `json:"kind"`
			Fields map[string]string `json:"fields"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Msg, apiErr.Kind, apiErr.Fields = payload.Error, payload.Kind, payload.Fields
		} else {
			apiErr.Msg = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
