package runninghub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
)

// Task states reported by the history endpoint.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// IsCancelled reports whether status is one of the service's cancel spellings.
func IsCancelled(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "CANCEL", "CANCELED", "CANCELLED":
		return true
	}
	return false
}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36"

// Options configures the RunningHub client.
type Options struct {
	APIKey          string
	BaseURL         string
	HistoryPageSize int
	HTTPClient      *http.Client
	Logger          *infra.Logger
	RequestTimeout  time.Duration
}

// Client talks to the RunningHub workflow task API.
type Client struct {
	apiKey     string
	baseURL    string
	pageSize   int
	httpClient *http.Client
	logger     *infra.Logger
}

// Task is one row of the task history page.
type Task struct {
	TaskID     string `json:"taskId"`
	TaskStatus string `json:"taskStatus"`
	FileURL    string `json:"fileUrl"`
}

type envelope struct {
	Code          *int            `json:"code"`
	Msg           string          `json:"msg"`
	ErrorMessages json.RawMessage `json:"errorMessages"`
	Data          json.RawMessage `json:"data"`
}

type historyRequest struct {
	Size     int      `json:"size"`
	Current  int      `json:"current"`
	TaskType []string `json:"taskType"`
	FromID   string   `json:"fromId"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://www.runninghub.ai"
	}
	pageSize := opts.HistoryPageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		pageSize:   pageSize,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Submit posts a filled workflow document to /task/create and returns the
// task id assigned by the service.
func (c *Client) Submit(ctx context.Context, workflow json.RawMessage) (string, error) {
	env, err := c.post(ctx, "/task/create", workflow)
	if err != nil {
		return "", err
	}
	var data struct {
		TaskID json.RawMessage `json:"taskId"`
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return "", fmt.Errorf("runninghub: decode task data: %v: %w", err, domain.ErrMalformedResponse)
		}
	}
	taskID := scalarString(data.TaskID)
	if taskID == "" {
		return "", fmt.Errorf("runninghub: taskId missing in response: %w", domain.ErrMalformedResponse)
	}
	c.logger.Debug().Str("task_id", taskID).Msg("runninghub: task created")
	return taskID, nil
}

// History returns the first page of recent tasks for the account.
func (c *Client) History(ctx context.Context) ([]Task, error) {
	body, err := json.Marshal(historyRequest{
		Size:     c.pageSize,
		Current:  1,
		TaskType: []string{"WORKFLOW", "WEBAPP"},
	})
	if err != nil {
		return nil, fmt.Errorf("runninghub: encode history request: %w", err)
	}
	env, err := c.post(ctx, "/api/output/v2/history", body)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		TaskID     json.RawMessage `json:"taskId"`
		TaskStatus string          `json:"taskStatus"`
		FileURL    string          `json:"fileUrl"`
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, fmt.Errorf("runninghub: decode history: %v: %w", err, domain.ErrMalformedResponse)
		}
	}
	tasks := make([]Task, 0, len(raw))
	for _, r := range raw {
		tasks = append(tasks, Task{TaskID: scalarString(r.TaskID), TaskStatus: r.TaskStatus, FileURL: strings.TrimSpace(r.FileURL)})
	}
	return tasks, nil
}

// Cancel asks the service to stop taskID and returns the raw acknowledgement.
// Application codes in the acknowledgement are passed through untouched.
func (c *Client) Cancel(ctx context.Context, taskID string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"taskId": taskID})
	if err != nil {
		return nil, fmt.Errorf("runninghub: encode cancel request: %w", err)
	}
	raw, status, err := c.do(ctx, "/task/cancel", body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("runninghub: task %s: %w", taskID, domain.ErrJobNotFound)
	}
	if status >= 300 {
		return nil, statusError(status, raw)
	}
	if !json.Valid(raw) {
		quoted, _ := json.Marshal(strings.TrimSpace(string(raw)))
		return quoted, nil
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*envelope, error) {
	raw, status, err := c.do(ctx, path, body)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, statusError(status, raw)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("runninghub: decode response: %v: %w", err, domain.ErrMalformedResponse)
	}
	if env.Code != nil && *env.Code != 0 {
		return nil, fmt.Errorf("runninghub: %s (code %d): %w", env.message(), *env.Code, domain.ErrBackendRejected)
	}
	return &env, nil
}

func (c *Client) do(ctx context.Context, path string, body []byte) ([]byte, int, error) {
	if !c.HasCredentials() {
		return nil, 0, fmt.Errorf("runninghub: api key is required: %w", domain.ErrConfigMissing)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("runninghub: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Origin", "https://www.runninghub.ai")
	req.Header.Set("Referer", "https://www.runninghub.ai/")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("User-Language", "en-US")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, fmt.Errorf("runninghub: http request: %v: %w", err, domain.ErrBackendUnreachable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("runninghub: read response: %v: %w", err, domain.ErrBackendUnreachable)
	}
	return raw, resp.StatusCode, nil
}

// statusError classifies a non-2xx reply: an application error body is a
// rejection, anything else means the service could not be reached properly.
func statusError(status int, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if msg := env.message(); msg != "" {
			return fmt.Errorf("runninghub: status %d: %s: %w", status, msg, domain.ErrBackendRejected)
		}
	}
	return fmt.Errorf("runninghub: status %d: %w", status, domain.ErrBackendUnreachable)
}

func (e envelope) message() string {
	if msg := strings.TrimSpace(e.Msg); msg != "" {
		return msg
	}
	if len(e.ErrorMessages) == 0 || string(e.ErrorMessages) == "null" {
		return ""
	}
	var list []string
	if err := json.Unmarshal(e.ErrorMessages, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var single string
	if err := json.Unmarshal(e.ErrorMessages, &single); err == nil {
		return single
	}
	return string(e.ErrorMessages)
}

// scalarString renders a JSON string or number as a plain string.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

