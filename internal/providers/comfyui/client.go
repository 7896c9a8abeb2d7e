package comfyui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
)

// Options configures the ComfyUI client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to a self-hosted ComfyUI server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// Image references one output file on the engine.
type Image struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// HistoryEntry is the record of one prompt in /history.
type HistoryEntry struct {
	Outputs map[string]struct {
		Images []Image `json:"images"`
	} `json:"outputs"`
	Status struct {
		StatusStr string `json:"status_str"`
		Completed bool   `json:"completed"`
	} `json:"status"`
}

// Images lists output images ordered by node id.
func (h HistoryEntry) Images() []Image {
	nodes := make([]string, 0, len(h.Outputs))
	for node := range h.Outputs {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	var out []Image
	for _, node := range nodes {
		for _, img := range h.Outputs[node].Images {
			if img.Filename == "" {
				continue
			}
			if img.Type == "" {
				img.Type = "output"
			}
			out = append(out, img)
		}
	}
	return out
}

// Failed reports whether the engine marked the prompt as errored.
func (h HistoryEntry) Failed() bool {
	return h.Status.StatusStr == "error"
}

type queueRequest struct {
	Prompt   json.RawMessage `json:"prompt"`
	ClientID string          `json:"client_id"`
}

type queueResponse struct {
	PromptID   string          `json:"prompt_id"`
	Number     int             `json:"number"`
	NodeErrors json.RawMessage `json:"node_errors"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
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
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Configured reports whether an engine URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// QueuePrompt submits a node graph and returns the engine prompt id.
func (c *Client) QueuePrompt(ctx context.Context, graph json.RawMessage) (string, error) {
	clientID := uuid.NewString()
	body, err := json.Marshal(queueRequest{Prompt: graph, ClientID: clientID})
	if err != nil {
		return "", fmt.Errorf("comfyui: encode prompt: %w", err)
	}
	raw, status, err := c.do(ctx, http.MethodPost, "/prompt", body)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Error.Message != "" {
			return "", fmt.Errorf("comfyui: %s (%s): %w", detail.Error.Message, detail.Error.Type, domain.ErrBackendRejected)
		}
		return "", fmt.Errorf("comfyui: status %d: %w", status, domain.ErrBackendUnreachable)
	}
	var decoded queueResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("comfyui: decode prompt response: %v: %w", err, domain.ErrMalformedResponse)
	}
	if decoded.PromptID == "" {
		return "", fmt.Errorf("comfyui: prompt_id missing in response: %w", domain.ErrMalformedResponse)
	}
	c.logger.Debug().Str("prompt_id", decoded.PromptID).Str("client_id", clientID).Int("number", decoded.Number).Msg("comfyui: prompt queued")
	return decoded.PromptID, nil
}

// History returns the history entry for promptID. The boolean is false when
// the engine has no record of the prompt yet.
func (c *Client) History(ctx context.Context, promptID string) (HistoryEntry, bool, error) {
	raw, err := c.getJSON(ctx, "/history/"+url.PathEscape(promptID))
	if err != nil {
		return HistoryEntry{}, false, err
	}
	var entries map[string]HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return HistoryEntry{}, false, fmt.Errorf("comfyui: decode history: %v: %w", err, domain.ErrMalformedResponse)
	}
	entry, ok := entries[promptID]
	return entry, ok, nil
}

// ViewURL builds the download URL of an output image.
func (c *Client) ViewURL(img Image) string {
	params := url.Values{}
	params.Set("filename", img.Filename)
	params.Set("subfolder", img.Subfolder)
	params.Set("type", img.Type)
	return c.baseURL + "/view?" + params.Encode()
}

// Download fetches an asset served by the engine.
func (c *Client) Download(ctx context.Context, assetURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("comfyui: build download request: %v: %w", err, domain.ErrAssetFetchFailed)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("comfyui: download: %v: %w", err, domain.ErrAssetFetchFailed)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("comfyui: download status %d: %w", resp.StatusCode, domain.ErrAssetFetchFailed)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("comfyui: read download: %v: %w", err, domain.ErrAssetFetchFailed)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Queue returns the raw /queue document.
func (c *Client) Queue(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "/queue")
}

// HistoryAll returns the raw /history document.
func (c *Client) HistoryAll(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "/history")
}

// HistoryRaw returns the raw /history/{id} document.
func (c *Client) HistoryRaw(ctx context.Context, promptID string) (json.RawMessage, error) {
	return c.getJSON(ctx, "/history/"+url.PathEscape(promptID))
}

// SystemStats returns the raw /system_stats document.
func (c *Client) SystemStats(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "/system_stats")
}

// QueueState is where a prompt sits in the engine queue.
type QueueState int

const (
	QueueAbsent QueueState = iota
	QueuePending
	QueueRunning
)

// queueDocument holds /queue entries as [number, prompt_id, prompt, extra, outputs].
type queueDocument struct {
	Running [][]json.RawMessage `json:"queue_running"`
	Pending [][]json.RawMessage `json:"queue_pending"`
}

// QueuePosition reports whether promptID is running, pending or absent.
func (c *Client) QueuePosition(ctx context.Context, promptID string) (QueueState, error) {
	raw, err := c.Queue(ctx)
	if err != nil {
		return QueueAbsent, err
	}
	var doc queueDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return QueueAbsent, fmt.Errorf("comfyui: decode queue: %v: %w", err, domain.ErrMalformedResponse)
	}
	if queueHolds(doc.Running, promptID) {
		return QueueRunning, nil
	}
	if queueHolds(doc.Pending, promptID) {
		return QueuePending, nil
	}
	return QueueAbsent, nil
}

func queueHolds(items [][]json.RawMessage, promptID string) bool {
	for _, item := range items {
		if len(item) < 2 {
			continue
		}
		var id string
		if json.Unmarshal(item[1], &id) == nil && id == promptID {
			return true
		}
	}
	return false
}

// Cancel stops promptID only. A pending prompt is deleted from the queue; a
// running prompt gets a targeted interrupt. Other prompts are never touched.
func (c *Client) Cancel(ctx context.Context, promptID string) (json.RawMessage, error) {
	state, err := c.QueuePosition(ctx, promptID)
	if err != nil {
		return nil, err
	}
	ack := map[string]any{"promptId": promptID, "deleted": false, "interrupted": false}
	switch state {
	case QueuePending:
		if err := c.post(ctx, "/queue", map[string][]string{"delete": {promptID}}); err != nil {
			return nil, err
		}
		ack["deleted"] = true
	case QueueRunning:
		if err := c.post(ctx, "/interrupt", map[string]string{"prompt_id": promptID}); err != nil {
			return nil, err
		}
		ack["interrupted"] = true
	default:
		c.logger.Debug().Str("prompt_id", promptID).Msg("comfyui: cancel target not queued")
	}
	return json.Marshal(ack)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("comfyui: encode %s: %w", path, err)
	}
	_, status, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("comfyui: POST %s status %d: %w", path, status, domain.ErrBackendUnreachable)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string) (json.RawMessage, error) {
	raw, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("comfyui: GET %s status %d: %w", path, status, domain.ErrBackendUnreachable)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("comfyui: GET %s returned invalid json: %w", path, domain.ErrMalformedResponse)
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	if !c.Configured() {
		return nil, 0, fmt.Errorf("comfyui: COMFYUI_API_URL is not set: %w", domain.ErrNotConfigured)
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("comfyui: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, fmt.Errorf("comfyui: http request: %v: %w", err, domain.ErrBackendUnreachable)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("comfyui: read response: %v: %w", err, domain.ErrBackendUnreachable)
	}
	return raw, resp.StatusCode, nil
}
