package comfyui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/domain"
)

func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return client, srv
}

func TestQueuePromptSendsClientID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/prompt", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt   map[string]any `json:"prompt"`
			ClientID string         `json:"client_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, err := uuid.Parse(req.ClientID)
		assert.NoError(t, err)
		assert.Contains(t, req.Prompt, "6")
		_, _ = w.Write([]byte(`{"prompt_id":"p-1","number":3,"node_errors":{}}`))
	})
	client, _ := newTestClient(t, mux)

	id, err := client.QueuePrompt(context.Background(), json.RawMessage(`{"6":{"inputs":{"text":"x"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "p-1", id)
}

func TestQueuePromptRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/prompt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"prompt_outputs_failed_validation","message":"Prompt outputs failed validation"},"node_errors":{}}`))
	})
	client, _ := newTestClient(t, mux)
	_, err := client.QueuePrompt(context.Background(), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, domain.ErrBackendRejected)
}

func TestQueuePromptMissingID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/prompt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"number":1}`))
	})
	client, _ := newTestClient(t, mux)
	_, err := client.QueuePrompt(context.Background(), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestHistoryCollectsImages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/history/p-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"p-1":{
			"outputs":{
				"9":{"images":[{"filename":"b.png","subfolder":"","type":"output"}]},
				"10":{"images":[{"filename":"a.png","subfolder":"sub"}]},
				"11":{"text":["ignored"]}
			},
			"status":{"status_str":"success","completed":true}
		}}`))
	})
	client, _ := newTestClient(t, mux)

	entry, ok, err := client.History(context.Background(), "p-1")
	require.NoError(t, err)
	require.True(t, ok)
	images := entry.Images()
	require.Len(t, images, 2)
	assert.Equal(t, "a.png", images[0].Filename)
	assert.Equal(t, "output", images[0].Type)
	assert.Equal(t, "b.png", images[1].Filename)
	assert.False(t, entry.Failed())
}

func TestHistoryAbsent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/history/p-2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	client, _ := newTestClient(t, mux)
	_, ok, err := client.History(context.Background(), "p-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestViewURL(t *testing.T) {
	client, _ := NewClient(Options{BaseURL: "http://engine:8188"})
	got := client.ViewURL(Image{Filename: "a b.png", Subfolder: "x", Type: "output"})
	parsed, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/view", parsed.Path)
	assert.Equal(t, "a b.png", parsed.Query().Get("filename"))
	assert.Equal(t, "x", parsed.Query().Get("subfolder"))
	assert.Equal(t, "output", parsed.Query().Get("type"))
}

func cancelMux(t *testing.T, queue string, calls *[]string, bodies map[string]string) *http.ServeMux {
	t.Helper()
	var mu sync.Mutex
	record := func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		*calls = append(*calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPost {
			bodies[r.URL.Path] = string(raw)
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/queue", func(w http.ResponseWriter, r *http.Request) {
		record(w, r)
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(queue))
		}
	})
	mux.HandleFunc("/interrupt", record)
	return mux
}

func TestCancelPendingPromptOnlyDeletes(t *testing.T) {
	var calls []string
	bodies := map[string]string{}
	queue := `{"queue_running":[[1,"p-running",{},{},["9"]]],"queue_pending":[[2,"p-1",{},{},["9"]]]}`
	client, _ := newTestClient(t, cancelMux(t, queue, &calls, bodies))

	ack, err := client.Cancel(context.Background(), "p-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"promptId":"p-1","deleted":true,"interrupted":false}`, string(ack))
	assert.Equal(t, []string{"GET /queue", "POST /queue"}, calls)
	assert.JSONEq(t, `{"delete":["p-1"]}`, bodies["/queue"])
}

func TestCancelRunningPromptInterruptsThatPrompt(t *testing.T) {
	var calls []string
	bodies := map[string]string{}
	queue := `{"queue_running":[[1,"p-1",{},{},["9"]]],"queue_pending":[[2,"p-other",{},{},["9"]]]}`
	client, _ := newTestClient(t, cancelMux(t, queue, &calls, bodies))

	ack, err := client.Cancel(context.Background(), "p-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"promptId":"p-1","deleted":false,"interrupted":true}`, string(ack))
	assert.Equal(t, []string{"GET /queue", "POST /interrupt"}, calls)
	assert.JSONEq(t, `{"prompt_id":"p-1"}`, bodies["/interrupt"])
}

func TestCancelUnknownPromptTouchesNothing(t *testing.T) {
	var calls []string
	bodies := map[string]string{}
	queue := `{"queue_running":[[1,"p-running",{},{},["9"]]],"queue_pending":[]}`
	client, _ := newTestClient(t, cancelMux(t, queue, &calls, bodies))

	ack, err := client.Cancel(context.Background(), "p-gone")
	require.NoError(t, err)
	assert.JSONEq(t, `{"promptId":"p-gone","deleted":false,"interrupted":false}`, string(ack))
	assert.Equal(t, []string{"GET /queue"}, calls)
}

func TestQueuePosition(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/queue", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"queue_running":[[1,"a",{},{},[]]],"queue_pending":[[2,"b",{},{},[]],[3]]}`))
	})
	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	for id, want := range map[string]QueueState{"a": QueueRunning, "b": QueuePending, "c": QueueAbsent} {
		got, err := client.QueuePosition(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got, id)
	}
}

func TestPassthroughEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/queue", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"queue_running":[],"queue_pending":[]}`))
	})
	mux.HandleFunc("/system_stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"system":{"os":"posix"}}`))
	})
	client, _ := newTestClient(t, mux)

	queue, err := client.Queue(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"queue_running":[],"queue_pending":[]}`, string(queue))

	stats, err := client.SystemStats(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(stats), "posix")
}

func TestUnconfiguredClient(t *testing.T) {
	client, _ := NewClient(Options{})
	_, err := client.Queue(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNotConfigured))
}

func TestDownloadFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/view", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	client, srv := newTestClient(t, mux)
	_, _, err := client.Download(context.Background(), srv.URL+"/view?filename=a.png")
	assert.ErrorIs(t, err, domain.ErrAssetFetchFailed)
}
