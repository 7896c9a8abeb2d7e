package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// EngineStatus proxies read-only engine documents selected by ?action=.
func (a *App) EngineStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action := strings.TrimSpace(q.Get("action"))
	if action == "" {
		action = "queue"
	}

	var (
		doc json.RawMessage
		err error
	)
	ctx := r.Context()
	switch action {
	case "queue":
		doc, err = a.Engine.Queue(ctx)
	case "history":
		if id := strings.TrimSpace(q.Get("prompt_id")); id != "" {
			doc, err = a.Engine.HistoryRaw(ctx, id)
		} else {
			doc, err = a.Engine.HistoryAll(ctx)
		}
	case "system":
		doc, err = a.Engine.SystemStats(ctx)
	default:
		a.error(w, http.StatusBadRequest, "Invalid action")
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, doc)
}
