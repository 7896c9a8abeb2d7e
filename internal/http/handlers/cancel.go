package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"genstudio/internal/domain"
)

type cancelRequest struct {
	TaskID  json.RawMessage `json:"taskId"`
	Backend string          `json:"backend"`
}

type cancelResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Cancel relays POST /cancel {taskId, backend?} to the owning backend.
func (a *App) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	taskID := scalar(req.TaskID)
	if taskID == "" {
		a.fail(w, r, fmt.Errorf("taskId required: %w", domain.ErrInvalidRequest))
		return
	}
	ack, err := a.Cancels.Cancel(r.Context(), strings.ToLower(strings.TrimSpace(req.Backend)), taskID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(ack) == 0 {
		ack = json.RawMessage("null")
	}
	a.Logger.Info().Str("task_id", taskID).Str("backend", req.Backend).Msg("cancel relayed")
	a.json(w, http.StatusOK, cancelResponse{Success: true, Data: ack})
}

// scalar accepts an id sent as a JSON string or number.
func scalar(raw json.RawMessage) string {
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
