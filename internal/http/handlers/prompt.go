package handlers

import (
	"net/http"

	"genstudio/internal/providers/prompt"
)

type enhanceRequest struct {
	Prompt string `json:"prompt"`
	Type   string `json:"type"`
}

// Enhance rewrites a generation prompt.
func (a *App) Enhance(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.Enhancer.Enhance(r.Context(), req.Prompt, req.Type)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}

type chatRequest struct {
	Messages []prompt.Message `json:"messages"`
}

// Chat answers questions about the platform.
func (a *App) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	reply, err := a.Assistant.Reply(r.Context(), req.Messages)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, reply)
}
