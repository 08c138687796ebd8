package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"

	"github.com/xavierca1/gymcrm-sync/internal/infra/worker"
	"github.com/xavierca1/gymcrm-sync/internal/usecase"
)

// SyncRunner roda um sync sem sobrepor outro (implementado pelo scheduler).
type SyncRunner interface {
	RunOnce(ctx context.Context) (*usecase.SyncReport, error)
}

type SyncHandler struct {
	Runner SyncRunner
	APIKey string
}

func NewSyncHandler(runner SyncRunner, apiKey string) *SyncHandler {
	return &SyncHandler{Runner: runner, APIKey: apiKey}
}

type SyncResponse struct {
	Result string              `json:"result"`
	Error  string              `json:"error,omitempty"`
	Report *usecase.SyncReport `json:"report,omitempty"`
}

func (h *SyncHandler) Handle(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("apiKey")
	if h.APIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.APIKey)) != 1 {
		writeJSON(w, http.StatusUnauthorized, SyncResponse{Result: "error", Error: "Please provide API Key"})
		return
	}

	log.Println("🔄 [sync] execução manual solicitada")
	report, err := h.Runner.RunOnce(r.Context())
	switch {
	case errors.Is(err, worker.ErrSyncInProgress):
		writeJSON(w, http.StatusConflict, SyncResponse{Result: "error", Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, SyncResponse{Result: "error", Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, SyncResponse{Result: "success", Report: report})
	}
}
