package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/xavierca1/gymcrm-sync/internal/infra/http/middleware"
	"github.com/xavierca1/gymcrm-sync/internal/usecase"
)

const maxWebhookBody = 1 << 20

// WebhookProcessor é o use case do webhook de leads.
type WebhookProcessor interface {
	Execute(ctx context.Context, input usecase.WebhookLeadInput) (*usecase.WebhookLeadOutput, error)
}

type WebhookHandler struct {
	UseCase WebhookProcessor
}

func NewWebhookHandler(uc WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{UseCase: uc}
}

type WebhookResponse struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
	*usecase.WebhookLeadOutput
}

// Handle responde sempre 200: o HighLevel não trata status de erro, então o
// resultado vai no corpo.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ [webhook] panic: %v", rec)
			middleware.RecordWebhook("NONE", "panic")
			writeJSON(w, http.StatusOK, WebhookResponse{Result: "error", Error: fmt.Sprint(rec)})
		}
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Printf("❌ [webhook] erro ao ler corpo: %v", err)
		middleware.RecordWebhook("NONE", "error")
		writeJSON(w, http.StatusOK, WebhookResponse{Result: "error", Error: "could not read body"})
		return
	}

	output, err := h.UseCase.Execute(r.Context(), usecase.WebhookLeadInput{
		APIKey: r.URL.Query().Get("apiKey"),
		Body:   body,
	})
	if err != nil {
		log.Printf("❌ [webhook] %v", err)
		code := usecase.ErrorCode(err)
		if code == usecase.CodeCRMUnavailable {
			middleware.RecordIntegrationError("highlevel")
		}
		middleware.RecordWebhook("NONE", "error")
		writeJSON(w, http.StatusOK, WebhookResponse{Result: "error", Error: err.Error(), Code: code})
		return
	}

	middleware.RecordWebhook(output.Action, "success")
	if output.LedgerRegistered {
		middleware.RecordLedgerRegistrations(1)
	}
	if output.Action == usecase.ActionArchive.String() {
		middleware.RecordArchived(1)
	}
	writeJSON(w, http.StatusOK, WebhookResponse{Result: "success", WebhookLeadOutput: output})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️ erro ao escrever resposta: %v", err)
	}
}
