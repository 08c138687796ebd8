package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Pinger é qualquer dependência que sabe responder se está de pé.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapta uma função (ex: db.PingContext) para Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	Dependencies map[string]Pinger
	StartTime    time.Time
	Version      string
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

// NewHealthHandler recebe as dependências por nome; valor nil significa
// "não configurado".
func NewHealthHandler(version string, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		Dependencies: deps,
		StartTime:    time.Now(),
		Version:      version,
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.Dependencies))
	status := "healthy"
	for name, dep := range h.Dependencies {
		if dep == nil {
			deps[name] = "not configured"
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			deps[name] = fmt.Sprintf("unhealthy: %v", err)
			status = "degraded"
			continue
		}
		deps[name] = "healthy"
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	})
}
