package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tripfeature/tripfeature/internal/runlog"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads run history from the runlog and returns JSON responses.
type Handler struct {
	log *runlog.Log
	mux *http.ServeMux
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status     string `json:"status"` // "ok" | "degraded" | "idle"
	Runs       int    `json:"runs"`
	Failures   int    `json:"failures"`
	LastInput  string `json:"last_input,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	LastOutput string `json:"last_output,omitempty"`
}

// New creates a Handler wired to the given runlog and registers all routes.
func New(l *runlog.Log) http.Handler {
	h := &Handler{log: l, mux: http.NewServeMux()}
	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/runs", h.runs)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// health returns GET /api/v1/health — run counts and the latest outcome.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ok, failed := h.log.Counts()
	resp := HealthResponse{Runs: ok + failed, Failures: failed}
	switch {
	case ok+failed == 0:
		resp.Status = "idle"
	case failed > 0:
		resp.Status = "degraded"
	default:
		resp.Status = "ok"
	}
	if runs := h.log.List(); len(runs) > 0 {
		resp.LastInput = runs[0].Input
		resp.LastOutput = runs[0].Output
		resp.LastError = runs[0].Error
	}
	jsonResp(w, http.StatusOK, resp)
}

// runs returns GET /api/v1/runs — the retained run history, newest first.
func (h *Handler) runs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.log.List())
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: encode response", "err", err)
	}
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, map[string]string{"error": msg})
}
