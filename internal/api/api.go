// Package api exposes the orchestrator over HTTP, grounded on
// original_source/backend/main.py's three-route FastAPI surface, using a
// ServeMux/Routes composition shape.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/metalagman/normareg/internal/audit"
	"github.com/metalagman/normareg/internal/llmgateway"
	"github.com/metalagman/normareg/internal/orchestrator"
	"github.com/metalagman/normareg/internal/state"
)

// GatewayFactory builds a one-off LLM Gateway from a caller-supplied API
// key, honoring the `X-LLM-API-Key` request header override. A nil factory
// means the server always uses the orchestrator's configured gateway.
type GatewayFactory func(ctx context.Context, apiKey string) (llmgateway.Gateway, error)

// Server exposes /analyze, /health, and /audit/{execution_id}.
type Server struct {
	Orchestrator   *orchestrator.Orchestrator
	GatewayFactory GatewayFactory
	VectorDB       *sql.DB
	AuditDB        *sql.DB
	Log            zerolog.Logger
}

// Routes builds the HTTP handler for the API surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /audit/{execution_id}", s.handleGetAudit)
	return mux
}

type analyzeRequest struct {
	RegulatoryText string `json:"regulatory_text"`
	RepoPath       string `json:"repo_path,omitempty"`
}

type analyzeResponse struct {
	ExecutionID        string                 `json:"execution_id"`
	ChangeDetected     *bool                  `json:"change_detected,omitempty"`
	RiskLevel          state.RiskLevel        `json:"risk_level,omitempty"`
	RegulatoryModel    *state.RegulatoryModel `json:"regulatory_model,omitempty"`
	ImpactedFiles      []state.ImpactedFile   `json:"impacted_files"`
	ImpactAnalysis     []state.Impact         `json:"impact_analysis"`
	TechnicalSpec      string                 `json:"technical_spec,omitempty"`
	KiroPrompt         string                 `json:"kiro_prompt,omitempty"`
	GraphVisualization string                 `json:"graph_visualization"`
	Timestamp          string                 `json:"timestamp"`
	Error              string                 `json:"error,omitempty"`
}

func toResponse(res orchestrator.Result) analyzeResponse {
	s := res.State
	return analyzeResponse{
		ExecutionID:        s.ExecutionID,
		ChangeDetected:     s.ChangeDetected,
		RiskLevel:          s.RiskLevel,
		RegulatoryModel:    s.RegulatoryModel,
		ImpactedFiles:      s.ImpactedFiles,
		ImpactAnalysis:     s.ImpactAnalysis,
		TechnicalSpec:      s.TechnicalSpec,
		KiroPrompt:         s.KiroPrompt,
		GraphVisualization: res.GraphVisualization,
		Timestamp:          s.ExecutionTimestamp.Format(time.RFC3339),
		Error:              s.Error,
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(req.RegulatoryText) == "" {
		writeError(w, http.StatusBadRequest, "regulatory_text cannot be empty")
		return
	}

	orch := s.Orchestrator
	if apiKey := r.Header.Get("X-LLM-API-Key"); apiKey != "" && s.GatewayFactory != nil {
		gw, err := s.GatewayFactory(r.Context(), apiKey)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid X-LLM-API-Key")
			return
		}
		override := *orch
		execCopy := *override.Executor
		execCopy.Gateway = gw
		override.Executor = &execCopy
		orch = &override
	}

	res, err := orch.Analyze(r.Context(), req.RegulatoryText, req.RepoPath)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyText) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		body := toResponse(res)
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(res))
}

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	VectorStore string `json:"vector_store"`
	Timestamp   string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Database:    pingStatus(r.Context(), s.AuditDB),
		VectorStore: pingStatus(r.Context(), s.VectorDB),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if resp.Database != "ok" || resp.VectorStore != "ok" {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func pingStatus(ctx context.Context, db *sql.DB) string {
	if db == nil {
		return "unavailable"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	executionID := r.PathValue("execution_id")
	st, err := s.Orchestrator.GetAudit(r.Context(), executionID)
	switch {
	case errors.Is(err, audit.ErrNotFound):
		writeError(w, http.StatusNotFound, "execution not found: "+executionID)
		return
	case errors.Is(err, orchestrator.ErrAuditUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toResponse(orchestrator.Result{State: st}))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}
