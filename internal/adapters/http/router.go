package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/greentravel/invoice-agent/internal/core/domain"
	"github.com/greentravel/invoice-agent/internal/core/ports"
	"github.com/greentravel/invoice-agent/internal/observability/metrics"
)

const serviceName = "invoice-agent"

type Router struct {
	agent   ports.AgentService
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
}

func NewRouter(agent ports.AgentService, serverMetrics *metrics.HTTPServerMetrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		agent:   agent,
		metrics: serverMetrics,
		logger:  logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/agent/ask", rt.ask)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type askRequest struct {
	Question   string `json:"question"`
	SessionEnd bool   `json:"session_end"`
}

type askResponse struct {
	Answer       string   `json:"answer"`
	SessionKey   string   `json:"session_key"`
	Iterations   int      `json:"iterations"`
	ToolsInvoked []string `json:"tools_invoked"`
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	result, err := rt.agent.Ask(r.Context(), req.Question)
	if err != nil {
		rt.recordRunFailure(err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	rt.recordRunSuccess(result)

	// Callers flag their last question to release the tool session early; a
	// later question re-establishes it.
	if req.SessionEnd {
		if err := rt.agent.Shutdown(r.Context()); err != nil {
			rt.logger.Warn("session_shutdown_failed", "error", err)
		}
	}

	tools := result.ToolsInvoked
	if tools == nil {
		tools = []string{}
	}
	writeJSON(w, http.StatusOK, askResponse{
		Answer:       result.Answer,
		SessionKey:   result.SessionKey,
		Iterations:   result.Iterations,
		ToolsInvoked: tools,
	})
}

func (rt *Router) recordRunSuccess(result *domain.AgentRunResult) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordAgentRun(serviceName, "success", result.Iterations)
	for i := 0; i < result.Iterations; i++ {
		rt.metrics.RecordModelCall(serviceName, "success")
	}
	for _, event := range result.ToolEvents {
		rt.metrics.RecordAgentToolCall(serviceName, event.Tool, event.Status)
		if event.Tool == "rag_get_invoice_data" {
			rt.metrics.RecordInvoiceFetch(serviceName, event.Status)
		}
	}
}

func (rt *Router) recordRunFailure(err error) {
	if rt.metrics == nil {
		return
	}
	status := "error"
	if domain.IsKind(err, domain.ErrLoopLimit) {
		status = "loop_limit"
	}
	rt.metrics.RecordAgentRun(serviceName, status, 0)
	if domain.IsKind(err, domain.ErrConnection) || domain.IsKind(err, domain.ErrProtocol) {
		rt.metrics.RecordModelCall(serviceName, "error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
