package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/greentravel/invoice-agent/internal/infrastructure/greentravel"
	"github.com/greentravel/invoice-agent/internal/infrastructure/rag"
)

func newTestRegistry(t *testing.T, handler http.Handler, options Options) (*Registry, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	gateway := greentravel.New(server.URL, greentravel.Options{})
	ragClient := rag.New(server.URL, rag.Options{Collection: "facturas"})
	return NewRegistry(gateway, ragClient, options), server
}

func TestToolsReturnsFullSetByDefault(t *testing.T) {
	registry, _ := newTestRegistry(t, http.NotFoundHandler(), Options{})

	specs, err := registry.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools: %v", err)
	}
	if len(specs) != 14 {
		t.Fatalf("expected 14 tools, got %d", len(specs))
	}
}

func TestToolsHonorsAllowList(t *testing.T) {
	registry, _ := newTestRegistry(t, http.NotFoundHandler(), Options{
		EnabledTools: []string{ToolRAGGetInvoiceData, ToolCalcularVencimiento},
	})

	specs, err := registry.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(specs))
	}

	out, err := registry.Invoke(context.Background(), ToolListLiquidaciones, nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.HasPrefix(out, "Error") {
		t.Fatalf("disabled tool should produce an error result, got %q", out)
	}
}

func TestInvokeUnknownToolReturnsErrorResult(t *testing.T) {
	registry, _ := newTestRegistry(t, http.NotFoundHandler(), Options{})

	out, err := registry.Invoke(context.Background(), "drop_database", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.HasPrefix(out, "Error") || !strings.Contains(out, "drop_database") {
		t.Fatalf("unexpected result for unknown tool: %q", out)
	}
}

func TestInvokeCalcularVencimiento(t *testing.T) {
	fixed := time.Date(2025, 10, 1, 15, 0, 0, 0, time.UTC)
	registry, _ := newTestRegistry(t, http.NotFoundHandler(), Options{
		Now: func() time.Time { return fixed },
	})

	out, err := registry.Invoke(context.Background(), ToolCalcularVencimiento, map[string]any{
		"fecha_emision": "2025-09-01",
		"dias_credito":  float64(30),
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	var result struct {
		DueDate       *string `json:"due_date"`
		IsOverdue     *bool   `json:"is_overdue"`
		DaysRemaining *int    `json:"days_remaining"`
		Error         *string `json:"error"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.Error != nil {
		t.Fatalf("unexpected error field: %s", *result.Error)
	}
	if result.DueDate == nil || *result.DueDate != "2025-10-01" {
		t.Fatalf("unexpected due date: %v", result.DueDate)
	}
	if result.IsOverdue == nil || *result.IsOverdue {
		t.Fatalf("a due date of today must not be overdue")
	}
	if result.DaysRemaining == nil || *result.DaysRemaining != 0 {
		t.Fatalf("unexpected days remaining: %v", result.DaysRemaining)
	}
}

func TestInvokeCalcularVencimientoBadCreditDays(t *testing.T) {
	registry, _ := newTestRegistry(t, http.NotFoundHandler(), Options{})

	out, err := registry.Invoke(context.Background(), ToolCalcularVencimiento, map[string]any{
		"fecha_emision": "2025-09-01",
		"dias_credito":  "treinta",
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	var result struct {
		DueDate *string `json:"due_date"`
		Error   *string `json:"error"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.Error == nil {
		t.Fatal("expected error field for non-numeric credit days")
	}
	if result.DueDate != nil {
		t.Fatalf("due date must be absent on failure, got %s", *result.DueDate)
	}
}

func TestInvokeRAGComposesQueryAndReturnsAnswer(t *testing.T) {
	var question string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ask" {
			http.NotFound(w, r)
			return
		}
		var payload struct {
			Question   string `json:"question"`
			Collection string `json:"collection"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		question = payload.Question
		json.NewEncoder(w).Encode(map[string]string{"answer": "Factura HBE122090: total $1.000.000"})
	})
	registry, _ := newTestRegistry(t, handler, Options{})

	out, err := registry.Invoke(context.Background(), ToolRAGGetInvoiceData, map[string]any{
		"invoice_number": "HBE122090",
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "Factura HBE122090: total $1.000.000" {
		t.Fatalf("answer not returned verbatim: %q", out)
	}
	if !strings.Contains(question, "HBE122090") {
		t.Fatalf("query does not mention the invoice number: %q", question)
	}
}

func TestInvokeRAGFailureBecomesErrorString(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"result": "no answer field"})
	})
	registry, _ := newTestRegistry(t, handler, Options{})

	out, err := registry.Invoke(context.Background(), ToolRAGGetInvoiceData, nil)
	if err != nil {
		t.Fatalf("Invoke must not fail for tool-level errors: %v", err)
	}
	if !strings.HasPrefix(out, "Error") {
		t.Fatalf("expected an Error result, got %q", out)
	}
}

func TestInvokeListLiquidacionesForwardsFilters(t *testing.T) {
	var query map[string][]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/liquidaciones" {
			http.NotFound(w, r)
			return
		}
		query = r.URL.Query()
		w.Write([]byte(`{"items": [], "total": 0}`))
	})
	registry, _ := newTestRegistry(t, handler, Options{})

	out, err := registry.Invoke(context.Background(), ToolListLiquidaciones, map[string]any{
		"page":   float64(2),
		"limit":  float64(10),
		"search": "GreenTravel",
		"estado": float64(1),
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != `{"items": [], "total": 0}` {
		t.Fatalf("gateway response not passed through: %q", out)
	}
	for key, want := range map[string]string{"page": "2", "limit": "10", "search": "GreenTravel", "estado": "1"} {
		if got := query[key]; len(got) != 1 || got[0] != want {
			t.Fatalf("query param %s = %v, want %s", key, got, want)
		}
	}
	if _, ok := query["id_reserva"]; ok {
		t.Fatal("unset filter must not be forwarded")
	}
}

func TestInvokeDeleteTreats204AsSuccess(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/provedores/7" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	registry, _ := newTestRegistry(t, handler, Options{})

	out, err := registry.Invoke(context.Background(), ToolDeleteProvedor, map[string]any{
		"provedor_id": float64(7),
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(out, `"success": true`) {
		t.Fatalf("204 should read as success acknowledgment, got %q", out)
	}
}

func TestInvokeGatewayFailureBecomesErrorString(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "not found"}`, http.StatusNotFound)
	})
	registry, _ := newTestRegistry(t, handler, Options{})

	out, err := registry.Invoke(context.Background(), ToolGetLiquidacion, map[string]any{
		"liquidacion_id": float64(99),
	})
	if err != nil {
		t.Fatalf("Invoke must not fail for tool-level errors: %v", err)
	}
	if !strings.HasPrefix(out, "Error") || !strings.Contains(out, "404") {
		t.Fatalf("expected an Error result mentioning the status, got %q", out)
	}
}

func TestInvokeCreateRejectsInvalidJSONData(t *testing.T) {
	registry, _ := newTestRegistry(t, http.NotFoundHandler(), Options{})

	out, err := registry.Invoke(context.Background(), ToolCreateLiquidacion, map[string]any{
		"data": "{not json",
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.HasPrefix(out, "Error") {
		t.Fatalf("expected an Error result for invalid JSON, got %q", out)
	}
}

func TestInvokePropagatesCancellation(t *testing.T) {
	registry, _ := newTestRegistry(t, http.NotFoundHandler(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := registry.Invoke(ctx, ToolGetLiquidacionStats, nil)
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
