package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/greentravel/invoice-agent/internal/core/domain"
	"github.com/greentravel/invoice-agent/internal/infrastructure/greentravel"
	"github.com/greentravel/invoice-agent/internal/infrastructure/rag"
)

// Registry is the native tool backend: a closed dispatch table over the
// gateway and retrieval clients. Tool failures come back as "Error ..."
// result strings; only context cancellation surfaces as a returned error.
type Registry struct {
	gateway *greentravel.Client
	rag     *rag.Client
	enabled map[string]struct{}
	logger  *slog.Logger
	now     func() time.Time
}

type Options struct {
	// EnabledTools restricts the exposed tool set; empty means all tools.
	EnabledTools []string
	Logger       *slog.Logger
	Now          func() time.Time
}

func NewRegistry(gateway *greentravel.Client, ragClient *rag.Client, options Options) *Registry {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}
	var enabled map[string]struct{}
	if len(options.EnabledTools) > 0 {
		enabled = make(map[string]struct{}, len(options.EnabledTools))
		for _, name := range options.EnabledTools {
			enabled[strings.TrimSpace(name)] = struct{}{}
		}
	}
	return &Registry{
		gateway: gateway,
		rag:     ragClient,
		enabled: enabled,
		logger:  logger,
		now:     now,
	}
}

func (r *Registry) Connect(ctx context.Context) error { return nil }

func (r *Registry) Close(ctx context.Context) error { return nil }

func (r *Registry) Tools(ctx context.Context) ([]domain.ToolSpec, error) {
	specs := allSpecs()
	if r.enabled == nil {
		return specs, nil
	}
	filtered := make([]domain.ToolSpec, 0, len(specs))
	for _, spec := range specs {
		if _, ok := r.enabled[spec.Name]; ok {
			filtered = append(filtered, spec)
		}
	}
	return filtered, nil
}

func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	if !r.isEnabled(name) {
		return fmt.Sprintf("Error: la herramienta '%s' no existe", name), nil
	}

	out, err := r.dispatch(ctx, name, args)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.Canceled) {
		return "", err
	}
	r.logger.Warn("tool_invocation_failed", "tool", name, "error", err)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("Error: tiempo de espera agotado invocando '%s'", name), nil
	}
	if name == ToolRAGGetInvoiceData {
		return fmt.Sprintf("Error obteniendo datos de factura: %v", err), nil
	}
	return fmt.Sprintf("Error invocando '%s': %v", name, err), nil
}

func (r *Registry) isEnabled(name string) bool {
	if r.enabled != nil {
		_, ok := r.enabled[name]
		return ok
	}
	for _, spec := range allSpecs() {
		if spec.Name == name {
			return true
		}
	}
	return false
}

func (r *Registry) dispatch(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case ToolRAGGetInvoiceData:
		query := rag.InvoiceQuery(
			stringArg(args, "invoice_number"),
			stringArg(args, "cufe"),
			stringArg(args, "provider_nit"),
		)
		return r.rag.Ask(ctx, query)

	case ToolCalcularVencimiento:
		return r.calcularVencimiento(args)

	case ToolListLiquidaciones:
		return r.gateway.List(ctx, greentravel.ResourceLiquidaciones, greentravel.ListParams{
			Page:      intArgOr(args, "page", 0),
			Limit:     intArgOr(args, "limit", 0),
			Search:    stringArg(args, "search"),
			Estado:    optionalIntArg(args, "estado"),
			IDReserva: optionalIntArg(args, "id_reserva"),
			Factura:   optionalIntArg(args, "factura"),
		})
	case ToolGetLiquidacion:
		id, err := requiredIntArg(args, "liquidacion_id")
		if err != nil {
			return "", err
		}
		return r.gateway.Get(ctx, greentravel.ResourceLiquidaciones, id)
	case ToolCreateLiquidacion:
		body, err := jsonDataArg(args)
		if err != nil {
			return "", err
		}
		return r.gateway.Create(ctx, greentravel.ResourceLiquidaciones, body)
	case ToolUpdateLiquidacion:
		id, err := requiredIntArg(args, "liquidacion_id")
		if err != nil {
			return "", err
		}
		body, err := jsonDataArg(args)
		if err != nil {
			return "", err
		}
		return r.gateway.Update(ctx, greentravel.ResourceLiquidaciones, id, body)
	case ToolDeleteLiquidacion:
		id, err := requiredIntArg(args, "liquidacion_id")
		if err != nil {
			return "", err
		}
		return r.gateway.Delete(ctx, greentravel.ResourceLiquidaciones, id)
	case ToolGetLiquidacionStats:
		return r.gateway.Stats(ctx, greentravel.ResourceLiquidaciones)

	case ToolListProvedores:
		return r.gateway.List(ctx, greentravel.ResourceProvedores, greentravel.ListParams{
			Page:   intArgOr(args, "page", 0),
			Limit:  intArgOr(args, "limit", 0),
			Search: stringArg(args, "search"),
			Estado: optionalIntArg(args, "estado"),
			Tipo:   optionalIntArg(args, "tipo"),
			Ciudad: optionalIntArg(args, "ciudad"),
		})
	case ToolGetProvedor:
		id, err := requiredIntArg(args, "provedor_id")
		if err != nil {
			return "", err
		}
		return r.gateway.Get(ctx, greentravel.ResourceProvedores, id)
	case ToolCreateProvedor:
		body, err := jsonDataArg(args)
		if err != nil {
			return "", err
		}
		return r.gateway.Create(ctx, greentravel.ResourceProvedores, body)
	case ToolUpdateProvedor:
		id, err := requiredIntArg(args, "provedor_id")
		if err != nil {
			return "", err
		}
		body, err := jsonDataArg(args)
		if err != nil {
			return "", err
		}
		return r.gateway.Update(ctx, greentravel.ResourceProvedores, id, body)
	case ToolDeleteProvedor:
		id, err := requiredIntArg(args, "provedor_id")
		if err != nil {
			return "", err
		}
		return r.gateway.Delete(ctx, greentravel.ResourceProvedores, id)
	case ToolGetProvedorStats:
		return r.gateway.Stats(ctx, greentravel.ResourceProvedores)
	}
	return fmt.Sprintf("Error: la herramienta '%s' no existe", name), nil
}

// calcularVencimiento never fails with a Go error: parse and coercion
// problems land in the result's error field so the model can read them.
func (r *Registry) calcularVencimiento(args map[string]any) (string, error) {
	fecha := stringArg(args, "fecha_emision")
	dias, ok := coerceInt(args["dias_credito"])

	var result domain.DueDateResult
	if !ok {
		desc := fmt.Sprintf("dias_credito must be an integer, got %v", args["dias_credito"])
		result = domain.DueDateResult{Message: desc, Error: &desc}
	} else {
		result = domain.ComputeDueDate(fecha, dias, r.now())
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode due date result: %w", err)
	}
	return string(encoded), nil
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// coerceInt accepts the shapes models actually produce for integer
// parameters: JSON numbers, quoted numbers and native ints.
func coerceInt(v any) (int, bool) {
	switch value := v.(type) {
	case int:
		return value, true
	case int64:
		return int(value), true
	case float64:
		if value != math.Trunc(value) {
			return 0, false
		}
		return int(value), true
	case json.Number:
		n, err := value.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func intArgOr(args map[string]any, key string, fallback int) int {
	if v, ok := args[key]; ok {
		if n, ok := coerceInt(v); ok {
			return n
		}
	}
	return fallback
}

func optionalIntArg(args map[string]any, key string) *int {
	if v, ok := args[key]; ok && v != nil {
		if n, ok := coerceInt(v); ok {
			return &n
		}
	}
	return nil
}

func requiredIntArg(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required parameter %q", key)
	}
	n, ok := coerceInt(v)
	if !ok {
		return 0, fmt.Errorf("parameter %q must be an integer, got %v", key, v)
	}
	return n, nil
}

func jsonDataArg(args map[string]any) (json.RawMessage, error) {
	raw := stringArg(args, "data")
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("missing required parameter %q", "data")
	}
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("parameter %q is not valid JSON", "data")
	}
	return json.RawMessage(raw), nil
}
