package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/greentravel/invoice-agent/internal/core/domain"
	"github.com/greentravel/invoice-agent/internal/core/ports"
)

const ragInvoiceTool = "rag_get_invoice_data"

const toolErrorPrefix = "Error"

// AgentLoop runs the tool-calling cycle: the model chooses whether to call
// tools, tool results are folded back into the state, and the cycle repeats
// until the model answers without further calls or the iteration cap is hit.
// Iterations are strictly sequential; interleaving would corrupt message
// causal order.
type AgentLoop struct {
	model  ports.ChatModel
	tools  ports.ToolSession
	limits domain.AgentLimits
	logger *slog.Logger
	now    func() time.Time
}

func NewAgentLoop(model ports.ChatModel, tools ports.ToolSession, limits domain.AgentLimits, logger *slog.Logger) *AgentLoop {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentLoop{
		model:  model,
		tools:  tools,
		limits: limits,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run drives the state machine to completion. The state must be seeded with
// at least the current user message and a cleared invoice context.
func (l *AgentLoop) Run(ctx context.Context, state *domain.ConversationState, specs []domain.ToolSpec) (*domain.AgentRunResult, error) {
	toolsInvoked := make([]string, 0, l.limits.MaxIterations)
	toolSet := make(map[string]struct{})
	events := make([]domain.ToolEvent, 0, l.limits.MaxIterations)

	for iteration := 1; iteration <= l.limits.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		response, err := l.consultModel(ctx, state, specs)
		if err != nil {
			return nil, err
		}
		state.Append(response)

		if len(response.ToolCalls) == 0 {
			return &domain.AgentRunResult{
				Answer:       extractAnswer(state),
				Iterations:   iteration,
				ToolsInvoked: toolsInvoked,
				ToolEvents:   events,
			}, nil
		}

		callEvents, err := l.dispatchToolCalls(ctx, state, response.ToolCalls)
		if err != nil {
			return nil, err
		}
		for _, event := range callEvents {
			events = append(events, event)
			if _, seen := toolSet[event.Tool]; !seen {
				toolSet[event.Tool] = struct{}{}
				toolsInvoked = append(toolsInvoked, event.Tool)
			}
		}
	}

	return nil, domain.WrapError(domain.ErrLoopLimit, "agent loop",
		fmt.Errorf("no final answer after %d iterations", l.limits.MaxIterations))
}

// consultModel purges a stale invoice context, invokes the model once and
// validates the response shape.
func (l *AgentLoop) consultModel(ctx context.Context, state *domain.ConversationState, specs []domain.ToolSpec) (domain.Message, error) {
	l.purgeStaleInvoice(state)

	modelCtx, cancel := context.WithTimeout(ctx, l.limits.ModelTimeout)
	defer cancel()

	response, err := l.model.Chat(modelCtx, l.promptMessages(state), specs)
	if err != nil {
		return domain.Message{}, fmt.Errorf("model invoke: %w", err)
	}
	if response.Role != domain.RoleAssistant {
		return domain.Message{}, domain.WrapError(domain.ErrProtocol, "model response",
			fmt.Errorf("expected assistant message, got role %q", response.Role))
	}
	return response, nil
}

// dispatchToolCalls runs every tool call in request order and appends one
// tool-result message per call, tagged with the originating call id. Request
// order is significant for tools with side effects.
func (l *AgentLoop) dispatchToolCalls(ctx context.Context, state *domain.ConversationState, calls []domain.ToolCall) ([]domain.ToolEvent, error) {
	events := make([]domain.ToolEvent, 0, len(calls))
	for _, call := range calls {
		toolCtx, cancel := context.WithTimeout(ctx, l.limits.ToolTimeout)
		output, err := l.tools.Invoke(toolCtx, call.Name, call.Arguments)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", call.Name, err)
		}

		status := "ok"
		if strings.HasPrefix(output, toolErrorPrefix) {
			status = "error"
		}
		events = append(events, domain.ToolEvent{
			Tool:   call.Name,
			CallID: call.ID,
			Status: status,
			Output: output,
		})
		state.Append(domain.ToolResultMessage(call, output))

		if call.Name == ragInvoiceTool && status == "ok" {
			state.Invoice = &domain.InvoiceContext{RawText: output, FetchedAt: l.now()}
			l.logger.Info("invoice_context_cached", "chars", len(output))
		}
	}
	return events, nil
}

// purgeStaleInvoice clears the cached invoice payload when the most recent
// user message names a different identifier than the cached one. This keeps
// answers from drifting across invoices within one exchange.
func (l *AgentLoop) purgeStaleInvoice(state *domain.ConversationState) {
	if state.Invoice == nil {
		return
	}
	current := domain.ExtractIdentifier(state.LastUserContent())
	if current == "" {
		return
	}
	previous := state.Invoice.Identifier()
	if previous != "" && !strings.EqualFold(previous, current) {
		l.logger.Warn("invoice_context_purged", "previous", previous, "current", current)
		state.Invoice = nil
	}
}

// promptMessages builds the model input: system policy, all state messages in
// causal order and, when an invoice payload is cached, a note describing its
// presence and size rather than duplicating its content.
func (l *AgentLoop) promptMessages(state *domain.ConversationState) []domain.Message {
	messages := make([]domain.Message, 0, len(state.Messages)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: systemPrompt})
	messages = append(messages, state.Messages...)
	if state.Invoice != nil && state.Invoice.RawText != "" {
		messages = append(messages, domain.UserMessage(fmt.Sprintf(
			"Contexto: ya tengo información de factura obtenida del RAG (%d caracteres). Puedo usarla para responder preguntas o calcular vencimientos.",
			len(state.Invoice.RawText))))
	}
	return messages
}

func extractAnswer(state *domain.ConversationState) string {
	last, ok := state.LastMessage()
	if !ok {
		return domain.NoAnswerFallback
	}
	return last.Content
}
