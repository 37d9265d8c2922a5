package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/greentravel/invoice-agent/internal/core/domain"
	"github.com/greentravel/invoice-agent/internal/infrastructure/resilience"
)

// Client talks to Ollama's /api/chat endpoint with native tool calling.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Executor          *resilience.Executor
}

func New(baseURL, model string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	var limiter *rate.Limiter
	if options.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSecond), 1)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		executor:   options.Executor,
	}
}

type wireToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type wireMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

// Chat performs one model invocation. Malformed responses are protocol
// violations, fatal to the turn.
func (c *Client) Chat(ctx context.Context, messages []domain.Message, tools []domain.ToolSpec) (domain.Message, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.Message{}, err
		}
	}

	request := map[string]any{
		"model":    c.model,
		"messages": encodeMessages(messages),
		"stream":   false,
	}
	if len(tools) > 0 {
		request["tools"] = encodeTools(tools)
	}

	var response struct {
		Message *struct {
			Role      string         `json:"role"`
			Content   string         `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"message"`
	}

	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/chat", request, &response, "chat")
	}
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.chat", call, classifyModelError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.Message{}, domain.WrapError(domain.ErrConnection, "ollama chat", err)
	}

	if response.Message == nil {
		return domain.Message{}, domain.WrapError(domain.ErrProtocol, "ollama chat",
			fmt.Errorf("response is missing the message field"))
	}
	if response.Message.Role != string(domain.RoleAssistant) {
		return domain.Message{}, domain.WrapError(domain.ErrProtocol, "ollama chat",
			fmt.Errorf("expected assistant role, got %q", response.Message.Role))
	}

	out := domain.Message{
		Role:    domain.RoleAssistant,
		Content: response.Message.Content,
	}
	// Ollama does not assign tool-call ids; issue them here so tool results
	// can link back to their originating call.
	for _, call := range response.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:        uuid.NewString(),
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return out, nil
}

func encodeMessages(messages []domain.Message) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		wm := wireMessage{
			Role:     string(msg.Role),
			Content:  msg.Content,
			ToolName: msg.ToolName,
		}
		for _, call := range msg.ToolCalls {
			var wc wireToolCall
			wc.Function.Name = call.Name
			wc.Function.Arguments = call.Arguments
			wm.ToolCalls = append(wm.ToolCalls, wc)
		}
		out = append(out, wm)
	}
	return out
}

func encodeTools(tools []domain.ToolSpec) []wireTool {
	out := make([]wireTool, 0, len(tools))
	for _, spec := range tools {
		var wt wireTool
		wt.Type = "function"
		wt.Function.Name = spec.Name
		wt.Function.Description = spec.Description
		wt.Function.Parameters = spec.Parameters
		out = append(out, wt)
	}
	return out
}
