package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/greentravel/invoice-agent/internal/core/domain"
)

// Mode selects the MCP transport.
type Mode string

const (
	ModeStdio          Mode = "stdio"
	ModeStreamableHTTP Mode = "http"
)

// Session adapts an external MCP tool server to the tool-session port. The
// server owns the tool catalog; this side only relays calls and flattens
// results to text.
type Session struct {
	mode    Mode
	command string
	args    []string
	env     []string
	baseURL string
	enabled map[string]struct{}
	logger  *slog.Logger

	mu     sync.Mutex
	client *client.Client
}

type Options struct {
	Mode    Mode
	Command string
	Args    []string
	Env     []string
	BaseURL string
	// EnabledTools restricts the advertised tool set; empty means all.
	EnabledTools []string
	Logger       *slog.Logger
}

func NewSession(options Options) *Session {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var enabled map[string]struct{}
	if len(options.EnabledTools) > 0 {
		enabled = make(map[string]struct{}, len(options.EnabledTools))
		for _, name := range options.EnabledTools {
			enabled[strings.TrimSpace(name)] = struct{}{}
		}
	}
	return &Session{
		mode:    options.Mode,
		command: options.Command,
		args:    options.Args,
		env:     options.Env,
		baseURL: options.BaseURL,
		enabled: enabled,
		logger:  logger,
	}
}

func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}

	var (
		c   *client.Client
		err error
	)
	switch s.mode {
	case ModeStreamableHTTP:
		c, err = client.NewStreamableHttpClient(s.baseURL)
		if err == nil {
			err = c.Start(ctx)
		}
	case ModeStdio, "":
		// NewStdioMCPClient spawns the server process and starts the
		// transport itself.
		c, err = client.NewStdioMCPClient(s.command, s.env, s.args...)
	default:
		return fmt.Errorf("unsupported mcp mode %q", s.mode)
	}
	if err != nil {
		return fmt.Errorf("establish mcp transport: %w", err)
	}

	var initReq mcp.InitializeRequest
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "invoice-agent", Version: "1.0.0"}
	result, err := c.Initialize(ctx, initReq)
	if err != nil {
		_ = c.Close()
		return fmt.Errorf("initialize mcp session: %w", err)
	}

	s.logger.Info("mcp_session_established",
		"server", result.ServerInfo.Name,
		"server_version", result.ServerInfo.Version,
	)
	s.client = c
	return nil
}

func (s *Session) Tools(ctx context.Context) ([]domain.ToolSpec, error) {
	c, err := s.current()
	if err != nil {
		return nil, err
	}

	listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list mcp tools: %w", err)
	}

	specs := make([]domain.ToolSpec, 0, len(listed.Tools))
	for _, tool := range listed.Tools {
		if s.enabled != nil {
			if _, ok := s.enabled[tool.Name]; !ok {
				continue
			}
		}
		specs = append(specs, domain.ToolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  schemaToMap(tool.InputSchema),
		})
	}
	return specs, nil
}

func (s *Session) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	c, err := s.current()
	if err != nil {
		return "", err
	}
	if s.enabled != nil {
		if _, ok := s.enabled[name]; !ok {
			return fmt.Sprintf("Error: la herramienta '%s' no existe", name), nil
		}
	}

	var callReq mcp.CallToolRequest
	callReq.Params.Name = name
	callReq.Params.Arguments = args
	result, err := c.CallTool(ctx, callReq)
	if err != nil {
		return "", fmt.Errorf("call tool %s: %w", name, err)
	}

	text := flattenContent(result.Content)
	if result.IsError && !strings.HasPrefix(text, "Error") {
		if text == "" {
			text = fmt.Sprintf("Error invocando '%s'", name)
		} else {
			text = "Error: " + text
		}
	}
	return text, nil
}

func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *Session) current() (*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, fmt.Errorf("mcp session is not connected")
	}
	return s.client, nil
}

func schemaToMap(schema mcp.ToolInputSchema) map[string]any {
	out := map[string]any{"type": schema.Type}
	if out["type"] == "" {
		out["type"] = "object"
	}
	if schema.Properties != nil {
		out["properties"] = schema.Properties
	} else {
		out["properties"] = map[string]any{}
	}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	return out
}

func flattenContent(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, item := range content {
		if text, ok := item.(mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
