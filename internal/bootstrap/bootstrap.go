package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/greentravel/invoice-agent/internal/config"
	"github.com/greentravel/invoice-agent/internal/core/domain"
	"github.com/greentravel/invoice-agent/internal/core/ports"
	"github.com/greentravel/invoice-agent/internal/core/usecase"
	auditnats "github.com/greentravel/invoice-agent/internal/infrastructure/audit/nats"
	checkpointmem "github.com/greentravel/invoice-agent/internal/infrastructure/checkpoint/memory"
	checkpointpg "github.com/greentravel/invoice-agent/internal/infrastructure/checkpoint/postgres"
	"github.com/greentravel/invoice-agent/internal/infrastructure/greentravel"
	"github.com/greentravel/invoice-agent/internal/infrastructure/llm/ollama"
	"github.com/greentravel/invoice-agent/internal/infrastructure/mcptools"
	"github.com/greentravel/invoice-agent/internal/infrastructure/rag"
	"github.com/greentravel/invoice-agent/internal/infrastructure/resilience"
	"github.com/greentravel/invoice-agent/internal/infrastructure/tools"
	"github.com/greentravel/invoice-agent/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Agent   ports.AgentService
	Metrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	model := ollama.New(cfg.OllamaURL, cfg.OllamaModel, ollama.Options{
		Timeout:           time.Duration(cfg.OllamaTimeoutSec) * time.Second,
		RequestsPerSecond: cfg.OllamaRequestsPerSec,
		Executor:          executor,
	})

	toolSession, err := buildToolSession(cfg, executor, logger)
	if err != nil {
		return nil, err
	}

	closers := make([]func(), 0, 2)

	var checkpoints ports.CheckpointStore
	if cfg.CheckpointEnabled {
		db, err := checkpointpg.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		store := checkpointpg.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		checkpoints = store
		closers = append(closers, func() { _ = db.Close() })
	} else {
		checkpoints = checkpointmem.NewStore(0)
	}

	var audit ports.AuditPublisher
	if cfg.NATSEnabled {
		publisher, err := auditnats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, auditnats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init audit publisher: %w", err)
		}
		audit = publisher
		closers = append(closers, publisher.Close)
	}

	session := usecase.NewConversationSession(model, toolSession, domain.AgentLimits{
		MaxIterations: cfg.AgentMaxIterations,
		Timeout:       time.Duration(cfg.AgentTimeoutSeconds) * time.Second,
		ModelTimeout:  time.Duration(cfg.ModelTimeoutSeconds) * time.Second,
		ToolTimeout:   time.Duration(cfg.ToolTimeoutSeconds) * time.Second,
	}, usecase.SessionOptions{
		Checkpoints:  checkpoints,
		HistoryTurns: cfg.HistoryTurns,
		Audit:        audit,
		Logger:       logger,
	})

	return &App{
		Config:  cfg,
		Agent:   session,
		Metrics: metrics.NewHTTPServerMetrics("invoice-agent"),
		closeFn: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func buildToolSession(cfg config.Config, executor *resilience.Executor, logger *slog.Logger) (ports.ToolSession, error) {
	switch cfg.ToolBackend {
	case "mcp":
		mode := mcptools.ModeStdio
		if cfg.MCPMode == "http" {
			mode = mcptools.ModeStreamableHTTP
		}
		return mcptools.NewSession(mcptools.Options{
			Mode:         mode,
			Command:      cfg.MCPCommand,
			Args:         cfg.MCPArgs,
			BaseURL:      cfg.MCPBaseURL,
			EnabledTools: cfg.EnabledTools,
			Logger:       logger,
		}), nil
	case "native", "":
		gateway := greentravel.New(cfg.GreenTravelGatewayURL, greentravel.Options{
			Executor: executor,
		})
		ragClient := rag.New(cfg.RAGBaseURL, rag.Options{
			Executor:          executor,
			Collection:        cfg.RAGCollection,
			TopK:              cfg.RAGTopK,
			UseReranking:      cfg.RAGUseReranking,
			UseQueryRewriting: cfg.RAGUseQueryRewriting,
		})
		return tools.NewRegistry(gateway, ragClient, tools.Options{
			EnabledTools: cfg.EnabledTools,
			Logger:       logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown tool backend %q", cfg.ToolBackend)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
