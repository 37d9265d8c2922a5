package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/greentravel/invoice-agent/internal/core/domain"
	"github.com/greentravel/invoice-agent/internal/core/ports"
)

// SessionOptions carries the optional collaborators of a ConversationSession.
// A nil Checkpoints disables multi-turn memory; a nil Audit disables the
// audit trail.
type SessionOptions struct {
	Checkpoints  ports.CheckpointStore
	HistoryTurns int
	Audit        ports.AuditPublisher
	Logger       *slog.Logger
}

// ConversationSession owns the tool-session lifecycle and runs one agent loop
// per incoming question. The underlying tool session is established lazily on
// first use, reused across calls and released on Shutdown.
type ConversationSession struct {
	model  ports.ChatModel
	tools  ports.ToolSession
	limits domain.AgentLimits
	loop   *AgentLoop
	opts   SessionOptions
	logger *slog.Logger

	mu        sync.Mutex
	connected bool
	specs     []domain.ToolSpec
}

func NewConversationSession(model ports.ChatModel, tools ports.ToolSession, limits domain.AgentLimits, opts SessionOptions) *ConversationSession {
	if limits.MaxIterations <= 0 {
		limits.MaxIterations = 6
	}
	if limits.Timeout <= 0 {
		limits.Timeout = 90 * time.Second
	}
	if limits.ModelTimeout <= 0 {
		limits.ModelTimeout = 30 * time.Second
	}
	if limits.ToolTimeout <= 0 {
		limits.ToolTimeout = 30 * time.Second
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = 6
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ConversationSession{
		model:  model,
		tools:  tools,
		limits: limits,
		loop:   NewAgentLoop(model, tools, limits, logger),
		opts:   opts,
		logger: logger,
	}
}

// Ask answers one question. Every invocation builds a fresh conversation
// state with the invoice context cleared; prior turns for the same session
// key are replayed as history only when checkpointing is configured.
func (s *ConversationSession) Ask(ctx context.Context, question string) (*domain.AgentRunResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("question is required"))
	}

	specs, err := s.ensureToolSession(ctx)
	if err != nil {
		return nil, err
	}

	sessionKey := domain.DeriveSessionKey(question)
	state := domain.NewConversationState(s.priorMessages(ctx, sessionKey), question)

	runCtx, cancel := context.WithTimeout(ctx, s.limits.Timeout)
	defer cancel()

	result, err := s.loop.Run(runCtx, state, specs)
	if err != nil {
		return nil, err
	}
	result.SessionKey = sessionKey

	s.recordTurn(ctx, sessionKey, question, result)
	return result, nil
}

// Shutdown releases the underlying tool session. A later Ask re-establishes
// it, so a dropped session never leaves the service permanently broken.
func (s *ConversationSession) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil
	}
	s.connected = false
	s.specs = nil
	if err := s.tools.Close(ctx); err != nil {
		return fmt.Errorf("close tool session: %w", err)
	}
	return nil
}

// ensureToolSession connects on first use and caches the advertised tool set.
// The lock keeps concurrent callers from racing to create two connections.
func (s *ConversationSession) ensureToolSession(ctx context.Context) ([]domain.ToolSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return s.specs, nil
	}

	if err := s.tools.Connect(ctx); err != nil {
		return nil, domain.WrapError(domain.ErrConnection, "tool session connect", err)
	}
	specs, err := s.tools.Tools(ctx)
	if err != nil {
		_ = s.tools.Close(ctx)
		return nil, domain.WrapError(domain.ErrConnection, "tool session list", err)
	}

	s.connected = true
	s.specs = specs
	s.logger.Info("tool_session_established", "tools", len(specs))
	return specs, nil
}

func (s *ConversationSession) priorMessages(ctx context.Context, sessionKey string) []domain.Message {
	if s.opts.Checkpoints == nil {
		return nil
	}
	turns, err := s.opts.Checkpoints.ListRecentTurns(ctx, sessionKey, s.opts.HistoryTurns)
	if err != nil {
		s.logger.Warn("checkpoint_load_failed", "session_key", sessionKey, "error", err)
		return nil
	}
	prior := make([]domain.Message, 0, len(turns)*2)
	for _, turn := range turns {
		prior = append(prior,
			domain.UserMessage(turn.Question),
			domain.Message{Role: domain.RoleAssistant, Content: turn.Answer},
		)
	}
	return prior
}

// recordTurn persists the checkpoint and publishes the audit event. Both are
// best-effort: the answer is already final.
func (s *ConversationSession) recordTurn(ctx context.Context, sessionKey, question string, result *domain.AgentRunResult) {
	now := time.Now().UTC()
	if s.opts.Checkpoints != nil {
		if err := s.opts.Checkpoints.AppendTurn(ctx, domain.TurnRecord{
			SessionKey: sessionKey,
			Question:   question,
			Answer:     result.Answer,
			CreatedAt:  now,
		}); err != nil {
			s.logger.Warn("checkpoint_append_failed", "session_key", sessionKey, "error", err)
		}
	}
	if s.opts.Audit != nil {
		if err := s.opts.Audit.PublishTurnCompleted(ctx, domain.TurnAuditEvent{
			SessionKey:   sessionKey,
			Question:     question,
			Answer:       result.Answer,
			Iterations:   result.Iterations,
			ToolsInvoked: result.ToolsInvoked,
			CreatedAt:    now,
		}); err != nil {
			s.logger.Warn("audit_publish_failed", "session_key", sessionKey, "error", err)
		}
	}
}
