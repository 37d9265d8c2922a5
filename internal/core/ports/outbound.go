package ports

import (
	"context"

	"github.com/greentravel/invoice-agent/internal/core/domain"
)

// ChatModel performs one language-model invocation with the available tool
// set. The returned message is an assistant message, possibly carrying tool
// calls; any other shape is a protocol violation reported as an error.
type ChatModel interface {
	Chat(ctx context.Context, messages []domain.Message, tools []domain.ToolSpec) (domain.Message, error)
}

// ToolSession is the long-lived tool backend: established once, reused across
// questions, released on explicit close. Invoke converts tool-level failures
// into "Error ..." result strings; only context cancellation and session-level
// faults surface as returned errors.
type ToolSession interface {
	Connect(ctx context.Context) error
	Tools(ctx context.Context) ([]domain.ToolSpec, error)
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
	Close(ctx context.Context) error
}

// CheckpointStore persists completed turns partitioned by session key.
type CheckpointStore interface {
	AppendTurn(ctx context.Context, turn domain.TurnRecord) error
	ListRecentTurns(ctx context.Context, sessionKey string, limit int) ([]domain.TurnRecord, error)
}

// AuditPublisher emits completed-turn events to the audit stream.
type AuditPublisher interface {
	PublishTurnCompleted(ctx context.Context, event domain.TurnAuditEvent) error
}
