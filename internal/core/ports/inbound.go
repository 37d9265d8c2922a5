package ports

import (
	"context"

	"github.com/greentravel/invoice-agent/internal/core/domain"
)

// AgentService is the inbound contract for answering free-text questions.
type AgentService interface {
	Ask(ctx context.Context, question string) (*domain.AgentRunResult, error)
	Shutdown(ctx context.Context) error
}
