package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/greentravel/invoice-agent/internal/core/domain"
)

func TestStoreKeepsTurnsPartitionedBySessionKey(t *testing.T) {
	store := NewStore(10)
	ctx := context.Background()

	for _, turn := range []domain.TurnRecord{
		{SessionKey: "invoice_hbe122090", Question: "q1", Answer: "a1"},
		{SessionKey: "query_deadbeef", Question: "other", Answer: "other"},
		{SessionKey: "invoice_hbe122090", Question: "q2", Answer: "a2"},
	} {
		if err := store.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	turns, err := store.ListRecentTurns(ctx, "invoice_hbe122090", 10)
	if err != nil {
		t.Fatalf("ListRecentTurns() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Question != "q1" || turns[1].Question != "q2" {
		t.Fatalf("turns out of order: %+v", turns)
	}
}

func TestStoreListRecentTurnsHonorsLimit(t *testing.T) {
	store := NewStore(10)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.AppendTurn(ctx, domain.TurnRecord{
			SessionKey: "invoice_x",
			Question:   fmt.Sprintf("q%d", i),
			Answer:     "a",
		})
		if err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	turns, err := store.ListRecentTurns(ctx, "invoice_x", 2)
	if err != nil {
		t.Fatalf("ListRecentTurns() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Question != "q3" || turns[1].Question != "q4" {
		t.Fatalf("expected the most recent turns, got %+v", turns)
	}
}

func TestStoreEvictsBeyondCapacity(t *testing.T) {
	store := NewStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.AppendTurn(ctx, domain.TurnRecord{
			SessionKey: "invoice_x",
			Question:   fmt.Sprintf("q%d", i),
			Answer:     "a",
		})
		if err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	turns, err := store.ListRecentTurns(ctx, "invoice_x", 10)
	if err != nil {
		t.Fatalf("ListRecentTurns() error = %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected capacity of 3, got %d", len(turns))
	}
	if turns[0].Question != "q2" {
		t.Fatalf("expected oldest retained turn q2, got %s", turns[0].Question)
	}
}
