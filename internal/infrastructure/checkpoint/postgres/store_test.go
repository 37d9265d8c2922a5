package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/greentravel/invoice-agent/internal/core/domain"
)

func TestStoreAppendTurn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	store := NewStore(db)
	mock.ExpectExec("INSERT INTO agent_turns").
		WithArgs(sqlmock.AnyArg(), "invoice_hbe122090", "¿Cuál es el total?", "El total es $1.000.000", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.AppendTurn(context.Background(), domain.TurnRecord{
		SessionKey: "invoice_hbe122090",
		Question:   "¿Cuál es el total?",
		Answer:     "El total es $1.000.000",
	})
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreListRecentTurnsReturnsChronologicalOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	store := NewStore(db)
	newer := time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"session_key", "question", "answer", "created_at"}).
		AddRow("invoice_hbe122090", "q2", "a2", newer).
		AddRow("invoice_hbe122090", "q1", "a1", older)

	mock.ExpectQuery("FROM agent_turns").
		WithArgs("invoice_hbe122090", 2).
		WillReturnRows(rows)

	turns, err := store.ListRecentTurns(context.Background(), "invoice_hbe122090", 2)
	if err != nil {
		t.Fatalf("ListRecentTurns() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Question != "q1" || turns[1].Question != "q2" {
		t.Fatalf("turns not in chronological order: %+v", turns)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreListRecentTurnsZeroLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	store := NewStore(db)
	turns, err := store.ListRecentTurns(context.Background(), "query_deadbeef", 0)
	if err != nil {
		t.Fatalf("ListRecentTurns() error = %v", err)
	}
	if turns != nil {
		t.Fatalf("expected no query for zero limit, got %+v", turns)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
