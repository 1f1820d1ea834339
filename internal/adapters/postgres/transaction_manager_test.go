package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

func TestGetTx_Empty(t *testing.T) {
	if tx := GetTx(context.Background()); tx != nil {
		t.Errorf("expected nil tx on bare context, got %v", tx)
	}
}

func TestGetConn_PrefersTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	ctx := setupMockContext(mock)

	// With a transaction on the context the pool must not be touched at all:
	// passing nil proves the tx wins.
	conn := GetConn(ctx, nil)
	if conn == nil {
		t.Fatal("expected the context transaction, got nil")
	}

	mock.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	if _, err := conn.Exec(ctx, "SELECT 1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
