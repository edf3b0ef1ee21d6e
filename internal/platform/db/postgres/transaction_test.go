package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockManager(t *testing.T) (*TransactionManager, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewTransactionManager(mock), mock
}

func assertMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactionManager_CommitsApplicationMove(t *testing.T) {
	t.Parallel()

	tm, mock := newMockManager(t)
	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
	mock.ExpectCommit()

	if err := tm.WithinReadWrite(context.Background(), func(ctx context.Context) error {
		if !InTransaction(ctx) {
			t.Fatalf("history close and open must share the transaction")
		}
		return nil
	}); err != nil {
		t.Fatalf("WithinReadWrite: %v", err)
	}
	assertMet(t, mock)
}

func TestTransactionManager_RollsBackWhenWorkFails(t *testing.T) {
	t.Parallel()

	tm, mock := newMockManager(t)
	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadOnly})
	mock.ExpectRollback()

	stageMissing := errors.New("stage not in job")
	err := tm.WithinReadOnly(context.Background(), func(context.Context) error {
		return stageMissing
	})
	if !errors.Is(err, stageMissing) {
		t.Fatalf("expected %v, got %v", stageMissing, err)
	}
	assertMet(t, mock)
}

func TestTransactionManager_ReadInsideWriteJoinsOuter(t *testing.T) {
	t.Parallel()

	tm, mock := newMockManager(t)
	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
	mock.ExpectCommit()

	err := tm.WithinReadWrite(context.Background(), func(outer context.Context) error {
		return tm.WithinReadOnly(outer, func(inner context.Context) error {
			got, _ := txFromContext(inner)
			want, _ := txFromContext(outer)
			if got != want {
				t.Fatalf("read-only call must reuse the outer transaction")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("nested call: %v", err)
	}
	assertMet(t, mock)
}

func TestTransactionManager_RejectsWriteInsideReadOnly(t *testing.T) {
	t.Parallel()

	tm, mock := newMockManager(t)
	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadOnly})
	mock.ExpectRollback()

	ran := false
	err := tm.WithinReadOnly(context.Background(), func(ctx context.Context) error {
		return tm.WithinReadWrite(ctx, func(context.Context) error {
			ran = true
			return nil
		})
	})
	if !errors.Is(err, ErrReadOnlyUpgrade) {
		t.Fatalf("expected ErrReadOnlyUpgrade, got %v", err)
	}
	if ran {
		t.Fatalf("write work must not run inside a read-only transaction")
	}
	assertMet(t, mock)
}

func TestTransactionManager_CommitFailureIsReported(t *testing.T) {
	t.Parallel()

	tm, mock := newMockManager(t)
	commitErr := errors.New("could not serialize access")
	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
	mock.ExpectCommit().WillReturnError(commitErr)
	mock.ExpectRollback()

	err := tm.WithinReadWrite(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, commitErr) {
		t.Fatalf("expected commit error, got %v", err)
	}
}

func TestTransactionManager_NilManagerRunsDirectly(t *testing.T) {
	t.Parallel()

	var tm *TransactionManager
	called := false
	if err := tm.WithinReadWrite(context.Background(), func(ctx context.Context) error {
		called = true
		if InTransaction(ctx) {
			t.Fatalf("nil manager must not inject a transaction")
		}
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatalf("expected fn to be called")
	}
}

func TestQueryerFromContext_PrefersTransaction(t *testing.T) {
	t.Parallel()

	tm, mock := newMockManager(t)
	if got := QueryerFromContext(context.Background(), mock); got != mock {
		t.Fatalf("expected pool fallback outside a transaction")
	}

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadOnly})
	mock.ExpectCommit()
	if err := tm.WithinReadOnly(context.Background(), func(ctx context.Context) error {
		if QueryerFromContext(ctx, mock) == mock {
			t.Fatalf("expected the transaction, got the pool")
		}
		return nil
	}); err != nil {
		t.Fatalf("WithinReadOnly: %v", err)
	}
	assertMet(t, mock)
}
