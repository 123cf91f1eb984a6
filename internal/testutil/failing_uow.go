package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/alexanderramin/scanflow/internal/db"
)

// FailOnNthExecUoW is a test UoW that injects an error on the Nth ExecContext
// call within a transaction, counted from 1. Reads pass through.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	return runFailingTx(ctx, u.DB, fn, func(n int32, _ string) bool { return n == u.FailOn }, u.Err)
}

// FailOnStatementUoW injects Err into the first ExecContext whose SQL
// contains Match, e.g. "INSERT INTO archive_entries".
type FailOnStatementUoW struct {
	DB    *sql.DB
	Match string
	Err   error
}

func (u *FailOnStatementUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	return runFailingTx(ctx, u.DB, fn, func(_ int32, query string) bool {
		return strings.Contains(query, u.Match)
	}, u.Err)
}

func runFailingTx(ctx context.Context, database *sql.DB, fn func(ctx context.Context, tx db.DBTX) error, fail func(n int32, query string) bool, injected error) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	wrapped := &failingExec{DBTX: tx, fail: fail, err: injected}
	if fnErr := fn(ctx, wrapped); fnErr != nil {
		_ = tx.Rollback()
		return fnErr
	}
	return tx.Commit()
}

type failingExec struct {
	db.DBTX
	count atomic.Int32
	fail  func(n int32, query string) bool
	err   error
}

func (f *failingExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	n := f.count.Add(1)
	if f.fail(n, query) {
		return nil, f.err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
