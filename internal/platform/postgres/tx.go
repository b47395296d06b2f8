package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"

	dErrors "agencyhub/pkg/domain-errors"
	txcontext "agencyhub/pkg/platform/tx"
)

const (
	defaultTxTimeout    = 5 * time.Second
	defaultTxMaxRetries = 3
)

// RetryObserver is notified on every replayed transaction.
type RetryObserver interface {
	IncTxRetry()
}

// TxRunner implements tx.Runner over *sql.DB. The transaction travels in the
// callback context so every store call inside joins it. Transient failures
// replay the whole callback with exponential backoff.
type TxRunner struct {
	db         *sql.DB
	timeout    time.Duration
	maxRetries uint64
	logger     *slog.Logger
	observer   RetryObserver
}

type TxOption func(*TxRunner)

func WithTxTimeout(d time.Duration) TxOption {
	return func(r *TxRunner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithMaxRetries(n uint64) TxOption {
	return func(r *TxRunner) { r.maxRetries = n }
}

func WithTxLogger(logger *slog.Logger) TxOption {
	return func(r *TxRunner) { r.logger = logger }
}

func WithRetryObserver(o RetryObserver) TxOption {
	return func(r *TxRunner) { r.observer = o }
}

func NewTxRunner(db *sql.DB, opts ...TxOption) *TxRunner {
	r := &TxRunner{
		db:         db,
		timeout:    defaultTxTimeout,
		maxRetries: defaultTxMaxRetries,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	// Nested calls join the outer transaction.
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.maxRetries), ctx)
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := r.runOnce(ctx, fn)
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo, func(err error, next time.Duration) {
		if r.observer != nil {
			r.observer.IncTxRetry()
		}
		if r.logger != nil {
			r.logger.WarnContext(ctx, "transient store failure, replaying transaction",
				"attempt", attempt,
				"retry_in", next.String(),
				"error", err,
			)
		}
	})
	if err != nil && ctx.Err() != nil && dErrors.CodeOf(err) == dErrors.CodeInternal {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction timed out")
	}
	return err
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(txCtx context.Context) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
