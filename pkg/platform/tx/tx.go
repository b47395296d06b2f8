package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "agencyhub/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner opens a transactional boundary. Stores reached through the callback
// context take part in the same unit of work.
type Runner interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// defaultMemoryTxTimeout is the maximum duration for an in-memory transaction.
const defaultMemoryTxTimeout = 5 * time.Second

type journalKey struct{}

// journal collects undo steps registered by in-memory stores.
type journal struct {
	undo []func()
}

// OnRollback registers an undo step for the in-memory transaction in ctx.
// Outside a transaction it is a no-op, so stores can call it unconditionally.
func OnRollback(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

// InMemory serializes transactions behind one lock and replays registered
// undo steps in reverse order when the callback fails.
type InMemory struct {
	mu      sync.Mutex
	timeout time.Duration
}

func NewInMemory() *InMemory {
	return &InMemory{timeout: defaultMemoryTxTimeout}
}

func (t *InMemory) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	// Nested calls join the outer transaction.
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	j := &journal{}
	txCtx := context.WithValue(ctx, journalKey{}, j)
	if err := fn(txCtx); err != nil {
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		return err
	}
	return nil
}
