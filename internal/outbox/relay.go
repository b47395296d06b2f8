package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agencyhub/internal/platform/kafka"
	"agencyhub/internal/platform/metrics"
	auditpostgres "agencyhub/pkg/platform/audit/store/postgres"
	txcontext "agencyhub/pkg/platform/tx"
)

// Store is the outbox persistence the relay drives.
type Store interface {
	FetchUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	CountUnpublished(ctx context.Context) (int, error)
}

// Relay moves outbox entries to Kafka. Each pass fetches, publishes and marks
// one batch inside a single transaction; a publish failure rolls the batch
// back and it is retried next tick, so delivery is at least once.
type Relay struct {
	store    Store
	producer kafka.Producer
	tx       txcontext.Runner
	metrics  *metrics.Metrics
	logger   *slog.Logger
	interval time.Duration
	batch    int
	now      func() time.Time
}

type RelayOption func(*Relay)

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = logger }
}

func NewRelay(store Store, producer kafka.Producer, tx txcontext.Runner, opts ...RelayOption) *Relay {
	r := &Relay{
		store:    store,
		producer: producer,
		tx:       tx,
		logger:   slog.Default(),
		interval: 2 * time.Second,
		batch:    100,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes at most one batch and returns how many entries were
// marked published.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var relayed int
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		entries, err := r.store.FetchUnpublished(txCtx, r.batch)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		msgs := make([]kafka.Message, 0, len(entries))
		ids := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			msgs = append(msgs, toMessage(e))
			ids = append(ids, e.ID)
		}
		if err := r.producer.Publish(txCtx, msgs...); err != nil {
			r.metrics.IncOutboxFailure()
			return err
		}
		if err := r.store.MarkPublished(txCtx, ids, r.now()); err != nil {
			return err
		}
		relayed = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.metrics.AddOutboxRelayed(relayed)
	if backlog, err := r.store.CountUnpublished(ctx); err == nil {
		r.metrics.SetOutboxLag(backlog)
	}
	if relayed > 0 {
		r.logger.DebugContext(ctx, "outbox batch relayed", "count", relayed)
	}
	return relayed, nil
}

// toMessage keys by aggregate so one agency's events stay ordered within a
// partition.
func toMessage(e Entry) kafka.Message {
	headers := map[string]string{
		"event_type":     e.EventType,
		"aggregate_type": e.AggregateType,
		"event_id":       e.ID.String(),
	}
	if ev, err := auditpostgres.DecodePayload(e.Payload); err == nil && ev.Category != "" {
		headers["category"] = string(ev.Category)
	}
	return kafka.Message{Key: e.AggregateID, Value: e.Payload, Headers: headers}
}
