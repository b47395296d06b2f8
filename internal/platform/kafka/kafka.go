// Package kafka wraps the franz-go client used by the outbox relay.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"agencyhub/internal/platform/config"
)

// Message is one event to publish.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

// Producer is the subset the relay needs; tests substitute a fake.
type Producer interface {
	Publish(ctx context.Context, msgs ...Message) error
	Close()
}

// Client produces to a single topic.
type Client struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and ensures the topic exists.
// Returns nil when no brokers are configured.
func New(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := cl.Ping(ctx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}
	if err := EnsureTopic(ctx, cl, cfg.Topic, cfg.Partitions, cfg.Replication); err != nil {
		cl.Close()
		return nil, err
	}
	logger.InfoContext(ctx, "kafka producer ready", "topic", cfg.Topic, "brokers", cfg.Brokers)
	return &Client{client: cl, topic: cfg.Topic}, nil
}

// EnsureTopic creates topic if it is missing. An existing topic is fine.
func EnsureTopic(ctx context.Context, cl *kgo.Client, topic string, partitions int32, replication int16) error {
	adm := kadm.NewClient(cl)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Publish produces msgs synchronously and returns the first failure.
func (c *Client) Publish(ctx context.Context, msgs ...Message) error {
	records := make([]*kgo.Record, 0, len(msgs))
	for _, m := range msgs {
		rec := &kgo.Record{Topic: c.topic, Key: []byte(m.Key), Value: m.Value}
		for k, v := range m.Headers {
			rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
		}
		records = append(records, rec)
	}
	if err := c.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", c.topic, err)
	}
	return nil
}

// Health pings the brokers.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx)
}

func (c *Client) Close() {
	c.client.Close()
}
