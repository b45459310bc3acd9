package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"venuegraph/internal/source"
)

// Envelope is the wire format on the raw-records topic: one record plus the
// source type it belongs to.
type Envelope struct {
	SourceType source.Type      `json:"source_type"`
	Record     source.RawRecord `json:"record"`
}

// Consumer reads raw records from Kafka into a Buffer.
type Consumer struct {
	client *kgo.Client
	buffer *Buffer
	logger *slog.Logger
}

// NewConsumer joins the consumer group on the given topic.
func NewConsumer(brokers []string, topic, group string, buffer *Buffer, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka consumer: %w", err)
	}
	return &Consumer{client: client, buffer: buffer, logger: logger}, nil
}

// Run polls until the context ends. Undecodable records are logged and
// skipped; the stream must keep moving.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				c.logger.Error("fetch failed", "topic", fe.Topic, "error", fe.Err)
			}
		}

		fetches.EachRecord(func(record *kgo.Record) {
			if err := c.ingest(record.Value); err != nil {
				c.logger.Warn("skipping bad record",
					"offset", record.Offset,
					"partition", record.Partition,
					"error", err)
			}
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.Error("offset commit failed", "error", err)
		}
	}
}

func (c *Consumer) ingest(value []byte) error {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.SourceType == "" {
		return fmt.Errorf("envelope missing source_type")
	}
	c.buffer.Add(env.SourceType, env.Record)
	return nil
}

func (c *Consumer) Close() {
	c.client.Close()
}
