// Package stream adapts the durable log to kafka.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/rl1809/flash-sale-pipeline/internal/core/domain"
)

// NewWriter creates a producer for the orders topic. Messages are keyed by
// product id so per-product order survives a multi-partition topic, and the
// write waits for acknowledgment from all in-sync replicas.
func NewWriter(brokers []string, topic string) *kafkaGo.Writer {
	return &kafkaGo.Writer{
		Addr:         kafkaGo.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkaGo.Hash{},
		RequiredAcks: kafkaGo.RequireAll,
	}
}

// NewReader creates a consumer-group reader for the orders topic. Offsets are
// committed explicitly, never on fetch.
func NewReader(brokers []string, topic, groupID string) *kafkaGo.Reader {
	return kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafkaGo.FirstOffset,
	})
}

// Producer publishes reservation envelopes to the orders topic.
type Producer struct {
	writer *kafkaGo.Writer
}

func NewProducer(writer *kafkaGo.Writer) *Producer {
	return &Producer{writer: writer}
}

func (p *Producer) Publish(ctx context.Context, r domain.Reservation) error {
	value, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reservation: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(r.ProductID),
		Value: value,
	})
}

// Handler processes one fetched message and reports whether its offset may be
// committed.
type Handler func(ctx context.Context, value []byte) (commit bool)

const retryBackoff = time.Second

// Consume fetches messages in a loop and calls the handler for each. The
// offset is committed only when the handler says so; until then the same
// message is retried in place, which intentionally blocks the partition and
// accumulates lag. Blocks until the context is cancelled.
func Consume(ctx context.Context, reader *kafkaGo.Reader, handler Handler) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("consumer shutting down", "topic", reader.Config().Topic)
				return
			}
			slog.Error("fetch message", "topic", reader.Config().Topic, "err", err)
			continue
		}

		for !handler(ctx, msg.Value) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackoff):
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("commit offset", "topic", reader.Config().Topic, "err", err)
		}
	}
}
