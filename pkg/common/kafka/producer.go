package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santerelay/platform/pkg/common/config"
	"github.com/santerelay/platform/pkg/common/logger"
	"github.com/santerelay/platform/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

// Producer mirrors referral lifecycle events onto a Kafka topic so downstream
// consumers (dashboards, SMS gateways, analytics) can follow case routing
// without holding a live connection to this service.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(topic string) *Producer {
	cfg := config.Load()
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer}
}

func (p *Producer) PublishLifecycle(ctx context.Context, event models.LifecycleEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.Data.ReferralID.String()),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Event)},
			{Key: "status", Value: []byte(event.Data.Status)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"referral_id": event.Data.ReferralID,
			"event":       event.Event,
		}).Error("Failed to publish lifecycle event")
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"referral_id": event.Data.ReferralID,
		"event":       event.Event,
		"topic":       p.writer.Topic,
	}).Debug("Lifecycle event published to Kafka")

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
