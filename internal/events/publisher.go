package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"shop-service/internal/entity"
	"shop-service/internal/metrics"
)

// Publisher announces product writes to other backend instances.
type Publisher interface {
	Publish(ctx context.Context, event entity.ProductEvent) error
}

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// DefaultPublishTimeout bounds a single publish so an unreachable broker
// does not hold up the request that triggered it.
const DefaultPublishTimeout = 2 * time.Second

type KafkaPublisher struct {
	writer    MessageWriter
	backendID string
	timeout   time.Duration
}

func NewKafkaPublisher(writer MessageWriter, backendID string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, backendID: backendID, timeout: DefaultPublishTimeout}
}

// WithTimeout sets the publish timeout. Zero or less keeps the current one.
func (p *KafkaPublisher) WithTimeout(d time.Duration) *KafkaPublisher {
	if d > 0 {
		p.timeout = d
	}
	return p
}

// Publish writes event keyed "product.<type>.<productID>".
func (p *KafkaPublisher) Publish(ctx context.Context, event entity.ProductEvent) error {
	if event.BackendID == "" {
		event.BackendID = p.backendID
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(EventKey(event.Type, event.ProductID)),
		Value: value,
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.ProductEvents.WithLabelValues(event.Type, "publish_error").Inc()
		return fmt.Errorf("publish product event: %w", err)
	}

	metrics.ProductEvents.WithLabelValues(event.Type, "published").Inc()
	return nil
}

// NopPublisher drops every event. Used when Kafka is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, entity.ProductEvent) error { return nil }

func EventKey(eventType, productID string) string {
	return "product." + eventType + "." + productID
}

// ParseEventKey splits a key built by EventKey.
func ParseEventKey(key string) (eventType, productID string, ok bool) {
	parts := strings.SplitN(key, ".", 3)
	if len(parts) != 3 || parts[0] != "product" {
		return "", "", false
	}
	switch parts[1] {
	case entity.EventProductCreated, entity.EventProductUpdated, entity.EventProductDeleted:
		return parts[1], parts[2], true
	}
	return "", "", false
}
