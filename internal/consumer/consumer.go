package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"shop-service/internal/entity"
	"shop-service/internal/events"
	"shop-service/internal/metrics"
)

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CacheInvalidator drops cached product data.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

// Consumer listens for product events written by other backend instances
// and drops the local product cache when one arrives.
type Consumer struct {
	reader    MessageReader
	cache     CacheInvalidator
	backendID string
}

func NewConsumer(reader MessageReader, cache CacheInvalidator, backendID string) *Consumer {
	return &Consumer{reader: reader, cache: cache, backendID: backendID}
}

// Run reads messages until ctx is cancelled, then closes the reader.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing kafka reader")
		}
	}()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error().Err(err).Msg("Error reading message")
			return err
		}

		c.processMessage(ctx, msg)
	}
}

// processMessage handles one message keyed "product.<type>.<productID>".
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) {
	eventType, productID, ok := events.ParseEventKey(string(msg.Key))
	if !ok {
		log.Warn().Msgf("Unknown event key: %s", msg.Key)
		return
	}

	var event entity.ProductEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error().Err(err).Msgf("Error unmarshalling %s event for product %s", eventType, productID)
		metrics.ProductEvents.WithLabelValues(eventType, "consume_error").Inc()
		return
	}

	if event.BackendID == c.backendID {
		metrics.ProductEvents.WithLabelValues(eventType, "skipped").Inc()
		return
	}

	if err := c.cache.InvalidateCache(ctx); err != nil {
		log.Error().Err(err).Msgf("Error invalidating cache for %s event on product %s", eventType, productID)
		metrics.ProductEvents.WithLabelValues(eventType, "consume_error").Inc()
		return
	}

	log.Debug().Msgf("Product %s %s on backend %s, cache invalidated", productID, eventType, event.BackendID)
	metrics.ProductEvents.WithLabelValues(eventType, "consumed").Inc()
}
