package config

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

func (c *Config) KafkaBrokerURLs() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (c *Config) NewKafkaWriter() *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.KafkaBrokerURLs()...),
		Topic:                  c.KafkaTopic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaReader returns a reader for the product topic. Every backend
// instance needs every event, so the group defaults to one per backend.
func (c *Config) NewKafkaReader() *kafka.Reader {
	groupID := c.KafkaGroupID
	if groupID == "" {
		groupID = "shop-service-" + c.BackendID
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.KafkaBrokerURLs(),
		GroupID:  groupID,
		Topic:    c.KafkaTopic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
}
