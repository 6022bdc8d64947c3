// internal/services/event_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// EventPublisher publishes domain events to the message broker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
	Close() error
}

type OrderPlacedEvent struct {
	OrderID   string    `json:"order_id"`
	SessionID string    `json:"session_id"`
	Phone     string    `json:"phone"`
	Location  string    `json:"location"`
	ItemCount int       `json:"item_count"`
	Total     int64     `json:"total"`
	Currency  string    `json:"currency"`
	SellerIDs []string  `json:"seller_ids"`
	PlacedAt  time.Time `json:"placed_at"`
}

type ProductCreatedEvent struct {
	ProductID    string    `json:"product_id"`
	SellerID     string    `json:"seller_id"`
	SellerHandle string    `json:"seller_handle"`
	Type         string    `json:"type"`
	Price        int64     `json:"price"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewEventPublisher returns a Kafka publisher, or a logging no-op when no
// brokers are configured.
func NewEventPublisher(brokers []string) EventPublisher {
	if len(brokers) == 0 {
		return noopPublisher{}
	}
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

func (p *kafkaPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type noopPublisher struct{}

func (noopPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	logrus.WithFields(logrus.Fields{"topic": topic, "key": key}).Debug("Event dropped, no broker configured")
	return nil
}

func (noopPublisher) Close() error { return nil }
