// Package producer streams audit events to Kafka for downstream consumers
// (SIEM ingestion, alerting). The producer is optional; when no brokers are
// configured the audit trail still lands in Postgres.
package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"asset-manager/backend/internal/audit/domain"
)

// KafkaProducer implements audit.EventProducer using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer creates a producer writing audit events to topic. Returns
// (nil, nil) when brokers or topic are empty so callers can pass the result
// straight to audit.NewLogger. Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer}, nil
}

type eventPayload struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Emit serializes the entry as JSON and writes it to the topic. Uses a short
// timeout so a slow broker cannot stall the request path.
func (p *KafkaProducer) Emit(ctx context.Context, entry *domain.AuditLog) error {
	if p == nil || p.writer == nil || entry == nil {
		return nil
	}
	payload, err := json.Marshal(eventPayload{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		Resource:  entry.Resource,
		IP:        entry.IP,
		Metadata:  entry.Metadata,
		CreatedAt: entry.CreatedAt,
	})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(entry.Action),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
