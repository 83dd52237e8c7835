package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений grid.
const (
	MessageTypeJobSubmitted MessageType = "job.submitted"
	MessageTypeJobCompleted MessageType = "job.completed"
)

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// JobSubmittedPayload — payload события о новом PENDING job.
type JobSubmittedPayload struct {
	JobID        uuid.UUID `json:"job_id"`
	ProjectScope string    `json:"project_scope"`
	Type         string    `json:"type"`
}

// JobCompletedPayload — payload события о терминальном статусе job.
type JobCompletedPayload struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"` // SUCCEEDED или FAILED
	Error  string    `json:"error,omitempty"`
}

// Publisher публикует сообщения grid в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish %s: %w", msg.Type, err)
		}

		p.logger.Debug("published message",
			"type", msg.Type,
			"message_id", msg.ID,
			"routing_key", routingKey,
		)
		return nil
	})
}

// PublishJobSubmitted публикует событие о новом job.
func (p *Publisher) PublishJobSubmitted(ctx context.Context, payload JobSubmittedPayload) error {
	return p.Publish(ctx, ExchangeJobs, RoutingKeySubmitted, &Message{
		ID:        uuid.NewString(),
		Type:      MessageTypeJobSubmitted,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}

// PublishJobCompleted публикует событие о завершении job.
func (p *Publisher) PublishJobCompleted(ctx context.Context, payload JobCompletedPayload) error {
	return p.Publish(ctx, ExchangeJobs, RoutingKeyCompleted, &Message{
		ID:        uuid.NewString(),
		Type:      MessageTypeJobCompleted,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}
