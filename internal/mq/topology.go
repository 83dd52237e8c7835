package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangeJobs Exchange = "flowgrid.jobs"
)

// Queues.
const (
	QueueJobsSubmitted Queue = "jobs.submitted"
	QueueJobsCompleted Queue = "jobs.completed"
)

// Routing keys.
const (
	RoutingKeySubmitted RoutingKey = "submitted"
	RoutingKeyCompleted RoutingKey = "completed"
)

// SetupTopology объявляет обменники, очереди и привязки grid.
// Идемпотентна: повторный вызов на существующей топологии безопасен.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.ExchangeDeclare(
			string(ExchangeJobs),
			"direct",
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeJobs, err)
		}

		bindings := []struct {
			queue Queue
			key   RoutingKey
		}{
			{QueueJobsSubmitted, RoutingKeySubmitted},
			{QueueJobsCompleted, RoutingKeyCompleted},
		}

		for _, b := range bindings {
			if _, err := ch.QueueDeclare(
				string(b.queue),
				true,  // durable
				false, // auto-delete
				false, // exclusive
				false, // no-wait
				nil,
			); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}

			if err := ch.QueueBind(
				string(b.queue),
				string(b.key),
				string(ExchangeJobs),
				false,
				nil,
			); err != nil {
				return fmt.Errorf("bind queue %s: %w", b.queue, err)
			}
		}

		return nil
	})
}
