package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// NotificationDeliverer sends one due notification and records the result.
type NotificationDeliverer interface {
	Deliver(ctx context.Context, payload NotificationPayload) error
}

type Worker struct {
	Channel   *amqp.Channel
	Deliverer NotificationDeliverer
	Logger    *zap.Logger
}

func NewWorker(ch *amqp.Channel, deliverer NotificationDeliverer, logger *zap.Logger) *Worker {
	return &Worker{
		Channel:   ch,
		Deliverer: deliverer,
		Logger:    logger,
	}
}

// Start consumes queueName until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", queueName, err)
	}

	w.Logger.Info("notification worker waiting", zap.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer channel for %s closed", queueName)
			}
			w.handle(ctx, d)
		}
	}
}

// Acknowledger is the part of amqp.Delivery handle needs; split out so the
// ack/nack decisions can be tested without a broker.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	w.process(ctx, d.Body, &d)
}

func (w *Worker) process(ctx context.Context, body []byte, ack Acknowledger) {
	var payload NotificationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		w.Logger.Error("malformed notification message", zap.Error(err))
		// malformed: straight to the DLQ, never requeue
		ack.Nack(false, false)
		return
	}

	if err := w.Deliverer.Deliver(ctx, payload); err != nil {
		w.Logger.Error("notification delivery failed", zap.String("schedule_id", payload.ScheduleID), zap.Error(err))
		ack.Nack(false, false)
		return
	}
	ack.Ack(false)
}
