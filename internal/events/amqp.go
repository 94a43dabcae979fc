package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"helpdesk_backend/internal/logger"
)

const (
	ExchangeName           = "helpdesk"
	TicketCreatedQueueName = "helpdesk_ticket_created"
	PasswordResetQueueName = "helpdesk_password_reset"

	// MaxRetries is the redelivery budget after the first attempt.
	MaxRetries = 2
)

// AMQPDispatcher publishes events to RabbitMQ and consumes them with a
// bounded retry budget tracked in the x-retry-count header.
type AMQPDispatcher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPDispatcher(url string) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	for _, queue := range []string{TicketCreatedQueueName, PasswordResetQueueName} {
		_, err = channel.QueueDeclare(
			queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}

		if err = channel.QueueBind(queue, queue, ExchangeName, false, nil); err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to bind queue %s: %w", queue, err)
		}
	}

	return &AMQPDispatcher{conn: conn, channel: channel}, nil
}

func (d *AMQPDispatcher) Close() error {
	if d.channel != nil {
		d.channel.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

func (d *AMQPDispatcher) DispatchTicketCreated(ctx context.Context, ev TicketCreatedEvent) error {
	return d.publish(ctx, TicketCreatedQueueName, ev, 0)
}

func (d *AMQPDispatcher) DispatchPasswordReset(ctx context.Context, ev PasswordResetEvent) error {
	return d.publish(ctx, PasswordResetQueueName, ev, 0)
}

func (d *AMQPDispatcher) publish(ctx context.Context, routingKey string, ev any, retryCount int) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = d.channel.PublishWithContext(ctx,
		ExchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Headers:      amqp.Table{"x-retry-count": int32(retryCount)},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Consume starts consuming both event queues. Handler failures are
// republished with an incremented x-retry-count until the retry budget is
// spent; non-retriable failures are dropped immediately.
func (d *AMQPDispatcher) Consume(ctx context.Context, handlers Handlers) error {
	if err := d.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := d.consumeQueue(ctx, TicketCreatedQueueName, func(ctx context.Context, body []byte) error {
		var ev TicketCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return NonRetriable(err)
		}
		return handlers.TicketCreated(ctx, ev)
	}); err != nil {
		return err
	}

	return d.consumeQueue(ctx, PasswordResetQueueName, func(ctx context.Context, body []byte) error {
		var ev PasswordResetEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return NonRetriable(err)
		}
		return handlers.PasswordReset(ctx, ev)
	})
}

func (d *AMQPDispatcher) consumeQueue(ctx context.Context, queue string, handle func(context.Context, []byte) error) error {
	msgs, err := d.channel.Consume(
		queue,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer for %s: %w", queue, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				err := handle(ctx, msg.Body)
				if err == nil {
					msg.Ack(false)
					continue
				}

				if IsNonRetriable(err) {
					logger.WithError(err).Warn("dropping event", "queue", queue)
					msg.Ack(false)
					continue
				}

				retryCount := retryCountOf(msg.Headers)
				if retryCount >= MaxRetries {
					logger.WithError(err).Error("event failed after retries", "queue", queue, "retries", retryCount)
					msg.Ack(false)
					continue
				}

				if pubErr := d.republish(ctx, queue, msg.Body, retryCount+1); pubErr != nil {
					logger.WithError(pubErr).Error("failed to requeue event", "queue", queue)
					msg.Nack(false, true)
					continue
				}
				msg.Ack(false)
			}
		}
	}()

	return nil
}

func (d *AMQPDispatcher) republish(ctx context.Context, routingKey string, body []byte, retryCount int) error {
	return d.channel.PublishWithContext(ctx,
		ExchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Headers:      amqp.Table{"x-retry-count": int32(retryCount)},
		},
	)
}

func retryCountOf(headers amqp.Table) int {
	switch v := headers["x-retry-count"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
