// Package amqp publishes and consumes insights refresh messages over RabbitMQ.
package amqp

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"moni/internal/log"
)

const publishTimeout = 5 * time.Second

// Handler processes one refresh message. A returned error requeues the delivery.
type Handler func(ctx context.Context, msg *InsightsRefreshMessage) error

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *log.Logger
}

func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name on a direct exchange
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishInsightsRefresh publishes msg as a persistent JSON message. Single attempt.
func (c *Client) PublishInsightsRefresh(ctx context.Context, msg *InsightsRefreshMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.DebugContext(ctx, "Published insights refresh message",
		log.FieldUserID, msg.UserID,
		"reason", msg.Reason,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// ConsumeInsightsRefresh blocks, dispatching deliveries to handler until ctx
// is done or the delivery channel closes.
func (c *Client) ConsumeInsightsRefresh(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming insights refresh messages", "queue", c.queueName)
	return consume(ctx, msgs, handler, c.logger)
}

func consume(ctx context.Context, msgs <-chan amqp091.Delivery, handler Handler, logger *log.Logger) error {
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			dispatch(ctx, delivery, handler, logger)
		}
	}
}

// Outcome is what happened to a delivery.
type Outcome int

const (
	Acked Outcome = iota
	Rejected
	Requeued
)

// dispatch acks on success, rejects malformed bodies without requeue and
// requeues handler failures.
func dispatch(ctx context.Context, d amqp091.Delivery, handler Handler, logger *log.Logger) Outcome {
	msg, err := InsightsRefreshMessageFromJSON(d.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Rejecting malformed message", log.FieldError, err.Error())
		if nerr := d.Nack(false, false); nerr != nil {
			logger.ErrorContext(ctx, "Nack failed", log.FieldError, nerr.Error())
		}
		return Rejected
	}

	if err := handler(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to handle message, requeueing",
			log.FieldUserID, msg.UserID,
			log.FieldError, err.Error())
		if nerr := d.Nack(false, true); nerr != nil {
			logger.ErrorContext(ctx, "Nack failed", log.FieldError, nerr.Error())
		}
		return Requeued
	}

	if err := d.Ack(false); err != nil {
		logger.ErrorContext(ctx, "Ack failed", log.FieldError, err.Error())
	}
	logger.DebugContext(ctx, "Processed insights refresh message", log.FieldUserID, msg.UserID)
	return Acked
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
