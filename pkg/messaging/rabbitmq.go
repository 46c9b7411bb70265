package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDrop tells the consumer to discard a message without requeueing it.
// Handlers return it (wrapped or not) for payloads redelivery cannot fix.
var ErrDrop = errors.New("drop message")

// Config holds configuration for the RabbitMQ client.
type Config struct {
	URL               string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HeartbeatTimeout  time.Duration
}

func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 60 * time.Second,
		HeartbeatTimeout:  10 * time.Second,
	}
}

// Client is a reconnecting RabbitMQ connection with publish and consume
// helpers. Messages are JSON bodies on durable queues.
type Client struct {
	config Config
	logger *slog.Logger

	mu              sync.RWMutex
	conn            *amqp.Connection
	ch              *amqp.Channel
	notifyConnClose chan *amqp.Error
	isReconnecting  bool
	isClosed        bool
}

func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if config.ReconnectDelay == 0 {
		config.ReconnectDelay = time.Second
	}
	if config.MaxReconnectDelay == 0 {
		config.MaxReconnectDelay = 60 * time.Second
	}
	if config.HeartbeatTimeout == 0 {
		config.HeartbeatTimeout = 10 * time.Second
	}

	client := &Client{config: config, logger: logger}
	if err := client.connect(); err != nil {
		return nil, err
	}

	go client.handleReconnect()
	return client, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("connecting to RabbitMQ", "url", maskURL(c.config.URL))

	conn, err := amqp.DialConfig(c.config.URL, amqp.Config{
		Heartbeat: c.config.HeartbeatTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	c.conn = conn
	c.ch = ch
	c.notifyConnClose = make(chan *amqp.Error)
	c.conn.NotifyClose(c.notifyConnClose)
	c.isReconnecting = false
	return nil
}

func (c *Client) handleReconnect() {
	c.mu.RLock()
	if c.isClosed {
		c.mu.RUnlock()
		return
	}
	notifyClose := c.notifyConnClose
	c.mu.RUnlock()

	err := <-notifyClose
	if err != nil {
		c.logger.Warn("RabbitMQ connection closed, reconnecting", "error", err)
		c.reconnect()
	}
}

func (c *Client) reconnect() {
	c.mu.Lock()
	c.isReconnecting = true
	c.mu.Unlock()

	backoff := c.config.ReconnectDelay
	for {
		c.mu.RLock()
		closed := c.isClosed
		c.mu.RUnlock()
		if closed {
			return
		}

		if err := c.connect(); err == nil {
			c.logger.Info("RabbitMQ reconnected")
			go c.handleReconnect()
			return
		}

		time.Sleep(backoff)
		backoff *= 2
		if backoff > c.config.MaxReconnectDelay {
			backoff = c.config.MaxReconnectDelay
		}
	}
}

// DeclareQueue declares a durable queue with a matching dead-letter queue.
// Dropped messages end up on "<name>.dlq" for inspection.
func (c *Client) DeclareQueue(name string) (amqp.Queue, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ch == nil {
		return amqp.Queue{}, fmt.Errorf("channel is not initialized")
	}

	dlqName := name + ".dlq"
	if _, err := c.ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare DLQ: %w", err)
	}

	return c.ch.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	})
}

func (c *Client) Publish(ctx context.Context, queueName string, body []byte) error {
	c.mu.RLock()
	if c.isReconnecting || c.ch == nil {
		c.mu.RUnlock()
		return fmt.Errorf("connection is not available")
	}
	ch := c.ch
	c.mu.RUnlock()

	return ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume delivers queue messages to handler until ctx is cancelled. Handler
// errors requeue the message, except ErrDrop which dead-letters it.
func (c *Client) Consume(ctx context.Context, queueName string, handler func(body []byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		c.mu.RLock()
		if c.isReconnecting || c.ch == nil {
			c.mu.RUnlock()
			time.Sleep(time.Second)
			continue
		}
		ch := c.ch
		c.mu.RUnlock()

		msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
		if err != nil {
			c.logger.Error("failed to register a consumer", "queue", queueName, "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

		if err := c.deliver(ctx, msgs, handler); err != nil {
			return err
		}
		// Channel closed, wait for reconnection.
		time.Sleep(c.config.ReconnectDelay)
	}
}

func (c *Client) deliver(ctx context.Context, msgs <-chan amqp.Delivery, handler func(body []byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			err := handler(d.Body)
			switch {
			case err == nil:
				d.Ack(false)
			case errors.Is(err, ErrDrop):
				d.Nack(false, false)
			default:
				c.logger.Warn("handler failed, requeueing", "error", err)
				d.Nack(false, true)
			}
		}
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isClosed = true
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Client) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed() && !c.isReconnecting
}

func maskURL(url string) string {
	if parts := strings.Split(url, "@"); len(parts) > 1 {
		if prefixParts := strings.Split(parts[0], "://"); len(prefixParts) == 2 {
			return prefixParts[0] + "://***:***@" + parts[1]
		}
	}
	return url
}
