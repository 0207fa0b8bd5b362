package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"smartparking/internal/common/config"
)

const (
	// ExchangeNavigationTopic carries navigation.<kind>.<user_id> events.
	ExchangeNavigationTopic = "navigation_topic"

	// QueueNavigationEvents receives every navigation event for downstream
	// consumers (trip analytics, notifications).
	QueueNavigationEvents = "navigation_events"
)

// Client is a RabbitMQ connector with auto-reconnect and topology setup.
type Client struct {
	url    string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	closed    chan struct{}
	reconnect chan struct{}
}

// Connect establishes the connection, declares topology, and starts a
// background watcher that reconnects on failures.
func Connect(ctx context.Context, cfg config.RabbitMQ, logger *slog.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Password, cfg.Host, cfg.Port)

	client := &Client{
		url:       url,
		logger:    logger,
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}

	// initial connect is a single attempt; further retries happen in the watcher
	if err := client.connectOnce(); err != nil {
		return nil, err
	}

	go client.watch()

	return client, nil
}

// Channel returns the shared publishing channel.
func (client *Client) Channel() (*amqp.Channel, error) {
	client.mu.RLock()
	defer client.mu.RUnlock()
	if client.conn == nil || client.conn.IsClosed() {
		return nil, errors.New("rabbitmq: connection is not open")
	}
	if client.pubChan == nil || client.pubChan.IsClosed() {
		return nil, errors.New("rabbitmq: publish channel is not open")
	}
	return client.pubChan, nil
}

// Close gracefully stops the watcher and closes AMQP resources.
func (client *Client) Close() {
	select {
	case <-client.closed:
		// already closed
	default:
		close(client.closed)
	}

	client.mu.Lock()
	if client.pubChan != nil {
		_ = client.pubChan.Close()
		client.pubChan = nil
	}
	if client.conn != nil {
		_ = client.conn.Close()
		client.conn = nil
	}
	client.mu.Unlock()
}

// --- internals ---

func (client *Client) connectOnce() error {
	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: failed to declare topology: %w", err)
	}

	// atomically install the new connection + publishing channel
	client.mu.Lock()
	if client.pubChan != nil && !client.pubChan.IsClosed() {
		_ = client.pubChan.Close()
	}
	client.conn = conn
	client.pubChan = ch
	client.mu.Unlock()

	// either the connection or the channel closing triggers a reconnect
	go func(conn *amqp.Connection, ch *amqp.Channel) {
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-client.closed:
			return
		case <-connClosed:
		case <-chClosed:
		}

		select {
		case client.reconnect <- struct{}{}:
		default:
		}
	}(conn, ch)

	client.logger.Info("rabbitmq_connected", "action", "rmq_connect")

	return nil
}

// watch runs in background and attempts reconnects with exponential backoff.
func (client *Client) watch() {
	backoff := time.Second
	for {
		select {
		case <-client.closed:
			return
		case <-client.reconnect:
			for {
				select {
				case <-client.closed:
					return
				default:
				}

				err := client.connectOnce()
				if err == nil {
					backoff = time.Second
					client.logger.Info("rabbitmq_reconnected", "action", "rmq_reconnect")
					break
				}

				client.logger.Error("rabbitmq_reconnect_failed", "action", "rmq_reconnect", "error", err.Error())

				time.Sleep(backoff)
				if backoff < 30*time.Second {
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
				}
			}
		}
	}
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeNavigationTopic, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeNavigationTopic, err)
	}

	if _, err := ch.QueueDeclare(QueueNavigationEvents, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", QueueNavigationEvents, err)
	}

	if err := ch.QueueBind(QueueNavigationEvents, "navigation.#", ExchangeNavigationTopic, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", QueueNavigationEvents, err)
	}

	return nil
}
