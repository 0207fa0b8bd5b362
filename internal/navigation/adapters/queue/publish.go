package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"smartparking/internal/common/rabbitmq"
	"smartparking/internal/navigation/domain"
)

type rmqChanneler interface {
	Channel() (*amqp.Channel, error)
}

// NavigationPublisher publishes navigation.<kind>.<user_id> messages to the
// navigation_topic exchange.
type NavigationPublisher struct {
	rmq    rmqChanneler
	logger *slog.Logger
}

var _ domain.EventPublisher = (*NavigationPublisher)(nil)

func NewNavigationPublisher(rmq rmqChanneler, logger *slog.Logger) *NavigationPublisher {
	return &NavigationPublisher{rmq: rmq, logger: logger}
}

func (p *NavigationPublisher) PublishEvent(ctx context.Context, ev domain.Event) error {
	ch, err := p.rmq.Channel()
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	routingKey := fmt.Sprintf("navigation.%s.%s", ev.Kind, ev.UserID)
	if err := ch.PublishWithContext(ctx,
		rabbitmq.ExchangeNavigationTopic,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	p.logger.Info("navigation_event_published", "action", "publish_event", "kind", string(ev.Kind), "trip_id", ev.TripID)
	return nil
}
