package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"creperie-promo/internal/domain"
)

const (
	eventsExchange  = "promo.events"
	grantsQueue     = "access.grants"
	grantRoutingKey = "access.granted"
)

type Broker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// GrantEvent is published whenever secret-menu access is granted. The
// email worker consumes these to send the confirmation mail.
type GrantEvent struct {
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	SecretCode string `json:"secret_code"`
	WeekStart  string `json:"week_start"`
	Source     string `json:"source"` // "code" or "quiz"
	Timestamp  int64  `json:"timestamp"`
}

func NewBroker(url string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	b := &Broker{
		conn:    conn,
		channel: ch,
	}

	if err := b.Setup(); err != nil {
		b.Close()
		return nil, err
	}

	return b, nil
}

// NewBrokerWithRetry keeps dialing until the broker comes up or ctx
// expires. RabbitMQ regularly starts slower than the app in compose
// environments.
func NewBrokerWithRetry(ctx context.Context, url string) (*Broker, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		b, err := NewBroker(url)
		if err == nil {
			if attempt > 1 {
				slog.Info("connected to rabbitmq after retries", slog.Int("attempts", attempt))
			}
			return b, nil
		}
		lastErr = err

		backoff := time.Duration(attempt) * time.Second
		if backoff > 5*time.Second {
			backoff = 5 * time.Second
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gave up connecting to RabbitMQ: %w", lastErr)
		case <-time.After(backoff):
		}
	}
}

func (b *Broker) Setup() error {
	if err := b.channel.ExchangeDeclare(
		eventsExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}

	if _, err := b.channel.QueueDeclare(
		grantsQueue, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	); err != nil {
		return fmt.Errorf("failed to declare grants queue: %w", err)
	}

	if err := b.channel.QueueBind(
		grantsQueue,     // queue name
		grantRoutingKey, // routing key
		eventsExchange,  // exchange
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind grants queue: %w", err)
	}

	slog.Info("rabbitmq setup completed successfully")
	return nil
}

// PublishAccessGranted emits a grant event for the given session.
func (b *Broker) PublishAccessGranted(ctx context.Context, session *domain.AccessSession, source string) error {
	event := &GrantEvent{
		Email:      session.Email,
		FirstName:  session.FirstName,
		SecretCode: session.SecretCode,
		WeekStart:  session.WeekStart,
		Source:     source,
		Timestamp:  time.Now().Unix(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal grant event: %w", err)
	}

	err = b.channel.PublishWithContext(
		ctx,
		eventsExchange,
		grantRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish grant event: %w", err)
	}

	slog.Info("published grant event",
		slog.String("source", source),
		slog.String("week_start", session.WeekStart))
	return nil
}

// ConsumeGrants registers a consumer on the grants queue.
func (b *Broker) ConsumeGrants() (<-chan amqp.Delivery, error) {
	msgs, err := b.channel.Consume(
		grantsQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("started consuming grant events",
		slog.String("queue", grantsQueue))
	return msgs, nil
}

func (b *Broker) IsClosed() bool {
	return b.conn == nil || b.conn.IsClosed()
}

func (b *Broker) Close() error {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
