package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
)

// GrantHandler processes one grant event.
type GrantHandler func(ctx context.Context, event *GrantEvent)

// GrantConsumer feeds grant events from the broker to a handler. The
// server uses it to push refreshed stats to the live admin dashboard.
type GrantConsumer struct {
	broker  *Broker
	handler GrantHandler
}

func NewGrantConsumer(broker *Broker, handler GrantHandler) *GrantConsumer {
	return &GrantConsumer{
		broker:  broker,
		handler: handler,
	}
}

func (c *GrantConsumer) Start(ctx context.Context) error {
	msgs, err := c.broker.ConsumeGrants()
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("stopping grant consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("grant consumer channel closed")
					return
				}

				var event GrantEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					slog.Error("error unmarshaling grant event",
						slog.String("error", err.Error()),
						slog.String("body", string(msg.Body)))
					msg.Nack(false, false)
					continue
				}

				c.handler(ctx, &event)
				msg.Ack(false)
			}
		}
	}()

	return nil
}
