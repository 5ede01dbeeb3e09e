// Package events publica eventos de ciclo de vida de cuentas hacia RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Tipos de evento emitidos por el servicio de cuentas.
const (
	UserRegistered   = "user.registered"
	UserLocked       = "user.locked"
	UserSocialLinked = "user.social_linked"
	UserDeleted      = "user.deleted"
	UserVerified     = "user.email_verified"
)

// Event es el cuerpo JSON publicado en la cola.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	Email      string    `json:"email,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher entrega eventos de cuenta a un broker.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

type nopPublisher struct{}

// NewNopPublisher descarta los eventos; se usa cuando AMQP_URL no esta configurado.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// AMQPPublisher abre una conexion por publicacion y declara la cola durable.
type AMQPPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	logger      *zap.Logger
}

func NewAMQPPublisher(url, queue string, logger *zap.Logger) (*AMQPPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	if strings.TrimSpace(queue) == "" {
		queue = "account.events"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPPublisher{
		url:         url,
		queue:       queue,
		dialTimeout: 2 * time.Second,
		logger:      logger,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, evt Event) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
	if err != nil {
		p.logger.Warn("amqp dial failed", zap.String("event", evt.Type), zap.Error(err))
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("amqp channel open failed", zap.Error(err))
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.logger.Warn("amqp queue declare failed", zap.String("queue", p.queue), zap.Error(err))
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.OccurredAt,
		Type:         evt.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.logger.Warn("amqp publish failed", zap.String("event", evt.Type), zap.Error(err))
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}
