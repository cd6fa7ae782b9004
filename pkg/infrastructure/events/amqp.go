package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"woodstore/pkg/domain/service"
)

const publishTimeout = 5 * time.Second

type AMQPConfig struct {
	URL            string
	Exchange       string
	ConnectTimeout time.Duration
}

// Envelope is the message body published for every domain event.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEnvelope(event service.Event, at time.Time) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "encode event %s", event.Type())
	}
	return Envelope{Type: event.Type(), OccurredAt: at.UTC(), Payload: payload}, nil
}

type AMQPDispatcher struct {
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// DialAMQP connects to the broker, retrying until ConnectTimeout elapses, and
// declares a durable topic exchange.
func DialAMQP(cfg AMQPConfig) (*AMQPDispatcher, error) {
	var conn *amqp.Connection
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.ConnectTimeout
	err := backoff.RetryNotify(func() error {
		var err error
		conn, err = amqp.Dial(cfg.URL)
		return err
	}, policy, func(err error, next time.Duration) {
		log.WithError(err).WithField("retryIn", next).Warn("message broker is not reachable yet")
	})
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open amqp channel")
	}
	if err := channel.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %s", cfg.Exchange)
	}

	return &AMQPDispatcher{exchange: cfg.Exchange, conn: conn, channel: channel}, nil
}

// Dispatch publishes event with its type as routing key.
func (d *AMQPDispatcher) Dispatch(event service.Event) error {
	envelope, err := NewEnvelope(event, time.Now())
	if err != nil {
		return err
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, "encode envelope")
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	err = d.channel.PublishWithContext(ctx, d.exchange, envelope.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    envelope.OccurredAt,
		Type:         envelope.Type,
		Body:         body,
	})
	return errors.Wrapf(err, "publish %s", envelope.Type)
}

func (d *AMQPDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.channel.Close(); err != nil {
		log.WithError(err).Warn("failed to close amqp channel")
	}
	return d.conn.Close()
}
