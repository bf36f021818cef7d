package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes decisions as JSON to a durable fanout exchange.
type AMQPNotifier struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	pub      publisher
	exchange string
	log      zerolog.Logger

	mu sync.Mutex
}

// NewAMQPNotifier dials the broker and declares the exchange.
func NewAMQPNotifier(url, exchange string, log zerolog.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	n := newAMQPNotifier(ch, exchange, log)
	n.conn = conn
	n.ch = ch
	n.log.Info().Str("exchange", exchange).Msg("amqp notifier ready")
	return n, nil
}

func newAMQPNotifier(pub publisher, exchange string, log zerolog.Logger) *AMQPNotifier {
	return &AMQPNotifier{
		pub:      pub,
		exchange: exchange,
		log:      log.With().Str("component", "notify").Logger(),
	}
}

// RegistrationDecided publishes ev with the lower-cased status as routing key.
func (n *AMQPNotifier) RegistrationDecided(ctx context.Context, ev DecisionEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode decision event: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.pub.PublishWithContext(ctx,
		n.exchange,
		"registration."+strings.ToLower(string(ev.Status)),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.RegistrationID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish decision for %s: %w", ev.RegistrationID, err)
	}

	n.log.Debug().
		Str("registration_id", ev.RegistrationID).
		Str("status", string(ev.Status)).
		Msg("decision published")
	return nil
}

func (n *AMQPNotifier) Close() error {
	var err error
	if n.ch != nil {
		err = n.ch.Close()
	}
	if n.conn != nil {
		if cerr := n.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
