package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Tripleo/internal/domain"
	"github.com/shaiso/Tripleo/internal/messaging"
)

const payloadBuffer = 64

// Subscriber реализует messaging.Subscriber поверх RabbitMQ.
type Subscriber struct {
	conn     *Connection
	exchange string
	logger   *slog.Logger
}

// NewSubscriber создаёт Subscriber. Пустой exchange — DefaultExchange.
func NewSubscriber(conn *Connection, exchange string, logger *slog.Logger) *Subscriber {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Subscriber{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
	}
}

// Subscribe объявляет очередь queueName и начинает потребление.
func (s *Subscriber) Subscribe(ctx context.Context, queueName string) (messaging.Subscription, error) {
	if err := SetupTopology(s.conn, s.exchange); err != nil {
		return nil, fmt.Errorf("%w: %v", messaging.ErrSubscribe, err)
	}

	sub := &subscription{
		conn:      s.conn,
		exchange:  s.exchange,
		queueName: queueName,
		logger:    s.logger.With("queue_name", queueName),
		payloads:  make(chan domain.Payload, payloadBuffer),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
		reconnect: s.conn.ReconnectNotify(),
	}

	deliveries, err := sub.setupConsume()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", messaging.ErrSubscribe, err)
	}

	sub.logger.Debug("amqp subscription created", "exchange", s.exchange)

	go sub.consume(ctx, deliveries)

	return sub, nil
}

// subscription — открытая AMQP-подписка.
type subscription struct {
	conn      *Connection
	exchange  string
	queueName string
	logger    *slog.Logger

	mu sync.Mutex
	ch *amqp.Channel

	payloads  chan domain.Payload
	errs      chan error
	done      chan struct{}
	once      sync.Once
	reconnect <-chan struct{}
}

// Receive реализует messaging.Subscription.
func (s *subscription) Receive(ctx context.Context, timeout time.Duration) (domain.Payload, error) {
	return messaging.Receive(ctx, timeout, s.payloads, s.errs)
}

// Close реализует messaging.Subscription.
func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.ch != nil && !s.ch.IsClosed() {
			err = s.ch.Close()
		}
	})
	return err
}

// setupConsume открывает канал, объявляет очередь и начинает потребление.
func (s *subscription) setupConsume() (<-chan amqp.Delivery, error) {
	ch, err := s.conn.OpenChannel()
	if err != nil {
		return nil, err
	}

	if err := declareQueue(ch, s.exchange, s.queueName); err != nil {
		ch.Close()
		return nil, err
	}

	deliveries, err := ch.Consume(
		s.queueName, // queue
		"",          // consumer tag (auto-generated)
		true,        // auto-ack (статусы не переотправляются)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}

	s.mu.Lock()
	s.ch = ch
	s.mu.Unlock()

	return deliveries, nil
}

// consume — основной цикл потребления.
func (s *subscription) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		err := s.processDeliveries(ctx, deliveries)
		if err == nil {
			return
		}

		s.logger.Warn("deliveries channel closed, waiting for reconnect")

		// Канал закрыт, ждём переподключения
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.reconnect:
		}

		deliveries, err = s.setupConsume()
		if err != nil {
			s.fail(fmt.Errorf("%w: resubscribe to %s: %w", messaging.ErrConnectionLost, s.queueName, err))
			return
		}
		s.logger.Info("reconnected, consumer restarted")
	}
}

// processDeliveries передаёт payload из доставок в канал подписки.
// Возвращает nil, если подписка закрыта или ctx отменён.
func (s *subscription) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil

		case raw, ok := <-deliveries:
			if !ok {
				select {
				case <-s.done:
					return nil
				default:
				}
				return errors.New("deliveries channel closed")
			}

			payload, ok, err := messaging.DecodeEnvelope(raw.Body)
			if err != nil {
				s.logger.Warn("failed to decode message", "error", err, "body", string(raw.Body))
				continue
			}
			if !ok {
				s.logger.Debug("skipping message without payload", "body", string(raw.Body))
				continue
			}

			select {
			case s.payloads <- payload:
			case <-s.done:
				return nil
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (s *subscription) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
