package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shaiso/Tripleo/internal/domain"
)

// Subscriber открывает подписку на очередь сообщений workflow.
//
// Реализации: mq.Subscriber (AMQP) и WebSocketSubscriber.
type Subscriber interface {
	// Subscribe подписывается на очередь queueName.
	// Сообщения, опубликованные до подписки, могут быть потеряны,
	// поэтому подписку открывают до запуска workflow.
	Subscribe(ctx context.Context, queueName string) (Subscription, error)
}

// Subscription — открытая подписка на одну очередь.
type Subscription interface {
	// Receive ждёт следующее сообщение не дольше timeout.
	// Возвращает ErrTimeout, если сообщений не было.
	// timeout <= 0 — ждать без ограничения (до отмены ctx).
	Receive(ctx context.Context, timeout time.Duration) (domain.Payload, error)

	// Close закрывает подписку и освобождает ресурсы.
	Close() error
}

// Envelope — формат сообщения в очереди.
//
//	{"body": {"type": "tripleo.baremetal.v1.provide", "payload": {...}}}
type Envelope struct {
	Body struct {
		Type    string         `json:"type"`
		Payload domain.Payload `json:"payload"`
	} `json:"body"`
}

// DecodeEnvelope извлекает payload из сообщения.
// ok=false — сообщение не содержит payload (например, служебный ответ).
func DecodeEnvelope(data []byte) (payload domain.Payload, ok bool, err error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Body.Payload == nil {
		return nil, false, nil
	}
	return env.Body.Payload, true, nil
}

// Receive — общий цикл ожидания для реализаций на каналах.
//
// Уже полученные payload отдаются раньше ошибки: финальное сообщение,
// пришедшее до обрыва соединения, не теряется. Ошибка остаётся в errs
// до следующего вызова.
func Receive(ctx context.Context, timeout time.Duration, payloads <-chan domain.Payload, errs chan error) (domain.Payload, error) {
	select {
	case payload, ok := <-payloads:
		return received(payload, ok)
	default:
	}

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case payload, ok := <-payloads:
		return received(payload, ok)
	case err := <-errs:
		select {
		case payload, ok := <-payloads:
			requeue(errs, err)
			return received(payload, ok)
		default:
		}
		return nil, err
	case <-timer:
		return nil, ErrTimeout
	}
}

func received(payload domain.Payload, ok bool) (domain.Payload, error) {
	if !ok {
		return nil, ErrClosed
	}
	return payload, nil
}

func requeue(errs chan error, err error) {
	select {
	case errs <- err:
	default:
	}
}
