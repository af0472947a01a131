package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange — обменник, в который workflows публикуют сообщения.
// Routing key сообщения совпадает с queue_name из входа workflow.
const DefaultExchange = "tripleo"

// declareExchange создаёт topic-обменник (идемпотентно).
func declareExchange(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

// declareQueue создаёт временную очередь подписки и привязывает её
// к обменнику по routing key, равному имени очереди.
//
// Очередь не durable и удаляется брокером после закрытия последнего
// consumer, поэтому прерванный CLI не оставляет мусора.
func declareQueue(ch *amqp.Channel, exchange, queueName string) error {
	_, err := ch.QueueDeclare(
		queueName, // name
		false,     // durable
		true,      // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	err = ch.QueueBind(
		queueName, // queue name
		queueName, // routing key
		exchange,  // exchange
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", queueName, exchange, err)
	}

	return nil
}

// SetupTopology объявляет обменник сообщений workflows.
func SetupTopology(conn *Connection, exchange string) error {
	return conn.WithChannel(func(ch *amqp.Channel) error {
		return declareExchange(ch, exchange)
	})
}
