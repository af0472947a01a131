// Package mq реализует подписку на сообщения workflows через RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (retry при подключении, reconnect, graceful shutdown)
//   - topology.go   — объявление обменника и временных очередей
//   - subscriber.go — messaging.Subscriber поверх AMQP
//
// Workflows публикуют сообщения в topic-обменник tripleo с routing key,
// равным queue_name. Каждая подписка объявляет auto-delete очередь
// с тем же именем и потребляет её с auto-ack.
package mq
