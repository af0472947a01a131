package messaging

import "errors"

// Ошибки подписки.
var (
	// ErrTimeout — за отведённое время не пришло ни одного сообщения.
	ErrTimeout = errors.New("timed out waiting for messages")

	// ErrClosed — подписка закрыта.
	ErrClosed = errors.New("subscription closed")

	// ErrConnectionLost — соединение потеряно и не восстановлено.
	ErrConnectionLost = errors.New("connection lost")

	// ErrMalformedMessage — сообщение не удалось разобрать.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrSubscribe — сервер отклонил подписку.
	ErrSubscribe = errors.New("subscribe failed")
)
