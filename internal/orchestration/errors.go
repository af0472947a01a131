package orchestration

import (
	"errors"
	"fmt"
)

// Ошибки клиента оркестрации.
var (
	// ErrUnavailable — сервис оркестрации недоступен.
	ErrUnavailable = errors.New("orchestration service unavailable")

	// ErrStackNotReady — стек не пришёл в финальное состояние за отведённое время.
	ErrStackNotReady = errors.New("stack not ready")
)

// APIError — ошибка, возвращённая API оркестрации.
type APIError struct {
	StatusCode int
	Message    string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	return fmt.Sprintf("orchestration error (HTTP %d): %s", e.StatusCode, e.Message)
}

// errorResponse — тело ответа с ошибкой.
type errorResponse struct {
	Title string `json:"title"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r *errorResponse) message() string {
	if r.Error.Message != "" {
		return r.Error.Message
	}
	return r.Title
}
