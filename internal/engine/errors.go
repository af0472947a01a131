package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки клиента движка.
var (
	// ErrUnavailable — движок недоступен (сетевая ошибка, таймаут).
	ErrUnavailable = errors.New("workflow engine unavailable")

	// ErrActionFailed — action выполнен, но завершился в состоянии ERROR.
	ErrActionFailed = errors.New("action failed")
)

// APIError — ошибка, возвращённая API движка (HTTP 4xx/5xx).
type APIError struct {
	StatusCode int
	Message    string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	return fmt.Sprintf("workflow engine error (HTTP %d): %s", e.StatusCode, e.Message)
}

// errorResponse — тело ответа с ошибкой.
// Разные версии API кладут текст в faultstring или description.
type errorResponse struct {
	FaultString string `json:"faultstring"`
	Description string `json:"description"`
	Title       string `json:"title"`
}

func (r *errorResponse) message() string {
	switch {
	case r.FaultString != "":
		return strings.TrimSpace(r.FaultString)
	case r.Description != "":
		return strings.TrimSpace(r.Description)
	default:
		return r.Title
	}
}
