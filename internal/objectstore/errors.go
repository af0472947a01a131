package objectstore

import (
	"errors"
	"fmt"
)

// Ошибки хранилища.
var (
	// ErrUnavailable — хранилище недоступно.
	ErrUnavailable = errors.New("object store unavailable")

	// ErrNotFound — контейнер или объект не найден.
	ErrNotFound = errors.New("not found")

	// ErrExtractArchive — часть файлов архива не удалось создать.
	ErrExtractArchive = errors.New("archive extraction failed")
)

// APIError — ответ хранилища с HTTP-ошибкой.
type APIError struct {
	StatusCode int
	Message    string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	return fmt.Sprintf("object store error (HTTP %d): %s", e.StatusCode, e.Message)
}
