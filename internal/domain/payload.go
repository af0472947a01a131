package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Payload — полезная нагрузка сообщения, опубликованного workflow.
//
// Структура зависит от workflow, но общие поля присутствуют всегда:
//
//	{
//	  "status": "RUNNING" | "SUCCESS" | "FAILED",
//	  "message": "..." | [...],
//	  "execution": {"id": "..."},
//	  "root_execution_id": "..."
//	}
//
// Остальные поля (registered_nodes, introspected_nodes, tempurl)
// извлекаются через Decode.
type Payload map[string]any

// Status возвращает статус сообщения.
func (p Payload) Status() PayloadStatus {
	s, _ := p["status"].(string)
	return PayloadStatus(s)
}

// ExecutionID возвращает execution.id.
func (p Payload) ExecutionID() string {
	execution, ok := p["execution"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := execution["id"].(string)
	return id
}

// RootExecutionID возвращает root_execution_id (для сообщений из sub-workflow).
func (p Payload) RootExecutionID() string {
	id, _ := p["root_execution_id"].(string)
	return id
}

// BelongsTo проверяет, относится ли сообщение к указанному execution.
func (p Payload) BelongsTo(executionID string) bool {
	return p.ExecutionID() == executionID || p.RootExecutionID() == executionID
}

// HasMessage возвращает true, если поле message присутствует и не пустое.
func (p Payload) HasMessage() bool {
	switch v := p["message"].(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

// Message возвращает message в строковом виде.
// Списки и объекты сериализуются в JSON.
func (p Payload) Message() string {
	switch v := p["message"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// Messages возвращает message как список.
// Строка превращается в список из одного элемента.
func (p Payload) Messages() []any {
	switch v := p["message"].(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}

// MessageLines возвращает непустые строковые элементы message.
func (p Payload) MessageLines() []string {
	var lines []string
	for _, m := range p.Messages() {
		s, ok := m.(string)
		if !ok || s == "" {
			continue
		}
		lines = append(lines, s)
	}
	return lines
}

// String возвращает строковое значение поля.
func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return strings.TrimSpace(s)
}

// Decode декодирует поле key в out (по json-тегам).
func (p Payload) Decode(key string, out any) error {
	value, ok := p[key]
	if !ok {
		return fmt.Errorf("payload has no field %q", key)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(value); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
