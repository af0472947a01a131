package domain

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// Execution — запущенный экземпляр workflow в движке.
type Execution struct {
	// ID — идентификатор execution, присвоенный движком.
	ID string `json:"id"`

	// WorkflowName — полное имя workflow (например, tripleo.baremetal.v1.provide).
	WorkflowName string `json:"workflow_name"`

	// State — текущее состояние.
	State ExecutionState `json:"state"`

	// StateInfo — пояснение к состоянию (обычно текст ошибки).
	StateInfo string `json:"state_info,omitempty"`

	// Input — входные параметры workflow.
	Input map[string]any `json:"input,omitempty"`

	// Output — выходные данные (появляются после завершения).
	Output map[string]any `json:"output,omitempty"`

	// CreatedAt — время создания на стороне движка.
	CreatedAt time.Time `json:"created_at"`
}

// IsFinished возвращает true, если execution завершён.
func (e *Execution) IsFinished() bool {
	return e.State.IsTerminal()
}

// ActionResult — результат синхронного вызова action.
//
// Движок возвращает output как JSON-строку вида {"result": ...}.
type ActionResult struct {
	// ID — идентификатор action execution.
	ID string `json:"id"`

	// Name — имя action.
	Name string `json:"name"`

	// State — состояние action execution.
	State ExecutionState `json:"state"`

	// Output — сырой JSON output.
	Output string `json:"output"`
}

// Result возвращает поле result из output.
func (r *ActionResult) Result() gjson.Result {
	return gjson.Get(r.Output, "result")
}

// ResultValue возвращает result как Go-значение (nil для null или отсутствия).
func (r *ActionResult) ResultValue() any {
	result := r.Result()
	if !result.Exists() || result.Type == gjson.Null {
		return nil
	}
	return result.Value()
}

// ResultStrings возвращает result как список строк.
func (r *ActionResult) ResultStrings() []string {
	result := r.Result()
	if !result.IsArray() {
		return nil
	}

	items := result.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}

// ErrorText возвращает описание ошибки из output (для action в состоянии ERROR).
func (r *ActionResult) ErrorText() string {
	if !gjson.Valid(r.Output) {
		return r.Output
	}
	result := r.Result()
	if result.Exists() && result.Type == gjson.String {
		return result.String()
	}
	if result.Exists() {
		data, _ := json.Marshal(result.Value())
		return string(data)
	}
	return r.Output
}
