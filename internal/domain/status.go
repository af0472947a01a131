package domain

// ExecutionState — состояние выполнения workflow на стороне движка.
//
// Жизненный цикл:
//
//	IDLE → RUNNING → SUCCESS
//	             ↘ ERROR
//	     (или) → PAUSED → RUNNING
type ExecutionState string

const (
	// ExecutionStateIdle — execution создан, но ещё не запущен.
	ExecutionStateIdle ExecutionState = "IDLE"

	// ExecutionStateRunning — workflow выполняется.
	ExecutionStateRunning ExecutionState = "RUNNING"

	// ExecutionStatePaused — workflow приостановлен.
	ExecutionStatePaused ExecutionState = "PAUSED"

	// ExecutionStateSuccess — workflow успешно завершён.
	ExecutionStateSuccess ExecutionState = "SUCCESS"

	// ExecutionStateError — workflow завершился с ошибкой.
	ExecutionStateError ExecutionState = "ERROR"
)

// IsTerminal возвращает true, если состояние финальное.
func (s ExecutionState) IsTerminal() bool {
	switch s {
	case ExecutionStateSuccess, ExecutionStateError:
		return true
	default:
		return false
	}
}

// PayloadStatus — статус в сообщении о ходе выполнения.
//
// Workflow публикует сообщения со статусом RUNNING, пока работает,
// и одно финальное сообщение с любым другим статусом.
type PayloadStatus string

const (
	// PayloadStatusRunning — промежуточное сообщение.
	PayloadStatusRunning PayloadStatus = "RUNNING"

	// PayloadStatusSuccess — workflow завершился успешно.
	PayloadStatusSuccess PayloadStatus = "SUCCESS"

	// PayloadStatusFailed — workflow завершился с ошибкой.
	PayloadStatusFailed PayloadStatus = "FAILED"
)

// IsTerminal возвращает true для любого статуса, кроме RUNNING.
func (s PayloadStatus) IsTerminal() bool {
	return s != PayloadStatusRunning
}
