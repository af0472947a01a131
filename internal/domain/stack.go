package domain

import "strings"

// Действия стека, для которых ожидается завершение.
const (
	StackActionCreate   = "CREATE"
	StackActionUpdate   = "UPDATE"
	StackActionRollback = "ROLLBACK"
)

// Stack — стек overcloud в сервисе оркестрации.
type Stack struct {
	ID   string `json:"id"`
	Name string `json:"stack_name"`

	// Status — действие и его состояние, например UPDATE_IN_PROGRESS.
	Status       string `json:"stack_status"`
	StatusReason string `json:"stack_status_reason,omitempty"`
}

// Action возвращает действие из Status (CREATE, UPDATE, ...).
func (s *Stack) Action() string {
	action, _, _ := strings.Cut(s.Status, "_")
	return action
}

// State возвращает состояние из Status (IN_PROGRESS, COMPLETE, FAILED).
func (s *Stack) State() string {
	_, state, _ := strings.Cut(s.Status, "_")
	return state
}

// Completed сообщает, что действие action завершилось успешно.
func (s *Stack) Completed(action string) bool {
	return s.Action() == action && s.State() == "COMPLETE"
}

// Failed сообщает, что последнее действие завершилось ошибкой
// или стек откатился.
func (s *Stack) Failed() bool {
	return s.State() == "FAILED" || s.Completed(StackActionRollback)
}

// Settled — ожидание action можно заканчивать.
func (s *Stack) Settled(action string) bool {
	return s.Completed(action) || s.Failed()
}
