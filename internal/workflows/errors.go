package workflows

import (
	"errors"
	"fmt"
)

// Ошибки workflows. Конкретный текст для пользователя
// содержится в WorkflowError.Message.
var (
	// ErrRegisterOrUpdate — регистрация или обнаружение узлов не удались.
	ErrRegisterOrUpdate = errors.New("node registration failed")

	// ErrNodeProvide — перевод узлов в available не удался.
	ErrNodeProvide = errors.New("node provide failed")

	// ErrIntrospection — introspection завершилась с ошибками.
	ErrIntrospection = errors.New("introspection failed")

	// ErrNodeConfiguration — настройка загрузки узлов не удалась.
	ErrNodeConfiguration = errors.New("node configuration failed")

	// ErrRaidConfiguration — создание RAID не удалось.
	ErrRaidConfiguration = errors.New("raid configuration failed")

	// ErrPlanCreation — не удалось создать контейнер плана.
	ErrPlanCreation = errors.New("plan creation failed")

	// ErrWorkflowService — workflow управления планом или развёртывания завершился ошибкой.
	ErrWorkflowService = errors.New("workflow service error")

	// ErrDeployment — стек не пришёл в состояние COMPLETE после deploy_plan.
	ErrDeployment = errors.New("deployment failed")

	// ErrPlanExport — экспорт плана не удался.
	ErrPlanExport = errors.New("plan export failed")

	// ErrWebSocketTimeout — сообщения не пришли до истечения таймаута.
	ErrWebSocketTimeout = errors.New("timed out waiting for workflow messages")

	// ErrInvalidArgument — некорректные входные параметры.
	ErrInvalidArgument = errors.New("invalid argument")
)

// WorkflowError — ошибка выполнения конкретного workflow или action.
type WorkflowError struct {
	// Workflow — имя workflow или action.
	Workflow string

	// ExecutionID — идентификатор execution (может быть пустым).
	ExecutionID string

	// Status — финальный статус сообщения или состояние execution.
	Status string

	// Message — текст для пользователя.
	Message string

	// Err — одна из sentinel-ошибок пакета.
	Err error
}

// Error реализует интерфейс error.
func (e *WorkflowError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Workflow, e.Err)
}

// Unwrap возвращает sentinel-ошибку.
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// invalidArgument возвращает ErrInvalidArgument с пояснением.
func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
