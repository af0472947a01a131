// Package orchestration — клиент сервиса оркестрации стеков.
//
// Workflow deploy_plan только запускает создание или обновление
// стека overcloud. CLI дожидается, пока стек придёт в финальное
// состояние:
//
//	GET /stacks/{name} — текущее состояние стека
//
// WaitForStack опрашивает стек с постоянным интервалом до
// <ACTION>_COMPLETE, *_FAILED или ROLLBACK_COMPLETE.
package orchestration
