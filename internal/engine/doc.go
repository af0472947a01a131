// Package engine — клиент движка workflows.
//
// Движок хранит зарегистрированные workflows и actions (tripleo.baremetal.v1.*,
// tripleo.plan_management.v1.*, tripleo.plan.*) и выполняет их. CLI только
// запускает их и читает состояние:
//
//	POST /executions          — запуск workflow
//	GET  /executions/{id}     — состояние execution
//	POST /action_executions   — запуск action (обычно синхронно)
//
// Input, output и params передаются как JSON-строки внутри JSON-тела,
// Client скрывает это от вызывающего кода.
package engine
