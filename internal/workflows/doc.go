// Package workflows запускает workflows развёртывания и интерпретирует
// их сообщения.
//
// # Протокол
//
// Каждый вызов получает собственную очередь (queue_name — случайный UUID).
// Runner подписывается на неё, запускает workflow с queue_name во входе
// и читает сообщения, пока не придёт статус, отличный от RUNNING.
// Текст поля message промежуточных сообщений печатается в Out.
//
// Финальное сообщение превращается в результат (например, список
// зарегистрированных узлов или tempurl экспорта) или в *WorkflowError,
// который оборачивает одну из sentinel-ошибок пакета:
//
//	nodes, err := runner.RegisterOrUpdate(ctx, in)
//	if errors.Is(err, workflows.ErrRegisterOrUpdate) { ... }
//
// Если за Timeout не пришло ни одного сообщения, Runner запрашивает
// состояние execution и возвращает ErrWebSocketTimeout с пояснением.
//
// # Группы операций
//
//   - baremetal.go — регистрация, introspection, provide, configure, RAID, discovery
//   - plan.go      — список, создание, удаление, развёртывание и экспорт планов
package workflows
