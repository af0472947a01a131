// Package cli реализует команды overcloud для TripleO CLI.
//
// # Обзор
//
// Команды разбирают аргументы, читают файлы узлов и RAID-конфигураций
// и вызывают операции workflows.Runner. Сами workflows выполняются
// на движке, пакет только собирает клиентов и форматирует вывод.
//
// # Ключевые компоненты
//
// ## Clients
//
// Зависимости команд: Runner (через интерфейс Workflows) и клиент
// объектного хранилища для скачивания экспортированных планов.
// NewClients выбирает транспорт сообщений по конфигурации:
//   - amqp — подписка через брокер (internal/mq)
//   - websocket — подписка через websocket (internal/messaging)
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения workflows и ошибки — в stderr.
// Это позволяет использовать pipe: tripleo overcloud plan list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - overcloud node: import, introspect, provide, configure, discover
//   - overcloud raid: create
//   - overcloud plan: list, create, delete, deploy, export
//
// Каждая группа создаётся через фабричную функцию (NewNodeCmd и т.д.),
// принимающую clientsFn и outputFn — замыкания для ленивого создания
// Clients и Output после парсинга PersistentFlags.
package cli
